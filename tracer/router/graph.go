package router

import (
	"fmt"
)

// NewGraph creates a new Graph with initialized maps
func NewGraph() *Graph {
	return &Graph{
		chains:      make(map[string]Chain),
		keyToID:     make(map[string]string),
		predecessor: make(map[string]map[string]string),
	}
}

// BuildGraph indexes the chains and links. Links are keyed by (destination, channel) so
// predecessor lookups do not scan the configuration.
func (g *Graph) BuildGraph(chains []Chain, links []ChannelLink) error {
	if len(chains) == 0 {
		return fmt.Errorf("no chains to build graph for")
	}

	for _, chain := range chains {
		if chain.ChainID == "" {
			return fmt.Errorf("chain %s has no chain id", chain.Key)
		}
		if existing, dup := g.chains[chain.ChainID]; dup {
			return fmt.Errorf("chain id %s is used by both %s and %s", chain.ChainID, existing.Key, chain.Key)
		}
		g.chains[chain.ChainID] = chain
		if chain.Key != "" {
			g.keyToID[chain.Key] = chain.ChainID
		}
	}

	for _, link := range links {
		if link.FromChainID == "" || link.ToChainID == "" || link.ChannelID == "" {
			return fmt.Errorf("incomplete link %+v", link)
		}
		if g.predecessor[link.ToChainID] == nil {
			g.predecessor[link.ToChainID] = make(map[string]string)
		}
		if from, exists := g.predecessor[link.ToChainID][link.ChannelID]; exists && from != link.FromChainID {
			return fmt.Errorf(
				"%s on %s is linked to both %s and %s",
				link.ChannelID, link.ToChainID, from, link.FromChainID,
			)
		}
		g.predecessor[link.ToChainID][link.ChannelID] = link.FromChainID
		g.linkCount++
	}

	return nil
}

// FindPredecessor returns the chain that sends assets into currentChainID over channelID
func (g *Graph) FindPredecessor(currentChainID, channelID string) (string, bool) {
	from, ok := g.predecessor[currentChainID][channelID]
	return from, ok
}

// Label returns the configuration key of a chain, or the chain id for unknown chains
func (g *Graph) Label(chainID string) string {
	if chain, ok := g.Chain(chainID); ok && chain.Key != "" {
		return chain.Key
	}
	return chainID
}

// Labels maps every chain id of a route to its label
func (g *Graph) Labels(chainIDs []string) []string {
	labels := make([]string, len(chainIDs))
	for i, id := range chainIDs {
		labels[i] = g.Label(id)
	}
	return labels
}

// ChainID resolves a configuration key or a chain id to a chain id. Unknown values are
// returned unchanged so an origin outside the configured chains still shows up in routes.
func (g *Graph) ChainID(keyOrID string) string {
	if id, ok := g.keyToID[keyOrID]; ok {
		return id
	}
	return keyOrID
}

// Chain returns the configured chain for a chain id
func (g *Graph) Chain(chainID string) (Chain, bool) {
	chain, ok := g.chains[chainID]
	return chain, ok
}

// LinkCount returns the number of indexed links
func (g *Graph) LinkCount() int {
	return g.linkCount
}
