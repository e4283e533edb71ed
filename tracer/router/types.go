package router

// Chain is one node of the route graph.
type Chain struct {
	// Key is the configuration key, used as the display label in routes
	Key     string
	Name    string
	ChainID string
}

// ChannelLink is one configured edge: assets arriving on ToChainID through ChannelID
// were sent from FromChainID.
type ChannelLink struct {
	FromChainID string
	ToChainID   string
	ChannelID   string
}

// Graph is the read-only channel topology used to walk transfer paths backward
type Graph struct {
	chains      map[string]Chain             // chainId -> Chain
	keyToID     map[string]string            // config key -> chainId
	predecessor map[string]map[string]string // toChainId -> channelId -> fromChainId
	linkCount   int
}

// Route is the resolved origin-to-current chain sequence of one wrapped balance.
type Route struct {
	// Chains holds chain ids, head is the origin and tail the chain holding the asset
	Chains []string
	// Unresolved holds the channel ids that had no configured link
	Unresolved []string
}

// Complete reports whether every hop of the transfer path was matched to a link
func (r Route) Complete() bool {
	return len(r.Unresolved) == 0
}
