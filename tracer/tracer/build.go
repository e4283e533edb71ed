package tracer

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/address"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/config"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/query"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/router"
)

// routerChains converts the configured chains in key order
func routerChains(cfg *config.TracerConfig) []router.Chain {
	keys := cfg.ChainKeys()
	chains := make([]router.Chain, 0, len(keys))
	for _, key := range keys {
		entry := cfg.Chains[key]
		chains = append(chains, router.Chain{Key: key, Name: entry.Name, ChainID: entry.ChainID})
	}
	return chains
}

// channelLinks flattens paths[destination][source] = channel into links, sorted so graph
// construction errors are reported deterministically.
func channelLinks(cfg *config.TracerConfig) []router.ChannelLink {
	links := make([]router.ChannelLink, 0)
	for destination, sources := range cfg.Paths {
		for source, channel := range sources {
			links = append(links, router.ChannelLink{
				FromChainID: source,
				ToChainID:   destination,
				ChannelID:   channel,
			})
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].ToChainID != links[j].ToChainID {
			return links[i].ToChainID < links[j].ToChainID
		}
		return links[i].FromChainID < links[j].FromChainID
	})
	return links
}

// addressChains lists the chains addresses are derived for, in key order
func addressChains(cfg *config.TracerConfig) []address.Chain {
	keys := cfg.ChainKeys()
	chains := make([]address.Chain, 0, len(keys))
	for _, key := range keys {
		entry := cfg.Chains[key]
		chains = append(chains, address.Chain{Key: key, Name: entry.Name, Prefix: entry.Prefix})
	}
	return chains
}

// BuildGraph builds the route graph of a validated configuration
func BuildGraph(cfg *config.TracerConfig) (*router.Graph, error) {
	graph := router.NewGraph()
	if err := graph.BuildGraph(routerChains(cfg), channelLinks(cfg)); err != nil {
		return nil, err
	}
	return graph, nil
}

// NewLCDClient creates the LCD client described by the [query] section
func NewLCDClient(cfg *config.TracerConfig, reg prometheus.Registerer) (*query.LCDClient, error) {
	return query.NewLCDClient(query.Options{
		Timeout:       cfg.Query.Timeout.Duration,
		RetryAttempts: cfg.Query.RetryAttempts,
		RetryDelay:    cfg.Query.RetryDelay.Duration,
		Registerer:    reg,
	})
}
