package router_test

import (
	"testing"

	router "github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/router"
	"github.com/zeebo/assert"
)

var chains = []router.Chain{
	{Key: "neutron", Name: "Neutron", ChainID: "neutron-1"},
	{Key: "cosmoshub", Name: "Cosmos Hub", ChainID: "cosmoshub-4"},
	{Key: "osmosis", Name: "Osmosis", ChainID: "osmosis-1"},
}

var links = []router.ChannelLink{
	{FromChainID: "neutron-1", ToChainID: "cosmoshub-4", ChannelID: "channel-569"},
	{FromChainID: "osmosis-1", ToChainID: "cosmoshub-4", ChannelID: "channel-141"},
	{FromChainID: "cosmoshub-4", ToChainID: "neutron-1", ChannelID: "channel-1"},
	{FromChainID: "osmosis-1", ToChainID: "neutron-1", ChannelID: "channel-10"},
	{FromChainID: "cosmoshub-4", ToChainID: "osmosis-1", ChannelID: "channel-0"},
	{FromChainID: "neutron-1", ToChainID: "osmosis-1", ChannelID: "channel-874"},
}

func buildGraph(t *testing.T) *router.Graph {
	t.Helper()
	graph := router.NewGraph()
	assert.NoError(t, graph.BuildGraph(chains, links))
	return graph
}

func TestFindPredecessor(t *testing.T) {
	graph := buildGraph(t)
	assert.Equal(t, graph.LinkCount(), len(links))

	tests := []struct {
		name    string
		current string
		channel string
		want    string
		found   bool
	}{
		{name: "hub from neutron", current: "cosmoshub-4", channel: "channel-569", want: "neutron-1", found: true},
		{name: "osmosis from neutron", current: "osmosis-1", channel: "channel-874", want: "neutron-1", found: true},
		{name: "neutron from hub", current: "neutron-1", channel: "channel-1", want: "cosmoshub-4", found: true},
		{name: "channel of another chain", current: "neutron-1", channel: "channel-569", found: false},
		{name: "unknown chain", current: "juno-1", channel: "channel-1", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, ok := graph.FindPredecessor(tt.current, tt.channel)
			assert.Equal(t, ok, tt.found)
			assert.Equal(t, from, tt.want)
		})
	}
}

func TestLabelsAndChainID(t *testing.T) {
	graph := buildGraph(t)

	assert.Equal(t, graph.Label("cosmoshub-4"), "cosmoshub")
	assert.Equal(t, graph.Label("juno-1"), "juno-1")
	assert.DeepEqual(t, graph.Labels([]string{"neutron-1", "osmosis-1"}), []string{"neutron", "osmosis"})

	assert.Equal(t, graph.ChainID("neutron"), "neutron-1")
	assert.Equal(t, graph.ChainID("neutron-1"), "neutron-1")
	assert.Equal(t, graph.ChainID("juno"), "juno")

	chain, ok := graph.Chain("osmosis-1")
	assert.True(t, ok)
	assert.Equal(t, chain.Name, "Osmosis")
}

func TestBuildGraphErrors(t *testing.T) {
	assert.Error(t, router.NewGraph().BuildGraph(nil, nil))

	dupChains := []router.Chain{
		{Key: "a", ChainID: "same-1"},
		{Key: "b", ChainID: "same-1"},
	}
	assert.Error(t, router.NewGraph().BuildGraph(dupChains, nil))

	ambiguous := []router.ChannelLink{
		{FromChainID: "neutron-1", ToChainID: "cosmoshub-4", ChannelID: "channel-1"},
		{FromChainID: "osmosis-1", ToChainID: "cosmoshub-4", ChannelID: "channel-1"},
	}
	assert.Error(t, router.NewGraph().BuildGraph(chains, ambiguous))

	incomplete := []router.ChannelLink{{FromChainID: "neutron-1", ToChainID: "cosmoshub-4"}}
	assert.Error(t, router.NewGraph().BuildGraph(chains, incomplete))
}

func TestBuildGraphAllowsRepeatedIdenticalLink(t *testing.T) {
	repeated := []router.ChannelLink{links[0], links[0]}
	assert.NoError(t, router.NewGraph().BuildGraph(chains, repeated))
}
