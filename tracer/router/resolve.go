package router

// ResolveRoute walks a hop path backward from the chain the asset was observed on.
//
// The most recent hop is resolved first: for every channel, newest to oldest, the graph
// gives the chain that sent the asset over it, and that chain becomes the cursor for the
// next channel. Channels without a configured link leave the cursor in place and are
// recorded in Route.Unresolved.
//
// The returned chains are ordered origin first and current chain last. originChainID is
// placed at the head when the walk did not end on it, and consecutive duplicates are
// collapsed, so an empty hop path yields [origin, current] or [current] when both are
// the same chain.
func ResolveRoute(hopPath, currentChainID string, graph *Graph, originChainID string) Route {
	channels := Channels(hopPath)

	walked := []string{currentChainID}
	unresolved := make([]string, 0)
	cursor := currentChainID
	for i := len(channels) - 1; i >= 0; i-- {
		from, ok := graph.FindPredecessor(cursor, channels[i])
		if !ok {
			unresolved = append(unresolved, channels[i])
			continue
		}
		walked = append(walked, from)
		cursor = from
	}

	chains := make([]string, 0, len(walked)+1)
	if originChainID != "" {
		chains = append(chains, originChainID)
	}
	for i := len(walked) - 1; i >= 0; i-- {
		if len(chains) > 0 && chains[len(chains)-1] == walked[i] {
			continue
		}
		chains = append(chains, walked[i])
	}

	return Route{Chains: chains, Unresolved: unresolved}
}
