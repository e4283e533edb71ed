package balances

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/router"
)

// BalanceEntry is one asset held on one chain, amount as a decimal string
type BalanceEntry struct {
	Denom  string
	Amount string
}

// DenomTrace is the transfer history of a wrapped denomination
type DenomTrace struct {
	Path      string // e.g., "transfer/channel-25/transfer/channel-1"
	BaseDenom string // e.g., "uatom"
}

// TraceLookup fetches the denom trace of a wrapped denomination hash on one chain
type TraceLookup interface {
	DenomTrace(ctx context.Context, hash string) (DenomTrace, error)
}

// ChainContext is the chain a batch of balance entries was read from
type ChainContext struct {
	Key     string
	Name    string
	ChainID string
}

// ReportLine is one allow-listed balance with its resolved route
type ReportLine struct {
	Denom     string
	BaseDenom string
	Amount    *uint256.Int
	// Route holds display labels, origin first
	Route      []string
	Unresolved []string
}

// Complete reports whether the route was fully resolved
func (l ReportLine) Complete() bool {
	return len(l.Unresolved) == 0
}

// ChainReport is the outcome of processing one chain
type ChainReport struct {
	Chain ChainContext
	Lines []ReportLine
	// Subtotals per base denom for this chain only
	Subtotals map[string]*uint256.Int
}

// Printable reports whether the chain has at least one allow-listed entry
func (r *ChainReport) Printable() bool {
	return r != nil && len(r.Lines) > 0
}

// AllowList is the set of reported base denominations
type AllowList map[string]struct{}

// NewAllowList creates an allow-list from the configured denoms
func NewAllowList(denoms []string) AllowList {
	allow := make(AllowList, len(denoms))
	for _, denom := range denoms {
		allow[denom] = struct{}{}
	}
	return allow
}

// Contains reports whether a base denom is allowed
func (a AllowList) Contains(baseDenom string) bool {
	_, ok := a[baseDenom]
	return ok
}

// Resolver is the routing state the aggregator needs, shared read-only by every chain
type Resolver struct {
	Graph         *router.Graph
	OriginChainID string
}
