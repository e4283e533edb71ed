package balances

import (
	"context"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/router"
)

// Aggregator turns balance entries of one chain into report lines and per-denom subtotals.
// It holds no state between calls; totals live in the Totals passed to Commit.
type Aggregator struct {
	resolver Resolver
	allow    AllowList
}

// NewAggregator creates an aggregator over a read-only graph and allow-list
func NewAggregator(resolver Resolver, allow AllowList) *Aggregator {
	return &Aggregator{resolver: resolver, allow: allow}
}

// Process classifies, resolves and filters the entries of one chain.
// Entries are processed in the given order and report lines keep that order.
// Direct denominations never reach traces. Nothing is added to any total here, so a
// chain that fails half way leaves no trace in the run totals.
func (a *Aggregator) Process(
	ctx context.Context,
	chain ChainContext,
	entries []BalanceEntry,
	traces TraceLookup,
) (*ChainReport, error) {
	report := &ChainReport{
		Chain:     chain,
		Lines:     make([]ReportLine, 0),
		Subtotals: make(map[string]*uint256.Int),
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, ok, err := a.processEntry(ctx, chain, entry, traces)
		if err != nil {
			return nil, fmt.Errorf("chain %s denom %s: %w", chain.Key, entry.Denom, err)
		}
		if !ok {
			continue
		}

		current, exists := report.Subtotals[line.BaseDenom]
		if !exists {
			current = new(uint256.Int)
		}
		sum, err := checkedAdd(current, line.Amount, line.BaseDenom)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", chain.Key, err)
		}
		report.Subtotals[line.BaseDenom] = sum
		report.Lines = append(report.Lines, line)
	}

	return report, nil
}

// processEntry returns false when the entry's base denom is not allow-listed
func (a *Aggregator) processEntry(
	ctx context.Context,
	chain ChainContext,
	entry BalanceEntry,
	traces TraceLookup,
) (ReportLine, bool, error) {
	denom := router.ClassifyDenom(entry.Denom)

	var (
		baseDenom  string
		route      []string
		unresolved []string
	)

	if denom.IsWrapped() {
		if traces == nil {
			return ReportLine{}, false, fmt.Errorf("no denom trace lookup for wrapped denom %s", entry.Denom)
		}
		trace, err := traces.DenomTrace(ctx, denom.Hash)
		if err != nil {
			return ReportLine{}, false, fmt.Errorf("denom trace %s: %w", denom.Hash, err)
		}
		if !router.TraceMatchesDenom(entry.Denom, trace.Path, trace.BaseDenom) {
			log.Warn().
				Str("chain", chain.Key).
				Str("denom", entry.Denom).
				Str("path", trace.Path).
				Str("base_denom", trace.BaseDenom).
				Msg("Denom trace does not hash to the wrapped denom")
		}
		baseDenom = trace.BaseDenom
		if !a.allow.Contains(baseDenom) {
			return ReportLine{}, false, nil
		}
		resolved := router.ResolveRoute(trace.Path, chain.ChainID, a.resolver.Graph, a.resolver.OriginChainID)
		route = a.resolver.Graph.Labels(resolved.Chains)
		unresolved = resolved.Unresolved
		if !resolved.Complete() {
			log.Warn().
				Str("chain", chain.Key).
				Str("denom", entry.Denom).
				Str("path", trace.Path).
				Strs("unresolved", resolved.Unresolved).
				Msg("Route is incomplete, no configured link for some channels")
		}
	} else {
		baseDenom = denom.Denom
		if !a.allow.Contains(baseDenom) {
			return ReportLine{}, false, nil
		}
		route = []string{strings.ToLower(chain.Name)}
	}

	amount, err := ParseAmount(entry.Amount)
	if err != nil {
		return ReportLine{}, false, err
	}

	return ReportLine{
		Denom:      entry.Denom,
		BaseDenom:  baseDenom,
		Amount:     amount,
		Route:      route,
		Unresolved: unresolved,
	}, true, nil
}

// Commit merges a chain report into the run totals
func Commit(totals *Totals, report *ChainReport) error {
	if report == nil {
		return nil
	}
	return totals.Merge(report.Subtotals)
}
