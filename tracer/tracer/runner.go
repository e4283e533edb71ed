package tracer

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/address"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/balances"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/config"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/query"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/router"
)

const instrumentationName = "github.com/Cogwheel-Validator/spectra-balance-tracer/tracer"

// Runner processes every configured chain for one set of addresses.
// A Runner is read-only after construction and may serve concurrent runs.
type Runner struct {
	cfg         *config.TracerConfig
	graph       *router.Graph
	deriver     *address.Deriver
	aggregator  *balances.Aggregator
	lcd         *query.LCDClient
	parallelism int
}

// Result is the outcome of one run
type Result struct {
	// Reports of the chains that were processed, in chain key order
	Reports  []*balances.ChainReport
	Totals   []balances.Total
	Failures []ChainFailure
}

// Failed reports whether at least one chain could not be processed
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// NewRunner builds the route graph and the aggregator of a validated configuration
func NewRunner(cfg *config.TracerConfig, lcd *query.LCDClient) (*Runner, error) {
	graph, err := BuildGraph(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}

	resolver := balances.Resolver{
		Graph:         graph,
		OriginChainID: graph.ChainID(cfg.DenomsSource),
	}
	parallelism := cfg.Query.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	log.Debug().
		Int("chains", len(cfg.Chains)).
		Int("links", graph.LinkCount()).
		Str("origin", resolver.OriginChainID).
		Msg("Route graph built")

	return &Runner{
		cfg:         cfg,
		graph:       graph,
		deriver:     address.NewDeriver(addressChains(cfg)),
		aggregator:  balances.NewAggregator(resolver, balances.NewAllowList(cfg.Denoms)),
		lcd:         lcd,
		parallelism: parallelism,
	}, nil
}

// Graph returns the route graph
func (r *Runner) Graph() *router.Graph {
	return r.graph
}

// Config returns the configuration the runner was built from
func (r *Runner) Config() *config.TracerConfig {
	return r.cfg
}

// DeriveAddresses returns the address of source on every configured chain
func (r *Runner) DeriveAddresses(source string, overrides map[string]string) (map[string]string, error) {
	return r.deriver.DeriveAll(source, overrides)
}

// AddressChains returns the chains addresses are derived for, in key order
func (r *Runner) AddressChains() []address.Chain {
	return r.deriver.Chains()
}

// Run queries and aggregates every configured chain. Chains are handled in key order, or
// at most parallelism at a time. Network and parse errors only fail their own chain and
// end up in Result.Failures. An overflow of the run totals or a cancelled context aborts
// the run and is returned as the error.
func (r *Runner) Run(ctx context.Context, addresses map[string]string) (*Result, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "tracer.Run")
	defer span.End()

	keys := r.cfg.ChainKeys()
	totals := balances.NewTotals()
	reports := make([]*balances.ChainReport, len(keys))
	failures := make([]*ChainFailure, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, key := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report, err := r.processChain(gctx, key, addresses[key])
			if err == nil {
				err = balances.Commit(totals, report)
			}
			switch {
			case err == nil:
				reports[i] = report
				return nil
			case errors.Is(err, balances.ErrOverflow):
				return err
			case gctx.Err() != nil:
				return gctx.Err()
			}

			log.Error().Err(err).Str("chain", key).Msg("Chain failed, continuing with the remaining chains")
			failures[i] = &ChainFailure{Key: key, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Reports:  make([]*balances.ChainReport, 0, len(keys)),
		Totals:   totals.Snapshot(),
		Failures: make([]ChainFailure, 0),
	}
	for i := range keys {
		if reports[i] != nil {
			result.Reports = append(result.Reports, reports[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
	}

	span.SetAttributes(
		attribute.Int("chains.processed", len(result.Reports)),
		attribute.Int("chains.failed", len(result.Failures)),
	)
	if result.Failed() {
		span.SetStatus(codes.Error, "some chains failed")
	}

	return result, nil
}

func (r *Runner) processChain(ctx context.Context, key, addr string) (*balances.ChainReport, error) {
	entry := r.cfg.Chains[key]

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "tracer.chain")
	defer span.End()
	span.SetAttributes(
		attribute.String("chain.key", key),
		attribute.String("chain.id", entry.ChainID),
	)

	report, err := r.queryChain(ctx, key, entry, addr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("report.lines", len(report.Lines)))
	return report, nil
}

func (r *Runner) queryChain(
	ctx context.Context,
	key string,
	entry config.ChainEntry,
	addr string,
) (*balances.ChainReport, error) {
	if addr == "" {
		return nil, fmt.Errorf("no address for chain %s", key)
	}

	querier := r.lcd.ForChain(entry.LCD)
	entries, err := querier.Balances(ctx, addr)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("chain", key).Str("address", addr).Int("balances", len(entries)).Msg("Processing chain")

	chain := balances.ChainContext{Key: key, Name: entry.Name, ChainID: entry.ChainID}
	return r.aggregator.Process(ctx, chain, entries, querier)
}
