package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/address"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/balances"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/config"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/prompt"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/query"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/report"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/rpc"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/tracer"
)

const (
	exitOK           = 0
	exitFatal        = 1
	exitFailedChains = 2
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the other packages
	shareLogger(log)
}

func shareLogger(l zerolog.Logger) {
	config.SetLogger(l)
	balances.SetLogger(l)
	query.SetLogger(l)
	tracer.SetLogger(l)
	rpc.SetLogger(l)
}

// overrideFlag collects repeated -override key=address flags
type overrideFlag map[string]string

func (o overrideFlag) String() string {
	pairs := make([]string, 0, len(o))
	for key, addr := range o {
		pairs = append(pairs, key+"="+addr)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (o overrideFlag) Set(value string) error {
	key, addr, ok := strings.Cut(value, "=")
	key, addr = strings.TrimSpace(key), strings.TrimSpace(addr)
	if !ok || key == "" || addr == "" {
		return fmt.Errorf("override must be key=address, got %q", value)
	}
	o[key] = addr
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	overrides := overrideFlag{}

	configPath := flag.String("config", "tracer.toml", "tracer config, a local path or a go-getter URL")
	sourceAddress := flag.String("address", "", "source address, prompted for when empty")
	flag.Var(overrides, "override", "chain_key=address, replaces the derived address of a chain (repeatable)")
	human := flag.Bool("human", false, "scale amounts by the configured exponents")
	metricsOut := flag.String("metrics-out", "", "write LCD request metrics to this textfile after the run")
	serve := flag.Bool("serve", false, "run the HTTP service instead of a single trace")
	serverConfigPath := flag.String("server-config", "", "service config file, TRACER_* environment variables when empty")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	shareLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewDefaultTracerConfigLoader().LoadTracerConfigFrom(ctx, *configPath)
	if err != nil {
		log.Error().Err(err).Str("config", *configPath).Msg("Failed to load tracer config")
		return exitFatal
	}
	log.Debug().
		Str("config", *configPath).
		Int("chains", len(cfg.Chains)).
		Strs("denoms", cfg.Denoms).
		Msg("Loaded tracer config")

	registry := prometheus.NewRegistry()
	lcd, err := tracer.NewLCDClient(cfg, registry)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create LCD client")
		return exitFatal
	}
	runner, err := tracer.NewRunner(cfg, lcd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build route graph")
		return exitFatal
	}

	if *serve {
		return runServer(ctx, runner, registry, *serverConfigPath)
	}

	addresses, err := resolveAddresses(runner, *sourceAddress, overrides)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve addresses")
		return exitFatal
	}

	result, err := runner.Run(ctx, addresses)
	if err != nil {
		log.Error().Err(err).Msg("Balance trace aborted")
		return exitFatal
	}

	if err := report.Write(os.Stdout, result, report.Options{Human: *human, Exponents: cfg.Exponents}); err != nil {
		log.Error().Err(err).Msg("Failed to write report")
		return exitFatal
	}

	if *metricsOut != "" {
		if err := prometheus.WriteToTextfile(*metricsOut, registry); err != nil {
			log.Error().Err(err).Str("path", *metricsOut).Msg("Failed to write metrics")
			return exitFatal
		}
	}

	if result.Failed() {
		log.Warn().Int("failed_chains", len(result.Failures)).Msg("Some chains could not be processed")
		return exitFailedChains
	}
	return exitOK
}

// resolveAddresses derives every chain address from the source address. Without
// -address the source and the per-chain overrides are prompted for.
func resolveAddresses(runner *tracer.Runner, source string, overrides overrideFlag) (map[string]string, error) {
	interactive := source == ""
	if !interactive {
		return runner.DeriveAddresses(source, overrides)
	}

	if !prompt.IsTerminal(os.Stdin) {
		return nil, prompt.ErrNotInteractive
	}
	p := prompt.NewPrompter(os.Stdin, os.Stderr)

	source, err := p.SourceAddress()
	if err != nil {
		return nil, err
	}
	derived, err := runner.DeriveAddresses(source, overrides)
	if err != nil {
		return nil, err
	}
	sourcePrefix, err := address.Prefix(source)
	if err != nil {
		return nil, err
	}

	answers, err := p.Overrides(runner.AddressChains(), derived, sourcePrefix, overrides)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return derived, nil
	}
	for key, addr := range overrides {
		answers[key] = addr
	}
	return runner.DeriveAddresses(source, answers)
}

func runServer(ctx context.Context, runner *tracer.Runner, registry *prometheus.Registry, path string) int {
	var configPath *string
	if path != "" {
		configPath = &path
	}
	serverCfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load server config")
		return exitFatal
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rpcConfig := rpc.NewServerConfig(serverCfg)
	rpcConfig.Gatherer = registry

	service := rpc.NewBalanceService(runner, runner.Config().Exponents)
	server, err := rpc.NewServer(ctx, rpcConfig, service)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create server")
		return exitFatal
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	code := exitOK
	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			code = exitFatal
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
		return exitFatal
	}
	return code
}
