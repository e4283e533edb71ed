package tracer_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/balances"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/config"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/query"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/tracer"
)

const maxUint256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

// fakeLCD serves chain key -> address-less balance body and hash -> trace body.
type fakeLCD struct {
	balances map[string]string
	traces   map[string]string
	failing  map[string]bool
}

func (f *fakeLCD) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	chain, rest := parts[0], "/"+parts[1]
	if f.failing[chain] {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	switch {
	case strings.HasPrefix(rest, "/cosmos/bank/v1beta1/balances/"):
		body, ok := f.balances[chain]
		if !ok {
			body = `[]`
		}
		fmt.Fprintf(w, `{"balances":%s,"pagination":{"next_key":null}}`, body)
	case strings.HasPrefix(rest, "/ibc/apps/transfer/v1/denom_traces/"):
		hash := strings.TrimPrefix(rest, "/ibc/apps/transfer/v1/denom_traces/")
		body, ok := f.traces[hash]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func testConfig(t *testing.T, lcd string, parallelism int) *config.TracerConfig {
	t.Helper()
	body := fmt.Sprintf(`
denoms = ["uatom", "untrn"]
denoms_source = "cosmoshub"

[chains.cosmoshub]
name = "Cosmos Hub"
chain_id = "cosmoshub-4"
prefix = "cosmos"
lcd = "%[1]s/cosmoshub"

[chains.neutron]
name = "Neutron"
chain_id = "neutron-1"
prefix = "neutron"
lcd = "%[1]s/neutron"

[chains.osmosis]
name = "Osmosis"
chain_id = "osmosis-1"
prefix = "osmo"
lcd = "%[1]s/osmosis"

[paths."neutron-1"]
"cosmoshub-4" = "channel-1"

[paths."osmosis-1"]
"cosmoshub-4" = "channel-0"

[paths."cosmoshub-4"]
"neutron-1" = "channel-569"

[query]
timeout = "2s"
retry_attempts = 1
retry_delay = "1ms"
parallelism = %[2]d
`, lcd, parallelism)

	cfg, err := config.ParseTracerConfig([]byte(body))
	assert.NoError(t, err)
	return cfg
}

func neutronAddress(t *testing.T) string {
	t.Helper()
	data, err := bech32.ConvertBits([]byte("01234567890123456789"), 8, 5, true)
	assert.NoError(t, err)
	addr, err := bech32.Encode("neutron", data)
	assert.NoError(t, err)
	return addr
}

func defaultLCD() *fakeLCD {
	return &fakeLCD{
		balances: map[string]string{
			"cosmoshub": `[{"denom":"uatom","amount":"10"}]`,
			"neutron":   `[{"denom":"untrn","amount":"100"},{"denom":"ibc/HUB","amount":"5"}]`,
			"osmosis":   `[{"denom":"ibc/OSMO","amount":"7"},{"denom":"uosmo","amount":"9"}]`,
		},
		traces: map[string]string{
			"HUB":  `{"denom_trace":{"path":"transfer/channel-1","base_denom":"uatom"}}`,
			"OSMO": `{"denom_trace":{"path":"transfer/channel-0","base_denom":"uatom"}}`,
		},
		failing: map[string]bool{},
	}
}

func run(t *testing.T, lcd *fakeLCD, parallelism int) (*tracer.Result, error) {
	t.Helper()
	server := httptest.NewServer(lcd)
	t.Cleanup(server.Close)

	cfg := testConfig(t, server.URL, parallelism)
	client, err := tracer.NewLCDClient(cfg, nil)
	assert.NoError(t, err)
	runner, err := tracer.NewRunner(cfg, client)
	assert.NoError(t, err)

	addresses, err := runner.DeriveAddresses(neutronAddress(t), nil)
	assert.NoError(t, err)
	return runner.Run(context.Background(), addresses)
}

func totalsOf(result *tracer.Result) map[string]string {
	out := make(map[string]string, len(result.Totals))
	for _, total := range result.Totals {
		out[total.BaseDenom] = total.Amount.Dec()
	}
	return out
}

func TestRun(t *testing.T) {
	result, err := run(t, defaultLCD(), 1)
	assert.NoError(t, err)
	assert.False(t, result.Failed())

	assert.Equal(t, len(result.Reports), 3)
	assert.Equal(t, result.Reports[0].Chain.Key, "cosmoshub")
	assert.Equal(t, result.Reports[1].Chain.Key, "neutron")
	assert.Equal(t, result.Reports[2].Chain.Key, "osmosis")

	neutron := result.Reports[1]
	assert.Equal(t, len(neutron.Lines), 2)
	assert.DeepEqual(t, neutron.Lines[0].Route, []string{"neutron"})
	assert.DeepEqual(t, neutron.Lines[1].Route, []string{"cosmoshub", "neutron"})

	osmosis := result.Reports[2]
	assert.Equal(t, len(osmosis.Lines), 1)
	assert.Equal(t, osmosis.Lines[0].BaseDenom, "uatom")

	assert.DeepEqual(t, totalsOf(result), map[string]string{"uatom": "22", "untrn": "100"})
	assert.Equal(t, result.Totals[0].BaseDenom, "uatom")
}

func TestRunParallelMatchesSequential(t *testing.T) {
	sequential, err := run(t, defaultLCD(), 1)
	assert.NoError(t, err)
	parallel, err := run(t, defaultLCD(), 3)
	assert.NoError(t, err)

	assert.DeepEqual(t, totalsOf(parallel), totalsOf(sequential))
	assert.Equal(t, len(parallel.Reports), len(sequential.Reports))
	for i := range parallel.Reports {
		assert.Equal(t, parallel.Reports[i].Chain.Key, sequential.Reports[i].Chain.Key)
	}
}

func TestRunIsolatesNetworkFailure(t *testing.T) {
	lcd := defaultLCD()
	lcd.failing["osmosis"] = true

	result, err := run(t, lcd, 1)
	assert.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, len(result.Failures), 1)
	assert.Equal(t, result.Failures[0].Key, "osmosis")
	assert.True(t, errors.Is(result.Failures[0], query.ErrNetwork))

	assert.Equal(t, len(result.Reports), 2)
	assert.DeepEqual(t, totalsOf(result), map[string]string{"uatom": "15", "untrn": "100"})
}

func TestRunParseFailureLeavesNoPartialTotals(t *testing.T) {
	lcd := defaultLCD()
	lcd.balances["neutron"] = `[{"denom":"untrn","amount":"100"},{"denom":"ibc/HUB","amount":"five"}]`

	result, err := run(t, lcd, 1)
	assert.NoError(t, err)
	assert.Equal(t, len(result.Failures), 1)
	assert.Equal(t, result.Failures[0].Key, "neutron")
	assert.True(t, errors.Is(result.Failures[0].Err, balances.ErrParse))

	assert.DeepEqual(t, totalsOf(result), map[string]string{"uatom": "17"})
}

func TestRunOverflowIsFatal(t *testing.T) {
	lcd := defaultLCD()
	lcd.balances["cosmoshub"] = `[{"denom":"uatom","amount":"` + maxUint256 + `"}]`

	for _, parallelism := range []int{1, 3} {
		t.Run(fmt.Sprint(parallelism), func(t *testing.T) {
			result, err := run(t, lcd, parallelism)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, balances.ErrOverflow))
			assert.True(t, result == nil)
		})
	}
}

func TestRunMissingAddressFailsChain(t *testing.T) {
	server := httptest.NewServer(defaultLCD())
	defer server.Close()

	cfg := testConfig(t, server.URL, 1)
	client, err := tracer.NewLCDClient(cfg, nil)
	assert.NoError(t, err)
	runner, err := tracer.NewRunner(cfg, client)
	assert.NoError(t, err)

	addresses, err := runner.DeriveAddresses(neutronAddress(t), nil)
	assert.NoError(t, err)
	delete(addresses, "cosmoshub")

	result, err := runner.Run(context.Background(), addresses)
	assert.NoError(t, err)
	assert.Equal(t, len(result.Failures), 1)
	assert.Equal(t, result.Failures[0].Key, "cosmoshub")
}

func TestNewRunnerRejectsAmbiguousLinks(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1317", 1)
	cfg.Paths["neutron-1"]["osmosis-1"] = "channel-1"

	_, err := tracer.NewRunner(cfg, nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfig))
}

func TestRunCanceled(t *testing.T) {
	server := httptest.NewServer(defaultLCD())
	defer server.Close()

	cfg := testConfig(t, server.URL, 1)
	client, err := tracer.NewLCDClient(cfg, nil)
	assert.NoError(t, err)
	runner, err := tracer.NewRunner(cfg, client)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx, map[string]string{})
	assert.True(t, errors.Is(err, context.Canceled))
}
