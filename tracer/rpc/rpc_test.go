package rpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/address"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/balances"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/report"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/rpc"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/tracer"
)

type fakeTracer struct {
	overrides map[string]string
	deriveErr error
	runErr    error
	result    *tracer.Result
}

func (f *fakeTracer) DeriveAddresses(source string, overrides map[string]string) (map[string]string, error) {
	f.overrides = overrides
	if f.deriveErr != nil {
		return nil, f.deriveErr
	}
	return map[string]string{"neutron": source}, nil
}

func (f *fakeTracer) Run(ctx context.Context, addresses map[string]string) (*tracer.Result, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.result, nil
}

func sampleResult() *tracer.Result {
	return &tracer.Result{
		Reports: []*balances.ChainReport{{
			Chain: balances.ChainContext{Key: "neutron", Name: "Neutron", ChainID: "neutron-1"},
			Lines: []balances.ReportLine{
				{Denom: "untrn", BaseDenom: "untrn", Amount: uint256.NewInt(2500000), Route: []string{"neutron"}},
			},
		}},
		Totals:   []balances.Total{{BaseDenom: "untrn", Amount: uint256.NewInt(2500000)}},
		Failures: []tracer.ChainFailure{},
	}
}

func newTestServer(t *testing.T, bt rpc.BalanceTracer) *httptest.Server {
	t.Helper()
	cfg := rpc.DefaultServerConfig()
	cfg.Gatherer = prometheus.NewRegistry()
	server, err := rpc.NewServer(context.Background(), cfg, rpc.NewBalanceService(bt, map[string]int32{"untrn": 6}))
	assert.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, []byte, http.Header) {
	t.Helper()
	resp, err := http.Get(url)
	assert.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	return resp.StatusCode, body, resp.Header
}

func TestGetBalances(t *testing.T) {
	bt := &fakeTracer{result: sampleResult()}
	ts := newTestServer(t, bt)

	status, body, header := get(t, ts.URL+"/v1/balances/neutron1abc?override.cosmoshub=cosmos1xyz&other=1")
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, header.Get("Content-Type"), "application/json")
	assert.Equal(t, header.Get("Cache-Control"), "no-store, no-cache, must-revalidate")
	assert.DeepEqual(t, bt.overrides, map[string]string{"cosmoshub": "cosmos1xyz"})

	var rep report.JSONReport
	assert.NoError(t, json.Unmarshal(body, &rep))
	assert.Equal(t, len(rep.Chains), 1)
	assert.Equal(t, rep.Chains[0].Lines[0].Amount, "2500000")
	assert.Equal(t, rep.Chains[0].Lines[0].Display, "2.5")
	assert.Equal(t, rep.Totals[0].BaseDenom, "untrn")
}

func TestGetBalancesErrors(t *testing.T) {
	tests := []struct {
		name   string
		tracer *fakeTracer
		status int
	}{
		{
			name:   "bad address",
			tracer: &fakeTracer{deriveErr: fmt.Errorf("%w: invalid checksum", address.ErrDerivation)},
			status: http.StatusBadRequest,
		},
		{
			name:   "overflow",
			tracer: &fakeTracer{runErr: fmt.Errorf("chain neutron: %w", balances.ErrOverflow)},
			status: http.StatusInternalServerError,
		},
		{
			name:   "cancelled",
			tracer: &fakeTracer{runErr: context.Canceled},
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.tracer)
			status, body, _ := get(t, ts.URL+"/v1/balances/neutron1abc")
			assert.Equal(t, status, tt.status)
			assert.True(t, strings.Contains(string(body), `"error"`))
		})
	}
}

func TestGetBalancesWithFailedChains(t *testing.T) {
	result := sampleResult()
	result.Failures = append(result.Failures, tracer.ChainFailure{Key: "osmosis", Err: errors.New("lcd down")})
	ts := newTestServer(t, &fakeTracer{result: result})

	status, body, _ := get(t, ts.URL+"/v1/balances/neutron1abc")
	assert.Equal(t, status, http.StatusOK)

	var rep report.JSONReport
	assert.NoError(t, json.Unmarshal(body, &rep))
	assert.Equal(t, len(rep.Failures), 1)
	assert.Equal(t, rep.Failures[0].Chain, "osmosis")
}

func TestServerEndpoints(t *testing.T) {
	ts := newTestServer(t, &fakeTracer{result: sampleResult()})

	status, body, _ := get(t, ts.URL+"/server/health")
	assert.Equal(t, status, http.StatusOK)
	assert.True(t, strings.Contains(string(body), "healthy"))

	status, _, _ = get(t, ts.URL+"/server/ready")
	assert.Equal(t, status, http.StatusOK)

	status, _, _ = get(t, ts.URL+"/server/metrics")
	assert.Equal(t, status, http.StatusOK)

	status, _, _ = get(t, ts.URL+"/v1/unknown")
	assert.Equal(t, status, http.StatusNotFound)
}

func TestRateLimit(t *testing.T) {
	cfg := rpc.DefaultServerConfig()
	limit := 1
	cfg.RatePerMinute = &limit
	cfg.Gatherer = prometheus.NewRegistry()
	server, err := rpc.NewServer(context.Background(), cfg, rpc.NewBalanceService(&fakeTracer{result: sampleResult()}, nil))
	assert.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	status, _, _ := get(t, ts.URL+"/server/health")
	assert.Equal(t, status, http.StatusOK)
	status, _, _ = get(t, ts.URL+"/server/health")
	assert.Equal(t, status, http.StatusTooManyRequests)
}
