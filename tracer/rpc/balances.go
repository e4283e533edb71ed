package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/address"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/report"
	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/tracer"
)

// overridePrefix marks query parameters that replace the derived address of one chain,
// e.g. ?override.cosmoshub=cosmos1...
const overridePrefix = "override."

// BalanceTracer derives per-chain addresses and runs the balance trace
type BalanceTracer interface {
	DeriveAddresses(source string, overrides map[string]string) (map[string]string, error)
	Run(ctx context.Context, addresses map[string]string) (*tracer.Result, error)
}

// BalanceService serves traced balances over HTTP
type BalanceService struct {
	tracer    BalanceTracer
	exponents map[string]int32
}

// NewBalanceService creates the HTTP handlers of a tracer
func NewBalanceService(t BalanceTracer, exponents map[string]int32) *BalanceService {
	return &BalanceService{tracer: t, exponents: exponents}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error().Err(err).Msg("Failed to write response")
	}
}

func overridesFromQuery(r *http.Request) map[string]string {
	overrides := make(map[string]string)
	for name, values := range r.URL.Query() {
		key, ok := strings.CutPrefix(name, overridePrefix)
		if !ok || key == "" || len(values) == 0 {
			continue
		}
		overrides[key] = values[len(values)-1]
	}
	return overrides
}

// GetBalances handles GET /v1/balances/{address}
func (s *BalanceService) GetBalances(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "address")

	addresses, err := s.tracer.DeriveAddresses(source, overridesFromQuery(r))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, address.ErrDerivation) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.tracer.Run(r.Context(), addresses)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		Logger.Error().Err(err).Str("address", source).Msg("Balance trace failed")
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	if result.Failed() {
		Logger.Warn().
			Str("address", source).
			Int("failed_chains", len(result.Failures)).
			Msg("Balance trace completed with failed chains")
	}
	writeJSON(w, http.StatusOK, report.NewJSONReport(result, s.exponents))
}
