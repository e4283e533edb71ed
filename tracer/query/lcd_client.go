package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Cogwheel-Validator/spectra-balance-tracer/tracer/balances"
)

// ErrNetwork is returned when an LCD endpoint is unreachable, answers with a non-2xx
// status or returns a body that cannot be decoded.
var ErrNetwork = errors.New("lcd network error")

const (
	balancesPath    = "/cosmos/bank/v1beta1/balances/"
	denomTracesPath = "/ibc/apps/transfer/v1/denom_traces/"

	maxResponseBytes = 8 << 20
)

// Options configures an LCDClient
type Options struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Registerer receives the LCD request metrics, nil disables registration
	Registerer prometheus.Registerer
	// HTTPClient overrides the default client, Timeout is ignored when set
	HTTPClient *http.Client
}

// LCDClient queries the REST (LCD) endpoints of Cosmos chains.
// One client serves every chain, the base URL is passed per call.
type LCDClient struct {
	client        *http.Client
	retryAttempts int
	retryDelay    time.Duration
	metrics       *Metrics
}

// NewLCDClient creates a client from options
func NewLCDClient(opts Options) (*LCDClient, error) {
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register lcd metrics: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	attempts := opts.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}

	return &LCDClient{
		client:        httpClient,
		retryAttempts: attempts,
		retryDelay:    opts.RetryDelay,
		metrics:       metrics,
	}, nil
}

// Balances returns every balance of address, following pagination until the
// endpoint stops returning a next key.
func (c *LCDClient) Balances(ctx context.Context, baseURL, address string) ([]balances.BalanceEntry, error) {
	entries := make([]balances.BalanceEntry, 0)
	seen := make(map[string]struct{})
	nextKey := ""

	for {
		endpoint := strings.TrimSuffix(baseURL, "/") + balancesPath + url.PathEscape(address)
		if nextKey != "" {
			endpoint = fmt.Sprintf("%s?pagination.key=%s", endpoint, url.QueryEscape(nextKey))
		}

		var response BalancesResponse
		if err := c.getJSON(ctx, queryBalances, endpoint, &response); err != nil {
			return nil, fmt.Errorf("query balances of %s: %w", address, err)
		}

		for _, coin := range response.Balances {
			entries = append(entries, balances.BalanceEntry{Denom: coin.Denom, Amount: coin.Amount})
		}

		nextKey = response.Pagination.NextKey
		if nextKey == "" {
			break
		}
		if _, loop := seen[nextKey]; loop {
			return nil, fmt.Errorf("%w: %s repeated pagination key %q", ErrNetwork, baseURL, nextKey)
		}
		seen[nextKey] = struct{}{}
	}

	log.Debug().
		Str("lcd", baseURL).
		Str("address", address).
		Int("balances", len(entries)).
		Msg("Fetched balances")

	return entries, nil
}

// DenomTrace returns the trace of a wrapped denom. hash may be given with or without
// the "ibc/" prefix.
func (c *LCDClient) DenomTrace(ctx context.Context, baseURL, hash string) (balances.DenomTrace, error) {
	hash = strings.TrimPrefix(hash, "ibc/")
	endpoint := strings.TrimSuffix(baseURL, "/") + denomTracesPath + url.PathEscape(hash)

	var response DenomTraceResponse
	if err := c.getJSON(ctx, queryDenomTrace, endpoint, &response); err != nil {
		return balances.DenomTrace{}, fmt.Errorf("query denom trace %s: %w", hash, err)
	}
	if response.DenomTrace.BaseDenom == "" {
		return balances.DenomTrace{}, fmt.Errorf("%w: denom trace %s has no base denom", ErrNetwork, hash)
	}

	return balances.DenomTrace{
		Path:      response.DenomTrace.Path,
		BaseDenom: response.DenomTrace.BaseDenom,
	}, nil
}

// getJSON performs a GET with retries and decodes the body into out
func (c *LCDClient) getJSON(ctx context.Context, query, endpoint string, out any) error {
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			start := time.Now()
			body, err := c.get(ctx, endpoint)
			c.metrics.observe(query, time.Since(start).Seconds(), err)
			return body, err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retryAttempts+1)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("attempt", n+1).Str("url", endpoint).Msg("Retrying LCD request")
		}),
	)
	if err != nil {
		if errors.Is(err, ErrNetwork) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrNetwork, endpoint, err)
	}
	return nil
}

func (c *LCDClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: build request: %w", ErrNetwork, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("%w: GET %s: unexpected status code %d", ErrNetwork, endpoint, resp.StatusCode)
		// client errors other than rate limiting will not change on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Unrecoverable(statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrNetwork, endpoint, err)
	}
	return body, nil
}

// ChainQuerier binds an LCDClient to one chain's LCD endpoint
type ChainQuerier struct {
	client  *LCDClient
	baseURL string
}

// ForChain returns a querier for one chain
func (c *LCDClient) ForChain(baseURL string) *ChainQuerier {
	return &ChainQuerier{client: c, baseURL: baseURL}
}

// Balances returns every balance of address on this chain
func (q *ChainQuerier) Balances(ctx context.Context, address string) ([]balances.BalanceEntry, error) {
	return q.client.Balances(ctx, q.baseURL, address)
}

// DenomTrace implements balances.TraceLookup
func (q *ChainQuerier) DenomTrace(ctx context.Context, hash string) (balances.DenomTrace, error) {
	return q.client.DenomTrace(ctx, q.baseURL, hash)
}

var _ balances.TraceLookup = (*ChainQuerier)(nil)
