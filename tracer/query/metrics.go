package query

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	queryBalances   = "balances"
	queryDenomTrace = "denom_trace"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics holds the LCD request collectors
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the LCD collectors and registers them with reg. A nil reg leaves
// them unregistered. Collectors already registered with reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "balance_tracer_lcd_requests_total",
			Help: "LCD requests by query and outcome, one per attempt.",
		}, []string{"query", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "balance_tracer_lcd_request_duration_seconds",
			Help:    "LCD request latency by query.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
	}
	if reg == nil {
		return m, nil
	}

	if err := reg.Register(m.requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m, nil
}

func (m *Metrics) observe(query string, seconds float64, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.requests.WithLabelValues(query, outcome).Inc()
	m.duration.WithLabelValues(query).Observe(seconds)
}
