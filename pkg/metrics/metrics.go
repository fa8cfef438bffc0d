package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registry activity per domain. A nil *Metrics records nothing.
type Metrics struct {
	QueriesTotal    *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	Initializations *prometheus.CounterVec
	DomainUp        *prometheus.GaugeVec
}

// New creates the registry metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_db_queries_total",
			Help: "Statements executed through the registry, by domain and outcome",
		}, []string{"domain", "outcome"}),
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_db_query_duration_seconds",
			Help:    "Duration of statements executed through the registry",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"domain"}),
		Initializations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_db_initializations_total",
			Help: "Database initialization attempts, by domain and result",
		}, []string{"domain", "result"}),
		DomainUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portal_db_domain_up",
			Help: "1 when the domain holds a live connection handle",
		}, []string{"domain"}),
	}
}

// ObserveQuery records one statement. outcome is "ok" or an error kind.
// Call with time.Now() at the start of the statement.
func (m *Metrics) ObserveQuery(domain, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(domain, outcome).Inc()
	m.QueryDuration.WithLabelValues(domain).Observe(time.Since(start).Seconds())
}

// RecordInitialization counts an initialization that succeeded or failed.
func (m *Metrics) RecordInitialization(domain string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Initializations.WithLabelValues(domain, result).Inc()
}

// SetUp marks whether domain currently holds a handle.
func (m *Metrics) SetUp(domain string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.DomainUp.WithLabelValues(domain).Set(v)
}
