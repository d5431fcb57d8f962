package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics of the lending book.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	loansCreated       prometheus.Counter
	paymentsRecorded   prometheus.Counter
	accrualScanned     prometheus.Counter
	accrualReclassed   prometheus.Counter
	accrualFailures    prometheus.Counter
	accrualLastRunUnix prometheus.Gauge
}

// AccrualStats is the JSON snapshot of accrual counters served by the
// operational stats endpoint.
type AccrualStats struct {
	Scanned      int64   `json:"scanned_total"`
	Reclassified int64   `json:"reclassified_total"`
	Failures     int64   `json:"failures_total"`
	LastRunUnix  float64 `json:"last_run_unix"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prestabook_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		loansCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "prestabook_loans_created_total",
			Help: "Total loans created.",
		}),
		paymentsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "prestabook_payments_recorded_total",
			Help: "Total installment payments recorded.",
		}),
		accrualScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "prestabook_accrual_scanned_total",
			Help: "Total installments scanned by accrual runs.",
		}),
		accrualReclassed: factory.NewCounter(prometheus.CounterOpts{
			Name: "prestabook_accrual_reclassified_total",
			Help: "Total installments aged from pending to overdue.",
		}),
		accrualFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prestabook_accrual_failures_total",
			Help: "Total per-installment persistence failures during accrual.",
		}),
		accrualLastRunUnix: factory.NewGauge(prometheus.GaugeOpts{
			Name: "prestabook_accrual_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed accrual run.",
		}),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrLoanCreated increments the loans-created counter.
func (m *Metrics) IncrLoanCreated() {
	m.loansCreated.Inc()
}

// IncrPayment increments the payments counter.
func (m *Metrics) IncrPayment() {
	m.paymentsRecorded.Inc()
}

// ObserveAccrualRun records one completed accrual run.
func (m *Metrics) ObserveAccrualRun(scanned, reclassified int) {
	m.accrualScanned.Add(float64(scanned))
	m.accrualReclassed.Add(float64(reclassified))
	m.accrualLastRunUnix.SetToCurrentTime()
}

// IncrAccrualFailure counts one skipped installment in a batch run.
func (m *Metrics) IncrAccrualFailure() {
	m.accrualFailures.Inc()
}

// GetAccrualSnapshot reads the accrual counters back for the
// GET /api/stats/accrual endpoint.
func (m *Metrics) GetAccrualSnapshot() *AccrualStats {
	return &AccrualStats{
		Scanned:      int64(counterValue(m.accrualScanned)),
		Reclassified: int64(counterValue(m.accrualReclassed)),
		Failures:     int64(counterValue(m.accrualFailures)),
		LastRunUnix:  gaugeValue(m.accrualLastRunUnix),
	}
}

// counterValue extracts the current float64 value from a Counter.
func counterValue(c prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}

func gaugeValue(g prometheus.Gauge) float64 {
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
