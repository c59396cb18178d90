package pcapindex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess    = "success"
	statusError      = "error"
	statusOutOfRange = "out_of_range"
	statusEOF        = "eof"

	opGet  = "get"
	opNext = "next"
)

// Metrics holds the Prometheus metrics of an Opener and its readers. A nil
// *Metrics records nothing.
type Metrics struct {
	loadsTotal     *prometheus.CounterVec
	buildsTotal    *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	recordsIndexed prometheus.Counter
	readsTotal     *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapidx_index_loads_total",
				Help: "Offset table load attempts by result",
			},
			[]string{"result"},
		),

		buildsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapidx_index_builds_total",
				Help: "Offset table scans by status",
			},
			[]string{"status"},
		),

		buildDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pcapidx_index_build_duration_seconds",
				Help:    "Duration of offset table scans in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),

		recordsIndexed: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pcapidx_records_indexed_total",
				Help: "Records covered by successful scans",
			},
		),

		readsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapidx_reads_total",
				Help: "Record reads by operation and status",
			},
			[]string{"op", "status"},
		),
	}
}

func (m *Metrics) observeLoad(result loadOutcome) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(string(result)).Inc()
}

func (m *Metrics) observeBuild(records int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.buildsTotal.WithLabelValues(statusError).Inc()
		return
	}
	m.buildsTotal.WithLabelValues(statusSuccess).Inc()
	m.buildDuration.Observe(elapsed.Seconds())
	m.recordsIndexed.Add(float64(records))
}

func (m *Metrics) observeRead(op, status string) {
	if m == nil {
		return
	}
	m.readsTotal.WithLabelValues(op, status).Inc()
}
