package rag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records per-stage timings and failures on a private registry so
// that a one-shot run can dump them to a textfile. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	retrievedRows prometheus.Gauge
	ingestedRows  prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragask_stage_duration_seconds",
				Help:    "Duration of each pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragask_stage_failures_total",
				Help: "Total number of failed pipeline stages",
			},
			[]string{"stage"},
		),
		retrievedRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ragask_retrieved_rows",
			Help: "Rows returned by the last similarity query",
		}),
		ingestedRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "ragask_ingested_rows_total",
			Help: "Total number of rows written by ingestion",
		}),
	}
}

// WriteToTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeStage(stage Stage, start time.Time, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(string(stage)).Inc()
	}
}

func (m *Metrics) setRetrieved(n int) {
	if m == nil {
		return
	}
	m.retrievedRows.Set(float64(n))
}

func (m *Metrics) addIngested(n int) {
	if m == nil {
		return
	}
	m.ingestedRows.Add(float64(n))
}
