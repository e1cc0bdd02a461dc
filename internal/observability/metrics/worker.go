package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	ingestTotal     *prometheus.CounterVec
	summaryTotal    *prometheus.CounterVec
	summaryDuration *prometheus.HistogramVec
	summaryInFlight prometheus.Gauge
	rankDuration    prometheus.Histogram
	rankSize        prometheus.Gauge
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsreel",
			Subsystem: "ingest",
			Name:      "articles_total",
			Help:      "Total ingested raw articles by source and outcome.",
		},
		[]string{"service", "source", "outcome"},
	)
	summaryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsreel",
			Subsystem: "summary",
			Name:      "processed_total",
			Help:      "Total summarization attempts by resulting status.",
		},
		[]string{"service", "status"},
	)
	summaryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsreel",
			Subsystem: "summary",
			Name:      "duration_seconds",
			Help:      "Summarization duration in seconds by resulting status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	summaryInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsreel",
			Subsystem: "summary",
			Name:      "in_flight",
			Help:      "Number of in-flight summarization tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rankDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsreel",
			Subsystem: "rank",
			Name:      "rebuild_duration_seconds",
			Help:      "Feed rerank duration in seconds.",
			Buckets:   prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rankSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsreel",
			Subsystem: "rank",
			Name:      "feed_entries",
			Help:      "Number of entries in the current ranked feed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsreel",
			Subsystem: "summary",
			Name:      "queue_lag_seconds",
			Help:      "Delay between article creation and summarization start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		ingestTotal,
		summaryTotal,
		summaryDuration,
		summaryInFlight,
		rankDuration,
		rankSize,
		queueLag,
	)

	return &WorkerMetrics{
		registry:        registry,
		ingestTotal:     ingestTotal,
		summaryTotal:    summaryTotal,
		summaryDuration: summaryDuration,
		summaryInFlight: summaryInFlight,
		rankDuration:    rankDuration,
		rankSize:        rankSize,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) RecordIngest(service, source, outcome string) {
	m.ingestTotal.WithLabelValues(service, source, outcome).Inc()
}

func (m *WorkerMetrics) StartSummary() {
	m.summaryInFlight.Inc()
}

func (m *WorkerMetrics) FinishSummary(service, status string, duration time.Duration) {
	m.summaryInFlight.Dec()
	m.summaryTotal.WithLabelValues(service, status).Inc()
	m.summaryDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveRank(duration time.Duration, entries int) {
	m.rankDuration.Observe(duration.Seconds())
	m.rankSize.Set(float64(entries))
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
