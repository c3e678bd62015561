package hiviz

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes delivery counters of one Logger as a prometheus.Collector.
// It is not registered anywhere; register it with the registry of choice:
//
//	prometheus.MustRegister(logger.Metrics())
type Metrics struct {
	enqueued   prometheus.Counter
	dropped    prometheus.Counter
	delivered  *prometheus.CounterVec
	sinkErrors *prometheus.CounterVec
	rotations  prometheus.Counter
	queueDepth prometheus.GaugeFunc
}

func newMetrics(depth func() float64) *Metrics {
	return &Metrics{
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiviz_records_enqueued_total",
			Help: "Records accepted by the delivery queue",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiviz_records_dropped_total",
			Help: "Records lost to a full bounded queue or emitted after close",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiviz_sink_writes_total",
			Help: "Rendered records written, by sink",
		}, []string{"sink"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiviz_sink_errors_total",
			Help: "Failed sink writes, by sink",
		}, []string{"sink"}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiviz_file_rotations_total",
			Help: "Log file rotations",
		}),
		queueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "hiviz_queue_depth",
			Help: "Records waiting for the worker",
		}, depth),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.enqueued, m.dropped, m.delivered, m.sinkErrors, m.rotations, m.queueDepth}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}
