// Package metrics exports contact upload processing as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/contactload/internal/core"
)

const (
	namespace = "contactload"
	subsystem = "upload"
)

// Collector implements core.Observer.
type Collector struct {
	rows          *prometheus.CounterVec
	fieldRejected *prometheus.CounterVec
	batchDuration prometheus.Histogram
	batchesTotal  *prometheus.CounterVec
}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "rows_total", Help: "CSV rows by outcome (seen, parsed)",
		}, []string{"outcome"}),

		fieldRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "field_rejections_total", Help: "Rejected fields by field name",
		}, []string{"field"}),

		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "batch_duration_seconds", Help: "Time to process one uploaded file",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 300},
		}),

		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "batches_total", Help: "Processed files by result (ok, fault)",
		}, []string{"result"}),
	}

	registerCollector(reg, c.rows)
	registerCollector(reg, c.fieldRejected)
	registerCollector(reg, c.batchDuration)
	registerCollector(reg, c.batchesTotal)

	return c
}

// FieldRejected implements core.Observer.
func (c *Collector) FieldRejected(field core.Field) {
	c.fieldRejected.WithLabelValues(field.String()).Inc()
}

// BatchFinished implements core.Observer.
func (c *Collector) BatchFinished(result core.BatchResult, elapsed time.Duration) {
	c.rows.WithLabelValues("seen").Add(float64(result.LinesInFile))
	c.rows.WithLabelValues("parsed").Add(float64(result.LinesParsed))
	c.batchDuration.Observe(elapsed.Seconds())

	if result.Failed() {
		c.batchesTotal.WithLabelValues("fault").Inc()
	} else {
		c.batchesTotal.WithLabelValues("ok").Inc()
	}
}

// RegisterLimiter exposes the upload limiter occupancy as gauges.
func RegisterLimiter(reg prometheus.Registerer, l *core.UploadLimiter) {
	registerCollector(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "active", Help: "Uploads currently holding a processing slot",
	}, func() float64 { return float64(l.ActiveCount()) }))

	registerCollector(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "slots", Help: "Configured concurrent upload slots",
	}, func() float64 { return float64(l.Status().MaxConcurrent) }))
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	registerCollector(reg, prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registerCollector(reg, prometheus.NewGoCollector())
	return reg
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return
		}
		panic(err)
	}
}
