package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes transfer counters over prometheus. Each collector
// owns a private registry so multiple engines can coexist in one process.
type Collector struct {
	registry   *prometheus.Registry
	filesTotal *prometheus.CounterVec
	bytesTotal prometheus.Counter
	inFlight   prometheus.Gauge
	duration   prometheus.Histogram
}

// New creates a collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfer_files_total",
				Help: "Total number of files processed",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transfer_bytes_total",
				Help: "Total bytes transferred",
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "transfer_inflight_files",
				Help: "Number of files currently being transferred",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "transfer_file_duration_seconds",
				Help:    "Time taken to transfer one file",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(c.filesTotal, c.bytesTotal, c.inFlight, c.duration)
	return c
}

// ObserveCompleted records one successful transfer.
func (c *Collector) ObserveCompleted(bytes int64, took time.Duration) {
	c.filesTotal.WithLabelValues("completed").Inc()
	c.bytesTotal.Add(float64(bytes))
	c.duration.Observe(took.Seconds())
}

// ObserveFailed records one failed transfer.
func (c *Collector) ObserveFailed() {
	c.filesTotal.WithLabelValues("failed").Inc()
}

// ObserveSkipped records one file skipped at discovery time.
func (c *Collector) ObserveSkipped() {
	c.filesTotal.WithLabelValues("skipped").Inc()
}

// SetInFlight sets the number of files currently being transferred.
func (c *Collector) SetInFlight(n int) {
	c.inFlight.Set(float64(n))
}

// Handler returns the HTTP handler serving this collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr. Blocks until the listener fails.
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}
