package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wsmux"

// Exporter exposes a Collector to Prometheus.  Values are read from the
// collector's atomics at scrape time, so the hot path never touches the
// Prometheus client.
type Exporter struct {
	c *Collector

	sessionsActive *prometheus.Desc
	sessionsTotal  *prometheus.Desc
	openFailures   *prometheus.Desc
	frames         *prometheus.Desc
	bytes          *prometheus.Desc
	errorsTotal    *prometheus.Desc
	uptime         *prometheus.Desc
}

// NewExporter wraps c.  A nil collector exports zeros.
func NewExporter(c *Collector) *Exporter {
	return &Exporter{
		c: c,
		sessionsActive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sessions", "active"),
			"Number of currently open sessions", nil, nil),
		sessionsTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sessions", "opened_total"),
			"Total number of sessions successfully opened", nil, nil),
		openFailures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sessions", "open_failures_total"),
			"Total number of session opens that failed", nil, nil),
		frames: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "frames", "total"),
			"Total number of frames moved, by direction", []string{"direction"}, nil),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "payload", "bytes_total"),
			"Total payload bytes moved, by direction", []string{"direction"}, nil),
		errorsTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "errors_total"),
			"Total number of session errors", nil, nil),
		uptime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "uptime_seconds"),
			"Seconds since the multiplexer started", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.sessionsActive
	ch <- e.sessionsTotal
	ch <- e.openFailures
	ch <- e.frames
	ch <- e.bytes
	ch <- e.errorsTotal
	ch <- e.uptime
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	c := e.c
	ch <- prometheus.MustNewConstMetric(e.sessionsActive, prometheus.GaugeValue, float64(c.ActiveSessions()))
	ch <- prometheus.MustNewConstMetric(e.sessionsTotal, prometheus.CounterValue, float64(c.TotalSessions()))
	ch <- prometheus.MustNewConstMetric(e.openFailures, prometheus.CounterValue, float64(c.OpenFailures()))
	ch <- prometheus.MustNewConstMetric(e.frames, prometheus.CounterValue, float64(c.TotalFramesIn()), "in")
	ch <- prometheus.MustNewConstMetric(e.frames, prometheus.CounterValue, float64(c.TotalFramesOut()), "out")
	ch <- prometheus.MustNewConstMetric(e.bytes, prometheus.CounterValue, float64(c.TotalBytesIn()), "in")
	ch <- prometheus.MustNewConstMetric(e.bytes, prometheus.CounterValue, float64(c.TotalBytesOut()), "out")
	ch <- prometheus.MustNewConstMetric(e.errorsTotal, prometheus.CounterValue, float64(c.ErrorCount()))
	ch <- prometheus.MustNewConstMetric(e.uptime, prometheus.GaugeValue, c.Uptime().Seconds())
}

// Register registers an exporter for c with reg.  Registering the same
// collector twice is not an error.
func Register(reg prometheus.Registerer, c *Collector) error {
	if reg == nil {
		return nil
	}
	if err := reg.Register(NewExporter(c)); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}
