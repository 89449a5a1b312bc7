// Package metrics exposes request and upload lifecycle counters in the
// Prometheus exposition format. The counters live directly on the
// Collector and satisfy server.Metrics themselves, so there is no
// intermediate struct of raw atomic pointers to keep in sync with the
// handler.
package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotalDesc = prometheus.NewDesc(
		"tusrelay_requests_total",
		"Total number of requests served, per method.",
		[]string{"method"}, nil)
	errorsTotalDesc = prometheus.NewDesc(
		"tusrelay_errors_total",
		"Total number of errors, per status and message.",
		[]string{"status", "message"}, nil)
	bytesReceivedDesc = prometheus.NewDesc(
		"tusrelay_bytes_received",
		"Number of bytes received across all uploads.",
		nil, nil)
	uploadsCreatedDesc = prometheus.NewDesc(
		"tusrelay_uploads_created",
		"Number of created uploads.",
		nil, nil)
	uploadsFinishedDesc = prometheus.NewDesc(
		"tusrelay_uploads_finished",
		"Number of finished uploads.",
		nil, nil)
	uploadsTerminatedDesc = prometheus.NewDesc(
		"tusrelay_uploads_terminated",
		"Number of terminated uploads.",
		nil, nil)
)

type errorKey struct {
	status  int
	message string
}

// Collector implements server.Metrics directly and doubles as a
// prometheus.Collector; the handler records through it and /metrics
// scrapes it without an adapter in between.
type Collector struct {
	mu sync.Mutex

	requestsTotal map[string]*uint64
	errorsTotal   map[errorKey]*uint64

	bytesReceived     uint64
	uploadsCreated    uint64
	uploadsFinished   uint64
	uploadsTerminated uint64
}

// New returns a ready Collector. Register it once with
// prometheus.MustRegister and pass it as the Metrics field of
// server.Handler.
func New() *Collector {
	return &Collector{
		requestsTotal: make(map[string]*uint64),
		errorsTotal:   make(map[errorKey]*uint64),
	}
}

func (c *Collector) RequestReceived(method string) {
	c.mu.Lock()
	ptr, ok := c.requestsTotal[method]
	if !ok {
		var v uint64
		ptr = &v
		c.requestsTotal[method] = ptr
	}
	c.mu.Unlock()
	atomic.AddUint64(ptr, 1)
}

func (c *Collector) ErrorOccurred(statusCode int, message string) {
	key := errorKey{status: statusCode, message: message}
	c.mu.Lock()
	ptr, ok := c.errorsTotal[key]
	if !ok {
		var v uint64
		ptr = &v
		c.errorsTotal[key] = ptr
	}
	c.mu.Unlock()
	atomic.AddUint64(ptr, 1)
}

func (c *Collector) BytesReceived(n int64) {
	atomic.AddUint64(&c.bytesReceived, uint64(n))
}

func (c *Collector) UploadCreated() {
	atomic.AddUint64(&c.uploadsCreated, 1)
}

func (c *Collector) UploadFinished() {
	atomic.AddUint64(&c.uploadsFinished, 1)
}

func (c *Collector) UploadTerminated() {
	atomic.AddUint64(&c.uploadsTerminated, 1)
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- requestsTotalDesc
	descs <- errorsTotalDesc
	descs <- bytesReceivedDesc
	descs <- uploadsCreatedDesc
	descs <- uploadsFinishedDesc
	descs <- uploadsTerminatedDesc
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	requestSnapshot := make(map[string]*uint64, len(c.requestsTotal))
	for k, v := range c.requestsTotal {
		requestSnapshot[k] = v
	}
	errorSnapshot := make(map[errorKey]*uint64, len(c.errorsTotal))
	for k, v := range c.errorsTotal {
		errorSnapshot[k] = v
	}
	c.mu.Unlock()

	for method, ptr := range requestSnapshot {
		metrics <- prometheus.MustNewConstMetric(
			requestsTotalDesc, prometheus.CounterValue,
			float64(atomic.LoadUint64(ptr)), method)
	}

	for key, ptr := range errorSnapshot {
		metrics <- prometheus.MustNewConstMetric(
			errorsTotalDesc, prometheus.CounterValue,
			float64(atomic.LoadUint64(ptr)), strconv.Itoa(key.status), key.message)
	}

	metrics <- prometheus.MustNewConstMetric(
		bytesReceivedDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.bytesReceived)))
	metrics <- prometheus.MustNewConstMetric(
		uploadsCreatedDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.uploadsCreated)))
	metrics <- prometheus.MustNewConstMetric(
		uploadsFinishedDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.uploadsFinished)))
	metrics <- prometheus.MustNewConstMetric(
		uploadsTerminatedDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.uploadsTerminated)))
}
