package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ringkit/errors"
)

// Metrics contains the process-level metrics shared by ringkit tools
type Metrics struct {
	LinesRead    *prometheus.CounterVec
	LinesEmitted *prometheus.CounterVec
	Truncations  *prometheus.CounterVec
	ErrorsTotal  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		LinesRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ringkit",
				Subsystem: "tail",
				Name:      "lines_read_total",
				Help:      "Total number of lines read from a source",
			},
			[]string{"source"},
		),

		LinesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ringkit",
				Subsystem: "tail",
				Name:      "lines_emitted_total",
				Help:      "Total number of lines written to the output",
			},
			[]string{"source"},
		),

		Truncations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ringkit",
				Subsystem: "tail",
				Name:      "truncations_total",
				Help:      "Number of times a followed file shrank and was re-read from the start",
			},
			[]string{"source"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ringkit",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by class",
			},
			[]string{"source", "class"},
		),
	}
}

// RecordLineRead increments the lines read counter
func (c *Metrics) RecordLineRead(source string) {
	c.LinesRead.WithLabelValues(source).Inc()
}

// RecordLinesRead adds n to the lines read counter
func (c *Metrics) RecordLinesRead(source string, n int) {
	c.LinesRead.WithLabelValues(source).Add(float64(n))
}

// RecordLinesEmitted adds n to the emitted lines counter
func (c *Metrics) RecordLinesEmitted(source string, n int) {
	c.LinesEmitted.WithLabelValues(source).Add(float64(n))
}

// RecordTruncation increments the truncation counter
func (c *Metrics) RecordTruncation(source string) {
	c.Truncations.WithLabelValues(source).Inc()
}

// RecordError increments the error counter, labelled with the error's class
func (c *Metrics) RecordError(source string, err error) {
	if err == nil {
		return
	}
	c.ErrorsTotal.WithLabelValues(source, errors.Classify(err).String()).Inc()
}
