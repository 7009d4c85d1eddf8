package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters exposed on /metrics.
type Metrics struct {
	ProcessRequests prometheus.Counter
	FilesParsed     prometheus.Counter
	ParseFailures   prometheus.Counter
	ReportsWritten  prometheus.Counter
}

// NewMetrics registers the pipeline counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProcessRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "csvcompare_process_requests_total",
			Help: "Number of comparison requests received.",
		}),
		FilesParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "csvcompare_files_parsed_total",
			Help: "Number of uploaded files parsed successfully.",
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "csvcompare_parse_failures_total",
			Help: "Number of uploaded files rejected during parsing or validation.",
		}),
		ReportsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "csvcompare_reports_written_total",
			Help: "Number of comparison reports written to disk.",
		}),
	}
}
