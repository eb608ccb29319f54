// Package metrics holds the prometheus collectors of imports and the read API.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "s2stats"

// Metrics owns a private registry so tests and commands never share state.
type Metrics struct {
	registry *prometheus.Registry

	records        *prometheus.CounterVec
	matches        *prometheus.CounterVec
	teamRounds     prometheus.Counter
	usageRounds    prometheus.Counter
	importDuration prometheus.Gauge
	lastImport     prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Corpus entries seen by import, by result.",
		}, []string{"result"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Matches handled by the dispatch pipeline, by outcome.",
		}, []string{"outcome"}),
		teamRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_rounds_tagged_total",
			Help:      "Team rounds written to the tag store.",
		}),
		usageRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_rounds_total",
			Help:      "Rounds with a stored weapon usage report.",
		}),
		importDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Wall time of the last import.",
		}),
		lastImport: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "import_last_success_timestamp_seconds",
			Help:      "Unix time the last import finished.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Read API requests, by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Read API latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.records, m.matches, m.teamRounds, m.usageRounds,
		m.importDuration, m.lastImport, m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Import is the outcome of one import run.
type Import struct {
	Loaded, BadName, OutOfWindow      int
	Dispatched, Filtered, Skipped     int
	Duplicates, TeamRounds, UsageRows int
	Duration                          time.Duration
	Finished                          time.Time
}

// ObserveImport adds an import run to the counters.
func (m *Metrics) ObserveImport(imp Import) {
	m.records.WithLabelValues("loaded").Add(float64(imp.Loaded))
	m.records.WithLabelValues("bad_name").Add(float64(imp.BadName))
	m.records.WithLabelValues("out_of_window").Add(float64(imp.OutOfWindow))
	m.matches.WithLabelValues("dispatched").Add(float64(imp.Dispatched))
	m.matches.WithLabelValues("filtered").Add(float64(imp.Filtered))
	m.matches.WithLabelValues("skipped_teams").Add(float64(imp.Skipped))
	m.matches.WithLabelValues("duplicate").Add(float64(imp.Duplicates))
	m.teamRounds.Add(float64(imp.TeamRounds))
	m.usageRounds.Add(float64(imp.UsageRows))
	m.importDuration.Set(imp.Duration.Seconds())
	m.lastImport.Set(float64(imp.Finished.Unix()))
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, fmt.Sprint(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
