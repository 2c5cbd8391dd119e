// Package metrics holds the Prometheus counters for indexing and recognition
// runs. A CLI run is short-lived, so the registry is written to a textfile
// for node_exporter's textfile collector instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/standardbeagle/jslibsig/internal/version"
)

const namespace = "jslibsig"

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// FilesTotal counts source files by phase and outcome.
	FilesTotal *prometheus.CounterVec
	// FunctionsTotal counts extracted functions that passed the feature
	// threshold, by phase.
	FunctionsTotal *prometheus.CounterVec
	// VersionsTotal counts indexed version directories by outcome.
	VersionsTotal *prometheus.CounterVec
	// EntriesStoredTotal counts reference entries written to the store.
	EntriesStoredTotal prometheus.Counter
	// MatchesTotal counts reference matches above threshold by hash family.
	MatchesTotal *prometheus.CounterVec
	// CorpusEntries is the size of the loaded reference corpus.
	CorpusEntries prometheus.Gauge
	// PhaseDurationSeconds measures index, load and analyze phases.
	PhaseDurationSeconds *prometheus.HistogramVec
	// BuildInfo is always 1 and carries the build labels.
	BuildInfo *prometheus.GaugeVec
}

// New creates the metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,
		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Source files processed by phase and outcome",
			},
			[]string{"phase", "outcome"},
		),
		FunctionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "functions_total",
				Help:      "Functions fingerprinted by phase",
			},
			[]string{"phase"},
		),
		VersionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "versions_total",
				Help:      "Package version directories indexed by outcome",
			},
			[]string{"outcome"},
		),
		EntriesStoredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "entries_stored_total",
				Help:      "Reference entries written to the store",
			},
		),
		MatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recognize",
				Name:      "matches_total",
				Help:      "Reference matches above threshold by hash family",
			},
			[]string{"family"},
		),
		CorpusEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "recognize",
				Name:      "corpus_entries",
				Help:      "Reference entries loaded into memory",
			},
		),
		PhaseDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Wall time of run phases",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"phase"},
		),
		BuildInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build information",
			},
			[]string{"version", "build_id"},
		),
	}
	m.BuildInfo.WithLabelValues(version.Version, version.BuildID()).Set(1)
	return m
}

func (m *Metrics) File(phase, outcome string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(phase, outcome).Inc()
}

func (m *Metrics) Functions(phase string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.FunctionsTotal.WithLabelValues(phase).Add(float64(n))
}

func (m *Metrics) Version(outcome string) {
	if m == nil {
		return
	}
	m.VersionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Stored(n int) {
	if m == nil {
		return
	}
	m.EntriesStoredTotal.Add(float64(n))
}

func (m *Metrics) Matches(family string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.MatchesTotal.WithLabelValues(family).Add(float64(n))
}

func (m *Metrics) Corpus(n int) {
	if m == nil {
		return
	}
	m.CorpusEntries.Set(float64(n))
}

// Phase starts timing a phase; call the returned func when it ends.
func (m *Metrics) Phase(name string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.PhaseDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// WriteToTextfile writes the registry in the text exposition format,
// atomically replacing path.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
