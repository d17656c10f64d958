package metrics

import (
	"time"
)

// EngineMetrics holds the metrics recorded by the IME engine.
type EngineMetrics struct {
	registry *Registry

	// Counters
	CommitsTotal          *Counter
	CandidateLookupsTotal *Counter
	ConfigReloadsTotal    *Counter
	ErrorsTotal           *Counter

	// Gauges
	DictionaryWords *Gauge
	UserDictWords   *Gauge
	UptimeSeconds   *Gauge

	// Histograms
	LookupDuration *Histogram
}

// startTime records when metrics were initialized.
var startTime = time.Now()

// NewEngineMetrics creates and registers the engine metrics in registry,
// or in the default registry if it is nil.
func NewEngineMetrics(registry *Registry) *EngineMetrics {
	if registry == nil {
		registry = Default()
	}

	return &EngineMetrics{
		registry: registry,

		CommitsTotal: registry.RegisterCounter(
			"commits_total",
			"Total number of committed compositions",
			nil,
		),
		CandidateLookupsTotal: registry.RegisterCounter(
			"candidate_lookups_total",
			"Total number of candidate list builds",
			nil,
		),
		ConfigReloadsTotal: registry.RegisterCounter(
			"config_reloads_total",
			"Total number of applied configuration changes",
			nil,
		),
		ErrorsTotal: registry.RegisterCounter(
			"errors_total",
			"Total number of engine errors",
			nil,
		),

		DictionaryWords: registry.RegisterGauge(
			"dictionary_words",
			"Number of inputs in the loaded lexicon",
			nil,
		),
		UserDictWords: registry.RegisterGauge(
			"user_dictionary_words",
			"Number of entries in the user dictionary",
			nil,
		),
		UptimeSeconds: registry.RegisterGauge(
			"uptime_seconds",
			"Seconds since the metrics were initialized",
			nil,
		),

		LookupDuration: registry.RegisterHistogram(
			"lookup_duration_seconds",
			"Time spent handling one command",
			nil,
			LatencyBuckets,
		),
	}
}

// Registry returns the registry holding m.
func (m *EngineMetrics) Registry() *Registry {
	return m.registry
}

// RecordKey counts one request of the given command kind.
func (m *EngineMetrics) RecordKey(command string) {
	m.registry.RegisterCounter(
		"keys_total",
		"Total number of requests by command",
		Labels{"command": command},
	).Inc()
}

// RecordCommit counts one commit.
func (m *EngineMetrics) RecordCommit() {
	m.CommitsTotal.Inc()
}

// RecordLookup counts a candidate list build.
func (m *EngineMetrics) RecordLookup() {
	m.CandidateLookupsTotal.Inc()
}

// StartLookupTimer starts timing one command.
func (m *EngineMetrics) StartLookupTimer() *HistogramTimer {
	return m.LookupDuration.Timer()
}

// RecordReload counts an applied configuration change.
func (m *EngineMetrics) RecordReload() {
	m.ConfigReloadsTotal.Inc()
}

// RecordError counts an engine error.
func (m *EngineMetrics) RecordError() {
	m.ErrorsTotal.Inc()
}

// SetDictionarySize records the number of lexicon and user dictionary
// inputs.
func (m *EngineMetrics) SetDictionarySize(words, userWords int) {
	m.DictionaryWords.Set(int64(words))
	m.UserDictWords.Set(int64(userWords))
}

// UpdateUptime refreshes the uptime gauge.
func (m *EngineMetrics) UpdateUptime() {
	m.UptimeSeconds.Set(int64(time.Since(startTime).Seconds()))
}
