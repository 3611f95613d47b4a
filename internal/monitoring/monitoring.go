package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var IngestRunAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "changelog_ingest_run_amount",
	Help: "The total number of project ingestion runs by terminal state",
}, []string{"project", "state"})

var IngestRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "changelog_ingest_run_duration_seconds",
	Help:    "Duration of project ingestion runs in seconds",
	Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
}, []string{"project"})

var EntriesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "changelog_entries_fetched_total",
	Help: "The total number of release entries returned by sources",
}, []string{"project"})

var EntriesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "changelog_entries_skipped_total",
	Help: "The total number of release entries that produced no record",
}, []string{"project"})

var VersionsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "changelog_versions_inserted_total",
	Help: "The total number of version rows inserted",
}, []string{"project"})

var VersionsUpdated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "changelog_versions_updated_total",
	Help: "The total number of version rows updated",
}, []string{"project"})

var WriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "changelog_write_failures_total",
	Help: "The total number of failed insert or update statements",
}, []string{"project"})

var TranslationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "changelog_translation_fallback_total",
	Help: "The total number of translations that kept some original text",
})

var TranslatedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "changelog_translated_chunks_total",
	Help: "The total number of chunks sent to the translation backend by result",
}, []string{"backend", "result"})
