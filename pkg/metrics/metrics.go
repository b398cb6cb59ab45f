package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "snapvault"

	metricLabelHandler = "handler"
	metricLabelStatus  = "status"
)

// Metrics is the structure that holds all prometheus metrics
var (
	// SnapshotSaveCompletedCounter counts the number of fully completed saves
	SnapshotSaveCompletedCounter = newCounterVec(
		"snapshot_save_completed_count",
		"Number of snapshot saves that completed successfully",
	)
	// SnapshotSaveFailedCounter counts the number of failed saves
	SnapshotSaveFailedCounter = newCounterVec(
		"snapshot_save_failed_count",
		"Number of snapshot saves that failed at any stage",
	)
	// SnapshotLoadCompletedCounter counts the number of fully verified loads
	SnapshotLoadCompletedCounter = newCounterVec(
		"snapshot_load_completed_count",
		"Number of snapshot loads that completed successfully",
	)
	// SnapshotLoadFailedCounter counts the number of failed loads
	SnapshotLoadFailedCounter = newCounterVec(
		"snapshot_load_failed_count",
		"Number of snapshot loads that failed at any stage",
	)
	// SaveDuration observes the duration of each save
	SaveDuration = newSummaryVec(
		"snapshot_save_duration_seconds",
		"Seconds from triggering a save to its terminal callback",
	)
	// LoadDuration observes the duration of each load
	LoadDuration = newSummaryVec(
		"snapshot_load_duration_seconds",
		"Seconds to restore all stores from a snapshot",
	)
	// ArchiveSizeGauge tracks the size of the last written snapshot archive
	ArchiveSizeGauge = newGaugeVec(
		"snapshot_archive_size_bytes",
		"Size in bytes of the most recently written snapshot archive",
	)
	// ServiceRequestCounter counts the number of requests for each handler
	ServiceRequestCounter = newCounterVec(
		"service_request_count",
		"Count of requests for each handler",
		metricLabelHandler, metricLabelStatus,
	)
	// ServiceRequestDuration observes the duration of requests for each handler
	ServiceRequestDuration = newSummaryVec(
		"service_request_duration_seconds",
		"Seconds to execute a handler and marshal its response",
		metricLabelHandler, metricLabelStatus,
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
