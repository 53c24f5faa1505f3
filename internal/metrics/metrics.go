// Package metrics exposes ingestion counters on the query API's /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesInserted counts new messages archived, labelled by source.
	MessagesInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_messages_inserted_total",
		Help: "New messages archived.",
	}, []string{"source"})

	// MessagesEdited counts edit detections, labelled by source.
	MessagesEdited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_messages_edited_total",
		Help: "Messages whose content changed since last observation.",
	}, []string{"source"})

	// SyncPasses counts completed channel sync passes by mode.
	SyncPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_sync_passes_total",
		Help: "Completed per-channel sync passes.",
	}, []string{"source", "mode"})

	// TasksRun counts executed tasks by final status.
	TasksRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_tasks_total",
		Help: "Tasks executed, by final status.",
	}, []string{"name", "status"})

	// Cycles counts orchestrator cycles.
	Cycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_cycles_total",
		Help: "Completed sync cycles.",
	})
)
