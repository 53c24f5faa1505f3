// Package tasks runs ordered units of sync work with an audit trail.
package tasks

import (
	"log/slog"

	"github.com/chroniclehq/chronicle/internal/metrics"
)

// Result is a task's self-reported outcome.
type Result struct {
	Status  string
	Details string
}

// Task is one unit of work. Reason records why it was enqueued; the audit
// log carries it so a reader can reconstruct each cycle's plan afterward.
type Task struct {
	Name    string
	Source  string
	Channel string
	Reason  string
	Action  func() (Result, error)
}

func (t Task) label() string {
	label := t.Name
	if t.Source != "" {
		label += " source=" + t.Source
	}
	if t.Channel != "" {
		label += " channel=" + t.Channel
	}
	return label
}

// Queue executes tasks in FIFO order. Tasks may Add more tasks while the
// queue is running; Run drains until the queue is empty, so work discovered
// mid-cycle (new channels, follow-up syncs) executes in the same cycle.
type Queue struct {
	pending []Task
	audit   *slog.Logger
}

// NewQueue returns an empty queue writing its audit trail to logger.
func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{audit: logger}
}

// Add enqueues a task at the back of the queue.
func (q *Queue) Add(task Task) {
	q.pending = append(q.pending, task)
	q.audit.Info("task enqueued", "task", task.label(), "reason", task.Reason, "pending", len(q.pending))
}

// Len reports the number of tasks waiting.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Run drains the queue. A task failure is logged and does not stop the
// remaining tasks; Run reports how many tasks ran and how many failed.
func (q *Queue) Run() (ran, failed int) {
	for len(q.pending) > 0 {
		task := q.pending[0]
		q.pending = q.pending[1:]

		next := "none"
		if len(q.pending) > 0 {
			next = q.pending[0].label()
		}
		q.audit.Info("task starting", "task", task.label(), "reason", task.Reason, "next", next)

		result, err := task.Action()
		ran++
		if err != nil {
			failed++
			metrics.TasksRun.WithLabelValues(task.Name, "error").Inc()
			q.audit.Error("task failed", "task", task.label(), "error", err)
			continue
		}
		if result.Status == "" {
			result.Status = "ok"
		}
		metrics.TasksRun.WithLabelValues(task.Name, result.Status).Inc()
		q.audit.Info("task finished", "task", task.label(), "status", result.Status, "details", result.Details)
	}
	return ran, failed
}
