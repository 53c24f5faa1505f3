package tasks

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueueRunsInOrder(t *testing.T) {
	q := NewQueue(testLogger())
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		q.Add(Task{Name: name, Reason: "test", Action: func() (Result, error) {
			order = append(order, name)
			return Result{}, nil
		}})
	}

	ran, failed := q.Run()
	if ran != 3 || failed != 0 {
		t.Fatalf("ran=%d failed=%d", ran, failed)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("order = %v", order)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained, %d pending", q.Len())
	}
}

func TestQueueGrowsDuringRun(t *testing.T) {
	q := NewQueue(testLogger())
	var order []string

	q.Add(Task{Name: "seed", Reason: "test", Action: func() (Result, error) {
		order = append(order, "seed")
		for _, name := range []string{"grown-1", "grown-2", "grown-3"} {
			name := name
			q.Add(Task{Name: name, Reason: "discovered mid-run", Action: func() (Result, error) {
				order = append(order, name)
				return Result{}, nil
			}})
		}
		return Result{}, nil
	}})

	ran, failed := q.Run()
	if ran != 4 || failed != 0 {
		t.Fatalf("ran=%d failed=%d", ran, failed)
	}
	want := []string{"seed", "grown-1", "grown-2", "grown-3"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestQueueFailureIsolation(t *testing.T) {
	q := NewQueue(testLogger())
	var order []string

	q.Add(Task{Name: "ok-before", Action: func() (Result, error) {
		order = append(order, "ok-before")
		return Result{}, nil
	}})
	q.Add(Task{Name: "boom", Action: func() (Result, error) {
		order = append(order, "boom")
		return Result{}, errors.New("channel unreachable")
	}})
	q.Add(Task{Name: "ok-after", Action: func() (Result, error) {
		order = append(order, "ok-after")
		return Result{}, nil
	}})

	ran, failed := q.Run()
	if ran != 3 {
		t.Fatalf("ran = %d, failure must not stop the queue", ran)
	}
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if len(order) != 3 || order[2] != "ok-after" {
		t.Fatalf("order = %v", order)
	}
}
