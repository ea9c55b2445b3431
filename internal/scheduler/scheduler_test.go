package scheduler

import (
	"testing"
)

type countingTask struct{ calls int }

func (c *countingTask) Reconcile() { c.calls++ }

func TestNewScheduler_RegistersReconcile(t *testing.T) {
	t.Parallel()

	task := &countingTask{}
	c := NewScheduler(Deps{ReconcileJob: task}, nil)
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one job, got %d", len(entries))
	}

	entries[0].Job.Run()
	if task.calls != 1 {
		t.Fatalf("expected job to run once, got %d", task.calls)
	}
}

func TestNewScheduler_InvalidSpecSkipsJob(t *testing.T) {
	t.Parallel()

	c := NewScheduler(Deps{ReconcileJob: &countingTask{}, ReconcileSpec: "not a spec"}, nil)
	if got := len(c.Entries()); got != 0 {
		t.Fatalf("expected no jobs for an invalid spec, got %d", got)
	}
}

func TestNewScheduler_RecoversPanics(t *testing.T) {
	t.Parallel()

	c := NewScheduler(Deps{ReconcileJob: panicTask{}}, nil)
	c.Entries()[0].Job.Run()
}

type panicTask struct{}

func (panicTask) Reconcile() { panic("boom") }
