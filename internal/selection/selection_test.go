package selection

import (
	"fmt"
	"testing"

	"github.com/paneboard/paneboard/internal/monitor"
)

func agent(target string, pid int) monitor.Agent {
	return monitor.Agent{
		UniqueID: fmt.Sprintf("%s#%d", target, pid),
		Target:   target,
		PID:      pid,
	}
}

func TestSelect(t *testing.T) {
	agents := []monitor.Agent{agent("main:0.0", 100), agent("main:0.1", 200)}

	s := Select(agents, 1)
	if s.UniqueID != "main:0.1#200" || s.LastIndex != 1 {
		t.Errorf("Select = %+v", s)
	}

	if s := Select(agents, 5); !s.IsZero() {
		t.Errorf("out of range must clear, got %+v", s)
	}
	if s := Select(agents, -1); !s.IsZero() {
		t.Errorf("negative index must clear, got %+v", s)
	}
}

func TestReconcileByUniqueID(t *testing.T) {
	agents := []monitor.Agent{agent("a:0.0", 1), agent("a:0.1", 2), agent("a:0.2", 3)}
	prev := Select(agents, 1)

	// Reorder: the same agent moved to the front.
	reordered := []monitor.Agent{agents[1], agents[2], agents[0]}
	next, ok := Reconcile(prev, reordered, Options{})
	if !ok || next.UniqueID != prev.UniqueID || next.LastIndex != 0 {
		t.Errorf("Reconcile = %+v, %v", next, ok)
	}
}

func TestReconcileByPID(t *testing.T) {
	prev := State{UniqueID: "old:0.0#42", PID: 42, Target: "old:0.0", LastIndex: 0}

	// Session renamed: unique id and target changed, pid survived.
	agents := []monitor.Agent{agent("renamed:0.0", 42)}
	next, ok := Reconcile(prev, agents, Options{})
	if !ok || next.Target != "renamed:0.0" {
		t.Errorf("pid fallback failed: %+v, %v", next, ok)
	}
}

func TestReconcileByTarget(t *testing.T) {
	prev := State{UniqueID: "a:0.0#42", PID: 42, Target: "a:0.0", LastIndex: 0}

	// Process restarted in the same pane: new pid, same target.
	agents := []monitor.Agent{agent("a:0.0", 777)}
	next, ok := Reconcile(prev, agents, Options{})
	if !ok || next.PID != 777 {
		t.Errorf("target fallback failed: %+v, %v", next, ok)
	}
}

func TestReconcileCleared(t *testing.T) {
	prev := State{UniqueID: "gone:0.0#1", PID: 1, Target: "gone:0.0", LastIndex: 2}
	agents := []monitor.Agent{agent("a:0.0", 10), agent("a:0.1", 11)}

	next, ok := Reconcile(prev, agents, Options{})
	if ok || !next.IsZero() {
		t.Errorf("vanished agent must clear, got %+v, %v", next, ok)
	}
}

func TestReconcileSnapToNeighbor(t *testing.T) {
	prev := State{UniqueID: "gone:0.0#1", PID: 1, Target: "gone:0.0", LastIndex: 5}
	agents := []monitor.Agent{agent("a:0.0", 10), agent("a:0.1", 11)}

	next, ok := Reconcile(prev, agents, Options{SnapToNeighbor: true})
	if !ok || next.UniqueID != agents[1].UniqueID {
		t.Errorf("snap should clamp to the last agent, got %+v, %v", next, ok)
	}
}

func TestReconcileZeroAndEmpty(t *testing.T) {
	agents := []monitor.Agent{agent("a:0.0", 1)}
	if next, ok := Reconcile(State{}, agents, Options{}); ok || !next.IsZero() {
		t.Errorf("empty selection stays empty: %+v", next)
	}
	prev := Select(agents, 0)
	if next, ok := Reconcile(prev, nil, Options{SnapToNeighbor: true}); ok || !next.IsZero() {
		t.Errorf("no agents clears even with snapping: %+v", next)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	agents := []monitor.Agent{agent("a:0.0", 1), agent("a:0.1", 2)}
	prev := Select(agents, 0)

	once, ok1 := Reconcile(prev, agents, Options{})
	twice, ok2 := Reconcile(once, agents, Options{})
	if ok1 != ok2 || once != twice {
		t.Errorf("reconcile of own output changed: %+v vs %+v", once, twice)
	}
}

func TestReconcileAll(t *testing.T) {
	a0, a1 := agent("a:0.0", 1), agent("a:0.1", 2)
	agents := []monitor.Agent{a0, a1}

	prev := []State{
		Select(agents, 0),
		Select(agents, 1),
		{UniqueID: "gone:0.0#9", PID: 9, Target: "gone:0.0"}, // vanished
		Select(agents, 0), // duplicate of the first
	}
	out := ReconcileAll(prev, agents)
	if len(out) != 2 {
		t.Fatalf("ReconcileAll = %+v", out)
	}
	if out[0].UniqueID != a0.UniqueID || out[1].UniqueID != a1.UniqueID {
		t.Errorf("ReconcileAll order = %+v", out)
	}
}
