// Package selection keeps a user's cursor stable across live-updating,
// reordering agent trees. The engine publishes a rebuilt tree every tick;
// reconciliation re-finds the previously selected agent through an identity
// fallback chain so the cursor does not visibly jump when agents are
// renamed, restarted or reordered.
package selection

import "github.com/paneboard/paneboard/internal/monitor"

// State is the consumer-held selection: the identity keys of the selected
// agent plus its last visual position for neighbor snapping. Mutated only
// by explicit user action or by Reconcile.
type State struct {
	UniqueID string
	PID      int
	Target   string

	// LastIndex is the selected agent's position in the previously
	// rendered order. Used only when the identity chain misses and
	// Options.SnapToNeighbor is set.
	LastIndex int
}

// IsZero reports whether nothing is selected.
func (s State) IsZero() bool {
	return s.UniqueID == "" && s.PID == 0 && s.Target == ""
}

// Options configures reconciliation.
type Options struct {
	// SnapToNeighbor resolves a cleared selection to the nearest
	// still-visible agent in prior visual order instead of clearing it.
	SnapToNeighbor bool
}

// Select builds the selection state for the agent at index i.
func Select(agents []monitor.Agent, i int) State {
	if i < 0 || i >= len(agents) {
		return State{}
	}
	a := agents[i]
	return State{
		UniqueID:  a.UniqueID,
		PID:       a.PID,
		Target:    a.Target,
		LastIndex: i,
	}
}

// Reconcile re-finds prev in the new agent order. The fallback chain, first
// hit wins:
//
//  1. unique_id (target+pid), the common steady-state case.
//  2. pid alone, for session or window renames with the process unchanged.
//  3. target alone, for process restarts (new pid) in the same pane.
//  4. no match: cleared, or snapped to the nearest neighbor in prior
//     visual order when Options.SnapToNeighbor is set.
//
// Reconcile is pure and idempotent: the same prev and agents always yield
// the same result, and reconciling its own output is a no-op. The boolean
// reports whether the selection survived (or snapped).
func Reconcile(prev State, agents []monitor.Agent, opts Options) (State, bool) {
	if prev.IsZero() || len(agents) == 0 {
		return State{}, false
	}

	if i := indexOf(agents, func(a monitor.Agent) bool { return a.UniqueID == prev.UniqueID }); i >= 0 {
		return Select(agents, i), true
	}
	if prev.PID != 0 {
		if i := indexOf(agents, func(a monitor.Agent) bool { return a.PID == prev.PID }); i >= 0 {
			return Select(agents, i), true
		}
	}
	if prev.Target != "" {
		if i := indexOf(agents, func(a monitor.Agent) bool { return a.Target == prev.Target }); i >= 0 {
			return Select(agents, i), true
		}
	}

	if opts.SnapToNeighbor {
		i := prev.LastIndex
		if i >= len(agents) {
			i = len(agents) - 1
		}
		if i < 0 {
			i = 0
		}
		return Select(agents, i), true
	}

	return State{}, false
}

// ReconcileAll reconciles a multi-selection, dropping entries that cleared
// and deduplicating entries that collapsed onto the same agent. Neighbor
// snapping is intentionally not applied to multi-selections.
func ReconcileAll(prev []State, agents []monitor.Agent) []State {
	var out []State
	seen := make(map[string]bool, len(prev))
	for _, s := range prev {
		next, ok := Reconcile(s, agents, Options{})
		if !ok || seen[next.UniqueID] {
			continue
		}
		seen[next.UniqueID] = true
		out = append(out, next)
	}
	return out
}

func indexOf(agents []monitor.Agent, match func(monitor.Agent) bool) int {
	for i, a := range agents {
		if match(a) {
			return i
		}
	}
	return -1
}
