// Package monitor owns the polling cadence: it lists panes, drives profile
// matching and status detection for each, and publishes immutable tree
// snapshots over a bounded channel. Consumers never see partial or
// mutable-shared state.
package monitor

import (
	"time"

	"github.com/paneboard/paneboard/internal/detect"
)

// Agent joins a matched pane with its detected status for one poll tick.
// Agents are rebuilt from scratch every tick, never patched in place.
type Agent struct {
	// UniqueID is target+pid, reconstructed fresh every poll. Not a
	// persisted identifier: restarts and pane moves change it.
	UniqueID string

	// Target is the pane coordinate "session:window.pane".
	Target string

	// PID is the pane's root process id.
	PID int

	// Session is the session component of the target.
	Session string

	// ProfileID identifies the matched profile; empty when no profile
	// matched.
	ProfileID string

	// DisplayName is the matched profile's display name, or the pane
	// command for unmatched panes.
	DisplayName string

	// IsAgent reports whether the matched profile is an AI agent.
	// Unmatched panes are still visible but flagged false for summary
	// counts.
	IsAgent bool

	// Title and Command carry pane identity for display and selection.
	Title   string
	Command string

	// Status is the detection result for this tick.
	Status detect.Status

	// Subagents are nested task entries discovered in the same content.
	Subagents []detect.Subagent
}

// Tree is one published snapshot of all monitored panes, ordered by
// session, window, pane. It is immutable after publication: ownership
// transfers to the consumer.
type Tree struct {
	// Tick increases by one per poll; consumers must never apply an
	// older tree after a newer one.
	Tick uint64

	// GeneratedAt is when the tick's assembly finished.
	GeneratedAt time.Time

	// Agents holds every pane in display order.
	Agents []Agent
}

// SessionGroup is the agents of one multiplexer session, in pane order.
type SessionGroup struct {
	Name   string
	Agents []Agent
}

// Sessions groups the tree's agents by session, preserving order.
func (t *Tree) Sessions() []SessionGroup {
	var groups []SessionGroup
	for _, a := range t.Agents {
		if len(groups) == 0 || groups[len(groups)-1].Name != a.Session {
			groups = append(groups, SessionGroup{Name: a.Session})
		}
		g := &groups[len(groups)-1]
		g.Agents = append(g.Agents, a)
	}
	return groups
}

// Summary counts agents, panes and attention-requiring agents.
type Summary struct {
	Panes     int
	Agents    int
	Working   int
	Attention int
}

// Summarize computes the tree's summary counts.
func (t *Tree) Summarize() Summary {
	s := Summary{Panes: len(t.Agents)}
	for _, a := range t.Agents {
		if !a.IsAgent {
			continue
		}
		s.Agents++
		switch {
		case a.Status.NeedsAttention():
			s.Attention++
		case a.Status.Kind == detect.StatusProcessing:
			s.Working++
		}
	}
	return s
}

// Transition records one agent's status kind change between consecutive
// ticks.
type Transition struct {
	UniqueID  string
	Target    string
	ProfileID string
	PID       int
	From      detect.Kind
	To        detect.Kind
	At        time.Time
}

// TransitionRecorder consumes status transitions. Implementations must be
// fast or buffer internally; the monitor calls it between assembly and
// publication.
type TransitionRecorder interface {
	RecordTransition(tr Transition) error
}
