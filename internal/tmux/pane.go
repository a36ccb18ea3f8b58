// Package tmux is the pane snapshot source: it lists multiplexer panes with
// their identity metadata and captures pane content on demand. It is a pure
// query layer; no classification happens here.
package tmux

import (
	"context"
	"fmt"
)

// UnknownAncestor is the sentinel placed in an ancestor chain where the
// parent of a process could not be resolved. Ancestry is best-effort; a
// broken chain is represented explicitly instead of being truncated silently.
const UnknownAncestor = "?"

// Pane identifies one multiplexer pane at one poll instant.
type Pane struct {
	// Target is the tmux target spec "session:window.pane".
	Target string

	// Session, Window, PaneIndex are the parsed coordinates.
	Session   string
	Window    int
	PaneIndex int

	// PID is the pane's root process id.
	PID int

	// Command is the current foreground command name (#{pane_current_command}).
	Command string

	// Title is the pane title (#{pane_title}).
	Title string

	// CmdLine is the full command line of the pane's root process, when the
	// process table could be read. Empty otherwise.
	CmdLine string

	// Ancestors holds the command lines of the pane process's ancestors,
	// nearest first. Entries may be UnknownAncestor where the chain broke.
	Ancestors []string
}

// UniqueID returns the per-tick identity key for the pane: target plus pid.
// It is reconstructed fresh every poll and must not be persisted.
func (p Pane) UniqueID() string {
	return fmt.Sprintf("%s#%d", p.Target, p.PID)
}

// Snapshot joins a Pane with its lazily captured content. Content is captured
// at most once per snapshot: both the matcher's content pre-filter and the
// detection engine share the same capture within a tick.
type Snapshot struct {
	Pane

	client   Client
	captured bool
	content  string
	caperr   error
}

// NewSnapshot wraps a pane for lazy capture through the given client.
func NewSnapshot(p Pane, c Client) *Snapshot {
	return &Snapshot{Pane: p, client: c}
}

// Content returns the pane's captured text, capturing it on first call.
// The result (including a capture error) is cached for the snapshot's
// lifetime, so repeated calls never invoke capture-pane twice.
func (s *Snapshot) Content(ctx context.Context) (string, error) {
	if s.captured {
		return s.content, s.caperr
	}
	s.captured = true
	s.content, s.caperr = s.client.CapturePane(ctx, s.Target)
	return s.content, s.caperr
}

// Captured reports whether content has already been fetched for this snapshot.
func (s *Snapshot) Captured() bool {
	return s.captured
}
