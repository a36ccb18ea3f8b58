package tmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/paneboard/paneboard/internal/logging"
)

var tmuxLog = logging.ForComponent(logging.CompTmux)

// ErrCaptureTimeout is returned when capture-pane does not complete in time.
var ErrCaptureTimeout = errors.New("capture-pane timed out")

// ErrNoServer is returned when no tmux server is reachable.
var ErrNoServer = errors.New("no tmux server running")

// captureTimeout bounds a single capture-pane subprocess.
const captureTimeout = 3 * time.Second

// Client is the query interface over the multiplexer: list panes, capture a
// pane's text, resolve a process's ancestor chain. Implementations must be
// safe for concurrent use within one poll tick.
type Client interface {
	// ListPanes returns all panes across all sessions.
	ListPanes(ctx context.Context) ([]Pane, error)

	// CapturePane captures the visible content of the target pane, with
	// wrapped lines joined.
	CapturePane(ctx context.Context, target string) (string, error)

	// Ancestors returns the command lines of pid's ancestors, nearest
	// first. Best-effort: returns nil when the process table is
	// unreadable, and inserts UnknownAncestor where the chain breaks.
	Ancestors(pid int) []string
}

// LocalClient talks to the local tmux server via the tmux binary.
type LocalClient struct{}

// NewLocalClient returns a client for the local tmux server.
func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

// listFormat is tab-separated so pane titles containing spaces survive parsing.
const listFormat = "#{session_name}:#{window_index}.#{pane_index}\t#{pane_pid}\t#{pane_current_command}\t#{pane_title}"

// ListPanes returns all panes across all sessions. Ancestor chains and full
// command lines come from a single process-table snapshot, not one ps call
// per pane.
func (c *LocalClient) ListPanes(ctx context.Context) ([]Pane, error) {
	out, err := c.run(ctx, "list-panes", "-a", "-F", listFormat)
	if err != nil {
		if strings.Contains(err.Error(), "no server running") {
			return nil, ErrNoServer
		}
		return nil, fmt.Errorf("tmux list-panes: %w", err)
	}

	procs := snapshotProcesses()

	var panes []Pane
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) < 3 {
			continue
		}

		pane, err := parseTarget(parts[0])
		if err != nil {
			tmuxLog.Debug("skip_unparseable_pane", slog.String("line", parts[0]))
			continue
		}
		pane.PID, _ = strconv.Atoi(parts[1])
		pane.Command = parts[2]
		if len(parts) == 4 {
			pane.Title = parts[3]
		}
		if procs != nil {
			if p, ok := procs[pane.PID]; ok {
				pane.CmdLine = p.args
			}
			pane.Ancestors = procs.ancestors(pane.PID)
		}

		panes = append(panes, pane)
	}

	return panes, nil
}

// CapturePane captures the visible content of a pane. -J joins wrapped lines
// so patterns spanning a terminal wrap still match.
func (c *LocalClient) CapturePane(ctx context.Context, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	out, err := c.run(ctx, "capture-pane", "-t", target, "-p", "-J")
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrCaptureTimeout
		}
		return "", fmt.Errorf("tmux capture-pane -t %s: %w", target, err)
	}
	return out, nil
}

// Ancestors resolves pid's ancestor chain from a fresh process snapshot.
func (c *LocalClient) Ancestors(pid int) []string {
	procs := snapshotProcesses()
	if procs == nil {
		return nil
	}
	return procs.ancestors(pid)
}

// run executes a tmux command and returns its stdout.
func (c *LocalClient) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// parseTarget parses "session:window.pane" into a Pane. The session name may
// itself contain ':' so the split uses the last separator occurrences.
func parseTarget(target string) (Pane, error) {
	colonIdx := strings.LastIndex(target, ":")
	if colonIdx < 0 {
		return Pane{}, fmt.Errorf("invalid target %q: missing ':'", target)
	}

	session := target[:colonIdx]
	rest := target[colonIdx+1:]

	dotIdx := strings.LastIndex(rest, ".")
	if dotIdx < 0 {
		return Pane{}, fmt.Errorf("invalid target %q: missing '.'", target)
	}

	window, err := strconv.Atoi(rest[:dotIdx])
	if err != nil {
		return Pane{}, fmt.Errorf("invalid window index in %q: %w", target, err)
	}

	paneIdx, err := strconv.Atoi(rest[dotIdx+1:])
	if err != nil {
		return Pane{}, fmt.Errorf("invalid pane index in %q: %w", target, err)
	}

	return Pane{
		Target:    target,
		Session:   session,
		Window:    window,
		PaneIndex: paneIdx,
	}, nil
}
