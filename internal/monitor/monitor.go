package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/paneboard/paneboard/internal/detect"
	"github.com/paneboard/paneboard/internal/logging"
	"github.com/paneboard/paneboard/internal/tmux"
)

var monLog = logging.ForComponent(logging.CompMonitor)

// Backpressure selects what a full update channel does to a fresh tree.
type Backpressure int

const (
	// DropOldest replaces the undelivered pending tree with the newer
	// one. Safe: the next tick supersedes a dropped update, and a
	// consumer always sees a whole tree or nothing.
	DropOldest Backpressure = iota

	// Block waits for the consumer to drain before publishing.
	Block
)

// Options configures a Monitor.
type Options struct {
	// Interval is the poll cadence (default 1s).
	Interval time.Duration

	// Parallelism bounds concurrent per-pane processing (default 8).
	Parallelism int

	// CapturePerSec caps capture-pane calls per second (default 50).
	CapturePerSec int

	// Backpressure is the publish policy (default DropOldest).
	Backpressure Backpressure

	// Recorder, when non-nil, receives status transitions.
	Recorder TransitionRecorder
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 8
	}
	if opts.CapturePerSec <= 0 {
		opts.CapturePerSec = 50
	}
	return opts
}

// Monitor polls the multiplexer and publishes AgentTree snapshots. One
// background goroutine runs the loop; it communicates with the consumer
// only through the bounded Updates channel. No lock is held across a tick:
// all per-tick state is exclusively owned by the loop.
type Monitor struct {
	client   tmux.Client
	opts     Options
	registry atomic.Pointer[detect.Registry]

	updates chan *Tree
	errs    chan error

	// Loop-owned state, never touched outside Run's goroutine.
	tick          uint64
	prevKinds     map[string]detect.Kind
	listErrStreak int
}

// New creates a monitor over the given client and registry.
func New(client tmux.Client, reg *detect.Registry, opts Options) *Monitor {
	opts = (&opts).withDefaults()
	m := &Monitor{
		client: &limitedClient{
			Client:  client,
			limiter: rate.NewLimiter(rate.Limit(opts.CapturePerSec), opts.CapturePerSec),
		},
		opts:      opts,
		updates:   make(chan *Tree, 1),
		errs:      make(chan error, 1),
		prevKinds: make(map[string]detect.Kind),
	}
	m.registry.Store(reg)
	return m
}

// Updates is the subscription interface: it yields each published tree.
// Consumers may coalesce, but must never apply an older tree after a newer
// one (Tree.Tick is strictly increasing).
func (m *Monitor) Updates() <-chan *Tree {
	return m.updates
}

// Errors yields transient failures (multiplexer unreachable). Each failure
// streak is reported once; the loop retries on the next tick regardless.
func (m *Monitor) Errors() <-chan error {
	return m.errs
}

// Reload atomically swaps in a new, pre-validated profile registry for
// subsequent ticks. An in-flight tick finishes against the old registry.
func (m *Monitor) Reload(reg *detect.Registry) {
	m.registry.Store(reg)
	monLog.Info("registry_reloaded", slog.Int("profiles", reg.Len()))
}

// Run polls until ctx is cancelled. Ticks never overlap: an overrunning
// tick delays the next one instead of running concurrently with it, so no
// pane is ever processed by two detection passes at once. On shutdown an
// in-progress tick finishes; a half-built tree is never published.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	// First tick immediately: the dashboard should not start blank.
	m.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runTick(ctx)
		}
	}
}

// RunOnce performs a single tick and returns the tree directly instead of
// publishing it. Used by the one-shot CLI surfaces; not safe to call while
// Run is active.
func (m *Monitor) RunOnce(ctx context.Context) (*Tree, error) {
	panes, err := m.client.ListPanes(ctx)
	if err != nil {
		return nil, err
	}
	return m.assemble(ctx, panes), nil
}

func (m *Monitor) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	panes, err := m.client.ListPanes(ctx)
	if err != nil {
		// Report the failure once per streak and retry next tick.
		m.listErrStreak++
		if m.listErrStreak == 1 {
			monLog.Warn("list_panes_failed", slog.String("error", err.Error()))
			select {
			case m.errs <- err:
			default:
			}
		}
		return
	}
	m.listErrStreak = 0

	tree := m.assemble(ctx, panes)
	m.recordTransitions(tree)
	m.publish(ctx, tree)

	monLog.Debug("tick_complete",
		slog.Uint64("tick", tree.Tick),
		slog.Int("panes", len(tree.Agents)),
		slog.Duration("elapsed", time.Since(start)))
}

// assemble runs match + detect for every pane and builds the ordered tree.
// Per-pane processing is embarrassingly parallel; everything completes
// before the tree exists.
func (m *Monitor) assemble(ctx context.Context, panes []tmux.Pane) *Tree {
	reg := m.registry.Load()

	// Display order: session, then window, then pane. Sorting targets as
	// strings would misorder double-digit window indexes.
	sort.SliceStable(panes, func(i, j int) bool {
		if panes[i].Session != panes[j].Session {
			return panes[i].Session < panes[j].Session
		}
		if panes[i].Window != panes[j].Window {
			return panes[i].Window < panes[j].Window
		}
		return panes[i].PaneIndex < panes[j].PaneIndex
	})

	agents := make([]Agent, len(panes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Parallelism)
	for i, pane := range panes {
		g.Go(func() error {
			agents[i] = m.processPane(gctx, reg, pane)
			return nil
		})
	}
	_ = g.Wait() // processPane never returns an error; failures demote the pane

	m.tick++
	return &Tree{
		Tick:        m.tick,
		GeneratedAt: time.Now(),
		Agents:      agents,
	}
}

// processPane matches one pane against the registry and detects its status.
// Content is captured at most once: the snapshot caches it across the
// matcher's content pre-filter and detection. A capture failure demotes the
// pane to Unknown for this tick without aborting the tick.
func (m *Monitor) processPane(ctx context.Context, reg *detect.Registry, pane tmux.Pane) Agent {
	snap := tmux.NewSnapshot(pane, m.client)

	agent := Agent{
		UniqueID:    pane.UniqueID(),
		Target:      pane.Target,
		PID:         pane.PID,
		Session:     pane.Session,
		Title:       pane.Title,
		Command:     pane.Command,
		DisplayName: pane.Command,
	}

	prof := detect.Match(ctx, reg, snap)
	if prof == nil {
		agent.Status = detect.Status{Kind: detect.StatusUnknown}
		return agent
	}

	agent.ProfileID = prof.ID
	agent.DisplayName = prof.DisplayName
	agent.IsAgent = prof.IsAgent

	content, err := snap.Content(ctx)
	if err != nil {
		monLog.Debug("capture_failed",
			slog.String("target", pane.Target),
			slog.String("error", err.Error()))
		agent.Status = detect.Status{Kind: detect.StatusUnknown}
		return agent
	}

	agent.Status = detect.Detect(prof, content)
	agent.Subagents = detect.Subagents(prof, content)
	return agent
}

// recordTransitions diffs the tree against the previous tick by unique id
// and forwards kind changes to the recorder. Best-effort: a recorder error
// is logged, never fatal.
func (m *Monitor) recordTransitions(tree *Tree) {
	if m.opts.Recorder == nil {
		return
	}

	next := make(map[string]detect.Kind, len(tree.Agents))
	for _, a := range tree.Agents {
		next[a.UniqueID] = a.Status.Kind
		prev, seen := m.prevKinds[a.UniqueID]
		if seen && prev == a.Status.Kind {
			continue
		}
		// A newly seen pane that is still Unknown has not transitioned
		// anywhere yet; recording it would fill the store with
		// unknown -> unknown rows for every plain pane on startup.
		if !seen && a.Status.Kind == detect.StatusUnknown {
			continue
		}
		tr := Transition{
			UniqueID:  a.UniqueID,
			Target:    a.Target,
			ProfileID: a.ProfileID,
			PID:       a.PID,
			From:      prev,
			To:        a.Status.Kind,
			At:        tree.GeneratedAt,
		}
		if err := m.opts.Recorder.RecordTransition(tr); err != nil {
			monLog.Warn("record_transition_failed", slog.String("error", err.Error()))
		}
	}
	m.prevKinds = next
}

// publish delivers the assembled tree according to the backpressure policy.
// Either the whole tree is delivered or none of it.
func (m *Monitor) publish(ctx context.Context, tree *Tree) {
	if m.opts.Backpressure == Block {
		select {
		case m.updates <- tree:
		case <-ctx.Done():
		}
		return
	}

	// DropOldest: replace an undelivered pending tree with this one.
	for {
		select {
		case m.updates <- tree:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}

// limitedClient wraps a tmux client with a capture rate limiter so a burst
// of content-hungry panes cannot stampede the tmux server.
type limitedClient struct {
	tmux.Client
	limiter *rate.Limiter
}

func (c *limitedClient) CapturePane(ctx context.Context, target string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.Client.CapturePane(ctx, target)
}
