package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/paneboard/paneboard/internal/detect"
	"github.com/paneboard/paneboard/internal/events"
	"github.com/paneboard/paneboard/internal/logging"
	"github.com/paneboard/paneboard/internal/monitor"
	"github.com/paneboard/paneboard/internal/profile"
	"github.com/paneboard/paneboard/internal/tmux"
	"github.com/paneboard/paneboard/internal/ui"
)

const Version = "0.3.0"

func init() {
	initColorProfile()
}

// initColorProfile configures the lipgloss color profile. Detection inside
// tmux often underreports capabilities, so a PANEBOARD_COLOR override and a
// TrueColor-leaning TERM allowlist are provided.
func initColorProfile() {
	// PANEBOARD_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("PANEBOARD_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	if ct := os.Getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	termName := os.Getenv("TERM")
	for _, t := range []string{
		"xterm-256color", "screen-256color", "tmux-256color",
		"xterm-direct", "alacritty", "kitty", "wezterm",
	} {
		if termName == t {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}
	if strings.Contains(termName, "256color") {
		lipgloss.SetColorProfile(termenv.ANSI256)
	}
}

func main() {
	configPath := flag.String("config", profile.DefaultConfigPath(), "config file path")
	flag.Usage = usage
	flag.Parse()

	cfg, err := profile.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paneboard: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging)
	defer logging.Shutdown()

	args := flag.Args()
	cmd := "board"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "board":
		err = runBoard(cfg, *configPath)
	case "scan":
		err = runScan(cfg, args)
	case "explain":
		err = runExplain(cfg, args)
	case "history":
		err = runHistory(cfg, args)
	case "version":
		fmt.Printf("paneboard %s\n", Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "paneboard: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "paneboard: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `paneboard - tmux AI agent dashboard

Usage:
  paneboard [flags]              interactive dashboard
  paneboard scan [--json]        one-shot status scan of all panes
  paneboard explain -t TARGET    show the rule trace for one pane
  paneboard history [-t TARGET]  recent status transitions
  paneboard version              print the version

Flags:
  -config PATH   config file (default %s)
`, profile.DefaultConfigPath())
}

func newMonitor(cfg *profile.Config, rec monitor.TransitionRecorder) *monitor.Monitor {
	bp := monitor.DropOldest
	if cfg.Monitor.Backpressure == "block" {
		bp = monitor.Block
	}
	return monitor.New(tmux.NewLocalClient(), cfg.Registry, monitor.Options{
		Interval:      cfg.Monitor.Interval(),
		Parallelism:   cfg.Monitor.Parallelism,
		CapturePerSec: cfg.Monitor.CapturePerSec,
		Backpressure:  bp,
		Recorder:      rec,
	})
}

func runBoard(cfg *profile.Config, configPath string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("not a terminal; use 'paneboard scan' for non-interactive output")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var rec monitor.TransitionRecorder
	if cfg.Events.Enabled {
		store, err := events.Open(cfg.Events.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		rec = store
		cutoff := time.Now().AddDate(0, 0, -cfg.Events.RetentionDays)
		if _, err := store.PruneBefore(cutoff); err != nil {
			logging.Logger().Warn("prune_failed", slog.String("error", err.Error()))
		}
	}

	mon := newMonitor(cfg, rec)
	go func() {
		if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
			logging.Logger().Error("monitor_stopped", slog.String("error", err.Error()))
		}
	}()

	watcher, err := profile.NewWatcher(configPath)
	if err != nil {
		// Live reload is a convenience; run without it.
		logging.Logger().Warn("config_watch_unavailable", slog.String("error", err.Error()))
	} else {
		defer watcher.Close()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case next := <-watcher.Configs():
					mon.Reload(next.Registry)
				case werr := <-watcher.Errors():
					logging.Logger().Warn("config_reload_rejected", slog.String("error", werr.Error()))
				}
			}
		}()
	}

	model := ui.New(mon, cfg.UI.Theme, cfg.UI.SnapToNeighbor)
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = prog.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}

func runScan(cfg *profile.Config, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "emit JSON")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mon := newMonitor(cfg, nil)
	tree, err := mon.RunOnce(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scanReport(tree))
	}

	for _, group := range tree.Sessions() {
		fmt.Printf("%s\n", group.Name)
		for _, a := range group.Agents {
			status := a.Status.Text()
			if status == "" {
				status = a.Status.Kind.String()
			}
			fmt.Printf("  %-24s %-16s %s\n", a.Target, a.DisplayName, status)
		}
	}
	s := tree.Summarize()
	fmt.Printf("\n%d panes, %d agents, %d working, %d need attention\n",
		s.Panes, s.Agents, s.Working, s.Attention)
	return nil
}

type scanPane struct {
	Target    string            `json:"target"`
	Session   string            `json:"session"`
	PID       int               `json:"pid"`
	Profile   string            `json:"profile,omitempty"`
	Name      string            `json:"name"`
	IsAgent   bool              `json:"is_agent"`
	Status    string            `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Subagents []detect.Subagent `json:"subagents,omitempty"`
}

func scanReport(tree *monitor.Tree) []scanPane {
	report := make([]scanPane, 0, len(tree.Agents))
	for _, a := range tree.Agents {
		report = append(report, scanPane{
			Target:    a.Target,
			Session:   a.Session,
			PID:       a.PID,
			Profile:   a.ProfileID,
			Name:      a.DisplayName,
			IsAgent:   a.IsAgent,
			Status:    a.Status.Kind.String(),
			Detail:    a.Status.Text(),
			Subagents: a.Subagents,
		})
	}
	return report
}

func runExplain(cfg *profile.Config, args []string) error {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	target := fs.String("t", "", "pane target (session:window.pane)")
	fs.Parse(args)
	if *target == "" {
		return fmt.Errorf("explain: -t TARGET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := tmux.NewLocalClient()
	panes, err := client.ListPanes(ctx)
	if err != nil {
		return err
	}
	var pane *tmux.Pane
	for i := range panes {
		if panes[i].Target == *target {
			pane = &panes[i]
			break
		}
	}
	if pane == nil {
		return fmt.Errorf("explain: pane %q not found", *target)
	}

	snap := tmux.NewSnapshot(*pane, client)
	p := detect.Match(ctx, cfg.Registry, snap)
	if p == nil {
		fmt.Printf("%s: no profile matched (command=%q title=%q)\n",
			pane.Target, pane.Command, pane.Title)
		return nil
	}

	raw, err := snap.Content(ctx)
	if err != nil {
		return fmt.Errorf("explain: capture %s: %w", pane.Target, err)
	}
	status, trace := detect.Explain(p, tmux.StripANSI(raw))

	fmt.Printf("pane:    %s (pid %d)\n", pane.Target, pane.PID)
	fmt.Printf("profile: %s (priority %d)\n", p.ID, p.Priority)
	fmt.Printf("status:  %s", status.Kind)
	if t := status.Text(); t != "" {
		fmt.Printf(" (%s)", t)
	}
	fmt.Println()
	fmt.Println()
	fmt.Print(trace.String())
	return nil
}

func runHistory(cfg *profile.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	target := fs.String("t", "", "filter to one pane target")
	limit := fs.Int("n", 50, "max rows")
	fs.Parse(args)

	store, err := events.Open(cfg.Events.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var rows []events.Row
	if *target != "" {
		rows, err = store.ForTarget(*target, *limit)
	} else {
		rows, err = store.Recent(*limit)
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no transitions recorded")
		return nil
	}
	for _, r := range rows {
		fmt.Printf("%s  %-24s %-10s %s -> %s\n",
			r.At.Local().Format("2006-01-02 15:04:05"),
			r.Target, r.ProfileID, r.From, r.To)
	}
	return nil
}
