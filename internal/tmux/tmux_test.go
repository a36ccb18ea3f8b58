package tmux

import (
	"context"
	"errors"
	"testing"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target  string
		session string
		window  int
		pane    int
		wantErr bool
	}{
		{target: "main:0.1", session: "main", window: 0, pane: 1},
		{target: "dev:12.3", session: "dev", window: 12, pane: 3},
		{target: "my:proj:2.0", session: "my:proj", window: 2, pane: 0},
		{target: "v1.2:0.1", session: "v1.2", window: 0, pane: 1},
		{target: "noseparator", wantErr: true},
		{target: "sess:nodot", wantErr: true},
		{target: "sess:x.1", wantErr: true},
		{target: "sess:1.x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			p, err := parseTarget(tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseTarget(%q) expected error", tt.target)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTarget(%q): %v", tt.target, err)
			}
			if p.Session != tt.session || p.Window != tt.window || p.PaneIndex != tt.pane {
				t.Errorf("parseTarget(%q) = %s/%d.%d, want %s/%d.%d",
					tt.target, p.Session, p.Window, p.PaneIndex, tt.session, tt.window, tt.pane)
			}
			if p.Target != tt.target {
				t.Errorf("Target = %q, want %q", p.Target, tt.target)
			}
		})
	}
}

func TestPaneUniqueID(t *testing.T) {
	p := Pane{Target: "main:0.1", PID: 4242}
	if got := p.UniqueID(); got != "main:0.1#4242" {
		t.Errorf("UniqueID = %q", got)
	}
}

func TestParseProcessTable(t *testing.T) {
	out := `
    1       0 /sbin/init
  400       1 tmux server
  500     400 -zsh
  600     500 node /usr/local/bin/claude --resume session
garbage line
  700     bad ps-noise
`
	table := parseProcessTable(out)
	if len(table) != 4 {
		t.Fatalf("table size = %d, want 4", len(table))
	}
	if table[600].args != "node /usr/local/bin/claude --resume session" {
		t.Errorf("args with spaces mangled: %q", table[600].args)
	}
	if table[600].ppid != 500 {
		t.Errorf("ppid = %d", table[600].ppid)
	}
}

func TestAncestors(t *testing.T) {
	table := procTable{
		100: {pid: 100, ppid: 1, args: "tmux server"},
		200: {pid: 200, ppid: 100, args: "-zsh"},
		300: {pid: 300, ppid: 200, args: "node claude"},
	}

	got := table.ancestors(300)
	if len(got) != 2 || got[0] != "-zsh" || got[1] != "tmux server" {
		t.Errorf("ancestors(300) = %q", got)
	}

	if got := table.ancestors(999); got != nil {
		t.Errorf("unknown pid should yield nil, got %q", got)
	}

	// A parent missing from the snapshot marks the gap instead of
	// silently truncating.
	gappy := procTable{
		300: {pid: 300, ppid: 250, args: "node claude"},
	}
	got = gappy.ancestors(300)
	if len(got) != 1 || got[0] != UnknownAncestor {
		t.Errorf("broken chain = %q, want [%q]", got, UnknownAncestor)
	}
}

func TestAncestorsCyclicTableTerminates(t *testing.T) {
	cyclic := procTable{
		10: {pid: 10, ppid: 20, args: "a"},
		20: {pid: 20, ppid: 10, args: "b"},
	}
	got := cyclic.ancestors(10)
	if len(got) > maxAncestorDepth {
		t.Errorf("walk did not terminate: %d entries", len(got))
	}
}

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain passthrough", in: "no escapes here", want: "no escapes here"},
		{name: "sgr colors", in: "\x1b[1;32mgreen\x1b[0m text", want: "green text"},
		{name: "cursor movement", in: "a\x1b[2Kb", want: "ab"},
		{name: "osc title bell", in: "\x1b]0;window title\x07visible", want: "visible"},
		{name: "osc title st", in: "\x1b]0;title\x1b\\visible", want: "visible"},
		{name: "bare escape pair", in: "x\x1b7y", want: "xy"},
		{name: "eight bit csi", in: "a\x9b31mb", want: "ab"},
		{name: "truncated sequence", in: "tail\x1b", want: "tail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.in); got != tt.want {
				t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSnapshotCapturesOnce(t *testing.T) {
	c := &countingClient{content: "captured text"}
	s := NewSnapshot(Pane{Target: "main:0.1"}, c)

	if s.Captured() {
		t.Error("fresh snapshot must not be captured")
	}
	for i := 0; i < 3; i++ {
		got, err := s.Content(context.Background())
		if err != nil || got != "captured text" {
			t.Fatalf("Content = %q, %v", got, err)
		}
	}
	if c.calls != 1 {
		t.Errorf("capture calls = %d, want 1", c.calls)
	}
	if !s.Captured() {
		t.Error("snapshot should report captured")
	}
}

func TestSnapshotCachesError(t *testing.T) {
	c := &countingClient{err: errors.New("pane vanished")}
	s := NewSnapshot(Pane{Target: "main:0.1"}, c)

	for i := 0; i < 3; i++ {
		if _, err := s.Content(context.Background()); err == nil {
			t.Fatal("expected capture error")
		}
	}
	if c.calls != 1 {
		t.Errorf("capture calls = %d, failed captures must not retry", c.calls)
	}
}

type countingClient struct {
	content string
	err     error
	calls   int
}

func (c *countingClient) ListPanes(ctx context.Context) ([]Pane, error) { return nil, nil }

func (c *countingClient) CapturePane(ctx context.Context, target string) (string, error) {
	c.calls++
	return c.content, c.err
}

func (c *countingClient) Ancestors(pid int) []string { return nil }
