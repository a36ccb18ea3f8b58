package detect

import (
	"strings"
	"testing"
)

func sepProfile(rules ...StateRule) *Profile {
	return &Profile{ID: "test", DefaultStatus: StatusUnknown, Rules: rules}
}

func TestIsSeparatorLine(t *testing.T) {
	g := DefaultGlyphs()
	tests := []struct {
		line string
		want bool
	}{
		{"────────────", true},
		{"  ──────  ", true},
		{"━━━━━━", true},
		{"════", true},
		{"---", false},          // below min width
		{"──── hello", false},   // mixed content
		{"", false},
		{"> prompt", false},
	}
	for _, tt := range tests {
		if got := isSeparatorLine(tt.line, g); got != tt.want {
			t.Errorf("isSeparatorLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestSplitLinesTrimsTrailingBlanks(t *testing.T) {
	lines := splitLines("a\nb\n\n   \n")
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("splitLines = %q", lines)
	}
}

func TestTailWindow(t *testing.T) {
	lines := make([]string, 100)
	got := tailWindow(lines, 15)
	if len(got) != 15 {
		t.Errorf("tailWindow(100, 15) = %d lines", len(got))
	}
	if got := tailWindow(lines, 0); len(got) != DefaultLastLines {
		t.Errorf("tailWindow(100, 0) = %d lines, want %d", len(got), DefaultLastLines)
	}
	if got := tailWindow(lines[:5], 15); len(got) != 5 {
		t.Errorf("tailWindow(5, 15) = %d lines", len(got))
	}
}

func TestLastBlock(t *testing.T) {
	lines := []string{"first", "", "second a", "second b", ""}
	block := lastBlock(lines)
	if len(block) != 2 || block[0] != "second a" || block[1] != "second b" {
		t.Errorf("lastBlock = %q", block)
	}
	if lastBlock([]string{"", "  "}) != nil {
		t.Error("all-blank input should yield nil block")
	}
}

func TestSplitSeparatorFindsBottomSandwich(t *testing.T) {
	window := []string{
		"old output",
		"────────────",
		"> stale prompt",
		"────────────",
		"new output",
		"────────────",
		"> live",
		"────────────",
		"  2 panes",
	}
	sp, ok := splitSeparator(window, DefaultGlyphs())
	if !ok {
		t.Fatal("expected a split")
	}
	prompt := strings.Join(sp.prompt, "\n")
	if !strings.Contains(prompt, "> live") {
		t.Errorf("prompt group missing live prompt: %q", prompt)
	}
	if strings.Contains(prompt, "stale") {
		t.Errorf("prompt group contains scrollback: %q", prompt)
	}
	body := strings.Join(sp.body, "\n")
	if !strings.Contains(body, "stale") {
		t.Errorf("body should hold the historical sandwich: %q", body)
	}
}

func TestSplitSeparatorFooterBound(t *testing.T) {
	window := []string{
		"────────────",
		"> ",
		"────────────",
		"line 1", "line 2", "line 3", "line 4",
	}
	if _, ok := splitSeparator(window, DefaultGlyphs()); ok {
		t.Error("sandwich with oversized footer is stale scrollback, must not split")
	}

	within := []string{
		"────────────",
		"> ",
		"────────────",
		"  ? for help",
	}
	if _, ok := splitSeparator(within, DefaultGlyphs()); !ok {
		t.Error("small footer below the sandwich must still split")
	}
}

func TestSplitSeparatorAdjacentPairSlides(t *testing.T) {
	window := []string{"text", "────────────", "────────────"}
	if _, ok := splitSeparator(window, DefaultGlyphs()); ok {
		t.Error("adjacent separators frame nothing, must not split")
	}
}

func TestSplitBox(t *testing.T) {
	window := []string{
		"⏺ Done.",
		"",
		"╭──────────────╮",
		"│ > ",
		"╰──────────────╯",
	}
	sp, ok := splitBox(window, DefaultGlyphs())
	if !ok {
		t.Fatal("expected a split")
	}
	if len(sp.prompt) != 3 {
		t.Errorf("prompt = %q", sp.prompt)
	}
	if len(sp.body) != 2 {
		t.Errorf("body = %q", sp.body)
	}
}

func TestSplitBoxFooterBound(t *testing.T) {
	window := []string{
		"╭──────────────╮",
		"│ Do you want to proceed?",
		"╰──────────────╯",
		"a", "b", "c", "d", "e",
	}
	if _, ok := splitBox(window, DefaultGlyphs()); ok {
		t.Error("box buried under output is stale, must not split")
	}
}

func TestSplitBoxBottomWithoutTop(t *testing.T) {
	window := []string{"output", "╰──────────────╯"}
	if _, ok := splitBox(window, DefaultGlyphs()); ok {
		t.Error("bottom corner alone must not split")
	}
}

func TestDetectRuleOrder(t *testing.T) {
	p := sepProfile(
		StateRule{
			Name:     "first",
			Splitter: SplitNone,
			Refinements: []Refinement{
				{Location: LocAnywhere, Pattern: MustPattern("alpha"), Status: StatusError, Text: "from first"},
			},
		},
		StateRule{
			Name:     "second",
			Splitter: SplitNone,
			Refinements: []Refinement{
				{Location: LocAnywhere, Pattern: MustPattern("alpha"), Status: StatusIdle, Text: "from second"},
			},
		},
	)
	st := Detect(p, "alpha beta")
	if st.Kind != StatusError || st.Message != "from first" {
		t.Errorf("first satisfied rule must win, got %+v", st)
	}
}

func TestDetectRefinementOrder(t *testing.T) {
	p := sepProfile(StateRule{
		Name:     "r",
		Splitter: SplitNone,
		Refinements: []Refinement{
			{Location: LocAnywhere, Pattern: MustPattern("missing"), Status: StatusError},
			{Location: LocAnywhere, Pattern: MustPattern("present"), Status: StatusProcessing, Text: "hit"},
			{Location: LocAnywhere, Pattern: MustPattern("present"), Status: StatusIdle, Text: "shadowed"},
		},
	})
	st := Detect(p, "present")
	if st.Kind != StatusProcessing || st.Activity != "hit" {
		t.Errorf("first matching refinement must win, got %+v", st)
	}
}

func TestDetectLocations(t *testing.T) {
	content := "⠋ Thinking…\ndetail line\n\ntail block first\ntail block last"
	tests := []struct {
		name    string
		loc     Location
		pattern string
		match   bool
	}{
		{name: "anywhere finds scrollback", loc: LocAnywhere, pattern: "Thinking", match: true},
		{name: "last_line only sees the end", loc: LocLastLine, pattern: "Thinking", match: false},
		{name: "last_line sees the end", loc: LocLastLine, pattern: "block last", match: true},
		{name: "last_block excludes earlier paragraph", loc: LocLastBlock, pattern: "detail line", match: false},
		{name: "last_block spans the paragraph", loc: LocLastBlock, pattern: "block first", match: true},
		{name: "first_line_of_last_block", loc: LocFirstLineOfLastBlock, pattern: "block first", match: true},
		{name: "first_line_of_last_block excludes rest", loc: LocFirstLineOfLastBlock, pattern: "block last", match: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sepProfile(StateRule{
				Name:     "r",
				Splitter: SplitNone,
				Refinements: []Refinement{
					{Location: tt.loc, Pattern: MustPattern(tt.pattern), Status: StatusProcessing, Text: "x"},
				},
			})
			st := Detect(p, content)
			got := st.Kind == StatusProcessing
			if got != tt.match {
				t.Errorf("location %s pattern %q matched=%v, want %v", tt.loc, tt.pattern, got, tt.match)
			}
		})
	}
}

func TestDetectCaptureFillsText(t *testing.T) {
	p := sepProfile(StateRule{
		Name:     "spinner",
		Splitter: SplitNone,
		Refinements: []Refinement{
			{Location: LocLastLine, Pattern: MustPattern(`re:^⠋\s*(\w+)…`), Status: StatusProcessing},
		},
	})
	st := Detect(p, "⠋ Compacting… (12s)")
	if st.Activity != "Compacting" {
		t.Errorf("capture group should fill the variant text, got %q", st.Activity)
	}

	// Explicit Text wins over the capture.
	p.Rules[0].Refinements[0].Text = "working"
	if st := Detect(p, "⠋ Compacting… (12s)"); st.Activity != "working" {
		t.Errorf("explicit text must override the capture, got %q", st.Activity)
	}
}

func TestDetectDefaultFallback(t *testing.T) {
	p := &Profile{
		ID:            "fallback",
		DefaultStatus: StatusIdle,
		DefaultLabel:  "quiet",
		Rules: []StateRule{{
			Name:     "never",
			Splitter: SplitSeparatorLine,
			Refinements: []Refinement{
				{Location: LocAnywhere, Pattern: MustPattern("x"), Status: StatusError},
			},
		}},
	}
	st := Detect(p, "plain output with no separators")
	if st.Kind != StatusIdle || st.Label != "quiet" {
		t.Errorf("unmatched content must yield the profile default, got %+v", st)
	}
}

func TestDetectSplitterFailureFailsRule(t *testing.T) {
	p := sepProfile(
		StateRule{
			Name:     "boxed",
			Splitter: SplitPowerlineBox,
			Refinements: []Refinement{
				{Group: GroupPrompt, Location: LocAnywhere, Pattern: MustPattern("target"), Status: StatusAwaitingApproval},
			},
		},
		StateRule{
			Name:     "plain",
			Splitter: SplitNone,
			Refinements: []Refinement{
				{Location: LocAnywhere, Pattern: MustPattern("target"), Status: StatusProcessing, Text: "x"},
			},
		},
	)
	// The word is present but no box exists: the boxed rule must fail
	// whole and the plain rule classify instead.
	st := Detect(p, "target appears in flat output")
	if st.Kind != StatusProcessing {
		t.Errorf("got %v, want processing via the plain rule", st.Kind)
	}
}

func TestDetectIdempotent(t *testing.T) {
	p := sepProfile(StateRule{
		Name:     "r",
		Splitter: SplitNone,
		Refinements: []Refinement{
			{Location: LocAnywhere, Pattern: MustPattern("work"), Status: StatusProcessing, Text: "working"},
		},
	})
	content := "some work happening"
	first := Detect(p, content)
	for i := 0; i < 5; i++ {
		if got := Detect(p, content); got != first {
			t.Fatalf("detection is not idempotent: %+v vs %+v", got, first)
		}
	}
}

func TestExplainTrace(t *testing.T) {
	p := sepProfile(
		StateRule{
			Name:     "miss",
			Splitter: SplitPowerlineBox,
			Refinements: []Refinement{
				{Group: GroupPrompt, Location: LocAnywhere, Pattern: MustPattern("x"), Status: StatusError},
			},
		},
		StateRule{
			Name:     "hit",
			Splitter: SplitNone,
			Refinements: []Refinement{
				{Location: LocAnywhere, Pattern: MustPattern("nope"), Status: StatusError},
				{Location: LocAnywhere, Pattern: MustPattern("yes"), Status: StatusIdle, Text: "ready"},
			},
		},
	)
	st, tr := Explain(p, "yes")
	if st.Kind != StatusIdle {
		t.Fatalf("status = %v", st.Kind)
	}
	if tr.Winner == nil || tr.Winner.Rule != "hit" || tr.Winner.Refinement != 1 {
		t.Errorf("winner = %+v", tr.Winner)
	}
	if len(tr.Rules) != 2 {
		t.Fatalf("rule traces = %d", len(tr.Rules))
	}
	if tr.Rules[0].SplitFound {
		t.Error("box splitter should have missed")
	}
	if !strings.Contains(tr.String(), "hit[1]") {
		t.Errorf("trace render missing winner:\n%s", tr.String())
	}

	_, tr = Explain(p, "nothing matches this")
	if tr.Winner == nil || !tr.Winner.Defaulted {
		t.Errorf("unmatched content should trace a defaulted winner, got %+v", tr.Winner)
	}
}

func TestSubagents(t *testing.T) {
	p := &Profile{
		ID:              "t",
		SubagentPattern: MustPattern(`re:[⏺●]\s+Task\(([^)]+)\)`),
	}
	content := strings.Join([]string{
		"⏺ Task(Explore codebase)",
		"  └ 12 tool uses",
		"● Task(Write tests) Running…",
		"done",
	}, "\n")

	subs := Subagents(p, content)
	if len(subs) != 2 {
		t.Fatalf("subagents = %+v", subs)
	}
	if subs[0].Name != "Explore codebase" || subs[0].Active {
		t.Errorf("first = %+v", subs[0])
	}
	if subs[1].Name != "Write tests" || !subs[1].Active {
		t.Errorf("second = %+v", subs[1])
	}

	if got := Subagents(&Profile{ID: "none"}, content); got != nil {
		t.Errorf("profile without pattern must return nil, got %+v", got)
	}
}
