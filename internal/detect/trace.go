package detect

import (
	"fmt"
	"strings"
)

// Trace is a human-readable record of one detection run: which rules were
// tried, how their splitters fared, and which refinement won. Consumed by
// tooling that verifies detection against recorded pane fixtures.
type Trace struct {
	ProfileID  string
	TotalLines int
	Rules      []RuleTrace
	Winner     *Winner
}

// RuleTrace records one rule's evaluation.
type RuleTrace struct {
	Rule        string
	Splitter    SplitterKind
	Window      int
	SplitFound  bool
	PromptSize  int
	Refinements []RefinementTrace
}

// RefinementTrace records one refinement's pattern evaluation.
type RefinementTrace struct {
	Index    int
	Group    Group
	Location Location
	Pattern  string
	Matched  bool
}

// Winner identifies the refinement that produced the final status.
// Defaulted is set when no rule matched and the profile default applied.
type Winner struct {
	Rule       string
	Refinement int
	Status     Status
	Defaulted  bool
}

// String renders the trace for terminal output.
func (t *Trace) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "profile %s (%d lines)\n", t.ProfileID, t.TotalLines)
	for _, rt := range t.Rules {
		mark := "miss"
		if rt.SplitFound {
			mark = "split"
		}
		fmt.Fprintf(&b, "  rule %-20s splitter=%-15s window=%-3d %s", rt.Rule, rt.Splitter, rt.Window, mark)
		if rt.SplitFound {
			fmt.Fprintf(&b, " prompt=%d", rt.PromptSize)
		}
		b.WriteByte('\n')
		for _, ref := range rt.Refinements {
			hit := " "
			if ref.Matched {
				hit = "*"
			}
			fmt.Fprintf(&b, "    %s [%d] %s/%s %q\n", hit, ref.Index, ref.Group, ref.Location, ref.Pattern)
		}
	}
	if t.Winner != nil {
		if t.Winner.Defaulted {
			fmt.Fprintf(&b, "  -> default: %s %q\n", t.Winner.Status.Kind, t.Winner.Status.Text())
		} else {
			fmt.Fprintf(&b, "  -> %s[%d]: %s %q\n", t.Winner.Rule, t.Winner.Refinement, t.Winner.Status.Kind, t.Winner.Status.Text())
		}
	}
	return b.String()
}
