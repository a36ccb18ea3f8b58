package detect

import (
	"strings"

	"github.com/paneboard/paneboard/internal/tmux"
)

// split is the result of applying a splitter: body holds historical output,
// prompt holds the current interactive region (and its footer).
type split struct {
	body   []string
	prompt []string
}

// group returns the requested side of the split.
func (s split) group(g Group) []string {
	if g == GroupPrompt {
		return s.prompt
	}
	return s.body
}

// Detect classifies captured pane content against a profile. It always
// returns exactly one status: the first refinement of the first satisfied
// rule, or the profile's default when nothing matches. It never fails on
// unexpected content; worst case is the default, or StatusUnknown.
//
// Detection is pure: the same content and profile always yield the same
// status.
func Detect(p *Profile, content string) Status {
	st, _ := run(p, content, false)
	return st
}

// Explain classifies content and records which matcher window, rule and
// refinement fired. Used by fixture-verification tooling, not the live loop.
func Explain(p *Profile, content string) (Status, *Trace) {
	return run(p, content, true)
}

func run(p *Profile, content string, traced bool) (Status, *Trace) {
	glyphs := p.Glyphs.withDefaults()
	lines := splitLines(tmux.StripANSI(content))

	var tr *Trace
	if traced {
		tr = &Trace{ProfileID: p.ID, TotalLines: len(lines)}
	}

	for _, rule := range p.Rules {
		window := tailWindow(lines, rule.LastLines)

		sp, ok := applySplitter(window, rule.Splitter, glyphs)
		if tr != nil {
			tr.Rules = append(tr.Rules, RuleTrace{
				Rule:       rule.Name,
				Splitter:   rule.Splitter,
				Window:     len(window),
				SplitFound: ok,
				PromptSize: len(sp.prompt),
			})
		}
		if !ok {
			continue
		}

		for i, ref := range rule.Refinements {
			text, matched := evalRefinement(ref, sp)
			if tr != nil {
				rt := &tr.Rules[len(tr.Rules)-1]
				rt.Refinements = append(rt.Refinements, RefinementTrace{
					Index:    i,
					Group:    ref.Group,
					Location: ref.Location,
					Pattern:  ref.Pattern.String(),
					Matched:  matched,
				})
			}
			if !matched {
				continue
			}
			if ref.Text != "" {
				text = ref.Text
			}
			st := makeStatus(ref.Status, text, ref.ApprovalType)
			if tr != nil {
				tr.Winner = &Winner{Rule: rule.Name, Refinement: i, Status: st}
			}
			return st, tr
		}
	}

	st := p.Default()
	if tr != nil {
		tr.Winner = &Winner{Rule: "", Refinement: -1, Status: st, Defaulted: true}
	}
	return st, tr
}

// evalRefinement matches one refinement against its group and location.
// Returns the captured text (for regex patterns with a capture group) and
// whether it matched. An empty group never matches.
func evalRefinement(ref Refinement, sp split) (string, bool) {
	lines := sp.group(ref.Group)
	if len(lines) == 0 {
		return "", false
	}

	switch ref.Location {
	case LocLastLine:
		line, ok := lastNonBlank(lines)
		if !ok {
			return "", false
		}
		return ref.Pattern.Find(line)
	case LocLastBlock:
		block := lastBlock(lines)
		if len(block) == 0 {
			return "", false
		}
		return ref.Pattern.Find(strings.Join(block, "\n"))
	case LocFirstLineOfLastBlock:
		block := lastBlock(lines)
		if len(block) == 0 {
			return "", false
		}
		return ref.Pattern.Find(block[0])
	default: // LocAnywhere
		return ref.Pattern.Find(strings.Join(lines, "\n"))
	}
}

// applySplitter runs the named splitter over the window. SplitNone matches
// trivially with everything in body; the structural splitters fail the rule
// when their convention is absent from the window.
func applySplitter(window []string, kind SplitterKind, g GlyphTable) (split, bool) {
	switch kind {
	case SplitSeparatorLine:
		return splitSeparator(window, g)
	case SplitPowerlineBox:
		return splitBox(window, g)
	default:
		return split{body: window}, true
	}
}

// splitSeparator scans from the bottom of the window upward for the closest
// pair of separator lines framing an interactive region (the prompt
// sandwich). Scrollback may contain many historical sandwiches; stopping at
// the first pair from the end is what makes detection history-resistant.
func splitSeparator(window []string, g GlyphTable) (split, bool) {
	lower := -1
	for i := len(window) - 1; i >= 0; i-- {
		if !isSeparatorLine(window[i], g) {
			continue
		}
		if lower == -1 {
			lower = i
			// A live sandwich has at most a bounded footer below it.
			if countNonBlank(window[i+1:]) > g.MaxFooterLines {
				return split{}, false
			}
			continue
		}
		// Candidate upper separator: needs an interactive line between.
		if lower-i >= 2 && countNonBlank(window[i+1:lower]) > 0 {
			return split{body: window[:i], prompt: window[i:]}, true
		}
		// Adjacent or empty pair: slide down and keep scanning.
		lower = i
	}
	return split{}, false
}

// splitBox scans from the bottom upward for a rounded-corner box: a line
// opening with the bottom-left corner rune, then above it one opening with
// the top-left corner rune.
func splitBox(window []string, g GlyphTable) (split, bool) {
	bottom := -1
	for i := len(window) - 1; i >= 0; i-- {
		first, ok := firstRune(window[i])
		if !ok {
			continue
		}
		switch first {
		case g.BoxBottomLeft:
			if bottom == -1 {
				bottom = i
				if countNonBlank(window[i+1:]) > g.MaxFooterLines {
					return split{}, false
				}
			}
		case g.BoxTopLeft:
			if bottom != -1 && bottom > i {
				return split{body: window[:i], prompt: window[i:]}, true
			}
		}
	}
	return split{}, false
}

// isSeparatorLine reports whether a line consists entirely of separator
// runes and meets the minimum width.
func isSeparatorLine(line string, g GlyphTable) bool {
	trimmed := strings.TrimSpace(line)
	if len([]rune(trimmed)) < g.MinSeparatorWidth {
		return false
	}
	for _, r := range trimmed {
		if !runeIn(r, g.SeparatorRunes) {
			return false
		}
	}
	return true
}

func runeIn(r rune, set []rune) bool {
	for _, s := range set {
		if r == s {
			return true
		}
	}
	return false
}

func firstRune(line string) (rune, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return 0, false
	}
	return []rune(trimmed)[0], true
}

// splitLines splits content into lines with trailing blank lines removed,
// so the window always ends at the last real line of the screen.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

// tailWindow returns the trailing n lines (DefaultLastLines when n <= 0).
func tailWindow(lines []string, n int) []string {
	if n <= 0 {
		n = DefaultLastLines
	}
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

// lastNonBlank returns the last non-blank line of the group.
func lastNonBlank(lines []string) (string, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i], true
		}
	}
	return "", false
}

// lastBlock returns the most recent paragraph: the run of non-blank lines
// ending at the last non-blank line.
func lastBlock(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if end == 0 {
		return nil
	}
	start := end - 1
	for start > 0 && strings.TrimSpace(lines[start-1]) != "" {
		start--
	}
	return lines[start:end]
}

func countNonBlank(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}
