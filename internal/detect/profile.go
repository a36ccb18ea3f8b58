package detect

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled match pattern. Raw strings prefixed with "re:" are
// regular expressions; everything else matches as a case-insensitive
// substring. Compilation happens at profile load so an invalid pattern can
// never surface mid-poll.
type Pattern struct {
	raw  string
	re   *regexp.Regexp
	fold string // lowercased raw for substring matching
}

// CompilePattern compiles a raw pattern string.
func CompilePattern(raw string) (Pattern, error) {
	if rest, ok := strings.CutPrefix(raw, "re:"); ok {
		re, err := regexp.Compile(rest)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid pattern %q: %w", raw, err)
		}
		return Pattern{raw: raw, re: re}, nil
	}
	return Pattern{raw: raw, fold: strings.ToLower(raw)}, nil
}

// MustPattern compiles a raw pattern and panics on error. For built-in
// profile tables, which are covered by tests.
func MustPattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the pattern matches s.
func (p Pattern) Match(s string) bool {
	if p.re != nil {
		return p.re.MatchString(s)
	}
	if p.fold == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), p.fold)
}

// Find returns the first regex capture group on match, or the matched text
// for group-less patterns. Substring patterns return the raw pattern.
func (p Pattern) Find(s string) (string, bool) {
	if p.re == nil {
		if p.Match(s) {
			return p.raw, true
		}
		return "", false
	}
	m := p.re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if len(m) > 1 && m[1] != "" {
		return m[1], true
	}
	return m[0], true
}

// String returns the raw pattern for logging and traces.
func (p Pattern) String() string { return p.raw }

// IsZero reports whether the pattern is unset.
func (p Pattern) IsZero() bool { return p.re == nil && p.fold == "" }

// MatcherKind selects which snapshot field a matcher inspects.
type MatcherKind string

const (
	// MatchCommand inspects the pane's foreground command name.
	MatchCommand MatcherKind = "command"
	// MatchTitle inspects the pane title.
	MatchTitle MatcherKind = "title"
	// MatchCmdLine inspects the full command line of the pane process.
	MatchCmdLine MatcherKind = "cmdline"
	// MatchAncestor inspects each entry of the ancestor chain.
	MatchAncestor MatcherKind = "ancestor"
	// MatchContent inspects captured pane text. Content matchers only run
	// once an identity matcher of the same profile has passed, so they
	// never force a capture for every pane on every poll.
	MatchContent MatcherKind = "content"
)

// ParseMatcherKind parses a config matcher kind.
func ParseMatcherKind(s string) (MatcherKind, error) {
	switch MatcherKind(s) {
	case MatchCommand, MatchTitle, MatchCmdLine, MatchAncestor, MatchContent:
		return MatcherKind(s), nil
	default:
		return "", fmt.Errorf("unknown matcher kind %q", s)
	}
}

// Matcher recognizes a pane as belonging to a profile.
type Matcher struct {
	Kind    MatcherKind
	Pattern Pattern
}

// RequiresContent reports whether evaluating the matcher needs captured text.
func (m Matcher) RequiresContent() bool { return m.Kind == MatchContent }

// SplitterKind names the strategy that divides a text window into the body
// (historical output) and prompt (current interactive area) groups.
type SplitterKind string

const (
	// SplitNone treats the whole window as body. Always matches.
	SplitNone SplitterKind = "none"
	// SplitSeparatorLine finds the bottom-most pair of horizontal separator
	// lines framing an interactive region.
	SplitSeparatorLine SplitterKind = "separator_line"
	// SplitPowerlineBox finds the bottom-most rounded-corner box.
	SplitPowerlineBox SplitterKind = "powerline_box"
)

// ParseSplitterKind parses a config splitter name.
func ParseSplitterKind(s string) (SplitterKind, error) {
	switch SplitterKind(s) {
	case "", SplitNone:
		return SplitNone, nil
	case SplitSeparatorLine, SplitPowerlineBox:
		return SplitterKind(s), nil
	default:
		return "", fmt.Errorf("unknown splitter %q", s)
	}
}

// Group selects which side of a split a refinement searches.
type Group string

const (
	GroupBody   Group = "body"
	GroupPrompt Group = "prompt"
)

// ParseGroup parses a config group name.
func ParseGroup(s string) (Group, error) {
	switch Group(s) {
	case "", GroupBody:
		return GroupBody, nil
	case GroupPrompt:
		return GroupPrompt, nil
	default:
		return "", fmt.Errorf("unknown group %q", s)
	}
}

// Location selects where within a group a refinement's pattern must match.
// The anchored locations exist because "the last thing printed was X" must
// never match X sitting in scrollback.
type Location string

const (
	// LocAnywhere searches the whole group.
	LocAnywhere Location = "anywhere"
	// LocLastLine searches only the last non-blank line.
	LocLastLine Location = "last_line"
	// LocLastBlock searches the most recent paragraph (lines up to the
	// last blank-line boundary).
	LocLastBlock Location = "last_block"
	// LocFirstLineOfLastBlock searches the first line of the most recent
	// paragraph. Spinners on multi-line structured output sit at the top
	// of the block, not the bottom.
	LocFirstLineOfLastBlock Location = "first_line_of_last_block"
)

// ParseLocation parses a config location name.
func ParseLocation(s string) (Location, error) {
	switch Location(s) {
	case "", LocAnywhere:
		return LocAnywhere, nil
	case LocLastLine, LocLastBlock, LocFirstLineOfLastBlock:
		return Location(s), nil
	default:
		return "", fmt.Errorf("unknown location %q", s)
	}
}

// Refinement is one pattern+location+group rule. On match it yields a
// concrete status and short-circuits the rest of its rule.
type Refinement struct {
	Group    Group
	Location Location
	Pattern  Pattern

	// Status is the resulting variant kind.
	Status Kind
	// Text fills the variant's text field. Empty Text with a capturing
	// regex pattern uses the first capture group instead.
	Text string
	// ApprovalType qualifies StatusAwaitingApproval results.
	ApprovalType string
}

// StateRule is one splitter strategy plus its ordered refinements. Rules are
// evaluated in declaration order; configuration convention orders them
// approval first, then processing, then idle, so an attention-requiring
// prompt is never masked by busy-looking output elsewhere on screen.
type StateRule struct {
	Name string

	// Splitter divides the window into body and prompt. A splitter that
	// cannot be located fails the whole rule (except SplitNone).
	Splitter SplitterKind

	// LastLines is the trailing window size scanned by the rule. Zero
	// means DefaultLastLines. Full-history scanning both wastes time and
	// risks matching stale content.
	LastLines int

	Refinements []Refinement
}

// DefaultLastLines is the trailing window used when a rule does not set one.
const DefaultLastLines = 40

// GlyphTable holds the visual conventions the splitters recognize. Terminal
// UI conventions change over time, so the glyphs are profile data rather
// than engine constants.
type GlyphTable struct {
	// SeparatorRunes are the characters a horizontal separator line is
	// made of.
	SeparatorRunes []rune

	// MinSeparatorWidth is the minimum rune count for a separator line.
	MinSeparatorWidth int

	// BoxTopLeft/BoxBottomLeft begin the top and bottom rows of a
	// rounded powerline box.
	BoxTopLeft    rune
	BoxBottomLeft rune

	// MaxFooterLines bounds the non-blank lines allowed below a matched
	// sandwich. More than this means the sandwich is stale scrollback.
	MaxFooterLines int
}

// DefaultGlyphs returns the glyph conventions of current agent TUIs.
func DefaultGlyphs() GlyphTable {
	return GlyphTable{
		SeparatorRunes:    []rune{'─', '━', '—', '-', '═'},
		MinSeparatorWidth: 4,
		BoxTopLeft:        '╭',
		BoxBottomLeft:     '╰',
		MaxFooterLines:    3,
	}
}

// withDefaults fills zero-valued fields from DefaultGlyphs.
func (g GlyphTable) withDefaults() GlyphTable {
	def := DefaultGlyphs()
	if len(g.SeparatorRunes) == 0 {
		g.SeparatorRunes = def.SeparatorRunes
	}
	if g.MinSeparatorWidth <= 0 {
		g.MinSeparatorWidth = def.MinSeparatorWidth
	}
	if g.BoxTopLeft == 0 {
		g.BoxTopLeft = def.BoxTopLeft
	}
	if g.BoxBottomLeft == 0 {
		g.BoxBottomLeft = def.BoxBottomLeft
	}
	if g.MaxFooterLines <= 0 {
		g.MaxFooterLines = def.MaxFooterLines
	}
	return g
}

// Profile is the declarative description of one recognizable agent kind:
// how to spot its panes and how to read its screen.
type Profile struct {
	// ID is the unique profile identifier.
	ID string

	// DisplayName is the human-facing name.
	DisplayName string

	// Priority orders profiles during matching; higher wins. Equal
	// priorities keep declaration order.
	Priority int

	// IsAgent marks the profile as an AI agent for summary counts.
	// The shell fallback profile sets this false.
	IsAgent bool

	// Matchers recognize a pane as this profile. Any single match selects
	// the profile.
	Matchers []Matcher

	// Rules classify captured content. First satisfied rule wins.
	Rules []StateRule

	// DefaultStatus applies when no rule matches. Absence of a rule match
	// is expected, not an error.
	DefaultStatus Kind

	// DefaultLabel is the text attached to the DefaultStatus variant.
	DefaultLabel string

	// Glyphs configures the splitters for this profile's TUI conventions.
	Glyphs GlyphTable

	// SubagentPattern optionally extracts nested task entries from the
	// body group. First capture group is the task name.
	SubagentPattern Pattern
}

// Default returns the profile's fallback status.
func (p *Profile) Default() Status {
	return makeStatus(p.DefaultStatus, p.DefaultLabel, "")
}
