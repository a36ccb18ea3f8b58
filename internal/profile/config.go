package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/paneboard/paneboard/internal/detect"
	"github.com/paneboard/paneboard/internal/logging"
)

// ConfigFileName is the TOML config file under the paneboard home dir.
const ConfigFileName = "config.toml"

// Config is the validated, in-memory configuration: the compiled profile
// registry plus the settings sections.
type Config struct {
	Registry *detect.Registry
	Monitor  MonitorSettings
	Logging  logging.Config
	Events   EventsSettings
	UI       UISettings
}

// MonitorSettings configures the monitor loop.
type MonitorSettings struct {
	// IntervalMS is the poll interval in milliseconds (default 1000).
	IntervalMS int `toml:"interval_ms"`

	// Parallelism bounds concurrent per-pane processing (default 8).
	Parallelism int `toml:"parallelism"`

	// CapturePerSec caps capture-pane subprocess invocations per second
	// across the whole tick (default 50).
	CapturePerSec int `toml:"capture_per_sec"`

	// Backpressure is "drop" (default: a full update channel discards the
	// pending tree and replaces it with the newer one) or "block".
	Backpressure string `toml:"backpressure"`
}

// Interval returns the poll interval as a duration.
func (m MonitorSettings) Interval() time.Duration {
	return time.Duration(m.IntervalMS) * time.Millisecond
}

// EventsSettings configures the status transition store.
type EventsSettings struct {
	// Enabled turns transition recording on.
	Enabled bool `toml:"enabled"`

	// Path is the SQLite database path. Empty means <home>/events.db.
	Path string `toml:"path"`

	// RetentionDays prunes transitions older than this (default 7).
	RetentionDays int `toml:"retention_days"`
}

// UISettings configures the dashboard UI.
type UISettings struct {
	// Theme is "dark" (default), "light", or "system".
	Theme string `toml:"theme"`

	// SnapToNeighbor snaps a cleared selection to the nearest still-visible
	// neighbor instead of clearing it.
	SnapToNeighbor bool `toml:"snap_to_neighbor"`
}

// fileConfig is the raw TOML schema before compilation.
type fileConfig struct {
	Monitor  MonitorSettings        `toml:"monitor"`
	Logging  loggingSection         `toml:"logging"`
	Events   EventsSettings         `toml:"events"`
	UI       UISettings             `toml:"ui"`
	Profiles map[string]fileProfile `toml:"profiles"`
}

type loggingSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Debug  bool   `toml:"debug"`
}

// fileProfile is one [profiles.<id>] block. For an id that collides with a
// built-in profile it acts as an override: fields that are set replace the
// built-in's, matchers/rules replace wholesale when present, and the
// extra_* fields append instead. Unknown ids define new profiles.
type fileProfile struct {
	DisplayName   string  `toml:"display_name"`
	Priority      *int    `toml:"priority"`
	IsAgent       *bool   `toml:"is_agent"`
	DefaultStatus string  `toml:"default_status"`
	DefaultLabel  string  `toml:"default_label"`
	Disabled      bool    `toml:"disabled"`
	Subagent      string  `toml:"subagent_pattern"`
	Glyphs        *glyphs `toml:"glyphs"`

	Matchers      []fileMatcher `toml:"matchers"`
	ExtraMatchers []fileMatcher `toml:"extra_matchers"`
	Rules         []fileRule    `toml:"rules"`
	ExtraRules    []fileRule    `toml:"extra_rules"`
}

type fileMatcher struct {
	Kind    string `toml:"kind"`
	Pattern string `toml:"pattern"`
}

type fileRule struct {
	Name        string           `toml:"name"`
	Splitter    string           `toml:"splitter"`
	LastLines   int              `toml:"last_lines"`
	Refinements []fileRefinement `toml:"refinements"`
}

type fileRefinement struct {
	Group        string `toml:"group"`
	Location     string `toml:"location"`
	Pattern      string `toml:"pattern"`
	Status       string `toml:"status"`
	Text         string `toml:"text"`
	ApprovalType string `toml:"approval_type"`
}

// glyphs is the configurable glyph table. Separator glyph sets and box
// corners are data: new terminal UI conventions appear over time.
type glyphs struct {
	Separators     string `toml:"separators"`
	MinWidth       int    `toml:"min_width"`
	BoxTopLeft     string `toml:"box_top_left"`
	BoxBottomLeft  string `toml:"box_bottom_left"`
	MaxFooterLines int    `toml:"max_footer_lines"`
}

// HomeDir returns the paneboard home directory (~/.paneboard), honoring
// PANEBOARD_HOME.
func HomeDir() string {
	if dir := os.Getenv("PANEBOARD_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paneboard"
	}
	return filepath.Join(home, ".paneboard")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), ConfigFileName)
}

// Load reads, validates and compiles configuration from path. A missing
// file yields the built-in defaults. Any invalid pattern or enum value is a
// ConfigError: loading either fully succeeds or reports the specific
// failure. It never succeeds with an uncompilable pattern present.
func Load(path string) (*Config, error) {
	var fc fileConfig
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, configErr("", "", fmt.Errorf("parse %s: %w", path, err))
		}
	} else if !os.IsNotExist(err) {
		return nil, configErr("", "", fmt.Errorf("stat %s: %w", path, err))
	}
	return build(&fc)
}

// LoadDefaults returns the built-in configuration without reading any file.
func LoadDefaults() (*Config, error) {
	return build(&fileConfig{})
}

func build(fc *fileConfig) (*Config, error) {
	cfg := &Config{
		Monitor: fc.Monitor,
		Events:  fc.Events,
		UI:      fc.UI,
		Logging: logging.Config{
			LogDir: HomeDir(),
			Level:  fc.Logging.Level,
			Format: fc.Logging.Format,
			Debug:  fc.Logging.Debug,
		},
	}
	applySettingsDefaults(cfg)

	profiles, err := compileProfiles(fc.Profiles)
	if err != nil {
		return nil, err
	}

	reg, err := detect.NewRegistry(profiles)
	if err != nil {
		return nil, configErr("", "", err)
	}
	cfg.Registry = reg
	return cfg, nil
}

func applySettingsDefaults(cfg *Config) {
	if cfg.Monitor.IntervalMS <= 0 {
		cfg.Monitor.IntervalMS = 1000
	}
	if cfg.Monitor.Parallelism <= 0 {
		cfg.Monitor.Parallelism = 8
	}
	if cfg.Monitor.CapturePerSec <= 0 {
		cfg.Monitor.CapturePerSec = 50
	}
	if cfg.Monitor.Backpressure == "" {
		cfg.Monitor.Backpressure = "drop"
	}
	if cfg.Events.RetentionDays <= 0 {
		cfg.Events.RetentionDays = 7
	}
	if cfg.Events.Path == "" {
		cfg.Events.Path = filepath.Join(HomeDir(), "events.db")
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = "dark"
	}
}

// compileProfiles merges user profile blocks over the built-ins and compiles
// everything.
func compileProfiles(userProfiles map[string]fileProfile) ([]*detect.Profile, error) {
	builtin := BuiltinProfiles()
	byID := make(map[string]*detect.Profile, len(builtin))
	var ordered []*detect.Profile
	for _, p := range builtin {
		byID[p.ID] = p
		ordered = append(ordered, p)
	}

	// Deterministic order for user-defined profiles: TOML map order is not
	// stable, so sort ids.
	ids := make([]string, 0, len(userProfiles))
	for id := range userProfiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fp := userProfiles[id]
		base := byID[id]
		if fp.Disabled {
			if base != nil {
				ordered = removeProfile(ordered, id)
				delete(byID, id)
			}
			continue
		}
		merged, err := mergeProfile(id, base, &fp)
		if err != nil {
			return nil, err
		}
		if base != nil {
			ordered = replaceProfile(ordered, merged)
		} else {
			ordered = append(ordered, merged)
		}
		byID[id] = merged
	}

	return ordered, nil
}

// mergeProfile overlays a user profile block on a built-in (base may be nil
// for new profiles).
func mergeProfile(id string, base *detect.Profile, fp *fileProfile) (*detect.Profile, error) {
	var p detect.Profile
	if base != nil {
		p = *base
	} else {
		p.ID = id
		p.IsAgent = true
		p.DefaultStatus = detect.StatusUnknown
	}

	if fp.DisplayName != "" {
		p.DisplayName = fp.DisplayName
	}
	if p.DisplayName == "" {
		p.DisplayName = id
	}
	if fp.Priority != nil {
		p.Priority = *fp.Priority
	}
	if fp.IsAgent != nil {
		p.IsAgent = *fp.IsAgent
	}
	if fp.DefaultStatus != "" {
		kind, err := detect.ParseKind(fp.DefaultStatus)
		if err != nil {
			return nil, configErr(id, "default_status", err)
		}
		p.DefaultStatus = kind
	}
	if fp.DefaultLabel != "" {
		p.DefaultLabel = fp.DefaultLabel
	}
	if fp.Subagent != "" {
		pat, err := detect.CompilePattern(fp.Subagent)
		if err != nil {
			return nil, configErr(id, "subagent_pattern", err)
		}
		p.SubagentPattern = pat
	}
	if fp.Glyphs != nil {
		p.Glyphs = compileGlyphs(*fp.Glyphs)
	}

	if fp.Matchers != nil {
		matchers, err := compileMatchers(id, "matchers", fp.Matchers)
		if err != nil {
			return nil, err
		}
		p.Matchers = matchers
	}
	if len(fp.ExtraMatchers) > 0 {
		extra, err := compileMatchers(id, "extra_matchers", fp.ExtraMatchers)
		if err != nil {
			return nil, err
		}
		p.Matchers = append(append([]detect.Matcher{}, p.Matchers...), extra...)
	}

	if fp.Rules != nil {
		rules, err := compileRules(id, "rules", fp.Rules)
		if err != nil {
			return nil, err
		}
		p.Rules = rules
	}
	if len(fp.ExtraRules) > 0 {
		extra, err := compileRules(id, "extra_rules", fp.ExtraRules)
		if err != nil {
			return nil, err
		}
		p.Rules = append(append([]detect.StateRule{}, p.Rules...), extra...)
	}

	if len(p.Matchers) == 0 {
		return nil, configErr(id, "matchers", fmt.Errorf("profile has no matchers"))
	}

	return &p, nil
}

func compileMatchers(id, section string, fms []fileMatcher) ([]detect.Matcher, error) {
	matchers := make([]detect.Matcher, 0, len(fms))
	for i, fm := range fms {
		where := fmt.Sprintf("%s[%d]", section, i)
		kind, err := detect.ParseMatcherKind(fm.Kind)
		if err != nil {
			return nil, configErr(id, where, err)
		}
		pat, err := detect.CompilePattern(fm.Pattern)
		if err != nil {
			return nil, configErr(id, where, err)
		}
		matchers = append(matchers, detect.Matcher{Kind: kind, Pattern: pat})
	}
	return matchers, nil
}

func compileRules(id, section string, frs []fileRule) ([]detect.StateRule, error) {
	rules := make([]detect.StateRule, 0, len(frs))
	for i, fr := range frs {
		where := fmt.Sprintf("%s[%d]", section, i)
		splitter, err := detect.ParseSplitterKind(fr.Splitter)
		if err != nil {
			return nil, configErr(id, where, err)
		}
		rule := detect.StateRule{
			Name:      fr.Name,
			Splitter:  splitter,
			LastLines: fr.LastLines,
		}
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("rule-%d", i)
		}
		for j, ref := range fr.Refinements {
			rwhere := fmt.Sprintf("%s.refinements[%d]", where, j)
			group, err := detect.ParseGroup(ref.Group)
			if err != nil {
				return nil, configErr(id, rwhere, err)
			}
			loc, err := detect.ParseLocation(ref.Location)
			if err != nil {
				return nil, configErr(id, rwhere, err)
			}
			kind, err := detect.ParseKind(ref.Status)
			if err != nil {
				return nil, configErr(id, rwhere, err)
			}
			pat, err := detect.CompilePattern(ref.Pattern)
			if err != nil {
				return nil, configErr(id, rwhere, err)
			}
			rule.Refinements = append(rule.Refinements, detect.Refinement{
				Group:        group,
				Location:     loc,
				Pattern:      pat,
				Status:       kind,
				Text:         ref.Text,
				ApprovalType: ref.ApprovalType,
			})
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileGlyphs(g glyphs) detect.GlyphTable {
	table := detect.GlyphTable{
		SeparatorRunes:    []rune(g.Separators),
		MinSeparatorWidth: g.MinWidth,
		MaxFooterLines:    g.MaxFooterLines,
	}
	if r := []rune(g.BoxTopLeft); len(r) > 0 {
		table.BoxTopLeft = r[0]
	}
	if r := []rune(g.BoxBottomLeft); len(r) > 0 {
		table.BoxBottomLeft = r[0]
	}
	return table
}

func removeProfile(list []*detect.Profile, id string) []*detect.Profile {
	out := list[:0]
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func replaceProfile(list []*detect.Profile, p *detect.Profile) []*detect.Profile {
	for i, existing := range list {
		if existing.ID == p.ID {
			list[i] = p
			return list
		}
	}
	return append(list, p)
}
