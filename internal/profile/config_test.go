package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paneboard/paneboard/internal/detect"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.NotNil(t, cfg.Registry.ByID("claude"))
	assert.NotNil(t, cfg.Registry.ByID("shell"))
	assert.Equal(t, 1000, cfg.Monitor.IntervalMS)
	assert.Equal(t, 8, cfg.Monitor.Parallelism)
	assert.Equal(t, "drop", cfg.Monitor.Backpressure)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 7, cfg.Events.RetentionDays)
}

func TestLoadOverridesBuiltin(t *testing.T) {
	path := writeConfig(t, `
[monitor]
interval_ms = 250
parallelism = 4

[profiles.claude]
display_name = "CC"
priority = 95
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Monitor.IntervalMS)

	claude := cfg.Registry.ByID("claude")
	require.NotNil(t, claude)
	assert.Equal(t, "CC", claude.DisplayName)
	assert.Equal(t, 95, claude.Priority)
	// Untouched fields keep the built-in values.
	assert.NotEmpty(t, claude.Rules)
	assert.NotEmpty(t, claude.Matchers)
}

func TestLoadDefinesNewProfile(t *testing.T) {
	path := writeConfig(t, `
[profiles.aider]
priority = 60

[[profiles.aider.matchers]]
kind = "command"
pattern = "aider"

[[profiles.aider.rules]]
name = "busy"
splitter = "none"
last_lines = 10

[[profiles.aider.rules.refinements]]
location = "last_line"
pattern = "re:^Waiting"
status = "processing"
text = "working"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	aider := cfg.Registry.ByID("aider")
	require.NotNil(t, aider)
	assert.True(t, aider.IsAgent)
	assert.Equal(t, 60, aider.Priority)
	require.Len(t, aider.Rules, 1)
	assert.Equal(t, 10, aider.Rules[0].LastLines)

	st := detect.Detect(aider, "some output\nWaiting for model response")
	assert.Equal(t, detect.StatusProcessing, st.Kind)
	assert.Equal(t, "working", st.Activity)
}

func TestLoadExtraRulesAppend(t *testing.T) {
	path := writeConfig(t, `
[[profiles.claude.extra_rules]]
name = "custom-error"
splitter = "none"

[[profiles.claude.extra_rules.refinements]]
location = "last_block"
pattern = "kaboom"
status = "error"
text = "custom failure"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	claude := cfg.Registry.ByID("claude")
	require.NotNil(t, claude)
	builtinLen := len(builtin(t, "claude").Rules)
	require.Len(t, claude.Rules, builtinLen+1)
	assert.Equal(t, "custom-error", claude.Rules[builtinLen].Name)

	st := detect.Detect(claude, "output\n\nkaboom happened")
	assert.Equal(t, detect.StatusError, st.Kind)
	assert.Equal(t, "custom failure", st.Message)
}

func TestLoadExtraMatchersAppend(t *testing.T) {
	path := writeConfig(t, `
[[profiles.claude.extra_matchers]]
kind = "title"
pattern = "my-wrapper"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	claude := cfg.Registry.ByID("claude")
	require.NotNil(t, claude)
	assert.Len(t, claude.Matchers, len(builtin(t, "claude").Matchers)+1)
}

func TestLoadDisablesProfile(t *testing.T) {
	path := writeConfig(t, `
[profiles.shell]
disabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Registry.ByID("shell"))
	assert.NotNil(t, cfg.Registry.ByID("claude"))
}

func TestLoadRejectsInvalidPattern(t *testing.T) {
	path := writeConfig(t, `
[[profiles.aider.matchers]]
kind = "command"
pattern = "aider"

[[profiles.aider.rules]]
splitter = "none"

[[profiles.aider.rules.refinements]]
pattern = "re:[unclosed"
status = "idle"
`)
	_, err := Load(path)
	require.Error(t, err)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "aider", cerr.Profile)
	assert.Contains(t, cerr.Section, "rules[0]")
}

func TestLoadRejectsUnknownEnums(t *testing.T) {
	for name, body := range map[string]string{
		"matcher kind": `
[[profiles.x.matchers]]
kind = "hostname"
pattern = "y"
`,
		"splitter": `
[[profiles.x.matchers]]
kind = "command"
pattern = "x"
[[profiles.x.rules]]
splitter = "diagonal"
`,
		"status": `
[[profiles.x.matchers]]
kind = "command"
pattern = "x"
[[profiles.x.rules]]
splitter = "none"
[[profiles.x.rules.refinements]]
pattern = "y"
status = "confused"
`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsProfileWithoutMatchers(t *testing.T) {
	_, err := Load(writeConfig(t, `
[profiles.bare]
display_name = "no matchers"
`))
	require.Error(t, err)
}

func TestLoadCustomGlyphs(t *testing.T) {
	path := writeConfig(t, `
[profiles.claude.glyphs]
separators = "~"
min_width = 2
max_footer_lines = 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	claude := cfg.Registry.ByID("claude")
	require.NotNil(t, claude)
	assert.Equal(t, []rune("~"), claude.Glyphs.SeparatorRunes)
	assert.Equal(t, 2, claude.Glyphs.MinSeparatorWidth)
	assert.Equal(t, 5, claude.Glyphs.MaxFooterLines)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[profiles.claude\nbroken"))
	require.Error(t, err)
}

func TestHomeDirHonorsEnv(t *testing.T) {
	t.Setenv("PANEBOARD_HOME", "/tmp/pb-test-home")
	assert.Equal(t, "/tmp/pb-test-home", HomeDir())
	assert.Equal(t, filepath.Join("/tmp/pb-test-home", ConfigFileName), DefaultConfigPath())
}
