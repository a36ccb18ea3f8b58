package detect

import (
	"strings"

	"github.com/paneboard/paneboard/internal/tmux"
)

// Subagent is one nested task entry discovered inside an agent's own output.
type Subagent struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// maxSubagents bounds the shallow parse; deep task trees are noise in a
// dashboard row.
const maxSubagents = 8

// Subagents extracts nested task entries from pane content using the
// profile's subagent pattern. This is a separate, shallower parse than
// status detection: it scans the same trailing window but only collects
// names, in order of appearance.
func Subagents(p *Profile, content string) []Subagent {
	if p.SubagentPattern.IsZero() {
		return nil
	}

	lines := tailWindow(splitLines(tmux.StripANSI(content)), DefaultLastLines)

	var subs []Subagent
	for _, line := range lines {
		name, ok := p.SubagentPattern.Find(line)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		subs = append(subs, Subagent{
			Name:   name,
			Active: strings.Contains(line, "…") || strings.Contains(strings.ToLower(line), "running"),
		})
		if len(subs) >= maxSubagents {
			break
		}
	}
	return subs
}
