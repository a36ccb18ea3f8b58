// Package profile loads and validates agent profile configuration: the
// declarative descriptions of how to recognize each agent kind and how to
// classify its screen content. Detection itself lives in internal/detect;
// this package only produces validated, compiled detect.Profile data.
package profile

import "github.com/paneboard/paneboard/internal/detect"

// Built-in profile priorities. Higher wins; content-gated profiles sit
// below the directly recognizable ones, the shell fallback below everything.
const (
	prioClaude   = 90
	prioCodex    = 80
	prioGemini   = 80
	prioOpencode = 70
	prioShell    = 0
)

// spinnerClass is the regex character class of spinner glyphs used by
// current agent TUIs: braille dots plus the asterisk family.
const spinnerClass = `[✳✽✶✻✢·⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏]`

// BuiltinProfiles returns the built-in agent profiles. All patterns are
// compiled via MustPattern; a test guards that this never panics.
func BuiltinProfiles() []*detect.Profile {
	return []*detect.Profile{
		claudeProfile(),
		codexProfile(),
		geminiProfile(),
		opencodeProfile(),
		shellProfile(),
	}
}

// claudeProfile detects Claude Code. Rule order is the correctness-critical
// convention: approval prompts before errors, errors before busy spinners,
// busy before idle, so an interactive dialog is never masked by busy-looking
// output elsewhere on the same screen.
func claudeProfile() *detect.Profile {
	return &detect.Profile{
		ID:            "claude",
		DisplayName:   "Claude Code",
		Priority:      prioClaude,
		IsAgent:       true,
		DefaultStatus: detect.StatusUnknown,
		Matchers: []detect.Matcher{
			{Kind: detect.MatchCommand, Pattern: detect.MustPattern("claude")},
			{Kind: detect.MatchCmdLine, Pattern: detect.MustPattern("claude")},
			{Kind: detect.MatchAncestor, Pattern: detect.MustPattern("claude")},
			{Kind: detect.MatchTitle, Pattern: detect.MustPattern("claude")},
		},
		SubagentPattern: detect.MustPattern(`re:[⏺●]\s+Task\(([^)]+)\)`),
		Rules: []detect.StateRule{
			{
				Name:     "approval-box",
				Splitter: detect.SplitPowerlineBox,
				Refinements: []detect.Refinement{
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("No, and tell Claude"),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "permission", Text: "permission dialog"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("Do you want"),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "permission", Text: "permission dialog"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("Yes, allow"),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "permission", Text: "permission dialog"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("Do you trust the files in this folder?"),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "trust", Text: "trust prompt"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern(`re:❯?\s*1\.\s*Yes`),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "choice", Text: "user choice"},
				},
			},
			{
				Name:     "approval-plain",
				Splitter: detect.SplitSeparatorLine,
				Refinements: []detect.Refinement{
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern(`re:❯?\s*1\.\s*(Yes|Approve)`),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "choice", Text: "user choice"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern(`re:\((?:y/N|Y/n|yes/no)\)`),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "confirm", Text: "confirmation"},
				},
			},
			{
				Name:     "limit-error",
				Splitter: detect.SplitNone,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern("hit your limit"),
						Status:  detect.StatusError, Text: "usage limit reached"},
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern("credit balance too low"),
						Status:  detect.StatusError, Text: "credit balance too low"},
				},
			},
			{
				Name:      "busy",
				Splitter:  detect.SplitNone,
				LastLines: 15,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("ctrl+c to interrupt"),
						Status:  detect.StatusProcessing, Text: "working"},
					{Group: detect.GroupBody, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("esc to interrupt"),
						Status:  detect.StatusProcessing, Text: "working"},
					{Group: detect.GroupBody, Location: detect.LocFirstLineOfLastBlock,
						Pattern: detect.MustPattern(`re:^` + spinnerClass + `\s*([A-Za-zÀ-ÿ]+)…`),
						Status:  detect.StatusProcessing},
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern(`re:(?m)^` + spinnerClass + `\s*([A-Za-zÀ-ÿ]+)?…`),
						Status:  detect.StatusProcessing, Text: "working"},
				},
			},
			{
				Name:     "idle-box",
				Splitter: detect.SplitPowerlineBox,
				Refinements: []detect.Refinement{
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern(`re:(?m)^\s*│?\s*[>❯]\s*$`),
						Status:  detect.StatusIdle, Text: "ready"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern(`re:[>❯]\s+(?:Try|Type)`),
						Status:  detect.StatusIdle, Text: "ready"},
				},
			},
			{
				Name:     "idle-plain",
				Splitter: detect.SplitSeparatorLine,
				Refinements: []detect.Refinement{
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern(`re:(?m)^\s*[>❯]\s*$`),
						Status:  detect.StatusIdle, Text: "ready"},
				},
			},
		},
	}
}

func codexProfile() *detect.Profile {
	return &detect.Profile{
		ID:            "codex",
		DisplayName:   "Codex",
		Priority:      prioCodex,
		IsAgent:       true,
		DefaultStatus: detect.StatusUnknown,
		Matchers: []detect.Matcher{
			{Kind: detect.MatchCommand, Pattern: detect.MustPattern("codex")},
			{Kind: detect.MatchCmdLine, Pattern: detect.MustPattern("codex")},
			{Kind: detect.MatchAncestor, Pattern: detect.MustPattern("codex")},
		},
		Rules: []detect.StateRule{
			{
				Name:     "approval",
				Splitter: detect.SplitSeparatorLine,
				Refinements: []detect.Refinement{
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern(`re:❯?\s*1\.\s*(Yes|Approve)`),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "choice", Text: "user choice"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("Continue?"),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "confirm", Text: "confirmation"},
				},
			},
			{
				Name:      "busy",
				Splitter:  detect.SplitNone,
				LastLines: 15,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("esc to interrupt"),
						Status:  detect.StatusProcessing, Text: "working"},
					{Group: detect.GroupBody, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("ctrl+c to interrupt"),
						Status:  detect.StatusProcessing, Text: "working"},
				},
			},
			{
				Name:     "idle",
				Splitter: detect.SplitNone,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocLastLine,
						Pattern: detect.MustPattern("codex>"),
						Status:  detect.StatusIdle, Text: "ready"},
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern("How can I help"),
						Status:  detect.StatusIdle, Text: "ready"},
				},
			},
		},
	}
}

func geminiProfile() *detect.Profile {
	return &detect.Profile{
		ID:            "gemini",
		DisplayName:   "Gemini CLI",
		Priority:      prioGemini,
		IsAgent:       true,
		DefaultStatus: detect.StatusUnknown,
		Matchers: []detect.Matcher{
			{Kind: detect.MatchCommand, Pattern: detect.MustPattern("gemini")},
			{Kind: detect.MatchCmdLine, Pattern: detect.MustPattern("gemini")},
			{Kind: detect.MatchAncestor, Pattern: detect.MustPattern("gemini")},
		},
		Rules: []detect.StateRule{
			{
				Name:     "approval",
				Splitter: detect.SplitPowerlineBox,
				Refinements: []detect.Refinement{
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("Yes, allow once"),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "permission", Text: "permission dialog"},
					{Group: detect.GroupPrompt, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("Apply this change?"),
						Status:  detect.StatusAwaitingApproval, ApprovalType: "confirm", Text: "apply change"},
				},
			},
			{
				Name:      "busy",
				Splitter:  detect.SplitNone,
				LastLines: 15,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("esc to cancel"),
						Status:  detect.StatusProcessing, Text: "working"},
				},
			},
			{
				Name:     "idle",
				Splitter: detect.SplitNone,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocLastLine,
						Pattern: detect.MustPattern("gemini>"),
						Status:  detect.StatusIdle, Text: "ready"},
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern("Type your message"),
						Status:  detect.StatusIdle, Text: "ready"},
				},
			},
		},
	}
}

// opencodeProfile is content-gated: opencode runs under node like other
// tools, so recognizing it needs the identity pre-filter plus a TUI marker
// in the captured text.
func opencodeProfile() *detect.Profile {
	return &detect.Profile{
		ID:            "opencode",
		DisplayName:   "OpenCode",
		Priority:      prioOpencode,
		IsAgent:       true,
		DefaultStatus: detect.StatusUnknown,
		Matchers: []detect.Matcher{
			{Kind: detect.MatchCommand, Pattern: detect.MustPattern("opencode")},
			{Kind: detect.MatchCommand, Pattern: detect.MustPattern(`re:^(node|bun)$`)},
			{Kind: detect.MatchContent, Pattern: detect.MustPattern("Ask anything")},
			{Kind: detect.MatchContent, Pattern: detect.MustPattern("press enter to send")},
		},
		Rules: []detect.StateRule{
			{
				Name:      "busy",
				Splitter:  detect.SplitNone,
				LastLines: 15,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocAnywhere,
						Pattern: detect.MustPattern("esc interrupt"),
						Status:  detect.StatusProcessing, Text: "working"},
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern(`re:(?m)^[█▓▒░⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏]\s*(\S.*?)\.{3}`),
						Status:  detect.StatusProcessing},
				},
			},
			{
				Name:     "idle",
				Splitter: detect.SplitNone,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern("press enter to send"),
						Status:  detect.StatusIdle, Text: "ready"},
					{Group: detect.GroupBody, Location: detect.LocLastBlock,
						Pattern: detect.MustPattern("Ask anything"),
						Status:  detect.StatusIdle, Text: "ready"},
				},
			},
		},
	}
}

// shellProfile is the non-agent fallback for plain shells. Keeps shell
// panes visible with a meaningful idle/processing split without counting
// them as agents.
func shellProfile() *detect.Profile {
	return &detect.Profile{
		ID:            "shell",
		DisplayName:   "Shell",
		Priority:      prioShell,
		IsAgent:       false,
		DefaultStatus: detect.StatusProcessing,
		DefaultLabel:  "running",
		Matchers: []detect.Matcher{
			{Kind: detect.MatchCommand, Pattern: detect.MustPattern(`re:^(bash|zsh|fish|sh|ksh)$`)},
		},
		Rules: []detect.StateRule{
			{
				Name:     "prompt",
				Splitter: detect.SplitNone,
				Refinements: []detect.Refinement{
					{Group: detect.GroupBody, Location: detect.LocLastLine,
						Pattern: detect.MustPattern(`re:[$#%❯➜]\s*$`),
						Status:  detect.StatusIdle, Text: "at prompt"},
				},
			},
		},
	}
}
