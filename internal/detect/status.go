// Package detect classifies captured pane content into agent states.
//
// The engine is generic: it carries no per-agent code paths. Everything an
// agent kind needs, how to recognize it and how to read its screen, lives in
// declarative Profile data, so supporting a new tool means adding
// configuration, not code.
package detect

import "fmt"

// Kind enumerates the status variants. Exactly one holds at any instant.
type Kind int

const (
	// StatusUnknown means the pane could not be classified.
	StatusUnknown Kind = iota

	// StatusIdle means the agent is quiescent, waiting for user input.
	StatusIdle

	// StatusProcessing means the agent is actively working in the background.
	StatusProcessing

	// StatusAwaitingApproval means an interactive choice demands the user's
	// attention right now.
	StatusAwaitingApproval

	// StatusError means the agent surfaced an error condition.
	StatusError
)

// String returns the config-facing name of the kind.
func (k Kind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusProcessing:
		return "processing"
	case StatusAwaitingApproval:
		return "awaiting_approval"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseKind parses a config status name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "unknown", "":
		return StatusUnknown, nil
	case "idle":
		return StatusIdle, nil
	case "processing", "working":
		return StatusProcessing, nil
	case "awaiting_approval", "waiting":
		return StatusAwaitingApproval, nil
	case "error":
		return StatusError, nil
	default:
		return StatusUnknown, fmt.Errorf("unknown status %q", s)
	}
}

// Status is the engine's single classification result. The Kind selects the
// variant; the text fields that apply depend on it (Label for Idle, Activity
// for Processing, ApprovalType/Details for AwaitingApproval, Message for
// Error). Fields outside the active variant are empty.
type Status struct {
	Kind         Kind
	Label        string
	Activity     string
	ApprovalType string
	Details      string
	Message      string
}

// Text returns the variant's text field, for display.
func (s Status) Text() string {
	switch s.Kind {
	case StatusIdle:
		return s.Label
	case StatusProcessing:
		return s.Activity
	case StatusAwaitingApproval:
		if s.Details != "" {
			return s.Details
		}
		return s.ApprovalType
	case StatusError:
		return s.Message
	default:
		return ""
	}
}

// NeedsAttention reports whether the status demands the user's attention.
func (s Status) NeedsAttention() bool {
	return s.Kind == StatusAwaitingApproval || s.Kind == StatusError
}

// makeStatus builds a Status of the given kind with text routed to the
// variant's field.
func makeStatus(kind Kind, text, approvalType string) Status {
	st := Status{Kind: kind}
	switch kind {
	case StatusIdle:
		st.Label = text
	case StatusProcessing:
		st.Activity = text
	case StatusAwaitingApproval:
		st.ApprovalType = approvalType
		st.Details = text
	case StatusError:
		st.Message = text
	}
	return st
}
