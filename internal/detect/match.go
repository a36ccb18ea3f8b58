package detect

import (
	"context"

	"github.com/paneboard/paneboard/internal/tmux"
)

// Match selects the best-matching profile for a pane snapshot, or nil when
// no profile matches (the pane is still shown, flagged as not an agent).
//
// Profiles are tried in descending priority, declaration order breaking
// ties; the first profile with any succeeding matcher wins. Content matchers
// are gated: they only run when an identity matcher of the same profile has
// already passed, so two profiles that share a command name and differ only
// by a theme marker in their output never force a content read for every
// pane on every poll.
//
// A capture failure while evaluating a content matcher fails that matcher
// only; the snapshot caches the error so detection later in the tick sees
// the same outcome without a second capture attempt.
func Match(ctx context.Context, reg *Registry, snap *tmux.Snapshot) *Profile {
	for _, p := range reg.Profiles() {
		identityPassed := false
		contentDeferred := false

		for _, m := range p.Matchers {
			if m.RequiresContent() {
				contentDeferred = true
				continue
			}
			if !identityPassed && matchIdentity(m, &snap.Pane) {
				identityPassed = true
			}
		}

		if !identityPassed {
			continue
		}

		// Content matchers act as disambiguators behind the passed
		// identity pre-filter: the profile only matches if one confirms.
		if contentDeferred {
			if matchContent(ctx, p, snap) {
				return p
			}
			continue
		}

		return p
	}
	return nil
}

// matchIdentity evaluates one identity matcher against snapshot fields.
func matchIdentity(m Matcher, p *tmux.Pane) bool {
	switch m.Kind {
	case MatchCommand:
		return m.Pattern.Match(p.Command)
	case MatchTitle:
		return m.Pattern.Match(p.Title)
	case MatchCmdLine:
		return m.Pattern.Match(p.CmdLine)
	case MatchAncestor:
		for _, anc := range p.Ancestors {
			if anc == tmux.UnknownAncestor {
				continue
			}
			if m.Pattern.Match(anc) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// matchContent evaluates the profile's content matchers against captured
// text, triggering the snapshot's lazy capture.
func matchContent(ctx context.Context, p *Profile, snap *tmux.Snapshot) bool {
	content, err := snap.Content(ctx)
	if err != nil {
		return false
	}
	clean := tmux.StripANSI(content)
	for _, m := range p.Matchers {
		if !m.RequiresContent() {
			continue
		}
		if m.Pattern.Match(clean) {
			return true
		}
	}
	return false
}
