package profile

import "fmt"

// ConfigError is a fatal configuration validation failure: an invalid
// pattern, a duplicate profile id, an unknown enum value. It carries enough
// context for the operator to find the offending config section. A
// ConfigError blocks startup or leaves a previous registry active on reload;
// it is never discovered lazily by a live pane.
type ConfigError struct {
	// Profile is the profile id the error belongs to, if any.
	Profile string

	// Section locates the failing piece ("matchers[2]", "rules[0].refinements[1]").
	Section string

	// Err is the underlying cause.
	Err error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Profile != "" && e.Section != "":
		return fmt.Sprintf("profile %q: %s: %v", e.Profile, e.Section, e.Err)
	case e.Profile != "":
		return fmt.Sprintf("profile %q: %v", e.Profile, e.Err)
	default:
		return fmt.Sprintf("config: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(profile, section string, err error) error {
	return &ConfigError{Profile: profile, Section: section, Err: err}
}
