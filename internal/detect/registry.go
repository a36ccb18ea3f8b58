package detect

import (
	"fmt"
	"sort"
)

// Registry is an immutable, priority-ordered profile collection. A monitor
// runs against one registry for the lifetime of a tick; reloads build a new
// registry and swap it in whole.
type Registry struct {
	profiles []*Profile
	byID     map[string]*Profile
}

// NewRegistry validates and orders profiles. Duplicate IDs are a
// configuration error. The sort is stable so equal priorities keep
// declaration order.
func NewRegistry(profiles []*Profile) (*Registry, error) {
	byID := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile with empty id")
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		byID[p.ID] = p
	}

	ordered := make([]*Profile, len(profiles))
	copy(ordered, profiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	return &Registry{profiles: ordered, byID: byID}, nil
}

// Profiles returns the profiles in descending priority order. Callers must
// not mutate the result.
func (r *Registry) Profiles() []*Profile {
	return r.profiles
}

// ByID returns the profile with the given id, or nil.
func (r *Registry) ByID(id string) *Profile {
	return r.byID[id]
}

// Len returns the number of profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}
