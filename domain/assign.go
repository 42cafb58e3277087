package domain

import (
	"math/rand/v2"
	"sync"
)

// Picker returns an index in [0, n). n is always positive.
type Picker func(n int) int

// Assign selects the owner for a task of the given category. Candidates are
// the members whose role equals the category; one of them is chosen with
// pick. When nobody qualifies the task stays Unassigned. Member load is not
// taken into account.
func Assign(category Category, members []TeamMember, pick Picker) Assignee {
	candidates := make([]TeamMember, 0, len(members))
	for _, m := range members {
		if string(m.Role) == string(category) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return Unassigned
	}
	if pick == nil {
		pick = rand.IntN
	}
	return Assignee(candidates[pick(len(candidates))].Name)
}

// Roster holds the team members currently available for assignment. It is
// shared by assignment and rendering; the owner replaces its contents after
// every store mutation.
type Roster struct {
	mu      sync.RWMutex
	members []TeamMember
	pick    Picker
}

// NewRoster returns an empty roster. A nil pick selects uniformly at random.
func NewRoster(pick Picker) *Roster {
	if pick == nil {
		pick = rand.IntN
	}
	return &Roster{pick: pick}
}

// Replace swaps the roster contents for a copy of members.
func (r *Roster) Replace(members []TeamMember) {
	cpy := make([]TeamMember, len(members))
	copy(cpy, members)
	r.mu.Lock()
	r.members = cpy
	r.mu.Unlock()
}

// Members returns a snapshot of the roster.
func (r *Roster) Members() []TeamMember {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TeamMember, len(r.members))
	copy(out, r.members)
	return out
}

// Assign picks an owner for category from the current roster.
func (r *Roster) Assign(category Category) Assignee {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Assign(category, r.members, r.pick)
}
