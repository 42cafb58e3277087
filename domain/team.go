package domain

import "strings"

// Role is the discipline a team member covers. Every Category is also a Role.
type Role string

const (
	RoleBackend  Role = "Backend"
	RoleFrontend Role = "Frontend"
	RoleQA       Role = "QA"
	RoleDesign   Role = "Design"
	RoleDevOps   Role = "DevOps"
)

var roles = []Role{RoleFrontend, RoleBackend, RoleQA, RoleDesign, RoleDevOps}

// TeamMember is a person tasks can be assigned to. Load is stored as
// provided and is not derived from assigned tasks.
type TeamMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
	Load int    `json:"load"`
}

// ParseRole matches s against the known roles ignoring case.
func ParseRole(s string) (Role, bool) {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, true
		}
	}
	return "", false
}
