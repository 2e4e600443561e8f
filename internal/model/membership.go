package model

import "time"

type MembershipRole string

const (
	MemberRoleMember MembershipRole = "member"
	MemberRoleAdmin  MembershipRole = "admin"
)

func (r MembershipRole) Valid() bool {
	return r == MemberRoleMember || r == MemberRoleAdmin
}

// Membership pairs a user with a project; at most one row per (project, user).
type Membership struct {
	ID        int            `json:"id"`
	ProjectID int            `json:"project_id"`
	UserID    int            `json:"user_id"`
	Role      MembershipRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

func (m *Membership) IsAdmin() bool {
	return m != nil && m.Role == MemberRoleAdmin
}

// CanManageTasks holds for every member.
func (m *Membership) CanManageTasks() bool {
	return m != nil
}

func (m *Membership) CanInviteUsers(project *Project) bool {
	if m == nil {
		return false
	}
	return m.IsAdmin() || project.IsOwner(m.UserID)
}

func (m *Membership) CanEditProject(project *Project) bool {
	return m.CanInviteUsers(project)
}

func (m *Membership) Validate() ValidationErrors {
	v := &validator{}
	v.inclusion("role", m.Role.Valid())
	return v.errs
}
