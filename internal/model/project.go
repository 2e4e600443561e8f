package model

import (
	"math"
	"regexp"
	"time"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectArchived  ProjectStatus = "archived"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectArchived, ProjectCompleted:
		return true
	}
	return false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

type Project struct {
	ID          int           `json:"id"`
	OwnerID     int           `json:"owner_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Slug        string        `json:"slug"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (p *Project) IsOwner(userID int) bool {
	return p != nil && p.OwnerID == userID
}

// Validate covers field rules only; per-owner name uniqueness is checked by the engine.
func (p *Project) Validate() ValidationErrors {
	v := &validator{}

	if v.presence("name", p.Name) {
		v.length("name", p.Name, 3, 100)
	}
	v.length("description", p.Description, 0, 1000)
	if v.presence("slug", p.Slug) && !slugPattern.MatchString(p.Slug) {
		v.add("slug", ReasonInvalid)
	}
	v.inclusion("status", p.Status.Valid())

	return v.errs
}

// ProgressPercentage is round(done/total*100), 0 for an empty project.
func ProgressPercentage(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// CanEditProject: global admins, the owner, and admin members may edit.
// membership may be nil when the user is not a member.
func CanEditProject(user *User, project *Project, membership *Membership) bool {
	if user == nil || project == nil {
		return false
	}
	if user.IsAdmin() || project.IsOwner(user.ID) {
		return true
	}
	return membership != nil &&
		membership.ProjectID == project.ID &&
		membership.UserID == user.ID &&
		membership.IsAdmin()
}
