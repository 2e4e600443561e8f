package model

import (
	"fmt"
	"regexp"
	"time"
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

type Comment struct {
	ID            int       `json:"id"`
	TaskID        int       `json:"task_id"`
	UserID        int       `json:"user_id"`
	Content       string    `json:"content"`
	Position      int       `json:"position"`
	SystemMessage bool      `json:"system_message"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c *Comment) Validate() ValidationErrors {
	v := &validator{}
	if v.presence("content", c.Content) {
		v.length("content", c.Content, 1, 2000)
	}
	return v.errs
}

// MentionedUsernames returns every distinct @username in content, in order of appearance.
func MentionedUsernames(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// StatusChangeMessage is the body of the audit comment left on a status move.
func StatusChangeMessage(from, to TaskStatus) string {
	return fmt.Sprintf("%s -> %s", from, to)
}

// CanEditComment: the author, a global admin, or the project owner.
func CanEditComment(c *Comment, user *User, project *Project) bool {
	if c == nil || user == nil {
		return false
	}
	return c.UserID == user.ID || user.IsAdmin() || project.IsOwner(user.ID)
}

func CanDeleteComment(c *Comment, user *User, project *Project) bool {
	return CanEditComment(c, user, project)
}
