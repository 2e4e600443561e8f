package model

import (
	"fmt"
	"time"
)

// Link is a logical route to the originating entity; URL formatting happens at the edge.
type Link struct {
	ProjectSlug string `json:"project_slug"`
	TaskID      int    `json:"task_id,omitempty"`
	CommentID   int    `json:"comment_id,omitempty"`
}

// Anchor is the fragment identifying a comment inside the task page.
func (l Link) Anchor() string {
	if l.CommentID == 0 {
		return ""
	}
	return fmt.Sprintf("comment-%d", l.CommentID)
}

// Notification kinds, used for metrics and message routing.
const (
	NotifyWelcome        = "membership.welcome"
	NotifyTaskAssigned   = "task.assigned"
	NotifyCommentCreated = "comment.created"
	NotifyMentioned      = "comment.mention"
)

type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      Link      `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}
