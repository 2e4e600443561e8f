package mq

import "time"

const RoutingNotificationCreated = "notification.created"

// NotificationCreatedPayload is published once per stored notification.
// The link is logical; consumers build URLs from the slug and ids.
type NotificationCreatedPayload struct {
	NotificationID int       `json:"notification_id"`
	UserID         int       `json:"user_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	ProjectSlug    string    `json:"project_slug"`
	TaskID         int       `json:"task_id,omitempty"`
	CommentID      int       `json:"comment_id,omitempty"`
	Anchor         string    `json:"anchor,omitempty"`
	TraceID        string    `json:"trace_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
