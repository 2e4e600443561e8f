package model

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	StatusBacklog    TaskStatus = "backlog"
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses in workflow order. Any status may move to any other.
var TaskStatuses = []TaskStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}

func (s TaskStatus) Valid() bool {
	for _, st := range TaskStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Task struct {
	ID              int        `json:"id"`
	ProjectID       int        `json:"project_id"`
	CreatorID       int        `json:"creator_id"`
	AssigneeID      *int       `json:"assignee_id,omitempty"`
	ColumnID        *int       `json:"column_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          TaskStatus `json:"status"`
	Priority        Priority   `json:"priority"`
	Position        int        `json:"position"`
	TaskNumber      int        `json:"task_number"`
	DueDate         time.Time  `json:"due_date"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
	StatusChangedBy *int       `json:"status_changed_by,omitempty"`
	CommentsCount   int        `json:"comments_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DisplayID is the human-readable, project-scoped identifier.
func (t *Task) DisplayID() string {
	return fmt.Sprintf("TASK-%d", t.TaskNumber)
}

func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

func (t *Task) IsAssignedTo(userID int) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// Overdue: the due date has passed and the task is not done.
func (t *Task) Overdue(today time.Time) bool {
	return DateOf(t.DueDate).Before(DateOf(today)) && !t.IsDone()
}

// DaysRemaining is 0 for done tasks and negative once overdue.
func (t *Task) DaysRemaining(today time.Time) int {
	if t.IsDone() {
		return 0
	}
	return int(DateOf(t.DueDate).Sub(DateOf(today)).Hours() / 24)
}

// Validate checks the rules enforced on every write.
func (t *Task) Validate() ValidationErrors {
	v := &validator{}

	if v.presence("title", t.Title) {
		v.length("title", t.Title, 3, 200)
	}
	v.length("description", t.Description, 0, 5000)
	v.inclusion("status", t.Status.Valid())
	v.inclusion("priority", t.Priority.Valid())
	if t.Position < 0 {
		v.add("position", ReasonNegative)
	}
	if t.DueDate.IsZero() {
		v.add("due_date", ReasonBlank)
	}

	return v.errs
}

// ValidateDueDateWindow is applied at creation only: today <= due_date <= today + 1 year.
func (t *Task) ValidateDueDateWindow(today time.Time) ValidationErrors {
	if t.DueDate.IsZero() {
		return nil
	}
	v := &validator{}
	due, day := DateOf(t.DueDate), DateOf(today)
	switch {
	case due.Before(day):
		v.add("due_date", ReasonDueDateInPast)
	case due.After(day.AddDate(1, 0, 0)):
		v.add("due_date", ReasonDueDateTooFar)
	}
	return v.errs
}

// TaskLabel links a task with a label.
type TaskLabel struct {
	TaskID  int
	LabelID int
}
