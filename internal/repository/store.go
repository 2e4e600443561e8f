package repository

import (
	"context"
	"time"

	"taskflow/internal/model"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUsersByUsernames(ctx context.Context, usernames []string) ([]model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SetUserBanned(ctx context.Context, id int, banned bool, at *time.Time) error
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id int) (*model.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (*model.Project, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// ProjectNameTaken ignores the project with excludeID so updates can keep their own name.
	ProjectNameTaken(ctx context.Context, ownerID int, name string, excludeID int) (bool, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id int) error
	ListProjectsForUser(ctx context.Context, userID int) ([]model.Project, error)
}

type MembershipStore interface {
	CreateMembership(ctx context.Context, m *model.Membership) error
	GetMembership(ctx context.Context, projectID, userID int) (*model.Membership, error)
	DeleteMembership(ctx context.Context, projectID, userID int) error
	DeleteProjectMemberships(ctx context.Context, projectID int) error
	CountMemberships(ctx context.Context, projectID int) (int, error)
}

type TaskStore interface {
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id int) (*model.Task, error)
	// GetTaskForUpdate locks the row until the surrounding transaction ends.
	GetTaskForUpdate(ctx context.Context, id int) (*model.Task, error)
	// UpdateTask writes the editable fields; status columns are left to SetTaskStatus.
	UpdateTask(ctx context.Context, t *model.Task) error
	SetTaskStatus(ctx context.Context, id int, status model.TaskStatus, changedAt time.Time, changedBy int) error
	DeleteTask(ctx context.Context, id int) error
	DeleteProjectTasks(ctx context.Context, projectID int) error
	MaxTaskNumber(ctx context.Context, projectID int) (int, error)
	MaxTaskPosition(ctx context.Context, projectID int) (int, error)
	CountTasksByStatus(ctx context.Context, projectID int) (map[model.TaskStatus]int, error)
	ListOverdueTasks(ctx context.Context, projectID int, today time.Time) ([]model.Task, error)
	ListTasksDueBetween(ctx context.Context, projectID int, from, to time.Time) ([]model.Task, error)
	// UnassignTasks clears assignee on the user's tasks in one project and reports how many changed.
	UnassignTasks(ctx context.Context, projectID, userID int) (int64, error)
	AdjustCommentsCount(ctx context.Context, taskID, delta int) error
}

type LabelStore interface {
	CreateLabel(ctx context.Context, l *model.Label) error
	GetLabelByName(ctx context.Context, name string) (*model.Label, error)
	LabelUsageCount(ctx context.Context, labelID int) (int, error)
	MostUsedLabels(ctx context.Context, limit int) ([]model.LabelUsage, error)
	ProjectLabels(ctx context.Context, projectID int) ([]model.Label, error)
	TaskLabels(ctx context.Context, taskID int) ([]model.Label, error)
	// AttachLabel reports false when the link already existed.
	AttachLabel(ctx context.Context, taskID, labelID int) (bool, error)
	DetachLabel(ctx context.Context, taskID, labelID int) error
	DeleteTaskLabels(ctx context.Context, taskID int) error
	DeleteProjectTaskLabels(ctx context.Context, projectID int) error
}

type CommentStore interface {
	CreateComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, id int) (*model.Comment, error)
	UpdateComment(ctx context.Context, c *model.Comment) error
	DeleteComment(ctx context.Context, id int) error
	MaxCommentPosition(ctx context.Context, taskID int) (int, error)
	ListComments(ctx context.Context, taskID int) ([]model.Comment, error)
	DeleteTaskComments(ctx context.Context, taskID int) error
	DeleteProjectComments(ctx context.Context, projectID int) error
}

// Store is the persistence contract of the workflow engine.
// InTx runs fn against a transaction-scoped Store; fn's error rolls everything back.
type Store interface {
	UserStore
	ProjectStore
	MembershipStore
	TaskStore
	LabelStore
	CommentStore

	InTx(ctx context.Context, fn func(Store) error) error
}
