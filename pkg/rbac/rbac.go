package rbac

import "fmt"

// 操作常量，用于错误信息和审计日志
const (
	ActionEditProject   = "project:edit"
	ActionDeleteProject = "project:delete"
	ActionInviteUsers   = "membership:create"
	ActionRemoveMember  = "membership:delete"
	ActionManageTasks   = "task:manage"
	ActionEditComment   = "comment:edit"
	ActionDeleteComment = "comment:delete"
	ActionBanUser       = "user:ban"
)

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("insufficient permissions: user %d cannot %s", e.UserID, e.Permission)
}

// Deny 构造 PermissionDeniedError
func Deny(userID int, permission string) error {
	return &PermissionDeniedError{UserID: userID, Permission: permission}
}

// Check 当 allowed 为 false 时返回 PermissionDeniedError
func Check(allowed bool, userID int, permission string) error {
	if allowed {
		return nil
	}
	return Deny(userID, permission)
}
