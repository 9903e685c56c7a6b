package rbac

import "slices"

// 权限常量
const (
	PermissionTriggerReminder    = "reminder:trigger"
	PermissionReadNotification   = "notification:read"
	PermissionUpdateNotification = "notification:update"
)

// 角色常量
const (
	RoleAdmin   = "ADMIN"
	RoleWorker  = "WORKER"
	RoleCitizen = "CITIZEN"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleCitizen: {
		PermissionReadNotification,
		PermissionUpdateNotification,
	},
	RoleWorker: {
		PermissionReadNotification,
		PermissionUpdateNotification,
	},
	RoleAdmin: {
		PermissionReadNotification,
		PermissionUpdateNotification,
		PermissionTriggerReminder,
	},
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission 检查权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int64, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int64
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
