package model

import "wastereminder/internal/geo"

// Citizen 提醒的接收者（用户表中 role=CITIZEN 的子集）
type Citizen struct {
	ID            int64
	Email         string
	Name          string
	Lifecycle     Lifecycle
	EmailVerified bool
	Location      geo.Point
}

// ReminderEligible 仅 ACTIVE、邮箱已验证且有定位的市民可以收到提醒
func (c Citizen) ReminderEligible() bool {
	return c.Lifecycle.IsActive() && c.EmailVerified && c.Location.Valid()
}
