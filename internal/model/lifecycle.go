package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LifecycleState 实体生命周期状态，取代布尔 is_active 软删除标记
type LifecycleState string

const (
	StateActive      LifecycleState = "ACTIVE"
	StateDeactivated LifecycleState = "DEACTIVATED"
	StateSuspended   LifecycleState = "SUSPENDED"
)

// ErrReasonRequired 挂起状态的实体恢复时必须给出原因
var ErrReasonRequired = errors.New("reactivating a suspended entity requires a reason")

// ParseLifecycleState 解析数据库中的状态值
func ParseLifecycleState(s string) (LifecycleState, error) {
	switch st := LifecycleState(strings.ToUpper(strings.TrimSpace(s))); st {
	case StateActive, StateDeactivated, StateSuspended:
		return st, nil
	default:
		return "", fmt.Errorf("unknown lifecycle state %q", s)
	}
}

// Lifecycle 带原因与时间的生命周期
type Lifecycle struct {
	State     LifecycleState
	Reason    string
	ChangedAt time.Time
}

// Active 构造一个 ACTIVE 生命周期
func Active(at time.Time) Lifecycle {
	return Lifecycle{State: StateActive, ChangedAt: at}
}

// IsActive 仅 ACTIVE 视为可用
func (l Lifecycle) IsActive() bool {
	return l.State == StateActive
}

// Deactivate 软删除
func (l Lifecycle) Deactivate(reason string, at time.Time) Lifecycle {
	return Lifecycle{State: StateDeactivated, Reason: reason, ChangedAt: at}
}

// Suspend 挂起
func (l Lifecycle) Suspend(reason string, at time.Time) Lifecycle {
	return Lifecycle{State: StateSuspended, Reason: reason, ChangedAt: at}
}

// Activate 恢复为 ACTIVE；SUSPENDED 状态必须提供原因
func (l Lifecycle) Activate(reason string, at time.Time) (Lifecycle, error) {
	if l.State == StateActive {
		return l, nil
	}
	if l.State == StateSuspended && strings.TrimSpace(reason) == "" {
		return l, ErrReasonRequired
	}
	return Lifecycle{State: StateActive, Reason: reason, ChangedAt: at}, nil
}
