package model

import (
	"fmt"
	"strings"
	"time"
)

// WasteType 垃圾类别
type WasteType string

const (
	WasteGeneral    WasteType = "GENERAL_WASTE"
	WasteRecyclable WasteType = "RECYCLABLE"
	WasteOrganic    WasteType = "ORGANIC"
	WasteBulky      WasteType = "BULKY_ITEMS"
)

// ParseWasteType 解析垃圾类别
func ParseWasteType(s string) (WasteType, error) {
	switch wt := WasteType(strings.ToUpper(strings.TrimSpace(s))); wt {
	case WasteGeneral, WasteRecyclable, WasteOrganic, WasteBulky:
		return wt, nil
	default:
		return "", fmt.Errorf("unknown waste type %q", s)
	}
}

// Label 展示用名称，如 GENERAL_WASTE → GENERAL WASTE
func (w WasteType) Label() string {
	return strings.ReplaceAll(string(w), "_", " ")
}

// ClockTime 一天中的时刻（分钟精度）
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime 解析 HH:MM 或 HH:MM:SS
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid time of day %q", s)
}

// String HH:MM
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseWeekday 解析 MONDAY / Monday 形式的星期
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", s)
}

// WeekdayName MONDAY 形式
func WeekdayName(d time.Weekday) string {
	return strings.ToUpper(d.String())
}

// Schedule 区域的周期性收运计划
type Schedule struct {
	ID             int64
	AreaID         int64
	WasteType      WasteType
	DayOfWeek      time.Weekday
	CollectionTime ClockTime
	Lifecycle      Lifecycle
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
