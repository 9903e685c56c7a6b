package model

import "wastereminder/internal/geo"

// Area 收运服务区域
type Area struct {
	ID           int64
	Name         string
	Municipality string
	Neighborhood string
	Center       geo.Point
	Lifecycle    Lifecycle
}

// HasCenter 区域是否配置了中心坐标
func (a Area) HasCenter() bool {
	return a.Center.Valid()
}
