// Package geo 提供基于 haversine 公式的地理距离计算，单位为米。
package geo

import (
	"fmt"
	"math"
)

// EarthRadius 地球平均半径
const EarthRadius Distance = 6_371_000

// Distance 以米为单位的距离
type Distance float64

// Meters 以米构造距离
func Meters(m float64) Distance { return Distance(m) }

// Kilometers 以千米构造距离
func Kilometers(km float64) Distance { return Distance(km * 1000) }

// Meters 返回米数
func (d Distance) Meters() float64 { return float64(d) }

// Kilometers 返回千米数
func (d Distance) Kilometers() float64 { return float64(d) / 1000 }

func (d Distance) String() string {
	if d >= 1000 || d <= -1000 {
		return fmt.Sprintf("%.2fkm", d.Kilometers())
	}
	return fmt.Sprintf("%.0fm", d.Meters())
}

// Point 经纬度坐标；零值表示坐标缺失
type Point struct {
	Lat float64
	Lng float64
	set bool
}

// NewPoint 构造一个已设置的坐标
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng, set: true}
}

// PointFrom 由可空的经纬度构造坐标，任一为空则视为缺失
func PointFrom(lat, lng *float64) Point {
	if lat == nil || lng == nil {
		return Point{}
	}
	return NewPoint(*lat, *lng)
}

// Valid 坐标已设置且在合法范围内
func (p Point) Valid() bool {
	return p.set &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

// Ptrs 返回可空的经纬度，用于写库
func (p Point) Ptrs() (lat, lng *float64) {
	if !p.set {
		return nil, nil
	}
	la, ln := p.Lat, p.Lng
	return &la, &ln
}

func (p Point) String() string {
	if !p.set {
		return "(none)"
	}
	return fmt.Sprintf("(%.6f,%.6f)", p.Lat, p.Lng)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Between 两点间的大圆距离；调用方需保证两点均 Valid
func Between(a, b Point) Distance {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * Distance(c)
}

// DistanceBetween 两点距离；任一点缺失坐标时 ok 为 false
func DistanceBetween(a, b Point) (d Distance, ok bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}
	return Between(a, b), true
}

// WithinRadius candidate 是否落在以 center 为圆心、radius 为半径的圆内（含边界）。
// 坐标缺失或半径为负时返回 false
func WithinRadius(center Point, radius Distance, candidate Point) bool {
	if radius < 0 {
		return false
	}
	d, ok := DistanceBetween(center, candidate)
	return ok && d <= radius
}

// Nearest 返回离 origin 最近的候选点下标；跳过坐标缺失的候选点
func Nearest(origin Point, candidates []Point) (index int, d Distance, ok bool) {
	if !origin.Valid() {
		return -1, 0, false
	}
	index = -1
	for i, c := range candidates {
		if !c.Valid() {
			continue
		}
		cd := Between(origin, c)
		if index < 0 || cd < d {
			index, d = i, cd
		}
	}
	return index, d, index >= 0
}
