package geo

import "math"

// BoundingBox 经纬度矩形，用于在数据库侧做粗筛
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBoxAround 返回包含以 center 为圆心、radius 为半径的圆的矩形。
// 矩形只用于粗筛，最终判定仍以 WithinRadius 为准
func BoundingBoxAround(center Point, radius Distance) (BoundingBox, bool) {
	if !center.Valid() || radius < 0 {
		return BoundingBox{}, false
	}

	angular := float64(radius / EarthRadius) // 弧度
	dLat := angular * 180 / math.Pi

	box := BoundingBox{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}

	// 靠近两极或半径过大时退化为整条纬度带
	cosLat := math.Cos(radians(center.Lat))
	if box.MinLat > -90 && box.MaxLat < 90 && cosLat > 1e-9 {
		dLng := math.Asin(math.Min(1, math.Sin(angular)/cosLat)) * 180 / math.Pi
		if dLng < 180 && center.Lng-dLng >= -180 && center.Lng+dLng <= 180 {
			box.MinLng = center.Lng - dLng
			box.MaxLng = center.Lng + dLng
		}
	}
	return box, true
}

// Contains 点是否落在矩形内
func (b BoundingBox) Contains(p Point) bool {
	return p.Valid() &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
