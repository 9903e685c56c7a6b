package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var downtown = NewPoint(42.6629, 21.1655)

func TestDistanceConstructors(t *testing.T) {
	assert.Equal(t, Distance(5000), Kilometers(5))
	assert.Equal(t, Distance(15), Meters(15))
	assert.InDelta(t, 5.0, Kilometers(5).Kilometers(), 1e-9)
	assert.Equal(t, "15m", Meters(15).String())
	assert.Equal(t, "5.00km", Kilometers(5).String())
}

func TestBetweenKnownDistance(t *testing.T) {
	// 1 degree of latitude is ~111.19 km on a 6371 km sphere
	d := Between(NewPoint(0, 0), NewPoint(1, 0))
	assert.InDelta(t, 111_194.9, d.Meters(), 1)

	// Pristina to Skopje, roughly 77 km
	d = Between(downtown, NewPoint(41.9981, 21.4254))
	assert.InDelta(t, 77, d.Kilometers(), 3)
}

func TestDistanceIsSymmetric(t *testing.T) {
	points := []Point{
		downtown,
		NewPoint(42.6630, 21.1656),
		NewPoint(-33.8688, 151.2093),
		NewPoint(89.9, -179.9),
		NewPoint(0, 0),
	}
	for _, a := range points {
		for _, b := range points {
			assert.InDelta(t, Between(a, b).Meters(), Between(b, a).Meters(), 1e-6)
		}
	}
}

func TestCenterWithinAnyNonNegativeRadius(t *testing.T) {
	for _, r := range []Distance{0, Meters(1), Kilometers(5), Kilometers(20_000)} {
		assert.True(t, WithinRadius(downtown, r, downtown), r.String())
	}
}

func TestWithinRadius(t *testing.T) {
	near := NewPoint(42.6630, 21.1656) // ~15 m
	far := NewPoint(41.9981, 21.4254)  // ~77 km

	d, ok := DistanceBetween(downtown, near)
	require.True(t, ok)
	assert.InDelta(t, 14, d.Meters(), 3)

	tests := []struct {
		name      string
		center    Point
		radius    Distance
		candidate Point
		want      bool
	}{
		{"near citizen inside 5km", downtown, Kilometers(5), near, true},
		{"far citizen outside 5km", downtown, Kilometers(5), far, false},
		{"far citizen inside 100km", downtown, Kilometers(100), far, true},
		{"missing candidate", downtown, Kilometers(5), Point{}, false},
		{"missing center", Point{}, Kilometers(5), near, false},
		{"negative radius", downtown, Meters(-1), downtown, false},
		{"out of range latitude", downtown, Kilometers(20_000), NewPoint(91, 0), false},
		{"NaN coordinate", downtown, Kilometers(20_000), NewPoint(math.NaN(), 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinRadius(tt.center, tt.radius, tt.candidate))
		})
	}
}

func TestNearest(t *testing.T) {
	candidates := []Point{
		NewPoint(41.9981, 21.4254),
		{},
		NewPoint(42.6630, 21.1656),
		NewPoint(42.70, 21.20),
	}
	idx, d, ok := Nearest(downtown, candidates)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Less(t, d.Meters(), 20.0)

	_, _, ok = Nearest(downtown, []Point{{}, {}})
	assert.False(t, ok)

	_, _, ok = Nearest(Point{}, candidates)
	assert.False(t, ok)
}

func TestPointFrom(t *testing.T) {
	lat, lng := 42.0, 21.0
	assert.True(t, PointFrom(&lat, &lng).Valid())
	assert.False(t, PointFrom(&lat, nil).Valid())
	assert.False(t, PointFrom(nil, nil).Valid())

	la, ln := NewPoint(1, 2).Ptrs()
	require.NotNil(t, la)
	assert.Equal(t, 1.0, *la)
	assert.Equal(t, 2.0, *ln)

	la, ln = Point{}.Ptrs()
	assert.Nil(t, la)
	assert.Nil(t, ln)
}

func TestBoundingBoxContainsCircle(t *testing.T) {
	radius := Kilometers(5)
	box, ok := BoundingBoxAround(downtown, radius)
	require.True(t, ok)
	assert.True(t, box.Contains(downtown))

	// every point on the circle boundary lies inside the box
	for bearing := 0.0; bearing < 360; bearing += 15 {
		p := destination(downtown, radius*0.999, bearing)
		assert.True(t, box.Contains(p), "bearing %v", bearing)
	}
	assert.False(t, box.Contains(NewPoint(41.9981, 21.4254)))

	_, ok = BoundingBoxAround(Point{}, radius)
	assert.False(t, ok)
}

func TestBoundingBoxNearPole(t *testing.T) {
	box, ok := BoundingBoxAround(NewPoint(89.99, 10), Kilometers(5))
	require.True(t, ok)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
	assert.Equal(t, 90.0, box.MaxLat)
}

// destination 从 p 沿 bearing（度）移动 d 后的点
func destination(p Point, d Distance, bearing float64) Point {
	ang := float64(d / EarthRadius)
	brg := radians(bearing)
	lat1, lng1 := radians(p.Lat), radians(p.Lng)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(math.Sin(brg)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))
	return NewPoint(lat2*180/math.Pi, lng2*180/math.Pi)
}
