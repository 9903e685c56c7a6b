package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wastereminder/internal/geo"
	"wastereminder/internal/model"
	"wastereminder/internal/repository"
)

func TestDueTomorrowUsesConfiguredZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	store := &fakeSchedules{byDay: map[time.Weekday][]model.Schedule{
		time.Tuesday: {
			schedule(7, 1, model.WasteOrganic, time.Tuesday, 7, 0),
			schedule(3, 1, model.WasteGeneral, time.Tuesday, 8, 0),
		},
	}}
	r := NewScheduleResolver(store, tokyo)

	// Sunday 20:00 UTC is already Monday 05:00 in JST, so tomorrow is Tuesday.
	now := time.Date(2026, 5, 3, 20, 0, 0, 0, time.UTC)
	due, err := r.DueTomorrow(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, []time.Weekday{time.Tuesday}, store.asked)
	require.Len(t, due, 2)
	assert.Equal(t, int64(3), due[0].ID)
	assert.Equal(t, int64(7), due[1].ID)

	target := r.TargetDate(now)
	assert.Equal(t, "2026-05-05", target.Format(time.DateOnly))
	assert.Equal(t, tokyo, target.Location())
}

func TestDueTomorrowDropsInactiveAndEmpty(t *testing.T) {
	off := schedule(2, 1, model.WasteGeneral, time.Monday, 8, 0)
	off.Lifecycle = off.Lifecycle.Deactivate("", epoch)
	store := &fakeSchedules{byDay: map[time.Weekday][]model.Schedule{
		time.Monday: {off},
	}}
	r := NewScheduleResolver(store, nil)

	due, err := r.DueTomorrow(context.Background(), sundayEvening)
	require.NoError(t, err)
	assert.NotNil(t, due)
	assert.Empty(t, due)
}

func TestTargetDateAcrossMonthEnd(t *testing.T) {
	r := NewScheduleResolver(&fakeSchedules{}, time.UTC)
	target := r.TargetDate(time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, "2027-01-01", target.Format(time.DateOnly))
	assert.Equal(t, time.Friday, target.Weekday())
}

func TestEligibleCitizensAppliesHaversine(t *testing.T) {
	unverified := citizen(3, 42.6630, 21.1656)
	unverified.EmailVerified = false
	noLocation := citizen(4, 0, 0)
	noLocation.Location = geo.Point{}

	store := &fakeCitizens{all: []model.Citizen{
		citizen(1, 42.6630, 21.1656),
		citizen(2, 41.9981, 21.4254),
		unverified,
		noLocation,
		// inside the bounding box corner, outside the circle
		citizen(5, 42.6629+0.040, 21.1655+0.055),
	}}
	r := NewRecipientResolver(store, zap.NewNop())

	got, err := r.EligibleCitizens(context.Background(), area(1, "Downtown", downtownCenter), geo.Kilometers(5))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	require.Len(t, store.boxes, 1)
	assert.True(t, store.boxes[0].Contains(geo.NewPoint(42.6629+0.040, 21.1655+0.055)))
}

func TestEligibleCitizensWithoutCenter(t *testing.T) {
	store := &fakeCitizens{all: []model.Citizen{citizen(1, 42.6630, 21.1656)}}
	r := NewRecipientResolver(store, zap.NewNop())

	got, err := r.EligibleCitizens(context.Background(), area(1, "Nowhere", geo.Point{}), geo.Kilometers(5))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, store.boxes)
}

func TestEligibleCitizensRejectsNegativeRadius(t *testing.T) {
	store := &fakeCitizens{all: []model.Citizen{citizen(1, 42.6630, 21.1656)}}
	r := NewRecipientResolver(store, zap.NewNop())

	got, err := r.EligibleCitizens(context.Background(), area(1, "Downtown", downtownCenter), geo.Kilometers(-1))
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.Empty(t, store.boxes)
}

func TestNearestArea(t *testing.T) {
	inactive := area(3, "Closed", geo.NewPoint(42.6630, 21.1656))
	inactive.Lifecycle = inactive.Lifecycle.Deactivate("", epoch)
	store := &fakeAreas{areas: map[int64]model.Area{
		1: area(1, "Downtown", downtownCenter),
		2: area(2, "Skopje", geo.NewPoint(41.9981, 21.4254)),
		3: inactive,
		4: area(4, "Unmapped", geo.Point{}),
	}}
	r := NewAreaResolver(store)

	a, d, err := r.NearestArea(context.Background(), geo.NewPoint(42.6631, 21.1657))
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Less(t, d.Meters(), 50.0)

	_, _, err = r.NearestArea(context.Background(), geo.Point{})
	assert.ErrorIs(t, err, ErrInvalidPoint)

	empty := NewAreaResolver(&fakeAreas{areas: map[int64]model.Area{}})
	_, _, err = empty.NearestArea(context.Background(), downtownCenter)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPayloadRendering(t *testing.T) {
	s := schedule(5, 1, model.WasteBulky, time.Thursday, 17, 5)
	p := NewPayload("run-1", s, area(1, "Sunny Hill", downtownCenter), time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "Collection Reminder", p.Title())
	assert.Equal(t, "Tomorrow's BULKY ITEMS collection at 17:05 in Sunny Hill", p.Message())
	assert.Equal(t, "THURSDAY", p.DayName)
	assert.Equal(t, "2026-05-07", p.TargetDateString())
}
