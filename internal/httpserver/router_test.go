package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wastereminder/internal/geo"
	"wastereminder/internal/handler"
	"wastereminder/internal/model"
	"wastereminder/internal/repository"
	"wastereminder/internal/scheduler"
	"wastereminder/internal/service/reminder"
	"wastereminder/pkg/rbac"
)

const testSecret = "test-secret"

type fakeTrigger struct {
	accept bool
	calls  []string
}

func (f *fakeTrigger) TriggerAsync(source string) bool {
	f.calls = append(f.calls, source)
	return f.accept
}

func (f *fakeTrigger) Stats() scheduler.Stats {
	return scheduler.Stats{Runs: 3, Skipped: 1}
}

type fakeNotifications struct {
	items map[int64]*model.Notification
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{items: map[int64]*model.Notification{
		1: {ID: 1, UserID: 7, Title: "Collection Reminder", Message: "m1", Type: model.NotificationCollectionReminder},
		2: {ID: 2, UserID: 7, Title: "Collection Reminder", Message: "m2", Type: model.NotificationCollectionReminder, IsRead: true},
		3: {ID: 3, UserID: 8, Title: "Collection Reminder", Message: "other", Type: model.NotificationCollectionReminder},
	}}
}

func (f *fakeNotifications) List(_ context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	var out []model.Notification
	for id := int64(1); id <= 3; id++ {
		n, ok := f.items[id]
		if !ok || n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (f *fakeNotifications) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	list, _ := f.List(ctx, userID, true)
	return int64(len(list)), nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID, id int64) error {
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %d: %w", id, repository.ErrNotFound)
	}
	n.IsRead = true
	return nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var changed int64
	for _, n := range f.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (f *fakeNotifications) Delete(_ context.Context, userID, id int64) error {
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %d: %w", id, repository.ErrNotFound)
	}
	delete(f.items, id)
	return nil
}

type fakeAreas struct{}

func (fakeAreas) NearestArea(_ context.Context, p geo.Point) (*model.Area, geo.Distance, error) {
	if !p.Valid() {
		return nil, 0, fmt.Errorf("nearest area to %s: %w", p, reminder.ErrInvalidPoint)
	}
	return &model.Area{ID: 1, Name: "Downtown", Municipality: "Prishtina", Center: geo.NewPoint(42.6629, 21.1655)},
		geo.Between(p, geo.NewPoint(42.6629, 21.1655)), nil
}

func (fakeAreas) ForArea(_ context.Context, areaID int64) ([]model.Schedule, error) {
	if areaID != 1 {
		return nil, fmt.Errorf("area %d: %w", areaID, repository.ErrNotFound)
	}
	return []model.Schedule{{
		ID:             10,
		AreaID:         1,
		WasteType:      model.WasteGeneral,
		DayOfWeek:      time.Monday,
		CollectionTime: model.ClockTime{Hour: 8},
	}}, nil
}

type fixture struct {
	engine  *gin.Engine
	trigger *fakeTrigger
	notifs  *fakeNotifications
}

func newFixture(t *testing.T, checks map[string]ReadinessCheck) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	trigger := &fakeTrigger{accept: true}
	notifs := newFakeNotifications()
	log := zap.NewNop()
	router := NewRouter(Handlers{
		Reminder:     handler.NewReminderHandler(trigger, log),
		Notification: handler.NewNotificationHandler(notifs, log),
		Area:         handler.NewAreaHandler(fakeAreas{}, fakeAreas{}, log),
	}, testSecret, checks)

	return &fixture{engine: router.Engine, trigger: trigger, notifs: notifs}
}

func token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := rbac.GenerateToken(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *fixture) do(method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t, map[string]ReadinessCheck{
		"db": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/metrics", "").Code)

	down := newFixture(t, map[string]ReadinessCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w := down.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "redis_not_ready", decode(t, w)["status"])
}

func TestTriggerRunRequiresAdmin(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/admin/reminders/run", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/admin/reminders/run", "Bearer garbage").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/admin/reminders/run", token(t, 7, rbac.RoleCitizen)).Code)
	assert.Empty(t, f.trigger.calls)

	w := f.do(http.MethodPost, "/admin/reminders/run", token(t, 1, rbac.RoleAdmin))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{scheduler.SourceHTTP}, f.trigger.calls)
}

func TestTriggerRunConflictWhenRunning(t *testing.T) {
	f := newFixture(t, nil)
	f.trigger.accept = false

	w := f.do(http.MethodPost, "/admin/reminders/run", token(t, 1, rbac.RoleAdmin))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, scheduler.ErrRunInProgress.Error(), decode(t, w)["error"])
}

func TestReminderStats(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/admin/reminders/stats", token(t, 1, rbac.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3, body["runs"])
	assert.EqualValues(t, 1, body["skipped"])
}

func TestNotificationEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	auth := token(t, 7, rbac.RoleCitizen)

	w := f.do(http.MethodGet, "/api/notifications", auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = f.do(http.MethodGet, "/api/notifications?unread=true", auth)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(http.MethodGet, "/api/notifications/unread-count", auth)
	assert.EqualValues(t, 1, decode(t, w)["unread_count"])

	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/notifications/1/read", auth).Code)
	w = f.do(http.MethodGet, "/api/notifications/unread-count", auth)
	assert.EqualValues(t, 0, decode(t, w)["unread_count"])

	w = f.do(http.MethodPut, "/api/notifications/read-all", auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["updated"])

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/notifications/2", auth).Code)
	assert.NotContains(t, f.notifs.items, int64(2))
}

func TestNotificationOwnershipAndBadIDs(t *testing.T) {
	f := newFixture(t, nil)
	auth := token(t, 7, rbac.RoleCitizen)

	// 3 belongs to user 8
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/api/notifications/3/read", auth).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/notifications/3", auth).Code)
	assert.False(t, f.notifs.items[3].IsRead)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/notifications/abc/read", auth).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/notifications", "").Code)
}

func TestAreaEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	auth := token(t, 7, rbac.RoleCitizen)

	w := f.do(http.MethodGet, "/api/areas/nearest?lat=42.663&lng=21.1656", auth)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	area := body["area"].(map[string]any)
	assert.Equal(t, "Downtown", area["name"])
	assert.Less(t, body["distance_m"].(float64), 100.0)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/areas/nearest?lat=abc&lng=1", auth).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/areas/nearest?lat=95&lng=1", auth).Code)

	w = f.do(http.MethodGet, "/api/areas/1/schedules", auth)
	require.Equal(t, http.StatusOK, w.Code)
	schedules := decode(t, w)["schedules"].([]any)
	require.Len(t, schedules, 1)
	s := schedules[0].(map[string]any)
	assert.Equal(t, "GENERAL WASTE", s["waste_type_label"])
	assert.Equal(t, "MONDAY", s["day_of_week"])
	assert.Equal(t, "08:00", s["collection_time"])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/areas/99/schedules", auth).Code)
}
