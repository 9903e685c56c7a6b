package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"wastereminder/internal/geo"
	"wastereminder/internal/model"
	"wastereminder/internal/repository"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeSchedules struct {
	byDay  map[time.Weekday][]model.Schedule
	err    error
	asked  []time.Weekday
	byArea map[int64][]model.Schedule
}

func (f *fakeSchedules) FindActiveByDayOfWeek(_ context.Context, day time.Weekday) ([]model.Schedule, error) {
	f.asked = append(f.asked, day)
	if f.err != nil {
		return nil, f.err
	}
	return f.byDay[day], nil
}

func (f *fakeSchedules) FindActiveByArea(_ context.Context, areaID int64) ([]model.Schedule, error) {
	return f.byArea[areaID], nil
}

type fakeAreas struct {
	areas map[int64]model.Area
	err   error
}

func (f *fakeAreas) GetByID(_ context.Context, id int64) (*model.Area, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.areas[id]
	if !ok {
		return nil, fmt.Errorf("area %d: %w", id, repository.ErrNotFound)
	}
	return &a, nil
}

func (f *fakeAreas) ListActive(_ context.Context) ([]model.Area, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Area
	for _, a := range f.areas {
		if a.Lifecycle.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeCitizens applies the same attribute and bounding box filter as the SQL query.
type fakeCitizens struct {
	all   []model.Citizen
	err   error
	boxes []geo.BoundingBox
}

func (f *fakeCitizens) FindActiveVerifiedCitizensNear(_ context.Context, box geo.BoundingBox) ([]model.Citizen, error) {
	f.boxes = append(f.boxes, box)
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Citizen{}
	for _, c := range f.all {
		if c.Lifecycle.IsActive() && c.EmailVerified && box.Contains(c.Location) {
			out = append(out, c)
		}
	}
	return out, nil
}

type sentEmail struct {
	UserID  int64
	Payload ReminderPayload
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []sentEmail
	fail  map[int64]error
	block map[int64]bool
	panic map[int64]bool
}

func (m *fakeMailer) SendCollectionReminder(ctx context.Context, c model.Citizen, p ReminderPayload) error {
	if m.panic[c.ID] {
		panic("mailer exploded")
	}
	if m.block[c.ID] {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := m.fail[c.ID]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{UserID: c.ID, Payload: p})
	return nil
}

func (m *fakeMailer) emails() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}

type fakeNotifier struct {
	mu      sync.Mutex
	created []model.Notification
	fail    map[int64]error
}

func (n *fakeNotifier) Create(_ context.Context, userID int64, title, message string, ntype model.NotificationType, related *int64) (*model.Notification, error) {
	if err := n.fail[userID]; err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	row := model.Notification{
		ID:              int64(len(n.created) + 1),
		UserID:          userID,
		Title:           title,
		Message:         message,
		Type:            ntype,
		RelatedReportID: related,
	}
	n.created = append(n.created, row)
	return &row, nil
}

func (n *fakeNotifier) notifications() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notification(nil), n.created...)
}

type memDeduper struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
}

func newMemDeduper() *memDeduper {
	return &memDeduper{keys: map[string]bool{}}
}

func (d *memDeduper) AcquireOnce(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys[key] {
		return false
	}
	d.keys[key] = true
	return true
}

func (d *memDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	d.released = append(d.released, key)
}

var errSMTP = errors.New("smtp: mailbox unavailable")

func citizen(id int64, lat, lng float64) model.Citizen {
	return model.Citizen{
		ID:            id,
		Email:         fmt.Sprintf("c%d@example.org", id),
		Lifecycle:     model.Active(epoch),
		EmailVerified: true,
		Location:      geo.NewPoint(lat, lng),
	}
}

func area(id int64, name string, center geo.Point) model.Area {
	return model.Area{ID: id, Name: name, Center: center, Lifecycle: model.Active(epoch)}
}

func schedule(id, areaID int64, wt model.WasteType, day time.Weekday, hh, mm int) model.Schedule {
	return model.Schedule{
		ID:             id,
		AreaID:         areaID,
		WasteType:      wt,
		DayOfWeek:      day,
		CollectionTime: model.ClockTime{Hour: hh, Minute: mm},
		Lifecycle:      model.Active(epoch),
	}
}
