package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wastereminder/internal/model"
	"wastereminder/internal/repository"
)

// memStore mirrors the SQL semantics of repository.NotificationRepository.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Notification
	err    error
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]*model.Notification{}}
}

func (s *memStore) Insert(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	n.ID = s.nextID
	cp := *n
	s.rows[n.ID] = &cp
	return nil
}

func (s *memStore) MarkRead(_ context.Context, userID, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %d: %w", id, repository.ErrNotFound)
	}
	n.IsRead = true
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	return nil
}

func (s *memStore) MarkAllRead(_ context.Context, userID int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			t := at
			n.ReadAt = &t
			changed++
		}
	}
	return changed, nil
}

func (s *memStore) CountUnread(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c int64
	for _, n := range s.rows {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (s *memStore) ListByUser(_ context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Notification{}
	for _, n := range s.rows {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) Delete(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %d: %w", id, repository.ErrNotFound)
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c int64
	for id, n := range s.rows {
		if n.CreatedAt.Before(cutoff) {
			delete(s.rows, id)
			c++
		}
	}
	return c, nil
}
