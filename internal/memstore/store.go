// Package memstore keeps schedules in memory. It backs the local worker and
// the coordinator tests.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/go-tick/remind"
)

type Store struct {
	mu        sync.RWMutex
	schedules map[string]*remind.Schedule
	timezones map[string]string

	defaultTimezone string
}

// New returns an empty store. Owners without an explicit timezone resolve to
// defaultTimezone.
func New(defaultTimezone string) *Store {
	return &Store{
		schedules:       make(map[string]*remind.Schedule),
		timezones:       make(map[string]string),
		defaultTimezone: defaultTimezone,
	}
}

func (s *Store) Load(_ context.Context, id string) (*remind.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, ok := s.schedules[id]
	if !ok {
		return nil, errors.Wrapf(remind.ErrScheduleNotFound, "id %s", id)
	}

	return sch.Clone(), nil
}

func (s *Store) Save(_ context.Context, schedule *remind.Schedule) error {
	if schedule.ID == "" {
		return errors.New("schedule has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules[schedule.ID] = schedule.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.schedules, id)
	return nil
}

// ListActive pages through active schedules ordered by creation time and id.
func (s *Store) ListActive(_ context.Context, limit, offset int) ([]*remind.Schedule, error) {
	s.mu.RLock()
	active := make([]*remind.Schedule, 0, len(s.schedules))
	for _, sch := range s.schedules {
		if sch.IsActive() {
			active = append(active, sch.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(active, func(a, b *remind.Schedule) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if offset >= len(active) {
		return nil, nil
	}
	active = active[offset:]
	if limit > 0 && limit < len(active) {
		active = active[:limit]
	}

	return active, nil
}

func (s *Store) SetTimezone(ownerID, timezone string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timezones[ownerID] = timezone
}

func (s *Store) Timezone(_ context.Context, ownerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tz, ok := s.timezones[ownerID]; ok {
		return tz, nil
	}

	if s.defaultTimezone == "" {
		return "", errors.Newf("no timezone for owner %s", ownerID)
	}

	return s.defaultTimezone, nil
}

var (
	_ remind.ScheduleStore    = &Store{}
	_ remind.ScheduleLister   = &Store{}
	_ remind.TimezoneResolver = &Store{}
)
