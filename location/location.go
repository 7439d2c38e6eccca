// Package location keeps the last position reported by the rider's phone.
package location

import (
	"sync"
	"time"

	"github.com/a-bouts/cyclar/latlon"
)

type Store struct {
	maxAge time.Duration
	now    func() time.Time

	lock      sync.RWMutex
	current   *latlon.LatLon
	updatedAt time.Time
}

// NewStore returns an empty store. A fix older than maxAge is reported as
// unavailable, a zero maxAge keeps fixes forever.
func NewStore(maxAge time.Duration) *Store {
	return &Store{maxAge: maxAge, now: time.Now}
}

func (s *Store) Update(position latlon.LatLon) error {
	if err := position.Validate(); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.current = &position
	s.updatedAt = s.now()
	return nil
}

// Current returns the last fix, false when there is none or it is stale.
func (s *Store) Current() (latlon.LatLon, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.current == nil {
		return latlon.LatLon{}, false
	}
	if s.maxAge > 0 && s.now().Sub(s.updatedAt) > s.maxAge {
		return latlon.LatLon{}, false
	}
	return *s.current, true
}
