package alerts

import (
	"strings"
	"sync"
	"time"

	"statguard/internal/model"
)

// Store keeps the most recent alerts in memory for the operator API.
type Store struct {
	mu    sync.RWMutex
	buf   []model.Alert
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(list ...model.Alert) {
	if len(list) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, list...)
	if over := len(s.buf) - s.limit; over > 0 {
		s.buf = append(s.buf[:0:0], s.buf[over:]...)
	}
}

// List returns up to limit alerts, oldest first. limit <= 0 means all.
func (s *Store) List(limit int) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.Alert, limit)
	copy(out, s.buf[len(s.buf)-limit:])
	return out
}

func (s *Store) Since(ts time.Time) []model.Alert {
	return s.filter(func(a model.Alert) bool { return !a.Timestamp.Before(ts) })
}

func (s *Store) ForPlayer(player string) []model.Alert {
	return s.filter(func(a model.Alert) bool { return strings.EqualFold(a.Player, player) })
}

func (s *Store) filter(keep func(model.Alert) bool) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Alert, 0)
	for _, a := range s.buf {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
