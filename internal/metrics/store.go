package metrics

import (
	"sort"
	"strings"
	"sync"

	"statguard/internal/model"
)

// Totals counts processed queries by outcome.
type Totals struct {
	Queries      int `json:"queries"`
	Alerts       int `json:"alerts"`
	OK           int `json:"ok"`
	Empty        int `json:"empty"`
	NoData       int `json:"no_data"`
	FetchFailed  int `json:"fetch_failed"`
	RenderFailed int `json:"render_failed"`
}

// Store keeps the latest query summary per player, bounded by limit.
type Store struct {
	mu       sync.RWMutex
	byPlayer map[string]model.QuerySummary
	totals   Totals
	limit    int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{
		byPlayer: make(map[string]model.QuerySummary),
		limit:    limit,
	}
}

func (s *Store) Record(summary model.QuerySummary) {
	key := playerKey(summary.Player)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.Queries++
	s.totals.Alerts += summary.Alerts
	switch summary.Outcome {
	case model.OutcomeOK:
		s.totals.OK++
	case model.OutcomeEmpty:
		s.totals.Empty++
	case model.OutcomeNoData:
		s.totals.NoData++
	case model.OutcomeFetchFailed:
		s.totals.FetchFailed++
	case model.OutcomeRenderFailed:
		s.totals.RenderFailed++
	}
	if key == "" {
		return
	}
	s.byPlayer[key] = summary
	if len(s.byPlayer) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(player string) (model.QuerySummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byPlayer[playerKey(player)]
	return v, ok
}

// GetAll returns every summary, most recent first.
func (s *Store) GetAll() []model.QuerySummary {
	s.mu.RLock()
	out := make([]model.QuerySummary, 0, len(s.byPlayer))
	for _, v := range s.byPlayer {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

func (s *Store) evictOldest() {
	var oldestKey string
	var oldest model.QuerySummary
	for k, v := range s.byPlayer {
		if oldestKey == "" || v.Timestamp.Before(oldest.Timestamp) {
			oldestKey = k
			oldest = v
		}
	}
	if oldestKey != "" {
		delete(s.byPlayer, oldestKey)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPlayer = make(map[string]model.QuerySummary)
	s.totals = Totals{}
}

func playerKey(player string) string {
	return strings.ToLower(strings.Join(strings.Fields(player), " "))
}
