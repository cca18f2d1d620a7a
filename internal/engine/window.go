package engine

import (
	"sort"
	"time"

	"statguard/internal/model"
)

// Window keeps rows with a known date strictly before the start of the day
// containing now, most recent first, truncated to n. Rows sharing a date keep
// their source order.
func Window(rows []model.GameRow, n int, now time.Time) []model.GameRow {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	out := make([]model.GameRow, 0, len(rows))
	for _, r := range rows {
		if !r.HasDate() || !r.Date.Before(today) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
