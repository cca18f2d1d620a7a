package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2006-01-02",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	time.RFC3339,
}

var weekdays = map[string]struct{}{
	"mon": {}, "tue": {}, "wed": {}, "thu": {}, "fri": {}, "sat": {}, "sun": {},
}

// ParseDate parses a game-log date cell against a fixed layout list. A leading
// weekday token ("Tue 4/8/2025", "Tue, Apr 8, 2025") is ignored.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}
	value = stripWeekday(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
}

func stripWeekday(value string) string {
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return value
	}
	head := strings.ToLower(strings.TrimSuffix(fields[0], ","))
	if len(head) > 3 {
		head = head[:3]
	}
	if _, ok := weekdays[head]; !ok {
		return value
	}
	return strings.Join(fields[1:], " ")
}

// maxCount bounds integer stat cells; anything larger is treated as garbage.
const maxCount = math.MaxInt32

// Number coerces a stat cell, degrading to 0 when the cell is empty,
// non-numeric, negative, NaN or infinite.
func Number(value string) float64 {
	value = sanitize(value)
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Count is Number truncated to an int, 0 above maxCount.
func Count(value string) int {
	f := Number(value)
	if f > maxCount {
		return 0
	}
	return int(f)
}

// Split parses a "made/attempted" cell. "12/20" and "12-20" are both accepted;
// anything else yields 0/0.
func Split(value string) (int, int) {
	value = strings.TrimSpace(value)
	sep := strings.IndexAny(value, "/-")
	if sep <= 0 {
		return 0, 0
	}
	return Count(value[:sep]), Count(value[sep+1:])
}

// Header canonicalizes a column name: upper-cased, inner whitespace removed.
func Header(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), ""))
}

func Text(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func sanitize(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, "%")
	return strings.ReplaceAll(value, ",", "")
}
