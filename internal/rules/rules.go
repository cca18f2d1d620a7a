package rules

import (
	"strings"

	"statguard/internal/model"
)

// Value reads the numeric value of stat from row. Unknown stats report false.
func Value(row model.GameRow, stat string) (float64, bool) {
	switch strings.ToUpper(stat) {
	case model.StatPoints:
		return row.Points, true
	case model.StatRebounds:
		return row.Rebounds, true
	case model.StatAssists:
		return row.Assists, true
	case model.StatFouls:
		return row.PersonalFouls, true
	case model.StatFieldGoals:
		return float64(row.FieldGoalsMade), true
	case model.StatFieldAttempts:
		return float64(row.FieldGoalsAttempted), true
	case model.StatThrees:
		return float64(row.ThreesMade), true
	case model.StatThreeAttempts:
		return float64(row.ThreesAttempted), true
	}
	return 0, false
}

func Meets(row model.GameRow, rule model.ThresholdRule) bool {
	v, ok := Value(row, rule.Stat)
	return ok && v >= rule.Min
}

// Threshold returns the lowest minimum among the rules for stat, so a value
// at or above it meets at least one of them.
func Threshold(table []model.ThresholdRule, stat string) (float64, bool) {
	var (
		lowest float64
		found  bool
	)
	for _, r := range table {
		if !strings.EqualFold(r.Stat, stat) {
			continue
		}
		if !found || r.Min < lowest {
			lowest = r.Min
			found = true
		}
	}
	return lowest, found
}
