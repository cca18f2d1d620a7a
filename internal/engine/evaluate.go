package engine

import (
	"statguard/internal/model"
	"statguard/internal/rules"
)

// Evaluate counts, per rule and in rule order, the games meeting the rule's
// threshold and reports the rules cleared in at least minGames of them. A
// rule's own MinGames overrides minGames.
func Evaluate(log []model.GameRow, table []model.ThresholdRule, minGames int) []model.Alert {
	if len(log) == 0 {
		return nil
	}
	var out []model.Alert
	for _, rule := range table {
		need := minGames
		if rule.MinGames > 0 {
			need = rule.MinGames
		}
		count := 0
		for _, row := range log {
			if rules.Meets(row, rule) {
				count++
			}
		}
		if count < need {
			continue
		}
		out = append(out, model.Alert{
			Stat:      rule.Stat,
			Threshold: rule.Min,
			Count:     count,
			Window:    len(log),
		})
	}
	return out
}
