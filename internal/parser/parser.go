package parser

import (
	"fmt"
	"strings"
	"time"

	"statguard/internal/model"
	"statguard/internal/normalize"
)

type field int

const (
	fieldNone field = iota
	fieldDate
	fieldTeam
	fieldOpponent
	fieldMinutes
	fieldPoints
	fieldRebounds
	fieldAssists
	fieldFouls
	fieldFGM
	fieldFGA
	fieldFGSplit
	field3PM
	field3PA
	field3PSplit
)

var columnAliases = map[string]field{
	"DATE":     fieldDate,
	"GAMEDATE": fieldDate,
	"TM":       fieldTeam,
	"TEAM":     fieldTeam,
	"OPP":      fieldOpponent,
	"OPPONENT": fieldOpponent,
	"MIN":      fieldMinutes,
	"MINUTES":  fieldMinutes,
	"PTS":      fieldPoints,
	"REB":      fieldRebounds,
	"TRB":      fieldRebounds,
	"AST":      fieldAssists,
	"PF":       fieldFouls,
	"FGM":      fieldFGM,
	"FGA":      fieldFGA,
	"FG":       fieldFGSplit,
	"3PM":      field3PM,
	"FG3M":     field3PM,
	"3PA":      field3PA,
	"FG3A":     field3PA,
	"3PT":      field3PSplit,
	"3P":       field3PSplit,
}

type Parser struct {
	loc *time.Location
}

func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

// Parse converts a scraped table into one GameRow per body row. Columns are
// matched by name; absent columns and unreadable cells fall back to defaults.
func (p *Parser) Parse(table model.Table) ([]model.GameRow, error) {
	if len(table.Header) == 0 {
		return nil, fmt.Errorf("table has no header: %w", model.ErrNoData)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("table has no rows: %w", model.ErrNoData)
	}
	columns := mapColumns(table.Header)
	rows := make([]model.GameRow, 0, len(table.Rows))
	for _, cells := range table.Rows {
		rows = append(rows, p.parseRow(columns, cells))
	}
	return rows, nil
}

func mapColumns(header []string) map[field]int {
	out := make(map[field]int, len(header))
	for i, name := range header {
		f, ok := columnAliases[normalize.Header(name)]
		if !ok {
			continue
		}
		if _, seen := out[f]; seen {
			continue
		}
		out[f] = i
	}
	return out
}

func (p *Parser) parseRow(columns map[field]int, cells []string) model.GameRow {
	cell := func(f field) (string, bool) {
		idx, ok := columns[f]
		if !ok || idx >= len(cells) {
			return "", false
		}
		return strings.TrimSpace(cells[idx]), true
	}
	var row model.GameRow
	if v, ok := cell(fieldDate); ok {
		if d, err := normalize.ParseDate(v, p.loc); err == nil {
			row.Date = d
		}
	}
	if v, ok := cell(fieldTeam); ok {
		row.Team = normalize.Text(v)
	}
	if v, ok := cell(fieldOpponent); ok {
		row.Opponent = normalize.Text(v)
	}
	if v, ok := cell(fieldMinutes); ok {
		row.Minutes = normalize.Text(v)
	}
	if v, ok := cell(fieldPoints); ok {
		row.Points = normalize.Number(v)
	}
	if v, ok := cell(fieldRebounds); ok {
		row.Rebounds = normalize.Number(v)
	}
	if v, ok := cell(fieldAssists); ok {
		row.Assists = normalize.Number(v)
	}
	if v, ok := cell(fieldFouls); ok {
		row.PersonalFouls = normalize.Number(v)
	}
	row.FieldGoalsMade, row.FieldGoalsAttempted = shots(cell, fieldFGM, fieldFGA, fieldFGSplit)
	row.ThreesMade, row.ThreesAttempted = shots(cell, field3PM, field3PA, field3PSplit)
	return row
}

// shots prefers separate made/attempted columns and falls back to an "M/A" column.
func shots(cell func(field) (string, bool), made, attempted, split field) (int, int) {
	m, hasMade := cell(made)
	a, hasAttempted := cell(attempted)
	if hasMade || hasAttempted {
		return normalize.Count(m), normalize.Count(a)
	}
	if v, ok := cell(split); ok {
		return normalize.Split(v)
	}
	return 0, 0
}
