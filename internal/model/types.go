package model

import (
	"fmt"
	"strconv"
	"time"
)

type Mode string

const (
	ModeFullGame     Mode = "full"
	ModeFirstQuarter Mode = "1q"
)

func (m Mode) Label() string {
	if m == ModeFirstQuarter {
		return "1Q"
	}
	return "FULL GAME"
}

// Stat keys shared by rules, alerts and the renderer.
const (
	StatPoints        = "PTS"
	StatRebounds      = "REB"
	StatAssists       = "AST"
	StatFieldGoals    = "FGM"
	StatFieldAttempts = "FGA"
	StatThrees        = "3PM"
	StatThreeAttempts = "3PA"
	StatFouls         = "PF"
)

// Table is the raw tabular text scraped from the source page.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// GameRow is one game's line for one player. The zero Date means the source
// date could not be parsed.
type GameRow struct {
	Date                time.Time `json:"date"`
	Team                string    `json:"team"`
	Opponent            string    `json:"opponent"`
	Minutes             string    `json:"minutes"`
	Points              float64   `json:"points"`
	Rebounds            float64   `json:"rebounds"`
	Assists             float64   `json:"assists"`
	PersonalFouls       float64   `json:"personal_fouls"`
	FieldGoalsMade      int       `json:"field_goals_made"`
	FieldGoalsAttempted int       `json:"field_goals_attempted"`
	ThreesMade          int       `json:"threes_made"`
	ThreesAttempted     int       `json:"threes_attempted"`
}

func (r GameRow) HasDate() bool {
	return !r.Date.IsZero()
}

func (r GameRow) FieldGoals() string {
	return fmt.Sprintf("%d/%d", r.FieldGoalsMade, r.FieldGoalsAttempted)
}

func (r GameRow) Threes() string {
	return fmt.Sprintf("%d/%d", r.ThreesMade, r.ThreesAttempted)
}

type Query struct {
	Player   string `json:"player"`
	Mode     Mode   `json:"mode"`
	Opponent string `json:"opponent,omitempty"`
	Window   int    `json:"window"`
	Raw      string `json:"raw,omitempty"`
}

type ThresholdRule struct {
	Stat     string  `json:"stat" yaml:"stat"`
	Min      float64 `json:"min" yaml:"min"`
	MinGames int     `json:"min_games,omitempty" yaml:"min_games,omitempty"`
}

type Alert struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Player    string    `json:"player"`
	Mode      Mode      `json:"mode"`
	Opponent  string    `json:"opponent,omitempty"`
	Stat      string    `json:"stat"`
	Threshold float64   `json:"threshold"`
	Count     int       `json:"count"`
	Window    int       `json:"window"`
}

// Line formats the alert as "25 PTS: 7/10".
func (a Alert) Line() string {
	return fmt.Sprintf("%s %s: %d/%d", FormatNumber(a.Threshold), a.Stat, a.Count, a.Window)
}

// Query outcomes recorded in QuerySummary.Outcome.
const (
	OutcomeOK           = "ok"
	OutcomeEmpty        = "empty"
	OutcomeNoData       = "no_data"
	OutcomeFetchFailed  = "fetch_failed"
	OutcomeRenderFailed = "render_failed"
)

// QuerySummary is the outcome of one processed query.
type QuerySummary struct {
	Timestamp time.Time `json:"timestamp"`
	Player    string    `json:"player"`
	Mode      Mode      `json:"mode"`
	Opponent  string    `json:"opponent,omitempty"`
	Rows      int       `json:"rows"`
	Alerts    int       `json:"alerts"`
	Outcome   string    `json:"outcome"`
}

func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
