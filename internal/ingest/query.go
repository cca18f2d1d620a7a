package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"statguard/internal/config"
	"statguard/internal/model"
)

var (
	firstQuarterToken = regexp.MustCompile(`(^|\s)1q(\s|$)`)
	versusClause      = regexp.MustCompile(`(^|\s)vs\.?\s+(.+)$`)
)

// ParseRequest turns free text of the form "<player> [1q] [vs <opponent>]"
// into a Query. Window sizes come from w.
func ParseRequest(text string, w config.WindowConfig) (model.Query, error) {
	raw := text
	text = strings.ToLower(strings.TrimSpace(text))
	q := model.Query{Mode: model.ModeFullGame, Window: w.DefaultGames, Raw: raw}
	if firstQuarterToken.MatchString(text) {
		q.Mode = model.ModeFirstQuarter
		for firstQuarterToken.MatchString(text) {
			text = firstQuarterToken.ReplaceAllString(text, " ")
		}
	}
	if m := versusClause.FindStringSubmatchIndex(text); m != nil {
		q.Opponent = collapse(text[m[4]:m[5]])
		text = text[:m[0]]
	}
	if q.Opponent != "" {
		q.Window = w.VersusGames
	}
	q.Player = collapse(text)
	if q.Player == "" {
		return model.Query{}, model.ErrEmptyQuery
	}
	return q, nil
}

// Title renders the heading drawn above the stat table, e.g.
// "Lebron James - FULL GAME vs Boston Celtics".
func Title(q model.Query) string {
	caser := cases.Title(language.English)
	out := caser.String(q.Player) + " - " + q.Mode.Label()
	if q.Opponent != "" {
		out += " vs " + caser.String(q.Opponent)
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
