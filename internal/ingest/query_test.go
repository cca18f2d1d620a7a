package ingest

import (
	"errors"
	"testing"

	"statguard/internal/config"
	"statguard/internal/model"
)

func windows() config.WindowConfig {
	return config.DefaultConfig().Window
}

func TestParseRequestFullGame(t *testing.T) {
	q, err := ParseRequest("  LeBron James ", windows())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Player != "lebron james" || q.Mode != model.ModeFullGame || q.Window != 10 || q.Opponent != "" {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestParseRequestFirstQuarterVersus(t *testing.T) {
	q, err := ParseRequest("lebron james 1q vs boston celtics", windows())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Player != "lebron james" || q.Mode != model.ModeFirstQuarter {
		t.Fatalf("unexpected query: %+v", q)
	}
	if q.Opponent != "boston celtics" || q.Window != 5 {
		t.Fatalf("versus not applied: %+v", q)
	}
}

func TestParseRequestFirstQuarterLeading(t *testing.T) {
	q, err := ParseRequest("1Q Jayson Tatum", windows())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Player != "jayson tatum" || q.Mode != model.ModeFirstQuarter || q.Window != 10 {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestParseRequestEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "1q", "vs celtics"} {
		if _, err := ParseRequest(in, windows()); !errors.Is(err, model.ErrEmptyQuery) {
			t.Fatalf("%q: expected ErrEmptyQuery, got %v", in, err)
		}
	}
}

func TestTitle(t *testing.T) {
	q := model.Query{Player: "lebron james", Mode: model.ModeFullGame, Opponent: "boston celtics"}
	if got := Title(q); got != "Lebron James - FULL GAME vs Boston Celtics" {
		t.Fatalf("title: %q", got)
	}
	q = model.Query{Player: "jayson tatum", Mode: model.ModeFirstQuarter}
	if got := Title(q); got != "Jayson Tatum - 1Q" {
		t.Fatalf("title: %q", got)
	}
}
