package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"statguard/internal/config"
	"statguard/internal/model"
)

const gameLogPage = `<html><body>
<div><p>LeBron James game log</p></div>
<table>
  <thead><tr><th></th><th>DATE</th><th>TM</th><th></th><th>OPP</th><th>PTS</th><th>REB</th></tr></thead>
  <tbody>
    <tr><td>LeBron James</td><td>Tue 4/8/2025</td><td>LAL</td><td>@</td><td>OKC</td><td>31</td><td>8</td></tr>
    <tr><td>LeBron James</td><td>4/6/2025</td><td>LAL</td><td>vs</td><td>NOP</td><td> 22 </td><td>10</td></tr>
  </tbody>
</table>
<table><tr><th>X</th></tr><tr><td>ignored</td></tr></table>
</body></html>`

func TestURL(t *testing.T) {
	cfg := config.DefaultConfig().Source
	q := model.Query{Player: "lebron james", Mode: model.ModeFullGame}
	if got := URL(cfg, q); got != "https://www.statmuse.com/nba/ask/lebron-james-gamelog" {
		t.Fatalf("full game url: %s", got)
	}
	q = model.Query{Player: "lebron  james", Mode: model.ModeFirstQuarter, Opponent: "boston celtics"}
	if got := URL(cfg, q); got != "https://www.statmuse.com/nba/ask/lebron-james-stats-1q-gamelog-vs-boston-celtics" {
		t.Fatalf("1q url: %s", got)
	}
}

func TestExtractTable(t *testing.T) {
	table, err := ExtractTable(strings.NewReader(gameLogPage))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(table.Header) != 7 || table.Header[1] != "DATE" {
		t.Fatalf("header: %#v", table.Header)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows: %d", len(table.Rows))
	}
	if table.Rows[1][5] != "22" {
		t.Fatalf("cell whitespace not collapsed: %q", table.Rows[1][5])
	}
}

func TestExtractTableMissing(t *testing.T) {
	_, err := ExtractTable(strings.NewReader("<html><body><p>nothing</p></body></html>"))
	if !errors.Is(err, model.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	var gotUA, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(gameLogPage))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Source
	cfg.BaseURL = srv.URL + "/nba/ask"
	c := NewClient(nil)
	table, err := c.Fetch(context.Background(), cfg, model.Query{Player: "lebron james", Mode: model.ModeFullGame})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotUA != "Mozilla/5.0" {
		t.Fatalf("user agent: %q", gotUA)
	}
	if gotPath != "/nba/ask/lebron-james-gamelog" {
		t.Fatalf("path: %s", gotPath)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows: %d", len(table.Rows))
	}
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Source
	cfg.BaseURL = srv.URL
	_, err := NewClient(nil).Fetch(context.Background(), cfg, model.Query{Player: "x"})
	if !errors.Is(err, model.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := config.DefaultConfig().Source
	cfg.BaseURL = url
	_, err := NewClient(nil).Fetch(context.Background(), cfg, model.Query{Player: "x"})
	if !errors.Is(err, model.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}
