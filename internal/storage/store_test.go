package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"statguard/internal/config"
	"statguard/internal/model"
)

func TestNewStoreDisabled(t *testing.T) {
	s, err := NewStore(config.StorageConfig{Enabled: false})
	if err != nil || s != nil {
		t.Fatalf("disabled storage should be nil, got %v %v", s, err)
	}
	if _, err := NewStore(config.StorageConfig{Enabled: true, Driver: "mysql"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestSQLiteWritesAuditRows(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "audit.db")
	s, err := NewSQLite(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	// Init is idempotent.
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	now := time.Date(2025, 4, 9, 10, 0, 0, 0, time.UTC)
	alerts := []model.Alert{
		{ID: "a1", Timestamp: now, Player: "lebron james", Mode: model.ModeFullGame, Stat: "PTS", Threshold: 25, Count: 7, Window: 10},
		{ID: "a2", Timestamp: now, Player: "lebron james", Mode: model.ModeFullGame, Stat: "AST", Threshold: 7, Count: 8, Window: 10},
	}
	if err := s.SaveAlerts(ctx, alerts); err != nil {
		t.Fatalf("save alerts: %v", err)
	}
	if err := s.SaveQuery(ctx, model.QuerySummary{Timestamp: now, Player: "lebron james", Mode: model.ModeFullGame, Rows: 10, Alerts: 2, Outcome: model.OutcomeOK}); err != nil {
		t.Fatalf("save query: %v", err)
	}

	db := s.(*baseStore).db
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE player = ?`, "lebron james").Scan(&n); err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if n != 2 {
		t.Fatalf("alerts rows: %d", n)
	}
	var outcome string
	if err := db.QueryRowContext(ctx, `SELECT outcome FROM queries`).Scan(&outcome); err != nil {
		t.Fatalf("read query: %v", err)
	}
	if outcome != model.OutcomeOK {
		t.Fatalf("outcome: %s", outcome)
	}
}
