package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"statguard/internal/config"
	"statguard/internal/model"
)

// Store is the write-only audit trail of alerts and processed queries.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveAlerts(ctx context.Context, alerts []model.Alert) error
	SaveQuery(ctx context.Context, summary model.QuerySummary) error
}

// NewStore returns nil when storage is disabled.
func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type dialect struct {
	schema      []string
	insertAlert string
	insertQuery string
}

type baseStore struct {
	db *sql.DB
	dialect
}

func (b *baseStore) Init(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	for _, stmt := range b.schema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) SaveAlerts(ctx context.Context, alerts []model.Alert) error {
	if b.db == nil || len(alerts) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, b.insertAlert)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, a := range alerts {
		if _, err := stmt.ExecContext(ctx,
			a.ID,
			tsUTC(a.Timestamp),
			a.Player,
			string(a.Mode),
			a.Opponent,
			a.Stat,
			a.Threshold,
			a.Count,
			a.Window,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (b *baseStore) SaveQuery(ctx context.Context, q model.QuerySummary) error {
	if b.db == nil {
		return nil
	}
	_, err := b.db.ExecContext(ctx, b.insertQuery,
		tsUTC(q.Timestamp),
		q.Player,
		string(q.Mode),
		q.Opponent,
		q.Rows,
		q.Alerts,
		q.Outcome,
	)
	return err
}

func tsUTC(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}
