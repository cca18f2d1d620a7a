package storage

import (
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			player TEXT NOT NULL,
			mode TEXT NOT NULL,
			opponent TEXT,
			stat TEXT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			hits INTEGER NOT NULL,
			window_games INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			player TEXT NOT NULL,
			mode TEXT NOT NULL,
			opponent TEXT,
			row_count INTEGER NOT NULL,
			alerts INTEGER NOT NULL,
			outcome TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_player ON queries(player)`,
	},
	insertAlert: `INSERT INTO alerts (id, ts, player, mode, opponent, stat, threshold, hits, window_games)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	insertQuery: `INSERT INTO queries (ts, player, mode, opponent, row_count, alerts, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/statguard?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &baseStore{db: db, dialect: postgresDialect}, nil
}
