package storage

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			player TEXT NOT NULL,
			mode TEXT NOT NULL,
			opponent TEXT,
			stat TEXT NOT NULL,
			threshold REAL NOT NULL,
			hits INTEGER NOT NULL,
			window_games INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	insertQuery: `INSERT INTO queries (ts, player, mode, opponent, row_count, alerts, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:statguard.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &baseStore{db: db, dialect: sqliteDialect}, nil
}
