package db

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Open opens the sqlite database at path, applies pragmas and runs
// migrations. Callers own the returned handle.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	instance, err := sql.Open("sqlite", formatDBPath(dbPath))
	if err != nil {
		log.Error().Err(err).Msg("failed to open database")
		return nil, err
	}

	if err := instance.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("failed to ping database")
		return nil, err
	}

	if err := migrate(ctx, instance); err != nil {
		log.Error().Err(err).Msg("failed to run migrations")
		return nil, err
	}
	log.Debug().Str("path", dbPath).Msg("database ready")

	return instance, nil
}

func formatDBPath(path string) string {
	// Pragmas for performance and safety; _txlock=immediate makes
	// read-modify-write transactions take the write lock up front so
	// concurrent click recorders queue instead of deadlocking on upgrade.
	// See: https://pkg.go.dev/modernc.org/sqlite#pkg-overview
	params := url.Values{}
	params.Set("cache", "shared")
	params.Set("mode", "rwc")
	params.Set("_time_format", "sqlite")
	params.Set("_txlock", "immediate")
	params.Set("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_busy_timeout", "5000")

	return "file:" + path + "?" + params.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS links (
		code TEXT PRIMARY KEY,
		short_url TEXT NOT NULL,
		original_url TEXT NOT NULL,
		owner_id TEXT,
		name TEXT,
		qr_code TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		protected INTEGER NOT NULL DEFAULT 0,
		unlock_id TEXT,
		expires_at TEXT,
		phone TEXT,
		message TEXT,
		clicks INTEGER NOT NULL DEFAULT 0,
		last_clicked_at TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		stats TEXT NOT NULL DEFAULT '[]',
		device_stats TEXT NOT NULL DEFAULT '{}',
		browser_stats TEXT NOT NULL DEFAULT '{}',
		os_stats TEXT NOT NULL DEFAULT '{}',
		agents TEXT NOT NULL DEFAULT '[]',
		multi_agent_enabled INTEGER NOT NULL DEFAULT 0,
		last_used_index INTEGER NOT NULL DEFAULT -1,
		agent_assignment TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS link_pages (
		username TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		profile_pic TEXT NOT NULL DEFAULT '',
		links TEXT NOT NULL DEFAULT '[]',
		page_clicks INTEGER NOT NULL DEFAULT 0,
		stats TEXT NOT NULL DEFAULT '[]',
		page_url TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id);
	CREATE INDEX IF NOT EXISTS idx_link_pages_owner ON link_pages(owner_id);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}
