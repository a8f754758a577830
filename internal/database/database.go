package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	logger *zap.Logger
}

// Options controls how the sqlite file is opened.
type Options struct {
	Path          string
	MaxOpenConns  int
	BusyTimeoutMs int
}

func New(opts Options, logger *zap.Logger) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(opts.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := opts.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{
		DB:     db,
		logger: logger,
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("path", opts.Path),
		zap.Int("max_open_conns", maxConns),
	)
	return database, nil
}

// dsn applies WAL, a busy timeout so concurrent writers wait for the lock,
// and IMMEDIATE transactions so a read-then-write transaction never has to
// upgrade its lock.
func dsn(opts Options) string {
	busy := opts.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + opts.Path + "?" + q.Encode()
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		// Registered devices; presence is derived from the heartbeat columns
		`CREATE TABLE IF NOT EXISTS devices (
			device_id TEXT PRIMARY KEY,
			user_id TEXT,
			username TEXT,
			display_name TEXT,
			profile_url TEXT,
			designation TEXT,
			check_in_time INTEGER,
			last_client_heartbeat_at INTEGER,
			last_service_heartbeat_at INTEGER,
			last_seen_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		// One row per (device, window end); times are unix milliseconds
		`CREATE TABLE IF NOT EXISTS activity_chunks (
			device_id TEXT NOT NULL,
			window_start INTEGER NOT NULL,
			window_end INTEGER NOT NULL,
			user_id TEXT,
			username TEXT,
			client_epoch_ms INTEGER NOT NULL,
			is_clock_unreliable INTEGER NOT NULL DEFAULT 0,
			client_tz_offset_min INTEGER NOT NULL DEFAULT 0,
			server_received_at INTEGER NOT NULL,
			server_client_drift_ms INTEGER NOT NULL DEFAULT 0,
			active_seconds REAL NOT NULL DEFAULT 0,
			idle_seconds REAL NOT NULL DEFAULT 0,
			pointer_moves INTEGER NOT NULL DEFAULT 0,
			scroll_events INTEGER NOT NULL DEFAULT 0,
			clicks INTEGER NOT NULL DEFAULT 0,
			key_presses INTEGER NOT NULL DEFAULT 0,
			details TEXT NOT NULL DEFAULT '[]',
			config_chunk_seconds INTEGER NOT NULL DEFAULT 0,
			config_idle_seconds INTEGER NOT NULL DEFAULT 0,
			config_version INTEGER NOT NULL DEFAULT 0,
			revision INTEGER NOT NULL DEFAULT 1,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (device_id, window_end)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_chunks_window_end ON activity_chunks(window_end)`,
		// Command queue
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command_id TEXT UNIQUE NOT NULL,
			device_id TEXT NOT NULL,
			channel TEXT NOT NULL CHECK (channel IN ('client', 'service')),
			type TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL CHECK (status IN ('pending', 'acknowledged', 'completed')),
			created_at INTEGER NOT NULL,
			acknowledged_at INTEGER,
			completed_at INTEGER
		)`,
		// At most one pending command per (device, channel, type)
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_commands_pending ON commands(device_id, channel, type) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_commands_device_status ON commands(device_id, channel, status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_created ON commands(created_at)`,
		// Agent error reports
		`CREATE TABLE IF NOT EXISTS device_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			error_type TEXT NOT NULL,
			message TEXT NOT NULL,
			stack TEXT,
			context TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_device_errors_device ON device_errors(device_id, created_at)`,
		// Runtime tracking settings, single row
		`CREATE TABLE IF NOT EXISTS server_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			chunk_duration_seconds INTEGER NOT NULL,
			idle_threshold_seconds INTEGER NOT NULL,
			client_heartbeat_interval_seconds INTEGER NOT NULL,
			service_heartbeat_interval_seconds INTEGER NOT NULL,
			version INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO schema_migrations (version) VALUES (1)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Info("Database migrations completed")
	return nil
}

func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.logger.Info("Database connection closed")
	return nil
}
