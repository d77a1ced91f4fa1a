package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists per-guild playback history in SQLite.
type Store struct {
	db *sql.DB
}

// Entry is one recorded playback.
type Entry struct {
	ID          int64
	GuildID     string
	Title       string
	URL         string
	RequestedBy string
	PlayedAt    time.Time
}

// New opens (or creates) the history database at path. Use ":memory:"
// for an ephemeral store.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS play_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		requested_by TEXT NOT NULL,
		played_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_guild_time ON play_history(guild_id, played_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record appends one playback to the guild's history.
func (s *Store) Record(guildID, title, url, requestedBy string) error {
	query := `
	INSERT INTO play_history (guild_id, title, url, requested_by, played_at)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, guildID, title, url, requestedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record playback: %w", err)
	}
	return nil
}

// Recent returns the guild's newest playbacks, most recent first.
func (s *Store) Recent(guildID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
	SELECT id, guild_id, title, url, requested_by, played_at
	FROM play_history
	WHERE guild_id = ?
	ORDER BY played_at DESC, id DESC
	LIMIT ?
	`
	rows, err := s.db.Query(query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.GuildID, &e.Title, &e.URL, &e.RequestedBy, &e.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the retention window across all
// guilds and reports how many rows were removed.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := s.db.Exec("DELETE FROM play_history WHERE played_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Count reports the number of stored entries for a guild.
func (s *Store) Count(guildID string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM play_history WHERE guild_id = ?", guildID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
