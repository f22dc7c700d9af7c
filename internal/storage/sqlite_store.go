package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	_ "modernc.org/sqlite"
)

const createMarkersTable = `CREATE TABLE IF NOT EXISTS markers (
	key        TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	created_at INTEGER NOT NULL
)`

// sqliteStore implements a Store backed by a single SQLite table.
type sqliteStore struct {
	db *sql.DB
}

func openSQLite(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createMarkersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("init markers table: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) HasAnnounced(service, id string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM markers WHERE key = ?`, MarkerKey(service, id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query marker: %w", err)
	}
	return n > 0, nil
}

func (s *sqliteStore) MarkAnnounced(service, id string, entry domain.FeedEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO markers (key, entry, created_at) VALUES (?, ?, ?)`,
		MarkerKey(service, id), string(payload), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert marker: %w", err)
	}
	return nil
}
