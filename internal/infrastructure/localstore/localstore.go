// Package localstore is a durable key-value store backed by SQLite. It backs
// the assistant transcripts and last-active markers. Reads and writes never
// return errors to callers; failures are logged and treated as a miss, so a
// storage hiccup cannot break the chat flow.
package localstore

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"carlink/pkg/logger"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Get returns the stored value and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		logger.Error("localstore: failed to read key %s: %v", key, err)
		return "", false
	}
	return value, true
}

// Set writes a value. Each key is written independently; there is no
// transactional guarantee across keys.
func (s *Store) Set(key, value string) {
	_, err := s.db.Exec(`REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		logger.Error("localstore: failed to write key %s: %v", key, err)
	}
}

func (s *Store) Delete(key string) {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		logger.Error("localstore: failed to delete key %s: %v", key, err)
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
