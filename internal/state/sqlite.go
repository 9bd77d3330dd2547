package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/veedy-dev/rockup/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS installs (
    tag          TEXT PRIMARY KEY,
    path         TEXT NOT NULL,
    installed_at TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'installed'
);
`

// SQLiteState journals installs and persists small key-value entries (the
// update checker's timestamps live here). Every mutation of the journal is
// mirrored to a JSON manifest so the editor layer can read the installed set
// without a sqlite driver.
type SQLiteState struct {
	mu           sync.RWMutex
	db           *sql.DB
	dbPath       string
	manifestPath string
	logger       domain.Logger
}

func NewSQLite(dbPath, manifestPath string, logger domain.Logger) (*SQLiteState, error) {
	if logger == nil {
		logger = domain.NopLogger()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteState{
		db:           db,
		dbPath:       dbPath,
		manifestPath: manifestPath,
		logger:       logger,
	}

	if err := s.recover(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to recover: %w", err)
	}

	return s, nil
}

// recover deletes version directories left behind by installs that began but
// never completed, so a crashed process cannot leave a half-populated
// directory discoverable.
func (s *SQLiteState) recover() error {
	rows, err := s.db.Query("SELECT tag, path FROM installs WHERE status = 'pending'")
	if err != nil {
		return err
	}
	defer rows.Close()

	var pending []struct {
		tag  string
		path string
	}
	for rows.Next() {
		var p struct {
			tag  string
			path string
		}
		if err := rows.Scan(&p.tag, &p.path); err != nil {
			return err
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range pending {
		s.logger.Warn("recovering from interrupted install", "tag", p.tag)
		os.RemoveAll(p.path)
		if _, err := s.db.Exec("DELETE FROM installs WHERE tag = ?", p.tag); err != nil {
			return fmt.Errorf("failed to delete pending install %s: %w", p.tag, err)
		}
	}
	return nil
}

func (s *SQLiteState) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteState) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", key, value)
	return err
}

// BeginInstall journals tag as pending with the directory that is about to
// be populated. A crash between here and CompleteInstall makes the directory
// eligible for recovery on next open.
func (s *SQLiteState) BeginInstall(tag, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO installs (tag, path, installed_at, status)
		VALUES (?, ?, ?, 'pending')`,
		tag, dir, time.Now().Format(time.RFC3339))
	return err
}

func (s *SQLiteState) CompleteInstall(tag, binaryPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE installs SET path = ?, installed_at = ?, status = 'installed'
		WHERE tag = ?`,
		binaryPath, time.Now().Format(time.RFC3339), tag)
	if err != nil {
		return err
	}
	return s.exportJSON()
}

func (s *SQLiteState) DiscardInstall(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM installs WHERE tag = ?", tag); err != nil {
		return err
	}
	return s.exportJSON()
}

// Installs returns the journal's completed installs, newest first.
func (s *SQLiteState) Installs() ([]domain.InstallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.installs()
}

func (s *SQLiteState) installs() ([]domain.InstallRecord, error) {
	rows, err := s.db.Query(`
		SELECT tag, path, installed_at FROM installs
		WHERE status = 'installed' ORDER BY installed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.InstallRecord
	for rows.Next() {
		var rec domain.InstallRecord
		var installedAt string
		if err := rows.Scan(&rec.Tag, &rec.Path, &installedAt); err != nil {
			return nil, err
		}
		rec.InstalledAt, _ = time.Parse(time.RFC3339, installedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteState) exportJSON() error {
	records, err := s.installs()
	if err != nil {
		return err
	}
	return writeManifest(s.manifestPath, &Manifest{Installed: records})
}

func (s *SQLiteState) Close() error {
	return s.db.Close()
}
