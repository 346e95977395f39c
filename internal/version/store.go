// Package version records per-build document versions as (path, canonical
// tree hash, timestamp) tuples. History is append-only; revert is forward
// only, creating a new version that copies an old hash.
package version

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when a requested version does not exist.
var ErrNotFound = errors.New("version not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS versions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	document_path TEXT NOT NULL,
	tree_hash     TEXT NOT NULL,
	message       TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_versions_doc ON versions(document_path, id);
`

// Version is one recorded document state.
type Version struct {
	ID           int64     `json:"id"`
	DocumentPath string    `json:"document_path"`
	TreeHash     string    `json:"tree_hash"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the SQLite-backed version history. Writes are serialized: the
// no-op check in Record reads the latest hash before inserting, and that
// pair must not interleave across concurrent builds.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("version: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends a version for documentPath unless the latest recorded hash
// already matches treeHash (no-op version detection). The bool reports
// whether a new version was created.
func (s *Store) Record(documentPath, treeHash, message string) (*Version, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest, err := s.Latest(documentPath)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if latest != nil && latest.TreeHash == treeHash {
		return latest, false, nil
	}
	return s.insert(documentPath, treeHash, message)
}

// History returns all versions for documentPath, newest first.
func (s *Store) History(documentPath string) ([]Version, error) {
	rows, err := s.db.Query(`
		SELECT id, document_path, tree_hash, message, created_at
		FROM versions WHERE document_path = ? ORDER BY id DESC
	`, documentPath)
	if err != nil {
		return nil, fmt.Errorf("version: history: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.DocumentPath, &v.TreeHash, &v.Message, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("version: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Latest returns the newest version for documentPath.
func (s *Store) Latest(documentPath string) (*Version, error) {
	var v Version
	err := s.db.QueryRow(`
		SELECT id, document_path, tree_hash, message, created_at
		FROM versions WHERE document_path = ? ORDER BY id DESC LIMIT 1
	`, documentPath).Scan(&v.ID, &v.DocumentPath, &v.TreeHash, &v.Message, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("version: latest: %w", err)
	}
	return &v, nil
}

// Get returns a version by id.
func (s *Store) Get(id int64) (*Version, error) {
	var v Version
	err := s.db.QueryRow(`
		SELECT id, document_path, tree_hash, message, created_at
		FROM versions WHERE id = ?
	`, id).Scan(&v.ID, &v.DocumentPath, &v.TreeHash, &v.Message, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("version: get: %w", err)
	}
	return &v, nil
}

// Revert creates a new version for documentPath copying the tree hash of an
// earlier version. History is never rewritten.
func (s *Store) Revert(documentPath string, id int64) (*Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if old.DocumentPath != documentPath {
		return nil, fmt.Errorf("version %d belongs to %s: %w", id, old.DocumentPath, ErrNotFound)
	}
	v, _, err := s.insert(documentPath, old.TreeHash, fmt.Sprintf("revert to version %d", id))
	return v, err
}

func (s *Store) insert(documentPath, treeHash, message string) (*Version, bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO versions (document_path, tree_hash, message) VALUES (?, ?, ?)
	`, documentPath, treeHash, message)
	if err != nil {
		return nil, false, fmt.Errorf("version: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("version: last insert id: %w", err)
	}
	v, err := s.Get(id)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
