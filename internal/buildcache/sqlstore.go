package buildcache

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS build_cache (
	fingerprint   TEXT PRIMARY KEY,
	document_path TEXT NOT NULL,
	artifact      BLOB NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_build_cache_doc ON build_cache(document_path);
`

// SQLStore persists cache entries in SQLite. Failures are returned to the
// Cache, which treats persistence as best-effort.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("buildcache: apply schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Row is one persisted cache entry.
type Row struct {
	Fingerprint  Fingerprint
	DocumentPath string
	Artifact     []byte
}

func (s *SQLStore) Put(documentPath string, fp Fingerprint, artifact []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO build_cache (fingerprint, document_path, artifact)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			document_path = excluded.document_path,
			artifact      = excluded.artifact
	`, string(fp), documentPath, artifact)
	if err != nil {
		return fmt.Errorf("buildcache: put: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteByDocument(documentPath string) error {
	if _, err := s.db.Exec(`DELETE FROM build_cache WHERE document_path = ?`, documentPath); err != nil {
		return fmt.Errorf("buildcache: delete by document: %w", err)
	}
	return nil
}

func (s *SQLStore) LoadAll() ([]Row, error) {
	rows, err := s.db.Query(`SELECT fingerprint, document_path, artifact FROM build_cache`)
	if err != nil {
		return nil, fmt.Errorf("buildcache: load: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var fp string
		if err := rows.Scan(&fp, &r.DocumentPath, &r.Artifact); err != nil {
			return nil, fmt.Errorf("buildcache: scan: %w", err)
		}
		r.Fingerprint = Fingerprint(fp)
		out = append(out, r)
	}
	return out, rows.Err()
}
