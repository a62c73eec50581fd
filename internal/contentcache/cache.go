// Package contentcache is the extracted-text cache lookup index:
// non-text source files (PDFs, office documents) get their text
// extracted once and cached under <sidecar-root>/content, keyed by the
// source file's content hash so a byte-identical file is never
// re-extracted. It is a squirrel-over-database/sql hash→cache-path
// lookup table, used only for that lookup — the sidecar format itself
// stays internal/sidecar's binary layout.
package contentcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// Cache indexes extracted-text artifacts by their source content hash.
type Cache struct {
	db   *sql.DB
	root string // <sidecar-root>/content
}

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	content_hash TEXT PRIMARY KEY,
	source_path  TEXT NOT NULL,
	cache_path   TEXT NOT NULL,
	extracted_at TEXT NOT NULL
);
`

// Open opens (creating if absent) the lookup index at
// <sidecarRoot>/content/index.db.
func Open(sidecarRoot string) (*Cache, error) {
	root := filepath.Join(sidecarRoot, "content")
	dbPath := filepath.Join(root, "index.db")

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, coreerr.IoError(root, err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, coreerr.IoError(dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, coreerr.IoError(dbPath, err)
	}

	return &Cache{db: db, root: root}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Root is the directory extracted-text files are stored under.
func (c *Cache) Root() string { return c.root }

// Lookup returns the cache-relative path of a previously extracted
// text artifact for contentHash, or ("", false) if none is cached.
func (c *Cache) Lookup(contentHash string) (string, bool, error) {
	var cachePath string
	err := sq.Select("cache_path").From("extractions").
		Where(sq.Eq{"content_hash": contentHash}).
		RunWith(c.db).QueryRow().Scan(&cachePath)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, coreerr.IoError(c.root, err)
	}
	return cachePath, true, nil
}

// Record stores the mapping from contentHash to the extracted-text
// artifact at cachePath (relative to Root()).
func (c *Cache) Record(contentHash, sourcePath, cachePath string) error {
	_, err := sq.Insert("extractions").
		Columns("content_hash", "source_path", "cache_path", "extracted_at").
		Values(contentHash, sourcePath, cachePath, time.Now().UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(c.db).Exec()
	if err != nil {
		return fmt.Errorf("failed to record extraction for %s: %w", sourcePath, err)
	}
	return nil
}

// Forget removes the mapping for contentHash, used when its source file
// is removed and the cached extraction becomes orphaned. The caller is
// responsible for deleting the file at cachePath before or after calling
// Forget.
func (c *Cache) Forget(contentHash string) error {
	_, err := sq.Delete("extractions").
		Where(sq.Eq{"content_hash": contentHash}).
		RunWith(c.db).Exec()
	if err != nil {
		return fmt.Errorf("failed to forget extraction %s: %w", contentHash, err)
	}
	return nil
}
