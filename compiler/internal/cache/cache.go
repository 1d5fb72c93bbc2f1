// Package cache stores compiled artifacts in a SQLite database, keyed by the input tree and the settings that
// influence the output.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
)

// ErrNotFound indicates there is no artifact for the key.
var ErrNotFound = errors.New("artifact not found")

var reportsEncMode cbor.EncMode

func init() {
	var err error
	reportsEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Artifact is the output of one compilation.
type Artifact struct {
	Ollir   string
	Jasmin  string
	Reports []report.Report
}

type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS artifacts (
		key TEXT PRIMARY KEY,
		ollir TEXT NOT NULL,
		jasmin TEXT NOT NULL,
		reports BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key hashes the canonical encoding of the tree together with the configuration fingerprint.
func Key(root *ast.Node, fingerprint string) (string, error) {
	data, err := ast.EncodeCBOR(root)
	if err != nil {
		return "", fmt.Errorf("encoding tree: %w", err)
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Cache) Put(ctx context.Context, key string, a *Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reports, err := reportsEncMode.Marshal(a.Reports)
	if err != nil {
		return fmt.Errorf("encoding reports: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO artifacts (key, ollir, jasmin, reports) VALUES (?, ?, ?, ?)",
		key, a.Ollir, a.Jasmin, reports,
	)
	if err != nil {
		return fmt.Errorf("saving artifact: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) (*Artifact, error) {
	var a Artifact
	var reports []byte
	err := c.db.QueryRowContext(ctx, "SELECT ollir, jasmin, reports FROM artifacts WHERE key = ?", key).
		Scan(&a.Ollir, &a.Jasmin, &reports)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying artifact: %w", err)
	}
	if len(reports) > 0 {
		if err := cbor.Unmarshal(reports, &a.Reports); err != nil {
			return nil, fmt.Errorf("decoding reports: %w", err)
		}
	}
	return &a, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.ExecContext(ctx, "DELETE FROM artifacts WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}
	return nil
}
