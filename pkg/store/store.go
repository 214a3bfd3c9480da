// Package store persists program images in a local SQLite database,
// keyed by the SHA-256 of their encoded bytes. Canonical image encoding
// makes the hash stable: the same program always stores under the same
// key.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chazu/minivm/pkg/bytecode"
)

// ErrImageNotFound indicates the requested image doesn't exist
var ErrImageNotFound = errors.New("image not found")

// Entry describes one stored image.
type Entry struct {
	Hash      string
	Name      string
	Functions int
	CodeLen   int
	CreatedAt time.Time
}

// Store handles SQLite storage for program images
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (or creates) an image store at the given path.
func Open(dbPath string) (*Store, error) {
	s := &Store{dbPath: dbPath}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	// Set busy timeout for concurrent access
	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		hash TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		functions INTEGER NOT NULL,
		code_len INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return s, nil
}

// OpenDefault opens the store at $MINIVM_STORE, or ~/.minivm/images.db.
func OpenDefault() (*Store, error) {
	dbPath := os.Getenv("MINIVM_STORE")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		dir := filepath.Join(home, ".minivm")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
		dbPath = filepath.Join(dir, "images.db")
	}
	return Open(dbPath)
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a program under a human-readable name and returns its
// content hash. Storing the same program again is a no-op that returns
// the same hash.
func (s *Store) Put(name string, p *bytecode.Program) (string, error) {
	data, err := bytecode.EncodeImage(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO images (hash, name, functions, code_len, created_at, data) VALUES (?, ?, ?, ?, ?, ?)",
		hash, name, len(p.Functions), len(p.Code), time.Now().Unix(), data,
	)
	if err != nil {
		return "", fmt.Errorf("saving image: %w", err)
	}

	return hash, nil
}

// Get retrieves a program by its content hash.
func (s *Store) Get(hash string) (*bytecode.Program, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE hash = ?", hash).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}
	return bytecode.DecodeImage(data)
}

// GetByName retrieves the most recently stored program with the given
// name.
func (s *Store) GetByName(name string) (*bytecode.Program, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM images WHERE name = ? ORDER BY created_at DESC LIMIT 1", name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("querying image by name: %w", err)
	}
	return bytecode.DecodeImage(data)
}

// Has reports whether an image with the given hash is stored.
func (s *Store) Has(hash string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(1) FROM images WHERE hash = ?", hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying image: %w", err)
	}
	return n > 0, nil
}

// Delete removes an image from the store.
func (s *Store) Delete(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM images WHERE hash = ?", hash)
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrImageNotFound
	}
	return nil
}

// List returns all stored images, newest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT hash, name, functions, code_len, created_at FROM images ORDER BY created_at DESC, hash",
	)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.Hash, &e.Name, &e.Functions, &e.CodeLen, &created); err != nil {
			return nil, fmt.Errorf("scanning image row: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
