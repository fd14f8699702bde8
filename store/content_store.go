package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/sgm/compiler"
	"github.com/chazu/sgm/vm"
)

var log = commonlog.GetLogger("sgm.store")

// ErrNotFound indicates no program is stored under the requested hash.
var ErrNotFound = errors.New("program not found")

// ---------------------------------------------------------------------------
// ContentStore: SQLite-backed cache of compiled programs
// ---------------------------------------------------------------------------

// ContentStore maps the SHA-256 of a source text to its compiled program,
// stored as a CBOR image. Identical sources compile once.
type ContentStore struct {
	db   *sql.DB
	path string
}

// Open opens or creates a store at path. The special path ":memory:" keeps
// everything in memory for the lifetime of the store.
func Open(path string) (*ContentStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash       TEXT PRIMARY KEY,
		image      BLOB NOT NULL,
		size       INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened program store %s", path)
	return &ContentStore{db: db, path: path}, nil
}

// Path returns the database path the store was opened with.
func (s *ContentStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *ContentStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Hash returns the content address of a source text.
func Hash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the program stored under hash, or ErrNotFound.
func (s *ContentStore) Get(ctx context.Context, hash string) (vm.Program, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT image FROM programs WHERE hash = ?", hash).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading program %s: %w", hash, err)
	}
	prog, err := vm.UnmarshalProgram(data)
	if err != nil {
		return nil, fmt.Errorf("decoding program %s: %w", hash, err)
	}
	return prog, nil
}

// Put stores prog under hash, replacing any previous entry.
func (s *ContentStore) Put(ctx context.Context, hash string, prog vm.Program) error {
	data, err := vm.MarshalProgram(prog)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO programs (hash, image, size, created_at) VALUES (?, ?, ?, ?)",
		hash, data, len(prog), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving program %s: %w", hash, err)
	}
	return nil
}

// Delete removes the program stored under hash. Deleting a missing entry
// is not an error.
func (s *ContentStore) Delete(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM programs WHERE hash = ?", hash); err != nil {
		return fmt.Errorf("deleting program %s: %w", hash, err)
	}
	return nil
}

// Len returns the number of stored programs.
func (s *ContentStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

// CompileCached returns the compiled program for source, compiling and
// storing it on a miss. The boolean reports a cache hit. Compile errors
// are returned unchanged and nothing is stored for them. A failed store
// is logged and the freshly compiled program is still returned.
func (s *ContentStore) CompileCached(ctx context.Context, source string) (vm.Program, bool, error) {
	hash := Hash(source)
	prog, err := s.Get(ctx, hash)
	if err == nil {
		log.Debugf("cache hit %s", hash[:12])
		return prog, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		// A corrupt entry is recompiled and overwritten.
		log.Warningf("cache entry %s unreadable: %s", hash[:12], err)
	}

	prog, err = compiler.Compile(source)
	if err != nil {
		return nil, false, err
	}
	if err := s.Put(ctx, hash, prog); err != nil {
		// An unwritable cache must not stop the program from running.
		log.Warningf("cache entry %s not stored: %s", hash[:12], err)
		return prog, false, nil
	}
	log.Debugf("cache miss %s, stored %d instructions", hash[:12], len(prog))
	return prog, false, nil
}
