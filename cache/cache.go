// Package cache stores compiled programs in SQLite, keyed by a digest of
// the source text and the native signatures it was compiled against.
package cache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tliron/commonlog"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/chazu/luiggi/bytecode"
	"github.com/chazu/luiggi/compiler"
)

// ErrMiss indicates no usable program is stored for the key.
var ErrMiss = errors.New("cache: miss")

var log = commonlog.GetLogger("luiggi.cache")

// Stats counts lookups since the cache was opened.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

// Cache is a compile cache backed by a single SQLite file.
type Cache struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	hits   int
	misses int
}

// Open opens or creates the cache database at path. The special path
// ":memory:" keeps everything in memory.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key returns the hex digest identifying source compiled against natives,
// a map from native name to signature text.
func Key(source string, natives map[string]string) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "luiggi/%d\x00", bytecode.FormatVersion)
	h.Write([]byte(source))
	h.Write([]byte{0})

	names := make([]string, 0, len(natives))
	for name := range natives {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "%s\x00%s\n", name, natives[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the stored program for source and natives, or ErrMiss.
// Rows that fail to decode or validate are deleted and reported as a miss.
func (c *Cache) Get(source string, natives map[string]string) (*bytecode.Program, error) {
	key := Key(source, natives)

	c.mu.Lock()
	defer c.mu.Unlock()

	var version int
	var data []byte
	err := c.db.QueryRow("SELECT version, data FROM programs WHERE key = ?", key).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.misses++
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	prog, err := decode(version, data, natives)
	if err != nil {
		log.Warningf("dropping corrupt cache entry %s: %v", key[:12], err)
		if _, err := c.db.Exec("DELETE FROM programs WHERE key = ?", key); err != nil {
			return nil, fmt.Errorf("deleting corrupt entry: %w", err)
		}
		c.misses++
		return nil, ErrMiss
	}

	c.hits++
	log.Debugf("hit %s", key[:12])
	return prog, nil
}

// decode unmarshals a stored row and checks it is safe to run against
// natives.
func decode(version int, data []byte, natives map[string]string) (*bytecode.Program, error) {
	if version != int(bytecode.FormatVersion) {
		return nil, fmt.Errorf("format version %d, want %d", version, bytecode.FormatVersion)
	}
	prog, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	arities := make(map[string]int, len(natives))
	for name, sig := range natives {
		params, err := compiler.ParseSignature(sig)
		if err != nil {
			return nil, fmt.Errorf("native %s: %w", name, err)
		}
		arities[name] = len(params)
	}
	if err := bytecode.Validate(prog, arities); err != nil {
		return nil, err
	}
	return prog, nil
}

// Put stores prog as the compiled form of source against natives.
func (c *Cache) Put(source string, natives map[string]string, prog *bytecode.Program) error {
	data, err := bytecode.Marshal(prog)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	key := Key(source, natives)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO programs (key, version, data) VALUES (?, ?, ?)",
		key, int(bytecode.FormatVersion), data,
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// Stats reports hit and miss counts and the number of stored programs.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&s.Entries); err != nil {
		return s, fmt.Errorf("counting programs: %w", err)
	}
	return s, nil
}
