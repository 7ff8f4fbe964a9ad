package wsdlcache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/core-tools/hsu-siat/pkg/errors"
	"github.com/core-tools/hsu-siat/pkg/logging"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultTTL is how long a fetched WSDL document stays valid
const DefaultTTL = 8 * time.Hour

// Cache stores fetched WSDL documents keyed by URL
type Cache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, body []byte) error
	Invalidate(ctx context.Context, url string) error
	Path() string
	Close() error
}

type Options struct {
	Dir    string
	TTL    time.Duration
	Logger logging.Logger
	Now    func() time.Time
}

func (o *Options) OptDir() string {
	if o.Dir == "" {
		return os.TempDir()
	}
	return o.Dir
}

func (o *Options) OptTTL() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

func (o *Options) OptLogger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNullLogger()
	}
	return o.Logger
}

func (o *Options) OptNow() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}

// PathFor returns the cache file location derived from name
func PathFor(dir, name string) string {
	return filepath.Join(dir, sanitizeName(name)+".db")
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

// Open opens or creates the SQLite cache file for name
func Open(name string, options Options) (Cache, error) {
	if name == "" {
		return nil, errors.NewValidationError("cache name is required", nil)
	}

	dir := options.OptDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIOError("failed to create cache directory", err).
			WithContext("dir", dir)
	}

	path := PathFor(dir, name)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewIOError("failed to open cache database", err).
			WithContext("path", path)
	}

	c := &sqliteCache{
		db:     db,
		path:   path,
		ttl:    options.OptTTL(),
		now:    options.OptNow(),
		logger: options.OptLogger(),
	}

	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, errors.NewIOError("failed to initialize cache schema", err).
			WithContext("path", path)
	}

	c.logger.Debugf("WSDL cache opened, path: %s, ttl: %s", path, c.ttl)

	return c, nil
}

type sqliteCache struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger logging.Logger
	mu     sync.RWMutex
}

func (c *sqliteCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wsdl_cache (
		url TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached body for url if present and not expired
func (c *sqliteCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var body []byte
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM wsdl_cache WHERE url = ?`, url).Scan(&body, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewIOError("failed to read cache entry", err).
			WithContext("url", url)
	}

	age := c.now().Sub(time.Unix(fetchedAt, 0))
	if age > c.ttl {
		c.logger.Debugf("WSDL cache entry expired, url: %s, age: %s", url, age)
		return nil, false, nil
	}

	return body, true, nil
}

func (c *sqliteCache) Put(ctx context.Context, url string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO wsdl_cache (url, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		url, body, c.now().Unix())
	if err != nil {
		return errors.NewIOError("failed to write cache entry", err).
			WithContext("url", url)
	}
	return nil
}

func (c *sqliteCache) Invalidate(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM wsdl_cache WHERE url = ?`, url); err != nil {
		return errors.NewIOError("failed to delete cache entry", err).
			WithContext("url", url)
	}
	return nil
}

func (c *sqliteCache) Path() string {
	return c.path
}

func (c *sqliteCache) Close() error {
	return c.db.Close()
}
