package barcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PullbackScanner/internal/model"
)

// SQLiteStore keeps cached series in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Writes are serialized by mu; one connection avoids SQLITE_BUSY between
	// pooled connections.
	db.SetMaxOpenConns(1)

	// WAL lets a second scanner process read while this one writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if n, err := s.Purge(context.Background()); err != nil {
		log.Warnf("purge expired bars failed: %v", err)
	} else if n > 0 {
		log.Infof("purged %d expired cache rows", n)
	}

	log.Infof("sqlite bar cache opened: %s (ttl %s)", dbPath, ttl)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bar_cache (
			cache_key  TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			bar_count  INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bar_cache_expires ON bar_cache(expires_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]model.OHLCV, bool, error) {
	var payload []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM bar_cache WHERE cache_key = ?`, key,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query bar cache: %w", err)
	}
	if s.now().UnixNano() >= expiresAt {
		return nil, false, nil
	}

	var bars []model.OHLCV
	if err := json.Unmarshal(payload, &bars); err != nil {
		// corrupted row: drop it and report a miss
		log.Warnf("corrupted cache row %s: %v", key, err)
		if _, derr := s.db.ExecContext(ctx, `DELETE FROM bar_cache WHERE cache_key = ?`, key); derr != nil {
			log.Warnf("drop corrupted cache row %s failed: %v", key, derr)
		}
		return nil, false, nil
	}
	return bars, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, bars []model.OHLCV) error {
	payload, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encode bars: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	_, err = s.db.ExecContext(ctx, `INSERT INTO bar_cache
		(cache_key, payload, bar_count, created_at, expires_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			bar_count = excluded.bar_count,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, payload, len(bars), now.UnixNano(), now.Add(s.ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert bar cache: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bar_cache WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge bar cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	log.Info("closing sqlite bar cache")
	return s.db.Close()
}
