package barcache

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PullbackScanner/internal/model"
)

func sampleBars() []model.OHLCV {
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	return []model.OHLCV{
		{Time: base, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Time: base.Add(15 * time.Minute), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 80},
	}
}

// countingFetcher records how many times the provider was hit.
type countingFetcher struct {
	bars  []model.OHLCV
	err   error
	calls int
}

func (f *countingFetcher) Name() string { return "counting" }

func (f *countingFetcher) FetchBars(_ context.Context, _, _, _ string) ([]model.OHLCV, error) {
	f.calls++
	return f.bars, f.err
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]model.OHLCV, bool, error) {
	return nil, false, errors.New("store down")
}
func (failingStore) Put(context.Context, string, []model.OHLCV) error { return errors.New("store down") }
func (failingStore) Close() error                                    { return nil }

func TestKey(t *testing.T) {
	assert.Equal(t, "^GSPC:15m:10d", Key("^GSPC", "15m", "10d"))
	assert.Equal(t, "A_B:15m:10d", Key("A:B", "15m", "10d"))
}

func TestRedisStore_Defaults(t *testing.T) {
	t.Parallel()

	s := NewRedisStore(nil, 0, "")
	assert.Equal(t, DefaultTTL, s.ttl)
	assert.Equal(t, "bars", s.namespace)
}

func TestRedisStore_Miss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("bars:AAPL:15m:10d").RedisNil()

	s := NewRedisStore(rdb, time.Minute, "")
	bars, ok, err := s.Get(context.Background(), Key("AAPL", "15m", "10d"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, bars)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_PutThenHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	bars := sampleBars()
	payload, _ := json.Marshal(bars)
	mock.ExpectSet("bars:AAPL:15m:10d", payload, time.Minute).SetVal("OK")
	mock.ExpectGet("bars:AAPL:15m:10d").SetVal(string(payload))

	s := NewRedisStore(rdb, time.Minute, "")
	ctx := context.Background()
	key := Key("AAPL", "15m", "10d")
	require.NoError(t, s.Put(ctx, key, bars))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bars, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Corrupted(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("bars:X:15m:10d").SetVal("not json")
	mock.ExpectDel("bars:X:15m:10d").SetVal(1)

	s := NewRedisStore(rdb, time.Minute, "")
	_, ok, err := s.Get(context.Background(), Key("X", "15m", "10d"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_BackendError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("bars:X:15m:10d").SetErr(errors.New("connection refused"))

	s := NewRedisStore(rdb, time.Minute, "")
	_, _, err := s.Get(context.Background(), Key("X", "15m", "10d"))
	assert.Error(t, err)
}

func openTestSQLite(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := openTestSQLite(t, time.Minute)
	ctx := context.Background()
	key := Key("MSFT", "15m", "10d")

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache must miss")

	bars := sampleBars()
	require.NoError(t, s.Put(ctx, key, bars))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bars, got)

	// overwrite keeps a single row
	require.NoError(t, s.Put(ctx, key, bars[:1]))
	got, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestSQLiteStore_Expiry(t *testing.T) {
	s := openTestSQLite(t, time.Minute)
	ctx := context.Background()
	clock := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	key := Key("NVDA", "15m", "10d")
	require.NoError(t, s.Put(ctx, key, sampleBars()))

	clock = clock.Add(59 * time.Second)
	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "entry must be live before ttl")

	clock = clock.Add(2 * time.Second)
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire after ttl")

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func countRows(t *testing.T, s *SQLiteStore) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM bar_cache`).Scan(&n))
	return n
}

func TestSQLiteStore_PurgesExpiredOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, time.Minute)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	require.NoError(t, s.Put(ctx, Key("OLD", "15m", "10d"), sampleBars()))
	s.now = time.Now
	require.NoError(t, s.Put(ctx, Key("NEW", "15m", "10d"), sampleBars()))
	require.Equal(t, 2, countRows(t, s))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	assert.Equal(t, 1, countRows(t, reopened), "expired row must be removed on open")
	_, ok, err := reopened.Get(ctx, Key("NEW", "15m", "10d"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_CorruptedRowDropped(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	s := openTestSQLite(t, time.Minute)
	ctx := context.Background()
	key := Key("BAD", "15m", "10d")
	_, err := s.db.Exec(`INSERT INTO bar_cache (cache_key, payload, bar_count, created_at, expires_at)
		VALUES (?, ?, 1, ?, ?)`, key, []byte("{not json"), time.Now().UnixNano(), time.Now().Add(time.Hour).UnixNano())
	require.NoError(t, err)

	bars, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, bars)
	assert.Equal(t, 0, countRows(t, s))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned, "corrupted row must be logged")
}

func TestCachingFetcher(t *testing.T) {
	tests := []struct {
		name      string
		store     func(t *testing.T) Store
		inner     *countingFetcher
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "second call served from cache",
			store:     func(t *testing.T) Store { return openTestSQLite(t, time.Minute) },
			inner:     &countingFetcher{bars: sampleBars()},
			wantCalls: 1,
		},
		{
			name:      "noop store always fetches",
			store:     func(*testing.T) Store { return NewNoopStore() },
			inner:     &countingFetcher{bars: sampleBars()},
			wantCalls: 2,
		},
		{
			name:      "broken store degrades to direct fetch",
			store:     func(*testing.T) Store { return failingStore{} },
			inner:     &countingFetcher{bars: sampleBars()},
			wantCalls: 2,
		},
		{
			name:      "errors are not cached",
			store:     func(t *testing.T) Store { return openTestSQLite(t, time.Minute) },
			inner:     &countingFetcher{err: errors.New("rate limited")},
			wantCalls: 2,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewCachingFetcher(tt.inner, tt.store(t))
			ctx := context.Background()
			for i := 0; i < 2; i++ {
				bars, err := f.FetchBars(ctx, "AAPL", "15m", "10d")
				if tt.wantErr {
					assert.Error(t, err)
					continue
				}
				require.NoError(t, err)
				assert.Len(t, bars, 2)
			}
			assert.Equal(t, tt.wantCalls, tt.inner.calls)
		})
	}
}
