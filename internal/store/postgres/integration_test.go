package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/signet/internal/store"
)

// Needs a running PostgreSQL instance; set TEST_DB_HOST to enable, e.g.
//
//	TEST_DB_HOST=localhost TEST_DB_PASSWORD=postgres go test ./internal/store/postgres/
func newTestDB(t *testing.T) *DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres integration test")
	}

	cfg := Config{
		Host:         host,
		Port:         envOr("TEST_DB_PORT", "5432"),
		User:         envOr("TEST_DB_USER", "postgres"),
		Password:     os.Getenv("TEST_DB_PASSWORD"),
		Database:     envOr("TEST_DB_NAME", "signet_test"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 1,
	}

	ctx := context.Background()
	db, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx, Schema))
	_, err = db.pool.Exec(ctx, `TRUNCATE kv_records, set_members`)
	require.NoError(t, err)

	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestKeyStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewKeyStore(newTestDB(t))

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Upsert overwrites in place.
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestKeyStore_Sets(t *testing.T) {
	ctx := context.Background()
	s := NewKeyStore(newTestDB(t))

	members, err := s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, s.SetAdd(ctx, "set", "a"))
	require.NoError(t, s.SetAdd(ctx, "set", "b"))
	require.NoError(t, s.SetAdd(ctx, "set", "a"), "duplicate add is a no-op")

	members, err = s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	require.NoError(t, s.SetRemove(ctx, "set", "a"))
	require.NoError(t, s.SetRemove(ctx, "set", "gone"))

	members, err = s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestKeyStore_BinaryValues(t *testing.T) {
	ctx := context.Background()
	s := NewKeyStore(newTestDB(t))

	val := []byte{0x00, 0xff, 0x10, 0x7f}
	require.NoError(t, s.Set(ctx, "bin", val))
	got, err := s.Get(ctx, "bin")
	require.NoError(t, err)
	assert.Equal(t, val, got)
}
