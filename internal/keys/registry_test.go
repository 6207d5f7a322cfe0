package keys

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/signet/internal/sealer"
	"github.com/creatorhub/signet/internal/store"
	"github.com/creatorhub/signet/internal/store/memory"
)

func testSealer(t *testing.T) *sealer.Sealer {
	t.Helper()
	sl, err := sealer.New(bytes.Repeat([]byte{7}, sealer.KeyLength))
	require.NoError(t, err)
	return sl
}

func newTestRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	mem := memory.New()
	return NewRegistry(mem, testSealer(t)), mem
}

func generateAt(t *testing.T, created time.Time) *KeyRecord {
	t.Helper()
	f := NewFactoryWithClock(func() time.Time { return created })
	rec, err := f.Generate()
	require.NoError(t, err)
	return rec
}

func TestRegistry_StoreAndLoadActive(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	k0 := generateAt(t, base)
	k1 := generateAt(t, base.Add(24*time.Hour))

	// Store newest first; LoadActive must still order by CreatedAt.
	require.NoError(t, reg.Store(ctx, k1))
	require.NoError(t, reg.Store(ctx, k0))

	active, err := reg.LoadActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, k0.KID, active[0].KID)
	assert.Equal(t, k1.KID, active[1].KID)

	// Round-tripped material must match what went in.
	assert.Equal(t, k0.Public.N, active[0].Public.N)
	assert.Equal(t, k0.Private.D, active[0].Private.D)
	assert.True(t, active[0].CreatedAt.Equal(base))
}

// TestPurpose: Validates the defensive read: a set member without a
// retrievable record reads as "not active" instead of erroring.
// Scope: Unit Test
// Expected: LoadActive skips the orphaned member.
func TestRegistry_LoadActive_SkipsOrphanedMembers(t *testing.T) {
	ctx := context.Background()
	reg, mem := newTestRegistry(t)

	k0 := generateAt(t, time.Now())
	require.NoError(t, reg.Store(ctx, k0))

	// Simulate a racing writer: member present, record missing.
	require.NoError(t, mem.SetAdd(ctx, "signet:keys:active", "ghost"))

	active, err := reg.LoadActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, k0.KID, active[0].KID)
}

func TestRegistry_LoadActive_SkipsUndecodableRecords(t *testing.T) {
	ctx := context.Background()
	reg, mem := newTestRegistry(t)

	require.NoError(t, mem.Set(ctx, "signet:key:bad", []byte("not json")))
	require.NoError(t, mem.SetAdd(ctx, "signet:keys:active", "bad"))

	active, err := reg.LoadActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRegistry_Retire(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	k0 := generateAt(t, time.Now())
	require.NoError(t, reg.Store(ctx, k0))
	require.NoError(t, reg.Retire(ctx, k0.KID))

	active, err := reg.LoadActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Retirement is a one-way door for verification purposes.
	rec, err := reg.LoadOne(ctx, k0.KID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRegistry_Retire_Idempotent(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	k0 := generateAt(t, time.Now())
	require.NoError(t, reg.Store(ctx, k0))

	require.NoError(t, reg.Retire(ctx, k0.KID))
	require.NoError(t, reg.Retire(ctx, k0.KID), "retiring twice is a no-op")
	require.NoError(t, reg.Retire(ctx, "never-existed"), "unknown kid is a no-op")
}

func TestRegistry_LoadOne(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	k0 := generateAt(t, time.Now())
	require.NoError(t, reg.Store(ctx, k0))

	rec, err := reg.LoadOne(ctx, k0.KID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, k0.KID, rec.KID)

	rec, err = reg.LoadOne(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// LoadOne answers by the stored record's own flag, not by set membership:
// a key removed from the active set but not yet flipped inactive still
// verifies.
func TestRegistry_LoadOne_IgnoresSetMembership(t *testing.T) {
	ctx := context.Background()
	reg, mem := newTestRegistry(t)

	k0 := generateAt(t, time.Now())
	require.NoError(t, reg.Store(ctx, k0))
	require.NoError(t, mem.SetRemove(ctx, "signet:keys:active", k0.KID))

	rec, err := reg.LoadOne(ctx, k0.KID)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

// failingStore errors on everything, standing in for an unreachable store.
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errDown }

func (failingStore) Set(context.Context, string, []byte) error { return errDown }

func (failingStore) SetAdd(context.Context, string, string) error { return errDown }

func (failingStore) SetRemove(context.Context, string, string) error { return errDown }

func (failingStore) SetMembers(context.Context, string) ([]string, error) { return nil, errDown }

var _ store.Store = failingStore{}

func TestRegistry_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(failingStore{}, testSealer(t))

	_, err := reg.LoadActive(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = reg.LoadOne(ctx, "any")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = reg.Retire(ctx, "any")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = reg.Store(ctx, generateAt(t, time.Now()))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
