package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(base time.Time, d int) time.Time {
	return base.Add(time.Duration(d) * 24 * time.Hour)
}

func recordAt(t time.Time) *KeyRecord {
	return &KeyRecord{KID: t.Format(time.RFC3339Nano), CreatedAt: t, Active: true}
}

func testPolicy() Policy {
	return Policy{
		Lifetime:        30 * 24 * time.Hour,
		RotationBuffer:  7 * 24 * time.Hour,
		MinRetainedKeys: 2,
	}
}

// TestPurpose: Validates that an empty active set always demands rotation.
// Scope: Unit Test
// Expected: NeedsRotation is true with no keys, so a cold start mints one.
func TestPolicy_NeedsRotation_EmptySet(t *testing.T) {
	p := testPolicy()
	assert.True(t, p.NeedsRotation(nil, time.Now()))
}

func TestPolicy_NeedsRotation_Timeline(t *testing.T) {
	p := testPolicy()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := []*KeyRecord{recordAt(base)}

	// Threshold is lifetime - buffer = 23 days.
	assert.False(t, p.NeedsRotation(active, base), "fresh key must not rotate")
	assert.False(t, p.NeedsRotation(active, day(base, 22)))
	assert.False(t, p.NeedsRotation(active, day(base, 23)), "equality is not yet rotation")
	assert.True(t, p.NeedsRotation(active, day(base, 23).Add(time.Second)))
	assert.True(t, p.NeedsRotation(active, day(base, 24)))
}

func TestPolicy_NeedsRotation_UsesNewestKey(t *testing.T) {
	p := testPolicy()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := []*KeyRecord{recordAt(base), recordAt(day(base, 24))}

	// The old key is past threshold but the newest is not.
	assert.False(t, p.NeedsRotation(active, day(base, 25)))
}

// TestPurpose: Validates the retention floor: retirement never drops the
// active count below MinRetainedKeys, whatever the keys' ages.
// Scope: Unit Test
// Expected: With two keys both past their lifetime, nothing retires.
func TestPolicy_KeysToRetire_RetentionFloor(t *testing.T) {
	p := testPolicy()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := []*KeyRecord{recordAt(base), recordAt(day(base, 1))}

	// Day 100: both far past the 30-day lifetime.
	assert.Empty(t, p.KeysToRetire(active, day(base, 100)))
}

func TestPolicy_KeysToRetire_ExpiredBeyondFloor(t *testing.T) {
	p := testPolicy()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k0 := recordAt(base)
	k1 := recordAt(day(base, 24))
	k2 := recordAt(day(base, 40))
	active := []*KeyRecord{k0, k1, k2}

	// Day 45: only k0 is past its lifetime, and the two newest are
	// protected anyway.
	retire := p.KeysToRetire(active, day(base, 45))
	assert.Len(t, retire, 1)
	assert.Equal(t, k0.KID, retire[0].KID)
}

func TestPolicy_KeysToRetire_RecencyBeatsAge(t *testing.T) {
	p := testPolicy()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k0 := recordAt(base)
	k1 := recordAt(day(base, 1))
	k2 := recordAt(day(base, 2))
	active := []*KeyRecord{k0, k1, k2}

	// Day 60: all expired. Only the oldest beyond the floor retires.
	retire := p.KeysToRetire(active, day(base, 60))
	assert.Len(t, retire, 1)
	assert.Equal(t, k0.KID, retire[0].KID)
}

func TestPolicy_KeysToRetire_YoungKeysUntouched(t *testing.T) {
	p := testPolicy()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := []*KeyRecord{recordAt(base), recordAt(day(base, 5)), recordAt(day(base, 10))}

	assert.Empty(t, p.KeysToRetire(active, day(base, 20)))
}

// Scenario from the rotation design: lifetime 30d, buffer 7d, floor 2.
// One key K0 at day 0; rotation mints K1 at day 24; at day 31 K0 is past
// its lifetime but retiring it would leave a single key, so it stays.
func TestPolicy_RotationBoundaryScenario(t *testing.T) {
	p := testPolicy()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k0 := recordAt(base)

	assert.True(t, p.NeedsRotation([]*KeyRecord{k0}, day(base, 24)))

	k1 := recordAt(day(base, 24))
	active := []*KeyRecord{k0, k1}

	assert.Empty(t, p.KeysToRetire(active, day(base, 31)), "K0 retained until a third key exists")

	// Once K2 exists, K0 finally goes.
	k2 := recordAt(day(base, 47))
	retire := p.KeysToRetire([]*KeyRecord{k0, k1, k2}, day(base, 47))
	assert.Len(t, retire, 1)
	assert.Equal(t, k0.KID, retire[0].KID)
}

func TestPolicy_KeysToRetire_ZeroFloorDefaultsToTwo(t *testing.T) {
	p := testPolicy()
	p.MinRetainedKeys = 0
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := []*KeyRecord{recordAt(base), recordAt(day(base, 1))}

	assert.Empty(t, p.KeysToRetire(active, day(base, 100)))
}
