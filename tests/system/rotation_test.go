// Package system exercises the full stack in one process: real HTTP
// routing, real Redis semantics via miniredis, real sealed records, with
// only the clock under test control.
package system

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/signet/internal/audit"
	"github.com/creatorhub/signet/internal/keys"
	"github.com/creatorhub/signet/internal/observability/metrics"
	"github.com/creatorhub/signet/internal/sealer"
	storeredis "github.com/creatorhub/signet/internal/store/redis"
	"github.com/creatorhub/signet/internal/token"
	transportHTTP "github.com/creatorhub/signet/internal/transport/http"
)

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time {
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type stack struct {
	router  http.Handler
	manager *keys.Manager
	clock   *clock
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ck := &clock{t: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sl, err := sealer.New(bytes.Repeat([]byte{5}, sealer.KeyLength))
	require.NoError(t, err)

	auditLogger := audit.NewSlogLogger()
	registry := keys.NewRegistry(storeredis.NewFromClient(rdb), sl)
	policy := keys.Policy{
		Lifetime:        30 * 24 * time.Hour,
		RotationBuffer:  7 * 24 * time.Hour,
		MinRetainedKeys: 2,
	}
	manager := keys.NewManagerWithClock(registry, keys.NewFactoryWithClock(ck.Now), policy, auditLogger, ck.Now)
	require.NoError(t, manager.Initialize(context.Background()))

	issuer := token.NewIssuerWithClock(manager, "signet", time.Hour, auditLogger, ck.Now)
	h, err := transportHTTP.NewHandler(manager, issuer, auditLogger, metrics.New(metrics.Config{}, "signet"))
	require.NoError(t, err)

	return &stack{
		router:  transportHTTP.NewRouter(h, transportHTTP.NewRateLimiter(1000, 1000)),
		manager: manager,
		clock:   ck,
	}
}

func (s *stack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *stack) jwksKIDs(t *testing.T) []string {
	t.Helper()
	rr := s.do(t, http.MethodGet, "/.well-known/jwks.json", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var set keys.JWKS
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &set))
	kids := make([]string, 0, len(set.Keys))
	for _, k := range set.Keys {
		kids = append(kids, k.Kid)
	}
	return kids
}

func (s *stack) signWith(t *testing.T, rec *keys.KeyRecord, lifetime time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "svc-system",
		"exp": s.clock.Now().Add(lifetime).Unix(),
	})
	tok.Header["kid"] = rec.KID
	signed, err := tok.SignedString(rec.Private)
	require.NoError(t, err)
	return signed
}

// TestPurpose: Walks a complete key lifecycle over the wire: cold start,
// rotation inside the buffer, retention floor at key expiry, retirement
// once a third generation exists, and rejection of tokens signed by the
// retired key.
// Scope: System Test
// Expected: JWKS and verification outcomes track the policy at every step.
func TestKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	// Day 0: one key from cold start.
	first, err := s.manager.CurrentSigningKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.KID}, s.jwksKIDs(t))

	// Issue over HTTP while the first key is current.
	rr := s.do(t, http.MethodPost, "/tokens", map[string]any{"sub": "svc-a"})
	require.Equal(t, http.StatusOK, rr.Code)
	var issued token.Issued
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &issued))
	assert.Equal(t, first.KID, issued.KID)

	// Day 24: inside the rotation buffer, the next signing-key request
	// mints a second generation.
	s.clock.Advance(24 * 24 * time.Hour)
	second, err := s.manager.CurrentSigningKey(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first.KID, second.KID)
	assert.ElementsMatch(t, []string{first.KID, second.KID}, s.jwksKIDs(t))

	// Day 31: the first key is past its lifetime but protected by the
	// retention floor of two.
	s.clock.Advance(7 * 24 * time.Hour)
	assert.ElementsMatch(t, []string{first.KID, second.KID}, s.jwksKIDs(t))

	oldToken := s.signWith(t, first, 365*24*time.Hour)
	verify := s.do(t, http.MethodPost, "/tokens/verify", transportHTTP.VerifyRequest{Token: oldToken})
	assert.Equal(t, http.StatusOK, verify.Code, "superseded but unretired key still verifies")

	// Day 48: third generation.
	s.clock.Advance(17 * 24 * time.Hour)
	third, err := s.manager.CurrentSigningKey(ctx)
	require.NoError(t, err)
	require.NotEqual(t, second.KID, third.KID)

	// Day 55: the first key is expired and beyond the floor; serving JWKS
	// retires it.
	s.clock.Advance(7 * 24 * time.Hour)
	assert.ElementsMatch(t, []string{second.KID, third.KID}, s.jwksKIDs(t))

	verify = s.do(t, http.MethodPost, "/tokens/verify", transportHTTP.VerifyRequest{Token: oldToken})
	require.Equal(t, http.StatusUnauthorized, verify.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(verify.Body.Bytes(), &body))
	assert.Equal(t, "unknown_or_retired_key", body["error"])

	// Retirement survives the store round trip: a fresh manager over the
	// same Redis sees the same set.
	assert.ElementsMatch(t, []string{second.KID, third.KID}, s.jwksKIDs(t))
}

// TestPurpose: Validates that sealed records survive a process restart:
// a second stack over the same Redis instance verifies tokens issued by
// the first.
// Scope: System Test
// Expected: The restarted stack reuses the existing key instead of
// minting a new one.
func TestRestartReusesKeys(t *testing.T) {
	ctx := context.Background()
	ck := &clock{t: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}

	mr := miniredis.RunT(t)
	sl, err := sealer.New(bytes.Repeat([]byte{5}, sealer.KeyLength))
	require.NoError(t, err)
	policy := keys.Policy{
		Lifetime:        30 * 24 * time.Hour,
		RotationBuffer:  7 * 24 * time.Hour,
		MinRetainedKeys: 2,
	}

	newManager := func() *keys.Manager {
		rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		registry := keys.NewRegistry(storeredis.NewFromClient(rdb), sl)
		return keys.NewManagerWithClock(registry, keys.NewFactoryWithClock(ck.Now), policy, audit.NewSlogLogger(), ck.Now)
	}

	m1 := newManager()
	require.NoError(t, m1.Initialize(ctx))
	issuer := token.NewIssuerWithClock(m1, "signet", time.Hour, audit.NewSlogLogger(), ck.Now)
	issued, err := issuer.Issue(ctx, map[string]any{"sub": "svc-a"})
	require.NoError(t, err)

	m2 := newManager()
	require.NoError(t, m2.Initialize(ctx))

	current, err := m2.CurrentSigningKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, issued.KID, current.KID)

	v, err := m2.Verify(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.KID, v.KID)
}
