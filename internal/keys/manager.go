// Copyright 2026 The Signet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/creatorhub/signet/internal/audit"
	"github.com/creatorhub/signet/internal/observability/logger"
)

// Manager orchestrates the key lifecycle: it hands out the current signing
// key, publishes the verification set, and verifies inbound tokens. One
// instance per process, constructed at the composition root and shared by
// reference.
//
// Rotation and retirement both happen lazily inside reads: CurrentSigningKey
// may mint a key, PublicKeySet may retire keys. There is no background
// scheduler, and no lock serializes rotation. Two concurrent callers that
// both observe "needs rotation" may each mint a key; both are valid, and
// recency ordering picks one as current on the next read.
type Manager struct {
	registry *Registry
	factory  *Factory
	policy   Policy
	audit    audit.Logger
	now      func() time.Time
}

// NewManager creates a manager. The audit logger may not be nil.
func NewManager(registry *Registry, factory *Factory, policy Policy, auditLogger audit.Logger) *Manager {
	return &Manager{
		registry: registry,
		factory:  factory,
		policy:   policy,
		audit:    auditLogger,
		now:      time.Now,
	}
}

// NewManagerWithClock is NewManager with an injected clock for tests.
func NewManagerWithClock(registry *Registry, factory *Factory, policy Policy, auditLogger audit.Logger, now func() time.Time) *Manager {
	m := NewManager(registry, factory, policy, auditLogger)
	m.now = now
	return m
}

// Initialize loads the active set and mints a first key if none exists.
// Idempotent. Under a true concurrent cold start two first keys can be
// minted; both are valid and recency ordering picks the current one.
func (m *Manager) Initialize(ctx context.Context) error {
	records, err := m.registry.LoadActive(ctx)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		return nil
	}

	rec, err := m.mint(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "initialized signing key set", logger.KeyID(rec.KID))
	return nil
}

// CurrentSigningKey returns the newest active key, minting a replacement
// first when the rotation policy says the current one is within its
// rotation buffer. Not a pure read. The returned key is never closer than
// the buffer to expiry unless generation itself fails, in which case the
// error is returned rather than an expiring key silently reused.
func (m *Manager) CurrentSigningKey(ctx context.Context) (*KeyRecord, error) {
	records, err := m.registry.LoadActive(ctx)
	if err != nil {
		return nil, err
	}

	if m.policy.NeedsRotation(records, m.now()) {
		rec, err := m.mint(ctx)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	return records[len(records)-1], nil
}

// PublicKeySet publishes the verification set. Keys past their lifetime are
// retired first (the only place retirement happens; consumers poll JWKS
// periodically, which bounds retirement delay). Not a pure read.
func (m *Manager) PublicKeySet(ctx context.Context) (JWKS, error) {
	records, err := m.registry.LoadActive(ctx)
	if err != nil {
		return JWKS{}, err
	}

	retired := make(map[string]bool)
	for _, rec := range m.policy.KeysToRetire(records, m.now()) {
		if err := m.registry.Retire(ctx, rec.KID); err != nil {
			return JWKS{}, err
		}
		retired[rec.KID] = true
		m.audit.Log(ctx, audit.Event{
			Type:     audit.TypeKeyRetired,
			Resource: rec.KID,
			Metadata: map[string]any{"created_at": rec.CreatedAt},
		})
	}

	set := JWKS{Keys: make([]JWK, 0, len(records))}
	for _, rec := range records {
		if retired[rec.KID] {
			continue
		}
		set.Keys = append(set.Keys, ExportJWK(rec))
	}
	return set, nil
}

// Verification holds the outcome of a successful token verification.
type Verification struct {
	Claims    jwt.MapClaims
	KID       string
	ExpiresAt time.Time
}

// Verify checks an inbound compact token: extracts the kid from its header,
// loads that specific key (current or superseded, as long as it is not
// retired), and verifies the signature and standard claims.
func (m *Manager) Verify(ctx context.Context, tokenString string) (*Verification, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, ErrMissingKeyID
		}
		rec, err := m.registry.LoadOne(ctx, kid)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, ErrUnknownKey
		}
		return rec.Public, nil
	})
	if err != nil {
		return nil, mapVerifyError(err)
	}

	kid, _ := token.Header["kid"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrSignatureInvalid
	}

	return &Verification{
		Claims:    claims,
		KID:       kid,
		ExpiresAt: exp.Time,
	}, nil
}

// Ping reports whether the backing store is reachable. Used by readiness
// probes.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := m.registry.LoadActive(ctx)
	return err
}

// mint generates a key, persists it as active, and audits the transition.
func (m *Manager) mint(ctx context.Context) (*KeyRecord, error) {
	rec, err := m.factory.Generate()
	if err != nil {
		return nil, err
	}
	if err := m.registry.Store(ctx, rec); err != nil {
		return nil, err
	}

	m.audit.Log(ctx, audit.Event{
		Type:     audit.TypeKeyGenerated,
		Resource: rec.KID,
		Metadata: map[string]any{"algorithm": Algorithm},
	})
	return rec, nil
}

// mapVerifyError collapses jwt parse failures onto the domain taxonomy.
// System faults pass through untouched so callers can tell a bad token from
// a broken store.
func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, ErrMissingKeyID),
		errors.Is(err, ErrUnknownKey),
		errors.Is(err, ErrStoreUnavailable):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
}
