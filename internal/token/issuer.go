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

// Package token issues compact signed tokens over the key manager. The
// validity window is a policy of this issuer, not of the key lifecycle.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/creatorhub/signet/internal/audit"
	"github.com/creatorhub/signet/internal/keys"
)

// DefaultTTL is the validity window used when none is configured.
const DefaultTTL = time.Hour

// Issuer mints tokens signed with the current signing key.
type Issuer struct {
	manager *keys.Manager
	issuer  string
	ttl     time.Duration
	audit   audit.Logger
	now     func() time.Time
}

// Issued describes a minted token.
type Issued struct {
	Token     string    `json:"token"`
	KID       string    `json:"kid"`
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewIssuer creates an issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(manager *keys.Manager, issuer string, ttl time.Duration, auditLogger audit.Logger) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		manager: manager,
		issuer:  issuer,
		ttl:     ttl,
		audit:   auditLogger,
		now:     time.Now,
	}
}

// NewIssuerWithClock is NewIssuer with an injected clock for tests.
func NewIssuerWithClock(manager *keys.Manager, issuer string, ttl time.Duration, auditLogger audit.Logger, now func() time.Time) *Issuer {
	i := NewIssuer(manager, issuer, ttl, auditLogger)
	i.now = now
	return i
}

// Issue signs the caller's claims with the current signing key, resolving
// it through the manager so the rotation check runs on every issuance. The
// registered claims jti, iat, exp and iss are set here and override any
// caller-supplied values.
func (i *Issuer) Issue(ctx context.Context, custom map[string]any) (*Issued, error) {
	rec, err := i.manager.CurrentSigningKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve signing key: %w", err)
	}

	now := i.now()
	jti := uuid.NewString()
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{}
	for k, v := range custom {
		claims[k] = v
	}
	claims["jti"] = jti
	claims["iat"] = now.Unix()
	claims["exp"] = expiresAt.Unix()
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = rec.KID

	signed, err := t.SignedString(rec.Private)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	i.audit.Log(ctx, audit.Event{
		Type:     audit.TypeTokenIssued,
		Resource: jti,
		Metadata: map[string]any{"kid": rec.KID, "exp": expiresAt.Unix()},
	})

	return &Issued{
		Token:     signed,
		KID:       rec.KID,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}
