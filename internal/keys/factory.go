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
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

const rsaKeyBits = 2048

// Factory generates fresh key pairs with content-addressed identifiers.
type Factory struct {
	now func() time.Time
}

// NewFactory creates a factory using the wall clock.
func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

// NewFactoryWithClock creates a factory with an injected clock. Tests use
// this to drive rotation timelines.
func NewFactoryWithClock(now func() time.Time) *Factory {
	return &Factory{now: now}
}

// Generate produces a new RSA key pair. The returned record is not yet
// persisted; registering it is the caller's job.
func (f *Factory) Generate() (*KeyRecord, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	return &KeyRecord{
		KID:       DeriveKeyID(&priv.PublicKey),
		Private:   priv,
		Public:    &priv.PublicKey,
		CreatedAt: f.now(),
		Active:    true,
	}, nil
}

// thumbprintJWK is the canonical JWK form hashed into the kid. Field order
// matches the lexicographic member ordering of RFC 7638.
type thumbprintJWK struct {
	E   string `json:"e"`
	Kty string `json:"kty"`
	N   string `json:"n"`
}

// DeriveKeyID computes the identifier for a public key: the hex SHA-256 of
// its canonical JWK JSON. Identical key bytes always yield the identical
// kid, so an accidental key reuse collides visibly instead of hiding.
func DeriveKeyID(pub *rsa.PublicKey) string {
	jwk := thumbprintJWK{
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		Kty: "RSA",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
	}

	// Struct field order is fixed, so marshaling is deterministic.
	serialized, _ := json.Marshal(jwk)
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}
