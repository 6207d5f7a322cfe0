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
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/creatorhub/signet/internal/observability/logger"
	"github.com/creatorhub/signet/internal/sealer"
	"github.com/creatorhub/signet/internal/store"
)

const (
	recordKeyPrefix = "signet:key:"
	activeSetKey    = "signet:keys:active"
)

// Registry is the durable bookkeeping of active keys over a Store. Private
// material is sealed on the way in and opened on the way out; the store
// never sees plaintext.
type Registry struct {
	store  store.Store
	sealer *sealer.Sealer
}

// NewRegistry creates a registry over the given store and sealer.
func NewRegistry(s store.Store, sl *sealer.Sealer) *Registry {
	return &Registry{store: s, sealer: sl}
}

func recordKey(kid string) string {
	return recordKeyPrefix + kid
}

// LoadActive fetches the active set and every member's record, ordered by
// CreatedAt ascending so the last element is always the newest. Members
// whose record is missing, undecodable, or already flagged inactive are
// skipped: inconsistency reads as "not active", never as an error.
func (r *Registry) LoadActive(ctx context.Context) ([]*KeyRecord, error) {
	members, err := r.store.SetMembers(ctx, activeSetKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	records := make([]*KeyRecord, 0, len(members))
	for _, kid := range members {
		raw, err := r.store.Get(ctx, recordKey(kid))
		if errors.Is(err, store.ErrNotFound) {
			// Concurrent writer added the member before we could see
			// the record, or a retirement raced us. Skip.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		rec, err := r.decode(raw)
		if err != nil {
			slog.WarnContext(ctx, "skipping undecodable key record",
				logger.KeyID(kid), logger.Error(err))
			continue
		}
		if !rec.Active {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].KID < records[j].KID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

// Store persists the record, then adds its identifier to the active set.
// The record is written first so a concurrent LoadActive never observes a
// member without a retrievable record.
func (r *Registry) Store(ctx context.Context, rec *KeyRecord) error {
	raw, err := r.encode(rec)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, recordKey(rec.KID), raw); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := r.store.SetAdd(ctx, activeSetKey, rec.KID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Retire removes the identifier from the active set and flips the stored
// record inactive. Retiring an already-retired or unknown identifier is a
// no-op. Retirement is a one-way door; nothing flips a record back.
func (r *Registry) Retire(ctx context.Context, kid string) error {
	if err := r.store.SetRemove(ctx, activeSetKey, kid); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	raw, err := r.store.Get(ctx, recordKey(kid))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil
	}
	if !stored.Active {
		return nil
	}
	stored.Active = false

	updated, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", kid, err)
	}
	if err := r.store.Set(ctx, recordKey(kid), updated); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// LoadOne fetches a specific record regardless of active-set membership, as
// long as the stored record itself is still flagged active. A retired or
// unknown identifier yields (nil, nil).
func (r *Registry) LoadOne(ctx context.Context, kid string) (*KeyRecord, error) {
	raw, err := r.store.Get(ctx, recordKey(kid))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := r.decode(raw)
	if err != nil {
		return nil, nil
	}
	if !rec.Active {
		return nil, nil
	}
	return rec, nil
}

func (r *Registry) encode(rec *KeyRecord) ([]byte, error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(rec.Private)
	if err != nil {
		return nil, fmt.Errorf("encode private key %s: %w", rec.KID, err)
	}
	sealed, err := r.sealer.Seal(privDER)
	if err != nil {
		return nil, fmt.Errorf("seal private key %s: %w", rec.KID, err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(rec.Public)
	if err != nil {
		return nil, fmt.Errorf("encode public key %s: %w", rec.KID, err)
	}

	return json.Marshal(storedRecord{
		KID:           rec.KID,
		PrivateSealed: sealed,
		PublicDER:     pubDER,
		CreatedAt:     rec.CreatedAt,
		Active:        rec.Active,
	})
}

func (r *Registry) decode(raw []byte) (*KeyRecord, error) {
	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	privDER, err := r.sealer.Open(stored.PrivateSealed)
	if err != nil {
		return nil, fmt.Errorf("unseal record %s: %w", stored.KID, err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(privDER)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %w", stored.KID, err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("record %s: not an RSA private key", stored.KID)
	}

	parsedPub, err := x509.ParsePKIXPublicKey(stored.PublicDER)
	if err != nil {
		return nil, fmt.Errorf("parse public key %s: %w", stored.KID, err)
	}
	pub, ok := parsedPub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("record %s: not an RSA public key", stored.KID)
	}

	return &KeyRecord{
		KID:       stored.KID,
		Private:   priv,
		Public:    pub,
		CreatedAt: stored.CreatedAt,
		Active:    stored.Active,
	}, nil
}
