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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/creatorhub/signet/internal/store"
)

// KeyStore implements the store contract on top of DB.
type KeyStore struct {
	db *DB
}

// NewKeyStore creates a new postgres-backed store.
func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db}
}

// Get retrieves the value stored under key.
func (s *KeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.pool.QueryRow(ctx, `
		SELECT value FROM kv_records WHERE key = $1
	`, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get %q: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}

	return value, nil
}

// Set stores value under key, overwriting any previous value.
func (s *KeyStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO kv_records (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)

	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	return nil
}

// SetAdd adds member to the set under setKey. Adding an existing member is
// a no-op.
func (s *KeyStore) SetAdd(ctx context.Context, setKey, member string) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO set_members (set_key, member)
		VALUES ($1, $2)
		ON CONFLICT (set_key, member) DO NOTHING
	`, setKey, member)

	if err != nil {
		return fmt.Errorf("set add %q: %w", setKey, err)
	}

	return nil
}

// SetRemove removes member from the set under setKey.
func (s *KeyStore) SetRemove(ctx context.Context, setKey, member string) error {
	_, err := s.db.pool.Exec(ctx, `
		DELETE FROM set_members WHERE set_key = $1 AND member = $2
	`, setKey, member)

	if err != nil {
		return fmt.Errorf("set remove %q: %w", setKey, err)
	}

	return nil
}

// SetMembers returns all members of the set under setKey.
func (s *KeyStore) SetMembers(ctx context.Context, setKey string) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT member FROM set_members WHERE set_key = $1
	`, setKey)
	if err != nil {
		return nil, fmt.Errorf("set members %q: %w", setKey, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("set members %q: %w", setKey, err)
	}

	return members, nil
}
