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

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists for the given key.
var ErrNotFound = errors.New("store: key not found")

// Store is the key-value contract the key registry persists through.
// It pairs plain get/set of opaque records with membership operations on a
// named set. No transactional guarantee across keys is assumed: a reader may
// observe a set member whose record is not yet (or no longer) retrievable
// and must treat that as "not present".
type Store interface {
	// Get retrieves the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// SetAdd adds member to the set stored under setKey.
	SetAdd(ctx context.Context, setKey, member string) error

	// SetRemove removes member from the set under setKey. Removing an
	// absent member is a no-op.
	SetRemove(ctx context.Context, setKey, member string) error

	// SetMembers returns all members of the set under setKey. An absent
	// set yields an empty slice, not an error.
	SetMembers(ctx context.Context, setKey string) ([]string, error)
}
