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

import "time"

// DefaultMinRetainedKeys covers tokens issued right at a rotation boundary.
const DefaultMinRetainedKeys = 2

// Policy decides when keys rotate and retire. Pure decision logic over a
// snapshot of active keys and a timestamp; no I/O, so lifetimes can be
// unit-tested with synthetic clocks.
type Policy struct {
	// Lifetime is the total duration a key is eligible as signing key.
	Lifetime time.Duration

	// RotationBuffer is the margin before Lifetime expiry at which a new
	// key must already be minted.
	RotationBuffer time.Duration

	// MinRetainedKeys is the floor on active keys regardless of age.
	MinRetainedKeys int
}

// NeedsRotation reports whether a new signing key must be minted. True when
// no keys exist or the newest key is within RotationBuffer of its lifetime.
// The inequality is strict: at the exact threshold rotation waits for the
// next check, which runs on every signing-key request.
func (p Policy) NeedsRotation(active []*KeyRecord, now time.Time) bool {
	if len(active) == 0 {
		return true
	}
	newest := active[len(active)-1]
	return now.Sub(newest.CreatedAt) > p.Lifetime-p.RotationBuffer
}

// KeysToRetire returns the keys past their lifetime that may be retired.
// The newest MinRetainedKeys keys are never eligible, whatever their age:
// recency wins over expiry, so the active count never drops below the
// floor. Input must be ordered by CreatedAt ascending, as LoadActive
// returns it.
func (p Policy) KeysToRetire(active []*KeyRecord, now time.Time) []*KeyRecord {
	floor := p.MinRetainedKeys
	if floor < 1 {
		floor = DefaultMinRetainedKeys
	}
	if len(active) <= floor {
		return nil
	}

	var retire []*KeyRecord
	for _, rec := range active[:len(active)-floor] {
		if now.Sub(rec.CreatedAt) > p.Lifetime {
			retire = append(retire, rec)
		}
	}
	return retire
}
