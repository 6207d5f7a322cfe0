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

import "errors"

// Domain errors. The first two are system faults; the rest are
// verification-time rejections, so transport callers can answer
// "unauthorized" versus "service unavailable" correctly.
var (
	// ErrKeyGeneration means no signing key is obtainable. Fatal for any
	// caller awaiting a signing key.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrStoreUnavailable surfaces an underlying store failure. Not
	// retried here; retry policy belongs to the caller.
	ErrStoreUnavailable = errors.New("key store unavailable")

	// ErrMissingKeyID means the token header carries no kid.
	ErrMissingKeyID = errors.New("token missing key identifier")

	// ErrUnknownKey means the kid names no active key. Retired keys are
	// indistinguishable from never-existing ones.
	ErrUnknownKey = errors.New("unknown or retired key")

	// ErrSignatureInvalid means the token signature did not verify.
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrTokenExpired means the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)
