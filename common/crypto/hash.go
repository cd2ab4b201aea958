// Copyright 2023 StreamNative, Inc.
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

// Package crypto wraps the primitives used by records and shards: content
// hashing, symmetric and asymmetric encryption, and detached signatures.
package crypto

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash returns the hex encoded BLAKE3-256 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func HashString(s string) string {
	return Hash([]byte(s))
}

// IsValidHash reports whether hash is the digest of data. The comparison is
// constant time.
func IsValidHash(hash string, data []byte) bool {
	expected := Hash(data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(hash)) == 1
}
