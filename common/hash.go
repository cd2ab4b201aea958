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

package common

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Hash64 is the 64-bit hash used for shard assignment and placement.
func Hash64(key string) uint64 {
	return xxh3.HashString(key)
}

// Hash64Seeded mixes a 64-bit value into a seeded hash stream. It is used to
// combine a shard hash with a destination id.
func Hash64Seeded(seed uint64, value uint64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return xxh3.HashSeed(buf[:], seed)
}
