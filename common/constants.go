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

import "time"

const (
	// ShardSize is the fixed capacity of a single shard in bytes.
	ShardSize int64 = 100_000_000

	// PledgeSize is the unit of host capacity used to weight placement.
	PledgeSize = ShardSize * 100

	// GraceWindow bounds how far in the future a timestamp may be.
	GraceWindow = 10 * time.Minute

	// ShardListKey is the reserved store key holding the ids of every local shard.
	ShardListKey = "shards"
)
