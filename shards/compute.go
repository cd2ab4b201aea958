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

package shards

import (
	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/crypto"
)

// ComputeShardCount returns the number of shards a contract reserving
// spaceReserved bytes is split into.
func ComputeShardCount(spaceReserved int64) (int, error) {
	if spaceReserved <= 0 || spaceReserved%common.ShardSize != 0 {
		return 0, errors.Wrapf(common.ErrInvalidContractSize,
			"space reserved %d is not a positive multiple of %d", spaceReserved, common.ShardSize)
	}
	return int(spaceReserved / common.ShardSize), nil
}

// ComputeShardArray derives the shard ids of a contract by hashing the
// contract id repeatedly. Anyone knowing the contract id and its size
// obtains the same list.
func ComputeShardArray(contractID string, spaceReserved int64) ([]string, error) {
	n, err := ComputeShardCount(spaceReserved)
	if err != nil {
		return nil, err
	}

	ids := make([]string, n)
	h := contractID
	for i := 0; i < n; i++ {
		h = crypto.HashString(h)
		ids[i] = h
	}
	return ids, nil
}

// JumpHash maps key to a bucket in [0, buckets) so that growing the
// number of buckets from n to n+1 moves only 1/(n+1) of the keys.
// See "A Fast, Minimal Memory, Consistent Hash Algorithm" (Lamping, Veach).
func JumpHash(key uint64, buckets int) int {
	if buckets <= 0 {
		return -1
	}

	var b, j int64 = -1, 0
	for j < int64(buckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int(b)
}

// ComputeShardForKey returns the index, within the contract shard array,
// of the shard holding key.
func ComputeShardForKey(key string, spaceReserved int64) (int, error) {
	n, err := ComputeShardCount(spaceReserved)
	if err != nil {
		return 0, err
	}
	return JumpHash(common.Hash64(key), n), nil
}

// ShardIDForKey resolves the shard id holding key in a contract.
func ShardIDForKey(key string, contractID string, spaceReserved int64) (string, error) {
	ids, err := ComputeShardArray(contractID, spaceReserved)
	if err != nil {
		return "", err
	}
	return ids[JumpHash(common.Hash64(key), len(ids))], nil
}
