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
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/server/kv"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	store := kv.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewIndex(store)
}

func TestIndex_CreateShard(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.GetShard(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrShardNotFound)

	shard, err := idx.CreateShard(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "s1", shard.ID)
	assert.Equal(t, "c1", shard.ContractID)
	assert.EqualValues(t, 0, shard.Size)
	assert.True(t, shard.Records.IsEmpty())

	_, err = idx.AddRecord(ctx, "s1", "r1", 100)
	require.NoError(t, err)

	// Creating again returns the existing shard
	shard, err = idx.CreateShard(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, shard.Size)

	_, err = idx.CreateShard(ctx, "s0", "c1")
	require.NoError(t, err)

	ids, err := idx.GetAllShards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s0", "s1"}, ids)
}

func TestIndex_RecordAccounting(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.AddRecord(ctx, "s1", "r1", 100)
	assert.ErrorIs(t, err, common.ErrShardNotFound)

	_, err = idx.CreateShard(ctx, "s1", "c1")
	require.NoError(t, err)

	shard, err := idx.AddRecord(ctx, "s1", "r1", 100)
	require.NoError(t, err)
	assert.EqualValues(t, 100, shard.Size)

	_, err = idx.AddRecord(ctx, "s1", "r1", 100)
	assert.ErrorIs(t, err, common.ErrRecordExists)

	shard, err = idx.AddRecord(ctx, "s1", "r2", 50)
	require.NoError(t, err)
	assert.EqualValues(t, 150, shard.Size)
	assert.Equal(t, []string{"r1", "r2"}, shard.Records.GetSorted())

	shard, err = idx.UpdateRecord(ctx, "s1", "r1", -30)
	require.NoError(t, err)
	assert.EqualValues(t, 120, shard.Size)

	_, err = idx.UpdateRecord(ctx, "s1", "missing", 10)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	shard, err = idx.RemoveRecord(ctx, "s1", "r2", 50)
	require.NoError(t, err)
	assert.EqualValues(t, 70, shard.Size)
	assert.Equal(t, []string{"r1"}, shard.Records.GetSorted())

	_, err = idx.RemoveRecord(ctx, "s1", "r2", 50)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	// Persisted state matches
	shard, err = idx.GetShard(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 70, shard.Size)
	assert.Equal(t, []string{"r1"}, shard.Records.GetSorted())
}

func TestIndex_Capacity(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)
	_, err := idx.CreateShard(ctx, "s1", "c1")
	require.NoError(t, err)

	_, err = idx.AddRecord(ctx, "s1", "r1", common.ShardSize-100)
	require.NoError(t, err)

	_, err = idx.AddRecord(ctx, "s1", "r2", 101)
	assert.ErrorIs(t, err, common.ErrCapacity)

	// Exactly at the boundary
	shard, err := idx.AddRecord(ctx, "s1", "r2", 100)
	require.NoError(t, err)
	assert.Equal(t, common.ShardSize, shard.Size)

	_, err = idx.UpdateRecord(ctx, "s1", "r2", 1)
	assert.ErrorIs(t, err, common.ErrCapacity)
	_, err = idx.UpdateRecord(ctx, "s1", "r2", 0)
	assert.NoError(t, err)
}

func TestIndex_DeleteShardAndRecords(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	for _, s := range []string{"s1", "s2"} {
		_, err := idx.CreateShard(ctx, s, "c1")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			key := fmt.Sprintf("%s-r%d", s, i)
			_, err := idx.AddRecord(ctx, s, key, 10)
			require.NoError(t, err)
			require.NoError(t, idx.PutRecordData(ctx, key, []byte(key)))
		}
	}

	keys, err := idx.GetAllRecordKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 6)

	total, err := idx.TotalSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 60, total)

	require.NoError(t, idx.DeleteShardAndRecords(ctx, "s1"))

	_, err = idx.GetShard(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrShardNotFound)
	_, err = idx.GetRecordData(ctx, "s1-r0")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	data, err := idx.GetRecordData(ctx, "s2-r0")
	require.NoError(t, err)
	assert.Equal(t, "s2-r0", string(data))

	ids, err := idx.GetAllShards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids)

	require.NoError(t, idx.DeleteAllShardsAndRecords(ctx))
	ids, err = idx.GetAllShards(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	keys, err = idx.GetAllRecordKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestIndex_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)
	_, err := idx.CreateShard(ctx, "s1", "c1")
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := idx.Lock("s1")
			defer unlock()
			_, err := idx.AddRecord(ctx, "s1", fmt.Sprint("r", i), 10)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	shard, err := idx.GetShard(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 500, shard.Size)
	assert.Equal(t, 50, shard.Records.Count())
}
