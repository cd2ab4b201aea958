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
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/codec"
	"github.com/subspace/shardstore/server/kv"
)

const (
	shardKeyPrefix  = "shard/"
	recordKeyPrefix = "record/"
)

type Shard struct {
	ID         string
	ContractID string
	Size       int64
	Records    common.Set[string]
}

// Fits reports whether sizeDelta more bytes can be stored in the shard.
func (s *Shard) Fits(sizeDelta int64) bool {
	return s.Size+sizeDelta <= common.ShardSize
}

type shardMeta struct {
	ContractID string   `cbor:"contract"`
	Size       int64    `cbor:"size"`
	Records    []string `cbor:"records"`
}

// Index keeps the shards held by a host and the records they contain.
//
// Mutations of a shard are read-modify-write cycles over the store: callers
// must hold Lock(shardID) around them.
type Index struct {
	store kv.Store
	log   *slog.Logger

	locksMutex sync.Mutex
	locks      map[string]*sync.Mutex

	// Guards the shard list
	listMutex sync.Mutex
}

func NewIndex(store kv.Store) *Index {
	return &Index{
		store: store,
		locks: map[string]*sync.Mutex{},
		log: slog.With(
			slog.String("component", "shard-index"),
		),
	}
}

// Lock acquires the exclusive lock of a shard and returns the function
// releasing it.
func (idx *Index) Lock(shardID string) func() {
	idx.locksMutex.Lock()
	m, ok := idx.locks[shardID]
	if !ok {
		m = &sync.Mutex{}
		idx.locks[shardID] = m
	}
	idx.locksMutex.Unlock()

	m.Lock()
	return m.Unlock
}

func shardKey(shardID string) string {
	return shardKeyPrefix + shardID
}

func recordKey(key string) string {
	return recordKeyPrefix + key
}

func (idx *Index) readShardList(ctx context.Context) (common.Set[string], error) {
	ids := common.NewSet[string]()
	data, err := idx.store.Get(ctx, common.ShardListKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return ids, nil
	} else if err != nil {
		return nil, err
	}
	if err := codec.Unmarshal(data, ids); err != nil {
		return nil, errors.Wrap(err, "failed to decode shard list")
	}
	return ids, nil
}

func (idx *Index) updateShardList(ctx context.Context, update func(common.Set[string])) error {
	idx.listMutex.Lock()
	defer idx.listMutex.Unlock()

	ids, err := idx.readShardList(ctx)
	if err != nil {
		return err
	}
	update(ids)

	data, err := codec.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "failed to encode shard list")
	}
	return idx.store.Put(ctx, common.ShardListKey, data)
}

func (idx *Index) putShard(ctx context.Context, shard *Shard) error {
	data, err := codec.Marshal(shardMeta{
		ContractID: shard.ContractID,
		Size:       shard.Size,
		Records:    shard.Records.GetSorted(),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to encode shard %s", shard.ID)
	}
	return idx.store.Put(ctx, shardKey(shard.ID), data)
}

// CreateShard creates an empty shard, or returns the existing one.
func (idx *Index) CreateShard(ctx context.Context, shardID string, contractID string) (*Shard, error) {
	shard, err := idx.GetShard(ctx, shardID)
	if err == nil {
		return shard, nil
	} else if !errors.Is(err, common.ErrShardNotFound) {
		return nil, err
	}

	shard = &Shard{ID: shardID, ContractID: contractID, Records: common.NewSet[string]()}
	if err := idx.putShard(ctx, shard); err != nil {
		return nil, err
	}
	if err := idx.updateShardList(ctx, func(s common.Set[string]) { s.Add(shardID) }); err != nil {
		return nil, err
	}

	idx.log.Info(
		"Created shard",
		slog.String("shard", shardID),
		slog.String("contract", contractID),
	)
	return shard, nil
}

func (idx *Index) GetShard(ctx context.Context, shardID string) (*Shard, error) {
	data, err := idx.store.Get(ctx, shardKey(shardID))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, errors.Wrapf(common.ErrShardNotFound, "shard %s", shardID)
	} else if err != nil {
		return nil, err
	}

	var meta shardMeta
	if err := codec.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "failed to decode shard %s", shardID)
	}
	return &Shard{
		ID:         shardID,
		ContractID: meta.ContractID,
		Size:       meta.Size,
		Records:    common.NewSetFrom(meta.Records),
	}, nil
}

// GetAllShards returns the sorted ids of every shard in the index.
func (idx *Index) GetAllShards(ctx context.Context) ([]string, error) {
	idx.listMutex.Lock()
	defer idx.listMutex.Unlock()
	ids, err := idx.readShardList(ctx)
	if err != nil {
		return nil, err
	}
	return ids.GetSorted(), nil
}

// AddRecord accounts a new record of the given size in a shard.
func (idx *Index) AddRecord(ctx context.Context, shardID string, key string, size int64) (*Shard, error) {
	shard, err := idx.GetShard(ctx, shardID)
	if err != nil {
		return nil, err
	}
	if shard.Records.Contains(key) {
		return nil, errors.Wrapf(common.ErrRecordExists, "record %s in shard %s", key, shardID)
	}
	if !shard.Fits(size) {
		return nil, errors.Wrapf(common.ErrCapacity, "shard %s holds %s, cannot add %s",
			shardID, humanize.Bytes(uint64(shard.Size)), humanize.Bytes(uint64(size)))
	}

	shard.Records.Add(key)
	shard.Size += size
	return shard, idx.putShard(ctx, shard)
}

// UpdateRecord applies the size difference of a revised record.
func (idx *Index) UpdateRecord(ctx context.Context, shardID string, key string, sizeDelta int64) (*Shard, error) {
	shard, err := idx.GetShard(ctx, shardID)
	if err != nil {
		return nil, err
	}
	if !shard.Records.Contains(key) {
		return nil, errors.Wrapf(common.ErrRecordNotFound, "record %s in shard %s", key, shardID)
	}
	if !shard.Fits(sizeDelta) {
		return nil, errors.Wrapf(common.ErrCapacity, "shard %s holds %s, cannot grow by %d bytes",
			shardID, humanize.Bytes(uint64(shard.Size)), sizeDelta)
	}

	shard.Size += sizeDelta
	return shard, idx.putShard(ctx, shard)
}

// RemoveRecord releases the space of a record.
func (idx *Index) RemoveRecord(ctx context.Context, shardID string, key string, size int64) (*Shard, error) {
	shard, err := idx.GetShard(ctx, shardID)
	if err != nil {
		return nil, err
	}
	if !shard.Records.Contains(key) {
		return nil, errors.Wrapf(common.ErrRecordNotFound, "record %s in shard %s", key, shardID)
	}

	shard.Records.Remove(key)
	shard.Size -= size
	return shard, idx.putShard(ctx, shard)
}

// DeleteShardAndRecords removes a shard together with the data of every
// record it references.
func (idx *Index) DeleteShardAndRecords(ctx context.Context, shardID string) error {
	shard, err := idx.GetShard(ctx, shardID)
	if err != nil {
		return err
	}

	var errs error
	for _, key := range shard.Records.GetSorted() {
		errs = multierr.Append(errs, idx.DeleteRecordData(ctx, key))
	}
	if errs != nil {
		return errors.Wrapf(errs, "failed to delete records of shard %s", shardID)
	}

	if err := idx.store.Delete(ctx, shardKey(shardID)); err != nil {
		return err
	}
	if err := idx.updateShardList(ctx, func(s common.Set[string]) { s.Remove(shardID) }); err != nil {
		return err
	}

	idx.log.Info(
		"Deleted shard",
		slog.String("shard", shardID),
		slog.Int("records", shard.Records.Count()),
		slog.String("size", humanize.Bytes(uint64(shard.Size))),
	)
	return nil
}

// GetAllRecordKeys returns the keys of the records of every shard.
func (idx *Index) GetAllRecordKeys(ctx context.Context) ([]string, error) {
	ids, err := idx.GetAllShards(ctx)
	if err != nil {
		return nil, err
	}
	keys := common.NewSet[string]()
	for _, id := range ids {
		shard, err := idx.GetShard(ctx, id)
		if err != nil {
			return nil, err
		}
		keys.Union(shard.Records)
	}
	return keys.GetSorted(), nil
}

func (idx *Index) DeleteAllShardsAndRecords(ctx context.Context) error {
	ids, err := idx.GetAllShards(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, id := range ids {
		unlock := idx.Lock(id)
		errs = multierr.Append(errs, idx.DeleteShardAndRecords(ctx, id))
		unlock()
	}
	return errs
}

// TotalSize is the number of bytes accounted across all shards.
func (idx *Index) TotalSize(ctx context.Context) (int64, error) {
	ids, err := idx.GetAllShards(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, id := range ids {
		shard, err := idx.GetShard(ctx, id)
		if err != nil {
			return 0, err
		}
		total += shard.Size
	}
	return total, nil
}

func (idx *Index) PutRecordData(ctx context.Context, key string, data []byte) error {
	return idx.store.Put(ctx, recordKey(key), data)
}

func (idx *Index) GetRecordData(ctx context.Context, key string) ([]byte, error) {
	data, err := idx.store.Get(ctx, recordKey(key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, errors.Wrapf(common.ErrRecordNotFound, "record %s", key)
	}
	return data, err
}

func (idx *Index) DeleteRecordData(ctx context.Context, key string) error {
	return idx.store.Delete(ctx, recordKey(key))
}
