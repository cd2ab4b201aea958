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

package kv

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/metrics"
)

type Pebble struct {
	db    *pebble.DB
	cache *pebble.Cache

	dbMetrics func() *pebble.Metrics
	gauges    []metrics.Gauge

	writeBytes   metrics.Counter
	writeCount   metrics.Counter
	readBytes    metrics.Counter
	readCount    metrics.Counter
	writeErrors  metrics.Counter
	readErrors   metrics.Counter
	readLatency  metrics.LatencyHistogram
	writeLatency metrics.LatencyHistogram
}

func NewPebbleStore(options Options) (*Pebble, error) {
	cacheSizeMB := options.CacheSizeMB
	if cacheSizeMB == 0 {
		cacheSizeMB = DefaultOptions.CacheSizeMB
	}
	labels := map[string]any{"backend": string(BackendPebble)}

	pb := &Pebble{
		cache: pebble.NewCache(cacheSizeMB * 1024 * 1024),

		readLatency: metrics.NewLatencyHistogram("shardstore_kv_read_latency",
			"The latency for reading a value from the store", labels),
		writeLatency: metrics.NewLatencyHistogram("shardstore_kv_write_latency",
			"The latency for writing a value into the store", labels),
		writeBytes: metrics.NewCounter("shardstore_kv_write",
			"The amount of bytes written into the store", metrics.Bytes, labels),
		writeCount: metrics.NewCounter("shardstore_kv_write_ops",
			"The amount of write operations", metrics.Dimensionless, labels),
		readBytes: metrics.NewCounter("shardstore_kv_read",
			"The amount of bytes read from the store", metrics.Bytes, labels),
		readCount: metrics.NewCounter("shardstore_kv_read_ops",
			"The amount of read operations", metrics.Dimensionless, labels),
		writeErrors: metrics.NewCounter("shardstore_kv_write_errors",
			"The count of write operations errors", metrics.Dimensionless, labels),
		readErrors: metrics.NewCounter("shardstore_kv_read_errors",
			"The count of read operations errors", metrics.Dimensionless, labels),
	}

	dbPath := filepath.Join(options.DataDir, "records")
	pbOptions := &pebble.Options{
		Cache:        pb.cache,
		MemTableSize: 32 * 1024 * 1024,
		Levels: []pebble.LevelOptions{
			{
				BlockSize:      64 * 1024,
				Compression:    pebble.NoCompression,
				TargetFileSize: 32 * 1024 * 1024,
			}, {
				BlockSize:      64 * 1024,
				Compression:    pebble.ZstdCompression,
				TargetFileSize: 64 * 1024 * 1024,
			},
		},
		FS:     vfs.Default,
		Logger: newPebbleLogger(dbPath),

		FormatMajorVersion: pebble.FormatNewest,
	}

	if options.InMemory {
		pbOptions.FS = vfs.NewMem()
	}

	db, err := pebble.Open(dbPath, pbOptions)
	if err != nil {
		pb.cache.Unref()
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	pb.db = db

	// Cache the calls to db.Metrics() which are common to all the gauges
	pb.dbMetrics = common.Memoize(func() *pebble.Metrics {
		return pb.db.Metrics()
	}, 5*time.Second)

	pb.gauges = []metrics.Gauge{
		metrics.NewGauge("shardstore_kv_pebble_block_cache_used",
			"The size of the block cache used by the store",
			metrics.Bytes, labels, func() int64 {
				return pb.dbMetrics().BlockCache.Size
			}),
		metrics.NewGauge("shardstore_kv_pebble_compaction_debt",
			"The estimated number of bytes that need to be compacted",
			metrics.Bytes, labels, func() int64 {
				return int64(pb.dbMetrics().Compact.EstimatedDebt)
			}),
		metrics.NewGauge("shardstore_kv_pebble_disk_space",
			"The total size of all the db files",
			metrics.Bytes, labels, func() int64 {
				return int64(pb.dbMetrics().DiskSpaceUsage())
			}),
		metrics.NewGauge("shardstore_kv_pebble_memtable_size",
			"The size of the memtable",
			metrics.Bytes, labels, func() int64 {
				return int64(pb.dbMetrics().MemTable.Size)
			}),
	}

	return pb, nil
}

func (p *Pebble) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timer := p.readLatency.Timer()
	defer timer.Done()

	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrKeyNotFound
	} else if err != nil {
		p.readErrors.Inc()
		return nil, errors.Wrapf(err, "failed to read key %s", key)
	}
	defer closer.Close()

	p.readCount.Inc()
	p.readBytes.Add(len(value))
	// The returned slice is only valid until the closer is called
	return slices.Clone(value), nil
}

func (p *Pebble) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := p.writeLatency.Timer()
	defer timer.Done()

	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		p.writeErrors.Inc()
		return errors.Wrapf(err, "failed to write key %s", key)
	}
	p.writeCount.Inc()
	p.writeBytes.Add(len(key) + len(value))
	return nil
}

func (p *Pebble) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := p.writeLatency.Timer()
	defer timer.Done()

	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		p.writeErrors.Inc()
		return errors.Wrapf(err, "failed to delete key %s", key)
	}
	p.writeCount.Inc()
	return nil
}

func (p *Pebble) Close() error {
	for _, g := range p.gauges {
		g.Unregister()
	}

	err := multierr.Combine(
		p.db.Flush(),
		p.db.Close(),
	)
	p.cache.Unref()
	return err
}
