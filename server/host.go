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

package server

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/metrics"
	"github.com/subspace/shardstore/placement"
	"github.com/subspace/shardstore/record"
	"github.com/subspace/shardstore/server/kv"
	"github.com/subspace/shardstore/server/tracker"
	"github.com/subspace/shardstore/server/wallet"
	"github.com/subspace/shardstore/shards"
)

type Response struct {
	Reference record.Reference
	// Stored record, set for get
	Record record.Record
	// Opened content, set for get when a reader identity is given
	Content record.Value
	// Proof of replication for put and rev, proof of deletion for del
	Proof string
	// Other hosts replicating the shard
	Peers []string
}

type opMetrics struct {
	requests   metrics.Counter
	failures   metrics.Counter
	latency    metrics.LatencyHistogram
	recordSize metrics.Histogram
}

// Host stores the records of the shards it is a replica of. Every
// operation validates the request and applies its side effects while
// holding the shard lock, so a rejected request leaves no trace.
type Host struct {
	id        string
	wallet    wallet.Wallet
	index     *shards.Index
	placer    *placement.Placer
	validator *Validator
	clock     common.Clock
	log       *slog.Logger

	ops         map[Op]opMetrics
	storedBytes metrics.Gauge
}

func NewHost(id string, w wallet.Wallet, t tracker.Tracker, store kv.Store, clock common.Clock) (*Host, error) {
	if clock == nil {
		clock = common.SystemClock()
	}
	placer, err := placement.NewPlacer(t, "")
	if err != nil {
		return nil, err
	}
	index := shards.NewIndex(store)

	h := &Host{
		id:        id,
		wallet:    w,
		index:     index,
		placer:    placer,
		validator: NewValidator(id, w, placer, index, clock),
		clock:     clock,
		log: slog.With(
			slog.String("component", "host"),
			slog.String("host", id),
		),
		ops: map[Op]opMetrics{},
	}

	for _, op := range []Op{OpPut, OpGet, OpRevise, OpDelete} {
		labels := metrics.LabelsForOperation(string(op))
		h.ops[op] = opMetrics{
			requests: metrics.NewCounter("shardstore_host_requests",
				"The number of requests received", metrics.Dimensionless, labels),
			failures: metrics.NewCounter("shardstore_host_requests_failed",
				"The number of requests rejected or failed", metrics.Dimensionless, labels),
			latency: metrics.NewLatencyHistogram("shardstore_host_request_latency",
				"The latency for validating and applying a request", labels),
			recordSize: metrics.NewBytesHistogram("shardstore_host_record_size",
				"The size of the records of applied requests", labels),
		}
	}

	storedBytes := common.MemoizeErr(clock, func() (int64, error) {
		return index.TotalSize(context.Background())
	}, 5*time.Second)
	totalSize := func() int64 {
		total, err := storedBytes()
		if err != nil {
			h.log.Warn("Failed to compute stored bytes", slog.Any("error", err))
		}
		return total
	}
	h.storedBytes = metrics.NewGauge("shardstore_host_stored_bytes",
		"The number of record bytes accounted across the local shards",
		metrics.Bytes, map[string]any{"host": id}, totalSize)

	return h, nil
}

func (h *Host) ID() string {
	return h.id
}

func (h *Host) Index() *shards.Index {
	return h.index
}

func (h *Host) Placer() *placement.Placer {
	return h.placer
}

func (h *Host) Close() error {
	h.storedBytes.Unregister()
	return h.placer.Close()
}

func (h *Host) execute(ctx context.Context, req *Request, op Op, apply func(*Decision) (*Response, error)) (*Response, error) {
	m := h.ops[op]
	m.requests.Inc()
	timer := m.latency.Timer()
	defer timer.Done()

	res, err := h.executeLocked(ctx, req, op, apply)
	if err != nil {
		m.failures.Inc()
		var result record.Result
		if !errors.As(err, &result) {
			h.log.Warn(
				"Failed to apply request",
				slog.String("request-id", req.ID.String()),
				slog.String("op", string(op)),
				slog.Any("error", err),
			)
		}
		return nil, err
	}
	return res, nil
}

func (h *Host) executeLocked(ctx context.Context, req *Request, op Op, apply func(*Decision) (*Response, error)) (*Response, error) {
	if req.Op != op {
		return nil, reject(common.ErrEncoding, "request operation does not match")
	}

	target, err := h.validator.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	unlock := h.index.Lock(target.ShardID)
	defer unlock()

	d, err := h.validator.ValidateResolved(ctx, req, target)
	if err != nil {
		return nil, err
	}

	res, err := apply(d)
	if err != nil {
		return nil, err
	}
	res.Reference = record.Reference{
		ShardID:           d.ShardID,
		RecordID:          req.Key,
		ReplicationFactor: d.Contract.ReplicationFactor,
	}
	res.Peers = slices.DeleteFunc(slices.Clone(d.Replicas), func(id string) bool { return id == h.id })

	switch {
	case req.Record != nil:
		h.ops[op].recordSize.Record(req.Record.Size())
	case d.Existing != nil:
		h.ops[op].recordSize.Record(d.Existing.Size())
	}
	return res, nil
}

func (h *Host) Put(ctx context.Context, req *Request) (*Response, error) {
	return h.execute(ctx, req, OpPut, func(d *Decision) (*Response, error) {
		data, err := record.Marshal(req.Record)
		if err != nil {
			return nil, err
		}
		if _, err := h.index.CreateShard(ctx, d.ShardID, d.Contract.ID); err != nil {
			return nil, err
		}
		if _, err := h.index.AddRecord(ctx, d.ShardID, req.Key, req.Record.Size()); err != nil {
			return nil, err
		}
		if err := h.index.PutRecordData(ctx, req.Key, data); err != nil {
			_, rbErr := h.index.RemoveRecord(ctx, d.ShardID, req.Key, req.Record.Size())
			return nil, multierr.Append(err, rbErr)
		}

		proof, err := record.CreateProofOfReplication(req.Record, h.id)
		if err != nil {
			return nil, err
		}
		return &Response{Proof: proof}, nil
	})
}

// Get returns the stored record. The content is opened too when reader
// is not nil.
func (h *Host) Get(ctx context.Context, req *Request, reader *record.Identity) (*Response, error) {
	return h.execute(ctx, req, OpGet, func(d *Decision) (*Response, error) {
		res := &Response{Record: d.Existing}
		if reader != nil {
			content, err := d.Existing.Open(*reader)
			if err != nil {
				return nil, err
			}
			res.Content = content
		}
		return res, nil
	})
}

func (h *Host) Revise(ctx context.Context, req *Request) (*Response, error) {
	return h.execute(ctx, req, OpRevise, func(d *Decision) (*Response, error) {
		data, err := record.Marshal(req.Record)
		if err != nil {
			return nil, err
		}
		if _, err := h.index.UpdateRecord(ctx, d.ShardID, req.Key, d.SizeDelta); err != nil {
			return nil, err
		}
		if err := h.index.PutRecordData(ctx, req.Key, data); err != nil {
			_, rbErr := h.index.UpdateRecord(ctx, d.ShardID, req.Key, -d.SizeDelta)
			return nil, multierr.Append(err, rbErr)
		}

		proof, err := record.CreateProofOfReplication(req.Record, h.id)
		if err != nil {
			return nil, err
		}
		return &Response{Proof: proof}, nil
	})
}

func (h *Host) Delete(ctx context.Context, req *Request) (*Response, error) {
	return h.execute(ctx, req, OpDelete, func(d *Decision) (*Response, error) {
		if _, err := h.index.RemoveRecord(ctx, d.ShardID, req.Key, d.Existing.Size()); err != nil {
			return nil, err
		}
		if err := h.index.DeleteRecordData(ctx, req.Key); err != nil {
			return nil, err
		}
		return &Response{Proof: record.CreateProofOfDeletion(req.Key, h.id)}, nil
	})
}

// ExpireContracts deletes the shards of contracts that are no longer
// active, with all their records, and returns the deleted shard ids.
func (h *Host) ExpireContracts(ctx context.Context) ([]string, error) {
	ids, err := h.index.GetAllShards(ctx)
	if err != nil {
		return nil, err
	}
	now := h.clock.Now()

	var deleted []string
	var errs error
	for _, id := range ids {
		shard, err := h.index.GetShard(ctx, id)
		if errors.Is(err, common.ErrShardNotFound) {
			continue
		} else if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		contract, err := h.wallet.Contract(ctx, shard.ContractID)
		if err == nil && contract.IsActive(now) {
			continue
		} else if err != nil && !errors.Is(err, common.ErrContractNotFound) {
			errs = multierr.Append(errs, err)
			continue
		}

		unlock := h.index.Lock(id)
		err = h.index.DeleteShardAndRecords(ctx, id)
		unlock()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		h.log.Info(
			"Expired shard",
			slog.String("shard", id),
			slog.String("contract", shard.ContractID),
			slog.String("released", humanize.Bytes(uint64(shard.Size))),
		)
		deleted = append(deleted, id)
	}
	return deleted, errs
}
