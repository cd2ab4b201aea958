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
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/crypto"
	"github.com/subspace/shardstore/placement"
	"github.com/subspace/shardstore/record"
	"github.com/subspace/shardstore/server/wallet"
	"github.com/subspace/shardstore/shards"
)

// Decision is everything the validator resolved for an accepted request.
type Decision struct {
	Contract wallet.Contract
	ShardID  string
	Replicas []string
	// Stored record under the request key, nil if absent
	Existing  record.Record
	SizeDelta int64
}

// Validator runs the fixed, fail-fast check chain of a request:
//
//  1. the executing host replicates the shard of the key
//  2. the contract is live
//  3. the request is signed with the contract key
//  4. the shard has room for the record
//  5. the record itself is valid
//  6. operation specific checks
//
// Deleting an immutable record is refused before the chain runs.
//
// A rejected request yields a record.Result as error, any other error is
// an infrastructure failure.
type Validator struct {
	self   string
	wallet wallet.Wallet
	placer *placement.Placer
	index  *shards.Index
	clock  common.Clock
	log    *slog.Logger
}

func NewValidator(self string, w wallet.Wallet, placer *placement.Placer, index *shards.Index, clock common.Clock) *Validator {
	return &Validator{
		self:   self,
		wallet: w,
		placer: placer,
		index:  index,
		clock:  clock,
		log: slog.With(
			slog.String("component", "validator"),
			slog.String("host", self),
		),
	}
}

func reject(err error, reason string) error {
	return record.Result{Reason: reason, Err: err}
}

// Resolve finds the contract and shard a request targets without
// validating it.
func (v *Validator) Resolve(ctx context.Context, req *Request) (*Decision, error) {
	switch req.Op {
	case OpPut, OpRevise:
		if req.Record == nil {
			return nil, reject(common.ErrEncoding, fmt.Sprintf("%s request carries no record", req.Op))
		}
		if req.Key != req.Record.Key() {
			return nil, reject(common.ErrIntegrity, "request key does not match the record key")
		}
	case OpGet, OpDelete:
		if req.Key == "" {
			return nil, reject(common.ErrEncoding, fmt.Sprintf("%s request carries no key", req.Op))
		}
	default:
		return nil, reject(common.ErrEncoding, fmt.Sprintf("unknown operation %q", req.Op))
	}

	contract, err := v.wallet.Contract(ctx, req.ContractID)
	if errors.Is(err, common.ErrContractNotFound) {
		return nil, reject(common.ErrAuthorization, fmt.Sprintf("unknown contract %s", req.ContractID))
	} else if err != nil {
		return nil, err
	}

	sh, err := v.placer.GetShardAndHostsForKey(ctx, req.Key, contract)
	if err != nil {
		if errors.Is(err, common.ErrInvalidContractSize) {
			return nil, reject(common.ErrInvalidContractSize, err.Error())
		}
		return nil, err
	}

	return &Decision{Contract: contract, ShardID: sh.ShardID, Replicas: sh.Hosts}, nil
}

func (v *Validator) loadRecord(ctx context.Context, key string) (record.Record, error) {
	data, err := v.index.GetRecordData(ctx, key)
	if errors.Is(err, common.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return record.Unmarshal(data)
}

// Validate resolves the request and runs the check chain. Callers
// mutating the shard must hold its lock across Validate and the mutation.
func (v *Validator) Validate(ctx context.Context, req *Request) (*Decision, error) {
	d, err := v.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return v.ValidateResolved(ctx, req, d)
}

// ValidateResolved runs the check chain on the decision returned by
// Resolve for the same request.
func (v *Validator) ValidateResolved(ctx context.Context, req *Request, d *Decision) (*Decision, error) {
	var err error
	if d.Existing, err = v.loadRecord(ctx, req.Key); err != nil {
		return nil, err
	}
	if req.Op == OpDelete && d.Existing != nil && d.Existing.IsImmutable() {
		return nil, reject(common.ErrImmutableDelete, "immutable records cannot be deleted")
	}
	now := v.clock.Now()

	for _, check := range []func(context.Context, *Request, *Decision, time.Time) error{
		v.checkHost,
		v.checkContract,
		v.checkSignature,
		v.checkCapacity,
		v.checkRecord,
		v.checkOperation,
	} {
		if err := check(ctx, req, d, now); err != nil {
			var res record.Result
			if errors.As(err, &res) {
				v.log.Debug(
					"Rejected request",
					slog.String("request-id", req.ID.String()),
					slog.String("op", string(req.Op)),
					slog.String("key", req.Key),
					slog.String("reason", res.Reason),
				)
			}
			return nil, err
		}
	}
	return d, nil
}

func (v *Validator) checkHost(_ context.Context, req *Request, d *Decision, now time.Time) error {
	if !slices.Contains(d.Replicas, v.self) {
		return reject(common.ErrAuthorization, fmt.Sprintf("host is not a replica of shard %s", d.ShardID))
	}

	if req.Op == OpGet && d.Existing != nil && !d.Existing.IsImmutable() {
		skew := now.Sub(time.UnixMilli(req.Timestamp))
		if skew < -common.GraceWindow || skew > common.GraceWindow {
			return reject(common.ErrStaleness, "request timestamp is outside the grace window")
		}
	}
	return nil
}

func (*Validator) checkContract(_ context.Context, _ *Request, d *Decision, now time.Time) error {
	if !d.Contract.IsActive(now) {
		return reject(common.ErrAuthorization, fmt.Sprintf("contract %s has expired", d.Contract.ID))
	}
	return nil
}

func (*Validator) checkSignature(_ context.Context, req *Request, d *Decision, _ time.Time) error {
	if req.Signature == "" {
		return reject(common.ErrAuthorization, "request is not signed")
	}
	payload, err := req.SigningPayload()
	if err != nil {
		return err
	}
	ok, err := crypto.Verify(payload, req.Signature, d.Contract.PublicKey)
	if err != nil || !ok {
		return reject(common.ErrAuthorization, "invalid request signature")
	}
	return nil
}

func (v *Validator) checkCapacity(ctx context.Context, req *Request, d *Decision, _ time.Time) error {
	switch req.Op {
	case OpPut:
		d.SizeDelta = req.Record.Size()
	case OpRevise:
		if d.Existing == nil {
			return reject(common.ErrRecordNotFound, "record does not exist")
		}
		d.SizeDelta = req.Record.Size() - d.Existing.Size()
	default:
		return nil
	}

	shard, err := v.index.GetShard(ctx, d.ShardID)
	if errors.Is(err, common.ErrShardNotFound) {
		// Created on first write
		shard = &shards.Shard{ID: d.ShardID, Records: common.NewSet[string]()}
	} else if err != nil {
		return err
	}

	if !shard.Fits(d.SizeDelta) {
		return reject(common.ErrCapacity, fmt.Sprintf("shard %s has no room for %d more bytes", d.ShardID, d.SizeDelta))
	}
	return nil
}

func (*Validator) checkRecord(_ context.Context, req *Request, d *Decision, now time.Time) error {
	var r record.Record
	switch req.Op {
	case OpPut, OpRevise:
		r = req.Record
	case OpGet, OpDelete:
		r = d.Existing
	}
	if r == nil {
		return reject(common.ErrRecordNotFound, "record does not exist")
	}

	if res := record.Validate(r, now); !res.Valid {
		return res
	}
	if r.Header().Contract != d.Contract.ID {
		return reject(common.ErrAuthorization, "record does not belong to the request contract")
	}
	return nil
}

func (*Validator) checkOperation(_ context.Context, req *Request, d *Decision, _ time.Time) error {
	switch req.Op {
	case OpPut:
		if d.Existing != nil {
			return reject(common.ErrRecordExists, "record already exists")
		}
	case OpRevise:
		prev, ok := d.Existing.(*record.Mutable)
		if !ok {
			return reject(common.ErrImmutableRecord, "immutable records cannot be revised")
		}
		next, ok := req.Record.(*record.Mutable)
		if !ok {
			return reject(common.ErrImmutableRecord, "a revision must be a mutable record")
		}
		if res := record.ValidateUpdate(prev, next); !res.Valid {
			return res
		}
	}
	return nil
}
