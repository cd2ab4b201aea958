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
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common/crypto"
	"github.com/subspace/shardstore/record"
)

type Op string

const (
	OpPut    Op = "put"
	OpGet    Op = "get"
	OpRevise Op = "rev"
	OpDelete Op = "del"
)

// Request is a contract-scoped operation on a record. Put and revise
// carry the record, get and delete name it by key.
type Request struct {
	ID         uuid.UUID
	Op         Op
	ContractID string
	Key        string
	Record     record.Record
	// Unix milliseconds
	Timestamp int64
	Signature string
}

func NewRequest(op Op, contractID string, key string, r record.Record, now time.Time) *Request {
	if r != nil && key == "" {
		key = r.Key()
	}
	return &Request{
		ID:         uuid.New(),
		Op:         op,
		ContractID: contractID,
		Key:        key,
		Record:     r,
		Timestamp:  now.UnixMilli(),
	}
}

type signedFields struct {
	ID         string `json:"id"`
	Op         Op     `json:"op"`
	ContractID string `json:"contract"`
	Key        string `json:"key"`
	RecordHash string `json:"record,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// SigningPayload is the byte string covered by the request signature.
func (r *Request) SigningPayload() ([]byte, error) {
	f := signedFields{
		ID:         r.ID.String(),
		Op:         r.Op,
		ContractID: r.ContractID,
		Key:        r.Key,
		Timestamp:  r.Timestamp,
	}
	if r.Record != nil {
		data, err := record.Marshal(r.Record)
		if err != nil {
			return nil, err
		}
		f.RecordHash = crypto.Hash(data)
	}
	return json.Marshal(f)
}

// SignRequest signs the request with the contract private key.
func SignRequest(r *Request, contractPrivateKey string) error {
	payload, err := r.SigningPayload()
	if err != nil {
		return err
	}
	if r.Signature, err = crypto.Sign(payload, contractPrivateKey); err != nil {
		return errors.Wrap(err, "failed to sign request")
	}
	return nil
}
