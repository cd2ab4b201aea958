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
	"github.com/pkg/errors"
)

var (
	ErrEncoding            = errors.New("shardstore: encoding error")
	ErrIntegrity           = errors.New("shardstore: integrity error")
	ErrImmutableRecord     = errors.New("shardstore: immutable record")
	ErrImmutableDelete     = errors.Wrap(ErrImmutableRecord, "shardstore: cannot delete immutable record")
	ErrInvalidContractSize = errors.New("shardstore: invalid contract size")
	ErrAuthorization       = errors.New("shardstore: not authorized")
	ErrCapacity            = errors.New("shardstore: shard capacity exceeded")
	ErrStaleness           = errors.New("shardstore: timestamp outside grace window")
	ErrMutationOrder       = errors.New("shardstore: invalid mutation order")
	ErrRecordNotFound      = errors.New("shardstore: record not found")
	ErrRecordExists        = errors.New("shardstore: record already exists")
	ErrShardNotFound       = errors.New("shardstore: shard not found")
	ErrContractNotFound    = errors.New("shardstore: contract not found")
)
