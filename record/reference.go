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

package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
)

// Reference fully resolves a record: the shard holding it, its key and
// the number of hosts replicating the shard.
type Reference struct {
	ShardID           string
	RecordID          string
	ReplicationFactor int
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s:%d", r.ShardID, r.RecordID, r.ReplicationFactor)
}

func ParseReference(s string) (Reference, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Reference{}, errors.Wrapf(common.ErrEncoding, "invalid record reference %q", s)
	}
	rf, err := strconv.Atoi(parts[2])
	if err != nil || rf <= 0 {
		return Reference{}, errors.Wrapf(common.ErrEncoding, "invalid replication factor in reference %q", s)
	}
	return Reference{ShardID: parts[0], RecordID: parts[1], ReplicationFactor: rf}, nil
}
