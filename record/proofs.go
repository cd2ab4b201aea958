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
	"github.com/subspace/shardstore/common/crypto"
)

// A proof of replication binds a host to the exact stored bytes of a
// record. A proof of deletion binds a host to the removal of a key.

const (
	replicationTag = "replication"
	deletionTag    = "deletion"
)

func CreateProofOfReplication(r Record, hostID string) (string, error) {
	data, err := Marshal(r)
	if err != nil {
		return "", err
	}
	return crypto.Hash(replicationPreimage(r.Key(), hostID, data)), nil
}

func IsValidProofOfReplication(proof string, r Record, hostID string) (bool, error) {
	data, err := Marshal(r)
	if err != nil {
		return false, err
	}
	return crypto.IsValidHash(proof, replicationPreimage(r.Key(), hostID, data)), nil
}

func replicationPreimage(key, hostID string, data []byte) []byte {
	return []byte(replicationTag + ":" + hostID + ":" + key + ":" + crypto.Hash(data))
}

func CreateProofOfDeletion(key string, hostID string) string {
	return crypto.HashString(deletionPreimage(key, hostID))
}

func IsValidProofOfDeletion(proof string, key string, hostID string) bool {
	return crypto.IsValidHash(proof, []byte(deletionPreimage(key, hostID)))
}

func deletionPreimage(key, hostID string) string {
	return deletionTag + ":" + hostID + ":" + key
}
