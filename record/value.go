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
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/crypto"
)

const (
	CurrentVersion = 0

	// SignatureSize is the space reserved for one detached signature.
	SignatureSize = 96

	ImmutableSignatureBudget = SignatureSize
	// Mutable records carry a record signature and a contract signature.
	MutableSignatureBudget = 2 * SignatureSize

	// SizeTolerance is the allowed gap between the declared and the
	// recomputed size of a record.
	SizeTolerance = 16
)

type ImmutableValue struct {
	Version      int      `json:"version"`
	Encoding     Encoding `json:"encoding"`
	SymmetricKey string   `json:"symkey"`
	Content      string   `json:"content"`
	Owner        string   `json:"owner"`
	Contract     string   `json:"contract"`
	Timestamp    int64    `json:"timestamp"`
	Size         int64    `json:"size"`
}

type MutableValue struct {
	ImmutableValue

	PublicKey           string `json:"publicKey"`
	EncryptedPrivateKey string `json:"encryptedPrivateKey"`
	ContentHash         string `json:"contentHash"`
	Revision            int64  `json:"revision"`
	RecordSignature     string `json:"recordSignature"`
}

// Identity is the caller on whose behalf records are created and opened.
type Identity struct {
	ID   string
	Keys crypto.KeyPair
}

func NewIdentity(keys crypto.KeyPair) Identity {
	return Identity{ID: keys.ID(), Keys: keys}
}

func serialize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize record value")
	}
	return data, nil
}

// computeSize adds the width of the size field itself and the signature
// budget to the serialized length of a value.
func computeSize(serializedLength int, budget int64) int64 {
	n := int64(serializedLength)
	return n + int64(len(strconv.FormatInt(n, 10))) + budget
}

func immutableSize(v ImmutableValue) (int64, error) {
	v.Size = 0
	data, err := serialize(v)
	if err != nil {
		return 0, err
	}
	return computeSize(len(data), ImmutableSignatureBudget), nil
}

func mutableSize(v MutableValue) (int64, error) {
	v.Size = 0
	v.RecordSignature = ""
	data, err := serialize(v)
	if err != nil {
		return 0, err
	}
	return computeSize(len(data), MutableSignatureBudget), nil
}

// signingPayload is the value with the record signature zeroed.
func signingPayload(v MutableValue) ([]byte, error) {
	v.RecordSignature = ""
	return serialize(v)
}

func encrypt(encoded string, symKey string) (string, error) {
	ciphertext, err := crypto.EncryptSymmetric([]byte(encoded), symKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to encrypt content")
	}
	return ciphertext, nil
}

func decryptContent(v ImmutableValue, privateKey string) (Value, error) {
	encoded := v.Content
	if v.SymmetricKey != "" {
		symKey, err := crypto.DecryptAsymmetric(v.SymmetricKey, privateKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to unwrap symmetric key")
		}
		plaintext, err := crypto.DecryptSymmetric(v.Content, string(symKey))
		if err != nil {
			return nil, err
		}
		encoded = string(plaintext)
	}
	return Decode(encoded, v.Encoding)
}

func checkOwner(owner string, caller Identity) error {
	if caller.ID != owner {
		return errors.Wrap(common.ErrAuthorization, "caller is not the owner of the record")
	}
	return nil
}
