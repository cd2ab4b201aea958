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
	"time"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/crypto"
)

// Result is the outcome of a validity check. An invalid result carries a
// human readable reason and the error class it belongs to, and can be
// returned as an error.
type Result struct {
	Valid  bool
	Reason string
	Err    error
}

func valid() Result {
	return Result{Valid: true}
}

func invalid(err error, reason string) Result {
	return Result{Reason: reason, Err: err}
}

func (r Result) Error() string {
	if r.Valid {
		return "valid"
	}
	if r.Err == nil {
		return r.Reason
	}
	return fmt.Sprintf("%s: %v", r.Reason, r.Err)
}

func (r Result) Unwrap() error {
	return r.Err
}

func validateHeader(v ImmutableValue, now time.Time) Result {
	if !v.Encoding.IsValid() {
		return invalid(common.ErrEncoding, fmt.Sprintf("invalid record encoding %q", v.Encoding))
	}
	if v.Version < 0 {
		return invalid(common.ErrIntegrity, "invalid record version")
	}
	if v.Timestamp > now.Add(common.GraceWindow).UnixMilli() {
		return invalid(common.ErrStaleness, "record timestamp is too far in the future")
	}
	return valid()
}

func checkSize(declared, computed int64) Result {
	diff := declared - computed
	if diff < -SizeTolerance || diff > SizeTolerance {
		return invalid(common.ErrIntegrity,
			fmt.Sprintf("record size %d does not match computed size %d", declared, computed))
	}
	return valid()
}

func ValidateImmutable(r *Immutable, now time.Time) Result {
	if res := validateHeader(r.Value, now); !res.Valid {
		return res
	}
	size, err := immutableSize(r.Value)
	if err != nil {
		return invalid(common.ErrEncoding, err.Error())
	}
	if res := checkSize(r.Value.Size, size); !res.Valid {
		return res
	}
	data, err := serialize(r.Value)
	if err != nil {
		return invalid(common.ErrEncoding, err.Error())
	}
	if !crypto.IsValidHash(r.key, data) {
		return invalid(common.ErrIntegrity, "immutable record key does not match its value")
	}
	return valid()
}

// verifyMutable checks the integrity of a mutable record, ignoring time.
func verifyMutable(r *Mutable) Result {
	v := r.Value
	if !crypto.IsValidHash(r.key, []byte(v.PublicKey)) {
		return invalid(common.ErrIntegrity, "mutable record key does not match its public key")
	}
	if !crypto.IsValidHash(v.ContentHash, []byte(v.Content)) {
		return invalid(common.ErrIntegrity, "mutable record content hash does not match its content")
	}
	size, err := mutableSize(v)
	if err != nil {
		return invalid(common.ErrEncoding, err.Error())
	}
	if res := checkSize(v.Size, size); !res.Valid {
		return res
	}
	payload, err := signingPayload(v)
	if err != nil {
		return invalid(common.ErrEncoding, err.Error())
	}
	ok, err := crypto.Verify(payload, v.RecordSignature, v.PublicKey)
	if err != nil {
		return invalid(common.ErrIntegrity, fmt.Sprintf("record signature cannot be verified: %v", err))
	}
	if !ok {
		return invalid(common.ErrIntegrity, "invalid record signature")
	}
	return valid()
}

func ValidateMutable(r *Mutable, now time.Time) Result {
	if res := validateHeader(r.Value.ImmutableValue, now); !res.Valid {
		return res
	}
	return verifyMutable(r)
}

// Validate dispatches on the record variant.
func Validate(r Record, now time.Time) Result {
	switch t := r.(type) {
	case *Immutable:
		return ValidateImmutable(t, now)
	case *Mutable:
		return ValidateMutable(t, now)
	}
	return invalid(common.ErrEncoding, fmt.Sprintf("unknown record type %T", r))
}

// ValidateUpdate checks that next is a legitimate successor of prev.
func ValidateUpdate(prev, next *Mutable) Result {
	o, n := prev.Value, next.Value
	switch {
	case o.Version != n.Version:
		return invalid(common.ErrIntegrity, "record versions do not match")
	case o.SymmetricKey != n.SymmetricKey:
		return invalid(common.ErrIntegrity, "record symmetric keys do not match")
	case o.PublicKey != n.PublicKey:
		return invalid(common.ErrIntegrity, "record public keys do not match")
	case o.EncryptedPrivateKey != n.EncryptedPrivateKey:
		return invalid(common.ErrIntegrity, "record private keys do not match")
	case o.Owner != n.Owner:
		return invalid(common.ErrAuthorization, "record owners do not match")
	case o.Contract != n.Contract:
		return invalid(common.ErrAuthorization, "record contracts do not match")
	case n.Timestamp <= o.Timestamp:
		return invalid(common.ErrMutationOrder, "update timestamp is not newer than the current record")
	case n.Revision <= o.Revision:
		return invalid(common.ErrMutationOrder, "update revision is not greater than the current record")
	case n.RecordSignature == o.RecordSignature:
		return invalid(common.ErrMutationOrder, "update signature is unchanged")
	}
	return valid()
}
