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
	"time"

	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/crypto"
)

// Record is the behaviour shared by the immutable and mutable variants.
type Record interface {
	Key() string
	IsImmutable() bool
	// Header returns the fields common to both variants.
	Header() ImmutableValue
	Size() int64
	Open(caller Identity) (Value, error)
	Update(content Value, caller Identity, now time.Time) error
}

type CreateOptions struct {
	Owner    Identity
	Contract string
	Encrypt  bool
	// Now overrides the creation time. The zero value means time.Now().
	Now time.Time
}

func (o CreateOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// encodeContent encodes the content and, when a symmetric key is
// given, encrypts the encoded form.
func encodeContent(state *contentState, content Value, symKey string) (string, Encoding, error) {
	encoded, encoding, err := Encode(content)
	if err != nil {
		return "", "", err
	}
	if err := state.markEncoded(); err != nil {
		return "", "", err
	}
	if symKey == "" {
		return encoded, encoding, nil
	}
	ciphertext, err := encrypt(encoded, symKey)
	if err != nil {
		state.reset()
		return "", "", err
	}
	return ciphertext, encoding, nil
}

////////////////////////////////////////////////////////////////////////

type Immutable struct {
	contentState
	key   string
	Value ImmutableValue
}

func NewImmutable(content Value, opts CreateOptions) (*Immutable, error) {
	r := &Immutable{}
	v := ImmutableValue{
		Version:   CurrentVersion,
		Owner:     opts.Owner.ID,
		Contract:  opts.Contract,
		Timestamp: opts.now().UnixMilli(),
	}

	var symKey string
	if opts.Encrypt {
		var err error
		if symKey, err = crypto.GenerateSymmetricKey(); err != nil {
			return nil, err
		}
		if v.SymmetricKey, err = crypto.EncryptAsymmetric([]byte(symKey), opts.Owner.Keys.PublicKey); err != nil {
			return nil, errors.Wrap(err, "failed to wrap symmetric key")
		}
	}

	var err error
	if v.Content, v.Encoding, err = encodeContent(&r.contentState, content, symKey); err != nil {
		return nil, err
	}
	if v.Size, err = immutableSize(v); err != nil {
		return nil, err
	}

	r.Value = v
	// The key covers every other field, so it is derived last.
	if r.key, err = immutableKey(v); err != nil {
		return nil, err
	}
	return r, nil
}

func immutableKey(v ImmutableValue) (string, error) {
	data, err := serialize(v)
	if err != nil {
		return "", err
	}
	return crypto.Hash(data), nil
}

func (r *Immutable) Key() string            { return r.key }
func (r *Immutable) IsImmutable() bool      { return true }
func (r *Immutable) Header() ImmutableValue { return r.Value }
func (r *Immutable) Size() int64            { return r.Value.Size }

func (r *Immutable) Open(caller Identity) (Value, error) {
	return decryptContent(r.Value, caller.Keys.PrivateKey)
}

func (*Immutable) Update(Value, Identity, time.Time) error {
	return errors.Wrap(common.ErrImmutableRecord, "immutable records cannot be updated")
}

////////////////////////////////////////////////////////////////////////

type Mutable struct {
	contentState
	key   string
	Value MutableValue
}

func NewMutable(content Value, opts CreateOptions) (*Mutable, error) {
	recordKeys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	r := &Mutable{}
	v := MutableValue{
		ImmutableValue: ImmutableValue{
			Version:   CurrentVersion,
			Owner:     opts.Owner.ID,
			Contract:  opts.Contract,
			Timestamp: opts.now().UnixMilli(),
		},
		PublicKey: recordKeys.PublicKey,
		Revision:  0,
	}

	if v.EncryptedPrivateKey, err = crypto.EncryptAsymmetric([]byte(recordKeys.PrivateKey), opts.Owner.Keys.PublicKey); err != nil {
		return nil, errors.Wrap(err, "failed to wrap record private key")
	}

	var symKey string
	if opts.Encrypt {
		if symKey, err = crypto.GenerateSymmetricKey(); err != nil {
			return nil, err
		}
		if v.SymmetricKey, err = crypto.EncryptAsymmetric([]byte(symKey), recordKeys.PublicKey); err != nil {
			return nil, errors.Wrap(err, "failed to wrap symmetric key")
		}
	}

	if v.Content, v.Encoding, err = encodeContent(&r.contentState, content, symKey); err != nil {
		return nil, err
	}

	if err := seal(&v, recordKeys.PrivateKey); err != nil {
		return nil, err
	}

	r.Value = v
	r.key = crypto.HashString(v.PublicKey)
	return r, nil
}

// seal fills the content hash, size and record signature of a value
// whose content is final.
func seal(v *MutableValue, recordPrivateKey string) error {
	var err error
	v.ContentHash = crypto.HashString(v.Content)
	if v.Size, err = mutableSize(*v); err != nil {
		return err
	}
	payload, err := signingPayload(*v)
	if err != nil {
		return err
	}
	if v.RecordSignature, err = crypto.Sign(payload, recordPrivateKey); err != nil {
		return errors.Wrap(err, "failed to sign record")
	}
	return nil
}

func (r *Mutable) Key() string            { return r.key }
func (r *Mutable) IsImmutable() bool      { return false }
func (r *Mutable) Header() ImmutableValue { return r.Value.ImmutableValue }
func (r *Mutable) Size() int64            { return r.Value.Size }

// Clone returns a deep copy that can be updated independently.
func (r *Mutable) Clone() *Mutable {
	c := *r
	return &c
}

// openPrivateKey unwraps the record private key for the owner.
func (r *Mutable) openPrivateKey(caller Identity) (string, error) {
	if err := checkOwner(r.Value.Owner, caller); err != nil {
		return "", err
	}
	privateKey, err := crypto.DecryptAsymmetric(r.Value.EncryptedPrivateKey, caller.Keys.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to unwrap record private key")
	}
	return string(privateKey), nil
}

func (r *Mutable) Open(caller Identity) (Value, error) {
	privateKey, err := r.openPrivateKey(caller)
	if err != nil {
		return nil, err
	}
	if res := verifyMutable(r); !res.Valid {
		return nil, res
	}
	return decryptContent(r.Value.ImmutableValue, privateKey)
}

// Update replaces the content in place. The record is left untouched
// when any step fails.
func (r *Mutable) Update(content Value, caller Identity, now time.Time) error {
	privateKey, err := r.openPrivateKey(caller)
	if err != nil {
		return err
	}

	var symKey string
	if r.Value.SymmetricKey != "" {
		key, err := crypto.DecryptAsymmetric(r.Value.SymmetricKey, privateKey)
		if err != nil {
			return errors.Wrap(err, "failed to unwrap symmetric key")
		}
		symKey = string(key)
	}

	v := r.Value
	state := contentState{}
	if v.Content, v.Encoding, err = encodeContent(&state, content, symKey); err != nil {
		return err
	}

	v.Revision++
	ts := now.UnixMilli()
	if ts <= r.Value.Timestamp {
		ts = r.Value.Timestamp + 1
	}
	v.Timestamp = ts

	if err := seal(&v, privateKey); err != nil {
		return err
	}

	r.Value = v
	r.contentState = state
	return nil
}
