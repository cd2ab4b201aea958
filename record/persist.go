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

	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
)

type envelope struct {
	Key       string          `json:"key"`
	Immutable bool            `json:"immutable"`
	Value     json.RawMessage `json:"value"`
}

// Marshal returns the stored form of a record.
func Marshal(r Record) ([]byte, error) {
	var value any
	switch t := r.(type) {
	case *Immutable:
		value = t.Value
	case *Mutable:
		value = t.Value
	default:
		return nil, errors.Wrapf(common.ErrEncoding, "unknown record type %T", r)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize record")
	}
	return json.Marshal(envelope{Key: r.Key(), Immutable: r.IsImmutable(), Value: raw})
}

// Unmarshal restores a record written by Marshal. It does not validate
// the record.
func Unmarshal(data []byte) (Record, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrapf(common.ErrEncoding, "invalid record: %v", err)
	}

	if e.Immutable {
		r := &Immutable{key: e.Key, contentState: contentState{encoded: true}}
		if err := json.Unmarshal(e.Value, &r.Value); err != nil {
			return nil, errors.Wrapf(common.ErrEncoding, "invalid immutable value: %v", err)
		}
		return r, nil
	}

	r := &Mutable{key: e.Key, contentState: contentState{encoded: true}}
	if err := json.Unmarshal(e.Value, &r.Value); err != nil {
		return nil, errors.Wrapf(common.ErrEncoding, "invalid mutable value: %v", err)
	}
	return r, nil
}
