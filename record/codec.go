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
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
)

type Encoding string

const (
	EncodingNull   Encoding = "null"
	EncodingString Encoding = "string"
	EncodingNumber Encoding = "number"
	EncodingBool   Encoding = "boolean"
	EncodingArray  Encoding = "array"
	EncodingObject Encoding = "object"
	EncodingBuffer Encoding = "buffer"
)

func (e Encoding) IsValid() bool {
	switch e {
	case EncodingNull, EncodingString, EncodingNumber, EncodingBool,
		EncodingArray, EncodingObject, EncodingBuffer:
		return true
	}
	return false
}

// Value is the closed set of content types a record can carry.
type Value interface {
	Encoding() Encoding
	value()
}

type (
	Null   struct{}
	String string
	Number float64
	Bool   bool
	Bytes  []byte
	Array  []any
	Object map[string]any
)

func (Null) Encoding() Encoding   { return EncodingNull }
func (String) Encoding() Encoding { return EncodingString }
func (Number) Encoding() Encoding { return EncodingNumber }
func (Bool) Encoding() Encoding   { return EncodingBool }
func (Bytes) Encoding() Encoding  { return EncodingBuffer }
func (Array) Encoding() Encoding  { return EncodingArray }
func (Object) Encoding() Encoding { return EncodingObject }

func (Null) value()   {}
func (String) value() {}
func (Number) value() {}
func (Bool) value()   {}
func (Bytes) value()  {}
func (Array) value()  {}
func (Object) value() {}

// Encode converts a value into its string form and the tag needed to
// reverse it.
func Encode(v Value) (string, Encoding, error) {
	switch t := v.(type) {
	case nil:
		return "", "", errors.Wrap(common.ErrEncoding, "cannot encode an undefined value")
	case Null:
		return "null", EncodingNull, nil
	case String:
		return string(t), EncodingString, nil
	case Number:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", "", errors.Wrapf(common.ErrEncoding, "cannot encode number %v", f)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), EncodingNumber, nil
	case Bool:
		return strconv.FormatBool(bool(t)), EncodingBool, nil
	case Bytes:
		return base64.StdEncoding.EncodeToString(t), EncodingBuffer, nil
	case Array:
		if err := checkNative([]any(t)); err != nil {
			return "", "", err
		}
		data, err := json.Marshal([]any(t))
		if err != nil {
			return "", "", errors.Wrapf(common.ErrEncoding, "cannot encode array: %v", err)
		}
		return string(data), EncodingArray, nil
	case Object:
		if err := checkNative(map[string]any(t)); err != nil {
			return "", "", err
		}
		data, err := json.Marshal(map[string]any(t))
		if err != nil {
			return "", "", errors.Wrapf(common.ErrEncoding, "cannot encode object: %v", err)
		}
		return string(data), EncodingObject, nil
	}

	return "", "", errors.Wrapf(common.ErrEncoding, "unsupported value type %T", v)
}

// checkNative accepts only the types Decode produces for JSON content,
// so that decoding an encoded array or object yields an equal value.
func checkNative(v any) error {
	switch t := v.(type) {
	case nil, bool, float64, string:
		return nil
	case []any:
		for _, e := range t {
			if err := checkNative(e); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, e := range t {
			if err := checkNative(e); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Wrapf(common.ErrEncoding, "unsupported element type %T, use NewArray or NewObject", v)
}

// normalize converts any JSON serializable value into its JSON native
// form.
func normalize(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(common.ErrEncoding, "cannot normalize %T: %v", v, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(common.ErrEncoding, "cannot normalize %T: %v", v, err)
	}
	return nil
}

// NewArray builds an array from arbitrary JSON serializable items,
// converting numbers to float64 and nested collections to []any and
// map[string]any.
func NewArray(items ...any) (Array, error) {
	a := []any{}
	if err := normalize(items, &a); err != nil {
		return nil, err
	}
	return Array(a), nil
}

// NewObject is the object counterpart of NewArray.
func NewObject(fields map[string]any) (Object, error) {
	o := map[string]any{}
	if err := normalize(fields, &o); err != nil {
		return nil, err
	}
	return Object(o), nil
}

// Decode is the exact inverse of Encode.
func Decode(encoded string, encoding Encoding) (Value, error) {
	switch encoding {
	case EncodingNull:
		if encoded != "null" {
			return nil, errors.Wrapf(common.ErrEncoding, "invalid null value %q", encoded)
		}
		return Null{}, nil
	case EncodingString:
		return String(encoded), nil
	case EncodingNumber:
		f, err := strconv.ParseFloat(encoded, 64)
		if err != nil {
			return nil, errors.Wrapf(common.ErrEncoding, "invalid number %q", encoded)
		}
		return Number(f), nil
	case EncodingBool:
		b, err := strconv.ParseBool(encoded)
		if err != nil || (encoded != "true" && encoded != "false") {
			return nil, errors.Wrapf(common.ErrEncoding, "invalid boolean %q", encoded)
		}
		return Bool(b), nil
	case EncodingBuffer:
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.Wrapf(common.ErrEncoding, "invalid buffer: %v", err)
		}
		return Bytes(data), nil
	case EncodingArray:
		var a []any
		if err := json.Unmarshal([]byte(encoded), &a); err != nil {
			return nil, errors.Wrapf(common.ErrEncoding, "invalid array: %v", err)
		}
		return Array(a), nil
	case EncodingObject:
		var o map[string]any
		if err := json.Unmarshal([]byte(encoded), &o); err != nil {
			return nil, errors.Wrapf(common.ErrEncoding, "invalid object: %v", err)
		}
		return Object(o), nil
	}

	return nil, errors.Wrapf(common.ErrEncoding, "unknown encoding %q", encoding)
}

// contentState tracks whether a record's content field holds encoded
// content. Encoding the same content twice is a programming error.
type contentState struct {
	encoded bool
}

func (c *contentState) markEncoded() error {
	if c.encoded {
		return errors.Wrap(common.ErrEncoding, "content is already encoded")
	}
	c.encoded = true
	return nil
}

func (c *contentState) reset() {
	c.encoded = false
}
