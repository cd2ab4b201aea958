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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subspace/shardstore/common"
)

func TestCodecRoundTrip(t *testing.T) {
	for _, test := range []struct {
		name     string
		value    Value
		encoded  string
		encoding Encoding
	}{
		{"null", Null{}, "null", EncodingNull},
		{"string", String("hello"), "hello", EncodingString},
		{"empty-string", String(""), "", EncodingString},
		{"integer", Number(42), "42", EncodingNumber},
		{"float", Number(-3.25), "-3.25", EncodingNumber},
		{"true", Bool(true), "true", EncodingBool},
		{"false", Bool(false), "false", EncodingBool},
		{"buffer", Bytes{0x00, 0x01, 0xfe, 0xff}, "AAH+/w==", EncodingBuffer},
		{"array", Array{1.0, "two", true, nil}, `[1,"two",true,null]`, EncodingArray},
		{"object", Object{"a": 1.0, "b": []any{"x"}, "c": map[string]any{"d": false}}, `{"a":1,"b":["x"],"c":{"d":false}}`, EncodingObject},
		{"nested", Array{[]any{1.5, map[string]any{"n": -2.0}}, map[string]any{}}, `[[1.5,{"n":-2}],{}]`, EncodingArray},
	} {
		t.Run(test.name, func(t *testing.T) {
			encoded, encoding, err := Encode(test.value)
			require.NoError(t, err)
			assert.Equal(t, test.encoding, encoding)
			assert.Equal(t, test.encoded, encoded)

			decoded, err := Decode(encoded, encoding)
			require.NoError(t, err)
			assert.Equal(t, test.value, decoded)
		})
	}
}

func TestEncodeRejectsNonNativeElements(t *testing.T) {
	for _, test := range []struct {
		name  string
		value Value
	}{
		{"int-in-array", Array{1, "a"}},
		{"int64-in-object", Object{"n": int64(3)}},
		{"nested-int", Object{"list": []any{1.0, uint8(2)}}},
		{"named-array", Object{"b": Array{"x"}}},
		{"struct", Array{struct{ A int }{1}}},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := Encode(test.value)
			assert.ErrorIs(t, err, common.ErrEncoding)
		})
	}
}

func TestNewArrayAndObjectRoundTrip(t *testing.T) {
	a, err := NewArray(1, "a", []int{2, 3}, map[string]int{"k": 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, Array{1.0, "a", []any{2.0, 3.0}, map[string]any{"k": 4.0}, nil}, a)

	encoded, encoding, err := Encode(a)
	require.NoError(t, err)
	decoded, err := Decode(encoded, encoding)
	require.NoError(t, err)
	assert.Equal(t, Value(a), decoded)

	o, err := NewObject(map[string]any{"n": int64(7), "list": []uint16{1, 2}})
	require.NoError(t, err)
	encoded, encoding, err = Encode(o)
	require.NoError(t, err)
	decoded, err = Decode(encoded, encoding)
	require.NoError(t, err)
	assert.Equal(t, Value(o), decoded)

	_, err = NewArray(math.NaN())
	assert.ErrorIs(t, err, common.ErrEncoding)
}

func TestEncodeUndefined(t *testing.T) {
	_, _, err := Encode(nil)
	assert.ErrorIs(t, err, common.ErrEncoding)

	_, _, err = Encode(Number(math.NaN()))
	assert.ErrorIs(t, err, common.ErrEncoding)

	_, _, err = Encode(Number(math.Inf(1)))
	assert.ErrorIs(t, err, common.ErrEncoding)
}

func TestDecodeErrors(t *testing.T) {
	for _, test := range []struct {
		encoded  string
		encoding Encoding
	}{
		{"x", "symbol"},
		{"x", ""},
		{"abc", EncodingNumber},
		{"yes", EncodingBool},
		{"1", EncodingBool},
		{"{", EncodingObject},
		{"[", EncodingArray},
		{"!!", EncodingBuffer},
		{"nil", EncodingNull},
	} {
		t.Run(string(test.encoding)+"/"+test.encoded, func(t *testing.T) {
			_, err := Decode(test.encoded, test.encoding)
			assert.ErrorIs(t, err, common.ErrEncoding)
		})
	}
}

func TestEncodingIsValid(t *testing.T) {
	assert.True(t, EncodingBuffer.IsValid())
	assert.True(t, EncodingNull.IsValid())
	assert.False(t, Encoding("undefined").IsValid())
}

func TestContentStateDetectsDoubleEncoding(t *testing.T) {
	var c contentState
	require.NoError(t, c.markEncoded())
	assert.ErrorIs(t, c.markEncoded(), common.ErrEncoding)
	c.reset()
	assert.NoError(t, c.markEncoded())
}
