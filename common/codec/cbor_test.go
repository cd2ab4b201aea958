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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID      string   `cbor:"id"`
	Size    int64    `cbor:"size"`
	Records []string `cbor:"records"`
}

func TestMarshalDeterministic(t *testing.T) {
	in := sample{ID: "s-1", Size: 42, Records: []string{"a", "b"}}

	a, err := Marshal(in)
	require.NoError(t, err)
	b, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var out sample
	require.NoError(t, Unmarshal(a, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalGarbage(t *testing.T) {
	var out sample
	assert.Error(t, Unmarshal([]byte{0xff, 0x00, 0x13}, &out))
}
