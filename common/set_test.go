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
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := NewSet[string]()
	assert.True(t, s.IsEmpty())

	s.Add("b")
	s.Add("a")
	s.Add("b")
	assert.Equal(t, 2, s.Count())
	assert.True(t, s.Contains("a"))
	assert.Equal(t, []string{"a", "b"}, s.GetSorted())

	s.Remove("a")
	assert.False(t, s.Contains("a"))
	assert.Equal(t, []string{"b"}, s.GetSorted())
}

func TestSetUnion(t *testing.T) {
	a := NewSetFrom([]string{"x", "y"})
	a.Union(NewSetFrom([]string{"y", "z"}))
	assert.Equal(t, []string{"x", "y", "z"}, a.GetSorted())
}

func TestSetCBOR(t *testing.T) {
	data, err := cbor.Marshal(NewSetFrom([]string{"shard-b", "shard-a"}))
	require.NoError(t, err)

	// Same bytes as the sorted array
	expected, err := cbor.Marshal([]string{"shard-a", "shard-b"})
	require.NoError(t, err)
	assert.Equal(t, expected, data)

	s := NewSetFrom([]string{"stale"})
	require.NoError(t, cbor.Unmarshal(data, s))
	assert.Equal(t, []string{"shard-a", "shard-b"}, s.GetSorted())
}
