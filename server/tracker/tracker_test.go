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

package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	hosts := []Host{
		{Identity: "a", PledgedBytes: 5_000_000_000},
		{Identity: "b", PledgedBytes: 3_000_000_000, Status: StatusInactive},
	}
	s := NewStatic(hosts)

	res, err := s.AllHosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hosts, res)
	assert.True(t, res[0].IsActive())
	assert.False(t, res[1].IsActive())

	// Returned slice is a copy
	res[0].PledgedBytes = 0
	res, err = s.AllHosts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5_000_000_000, res[0].PledgedBytes)

	s.Update([]Host{{Identity: "c", PledgedBytes: 1}})
	res, err = s.AllHosts(context.Background())
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, "c", res[0].Identity)
}

func TestStatic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic(nil).AllHosts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
