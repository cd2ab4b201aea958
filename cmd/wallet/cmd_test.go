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

package wallet

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/subspace/shardstore/server/wallet"
)

func TestWalletCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.yaml")

	out := &bytes.Buffer{}
	Cmd.SetOut(out)
	Cmd.SetArgs([]string{"init", "-w", path})
	require.NoError(t, Cmd.Execute())

	var initOut map[string]string
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &initOut))
	assert.NotEmpty(t, initOut["profile"])

	Cmd.SetArgs([]string{"init", "-w", path})
	assert.Error(t, Cmd.Execute())

	out.Reset()
	Cmd.SetArgs([]string{"contract", "-w", path, "--space", "200 MB", "-r", "2", "--ttl", "1h"})
	require.NoError(t, Cmd.Execute())

	var contract wallet.Contract
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &contract))
	assert.Equal(t, int64(200_000_000), contract.SpaceReserved)
	assert.Equal(t, 2, contract.ReplicationFactor)
	assert.Equal(t, initOut["profile"], contract.Owner)
	assert.Empty(t, contract.PrivateKey)

	w, err := wallet.Load(path)
	require.NoError(t, err)
	stored, err := w.Contract(context.Background(), contract.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PrivateKey)

	Cmd.SetArgs([]string{"contract", "-w", path, "--space", "150 MB"})
	assert.Error(t, Cmd.Execute())

	out.Reset()
	Cmd.SetArgs([]string{"show", "-w", path})
	require.NoError(t, Cmd.Execute())
	var s summary
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &s))
	assert.Len(t, s.Contracts, 1)
}
