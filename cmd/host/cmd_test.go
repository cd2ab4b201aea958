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

package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subspace/shardstore/server/kv"
	"github.com/subspace/shardstore/server/tracker"
)

const hostConfig = `
identity: host-a
expiryInterval: 10s
storage:
  backend: sqlite
  dataDir: /var/lib/shardstore
hosts:
  - identity: host-a
    pledgedBytes: 5 GB
  - identity: host-b
    pledgedBytes: 3000000000
    status: inactive
`

func TestLoadConfig_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(file, []byte(hostConfig), 0o600))

	v, err := NewViper(Cmd, file)
	require.NoError(t, err)
	conf, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "host-a", conf.Identity)
	assert.Equal(t, 10*time.Second, conf.ExpiryInterval)
	assert.Equal(t, kv.BackendSQLite, conf.Storage.Backend)
	assert.Equal(t, "/var/lib/shardstore", conf.Storage.DataDir)
	require.Len(t, conf.Hosts, 2)
	assert.EqualValues(t, 5_000_000_000, conf.Hosts[0].PledgedBytes)
	assert.Equal(t, tracker.StatusInactive, conf.Hosts[1].Status)
}

func TestLoadConfig_Flags(t *testing.T) {
	require.NoError(t, Cmd.Flags().Set("admin-addr", "localhost:9999"))
	require.NoError(t, Cmd.Flags().Set("storage", "memory"))
	t.Cleanup(func() {
		_ = Cmd.Flags().Set("admin-addr", "localhost:8080")
		_ = Cmd.Flags().Set("storage", string(kv.BackendPebble))
	})

	v, err := NewViper(Cmd, "")
	require.NoError(t, err)
	conf, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "localhost:9999", conf.AdminAddr)
	assert.Equal(t, kv.BackendMemory, conf.Storage.Backend)
	assert.Empty(t, conf.Hosts)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := NewViper(Cmd, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
