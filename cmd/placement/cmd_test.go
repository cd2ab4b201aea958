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

package placement

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/subspace/shardstore/placement"
)

const hosts = `
hosts:
  - identity: A
    pledgedBytes: 5 GB
  - identity: B
    pledgedBytes: 3 GB
  - identity: C
    pledgedBytes: 2 GB
  - identity: D
    pledgedBytes: 9 GB
    status: inactive
`

func writeHosts(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "hosts.yaml")
	require.NoError(t, os.WriteFile(file, []byte(hosts), 0o600))
	return file
}

func TestLoadHosts(t *testing.T) {
	list, err := LoadHosts(writeHosts(t))
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.EqualValues(t, 5_000_000_000, list[0].PledgedBytes)
	assert.False(t, list[3].IsActive())
}

func TestHostsCmd(t *testing.T) {
	file := writeHosts(t)

	out := &bytes.Buffer{}
	Cmd.SetOut(out)
	Cmd.SetArgs([]string{"hosts", "-f", file, "-r", "2", "-c", "contract-1", "-s", "200 MB"})
	require.NoError(t, Cmd.Execute())

	var res []placement.ShardHosts
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	require.Len(t, res, 2)
	for _, sh := range res {
		assert.Len(t, sh.Hosts, 2)
		assert.NotContains(t, sh.Hosts, "D")
	}

	out.Reset()
	Cmd.SetArgs([]string{"hosts", "shard-1", "-f", file, "-r", "3", "-x", "A", "-c", ""})
	require.NoError(t, Cmd.Execute())
	res = nil
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	require.Len(t, res, 1)
	assert.ElementsMatch(t, []string{"B", "C"}, res[0].Hosts)
}
