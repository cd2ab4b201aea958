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
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/record"
	"github.com/subspace/shardstore/server/tracker"
	"github.com/subspace/shardstore/server/wallet"
	"github.com/subspace/shardstore/shards"
)

var testHosts = []tracker.Host{
	{Identity: "A", PledgedBytes: 5_000_000_000, Status: tracker.StatusActive},
	{Identity: "B", PledgedBytes: 3_000_000_000, Status: tracker.StatusActive},
	{Identity: "C", PledgedBytes: 2_000_000_000, Status: tracker.StatusActive},
}

func TestGetDestinations(t *testing.T) {
	hosts := append(testHosts,
		tracker.Host{Identity: "D", PledgedBytes: 1_000_000_000, Status: tracker.StatusInactive},
		tracker.Host{Identity: "E", PledgedBytes: 0},
	)

	dests := GetDestinations(hosts, "")
	require.Len(t, dests, 3)
	assert.Equal(t, "A", dests[0].Host)
	assert.Equal(t, common.Hash64("A"), dests[0].ID)
	assert.InDelta(t, 0.5, dests[0].Weight, 1e-9)
	assert.InDelta(t, 0.3, dests[1].Weight, 1e-9)
	assert.InDelta(t, 0.2, dests[2].Weight, 1e-9)

	dests = GetDestinations(hosts, "B")
	require.Len(t, dests, 2)
	assert.Equal(t, "A", dests[0].Host)
	assert.Equal(t, "C", dests[1].Host)
}

func TestSelectHosts_Deterministic(t *testing.T) {
	dests := GetDestinations(testHosts, "")
	for i := 0; i < 100; i++ {
		shardID := fmt.Sprint("shard-", i)
		hosts := SelectHosts(shardID, dests, 2)
		assert.Len(t, hosts, 2)
		assert.NotEqual(t, hosts[0], hosts[1])
		assert.Equal(t, hosts, SelectHosts(shardID, dests, 2))

		// The replica set for a smaller factor is a prefix
		assert.Equal(t, hosts[:1], SelectHosts(shardID, dests, 1))
	}
}

func TestSelectHosts_OrderIndependent(t *testing.T) {
	hosts := make([]tracker.Host, 20)
	for i := range hosts {
		hosts[i] = tracker.Host{Identity: fmt.Sprint("host-", i), PledgedBytes: int64(i+1) * 1_000_000_000}
	}
	dests := GetDestinations(hosts, "")
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		shardID := fmt.Sprint("shard-", i)
		expected := SelectHosts(shardID, dests, 3)

		shuffled := make([]Destination, len(dests))
		copy(shuffled, dests)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assert.Equal(t, expected, SelectHosts(shardID, shuffled, 3))
		assert.Equal(t, fingerprint(dests), fingerprint(shuffled))
	}
}

func TestSelectHosts_FewerDestinations(t *testing.T) {
	dests := GetDestinations(testHosts, "")
	hosts := SelectHosts("shard", dests, 5)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, hosts)

	assert.Empty(t, SelectHosts("shard", nil, 2))
}

func TestSelectHosts_Weighted(t *testing.T) {
	dests := GetDestinations(testHosts, "")
	counts := map[string]int{}
	const n = 6000
	for i := 0; i < n; i++ {
		counts[SelectHosts(fmt.Sprint("shard-", i), dests, 1)[0]]++
	}

	assert.InDelta(t, 0.5, float64(counts["A"])/n, 0.05)
	assert.InDelta(t, 0.3, float64(counts["B"])/n, 0.05)
	assert.InDelta(t, 0.2, float64(counts["C"])/n, 0.05)
}

func TestSelectHosts_MinimalDisruption(t *testing.T) {
	dests := GetDestinations(testHosts, "")
	grown := GetDestinations(append(testHosts, tracker.Host{Identity: "D", PledgedBytes: 2_000_000_000}), "")

	for i := 0; i < 500; i++ {
		shardID := fmt.Sprint("shard-", i)
		before := SelectHosts(shardID, dests, 1)[0]
		after := SelectHosts(shardID, grown, 1)[0]
		if before != after {
			assert.Equal(t, "D", after)
		}
	}
}

func TestPlacer_ComputeHostsForShards(t *testing.T) {
	ctx := context.Background()
	tr := tracker.NewStatic(testHosts)
	p, err := NewPlacer(tr, "")
	require.NoError(t, err)
	defer p.Close()

	ids := []string{"s1", "s2", "s3"}
	res, err := p.ComputeHostsForShards(ctx, ids, 2)
	require.NoError(t, err)
	require.Len(t, res, 3)
	for i, sh := range res {
		assert.Equal(t, ids[i], sh.ShardID)
		assert.Len(t, sh.Hosts, 2)
	}

	again, err := p.ComputeHostsForShards(ctx, ids, 2)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	_, err = p.ComputeHostsForShards(ctx, ids, 0)
	assert.Error(t, err)

	// Population changes are picked up
	tr.Update(testHosts[:1])
	res, err = p.ComputeHostsForShards(ctx, ids, 2)
	require.NoError(t, err)
	for _, sh := range res {
		assert.Equal(t, []string{"A"}, sh.Hosts)
	}
}

func TestPlacer_ExcludesSelf(t *testing.T) {
	p, err := NewPlacer(tracker.NewStatic(testHosts), "A")
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 20; i++ {
		res, err := p.ComputeHostsForShards(context.Background(), []string{fmt.Sprint("s", i)}, 3)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"B", "C"}, res[0].Hosts)
	}
}

func TestGetShardAndHostsForKey(t *testing.T) {
	ctx := context.Background()
	owner, err := wallet.GenerateProfile()
	require.NoError(t, err)
	contract, err := wallet.NewContract(owner, 2*common.ShardSize, 2, time.Hour, time.Now())
	require.NoError(t, err)

	r, err := record.NewImmutable(record.String("hello"), record.CreateOptions{
		Owner:    owner.Identity(),
		Contract: contract.ID,
	})
	require.NoError(t, err)

	p, err := NewPlacer(tracker.NewStatic(testHosts), "")
	require.NoError(t, err)
	defer p.Close()

	res, err := p.GetShardAndHostsForKey(ctx, r.Key(), contract)
	require.NoError(t, err)

	ids, err := shards.ComputeShardArray(contract.ID, contract.SpaceReserved)
	require.NoError(t, err)
	assert.Contains(t, ids, res.ShardID)
	assert.Len(t, res.Hosts, 2)
	assert.Subset(t, []string{"A", "B", "C"}, res.Hosts)
	assert.NotEqual(t, res.Hosts[0], res.Hosts[1])

	again, err := p.GetShardAndHostsForKey(ctx, r.Key(), contract)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	contract.SpaceReserved = common.ShardSize + 1
	_, err = p.GetShardAndHostsForKey(ctx, r.Key(), contract)
	assert.ErrorIs(t, err, common.ErrInvalidContractSize)
}
