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
	"math"
	"sort"

	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/server/tracker"
)

// Destination is a host projected into the placement space.
type Destination struct {
	ID     uint64
	Host   string
	Weight float64
}

// GetDestinations converts the host population into weighted
// destinations. Inactive hosts, hosts without pledged space and self are
// left out. An empty self keeps every host.
func GetDestinations(hosts []tracker.Host, self string) []Destination {
	dests := make([]Destination, 0, len(hosts))
	for _, h := range hosts {
		if !h.IsActive() || h.PledgedBytes <= 0 {
			continue
		}
		if self != "" && h.Identity == self {
			continue
		}
		dests = append(dests, Destination{
			ID:     common.Hash64(h.Identity),
			Host:   h.Identity,
			Weight: float64(h.PledgedBytes) / float64(common.PledgeSize),
		})
	}
	return dests
}

// Score is the weighted rendezvous score of a destination for a shard.
// With u uniform in (0,1), -w/ln(u) picks each destination with a
// probability proportional to its weight.
func Score(shardHash uint64, d Destination) float64 {
	h := common.Hash64Seeded(shardHash, d.ID)
	u := (float64(h>>11) + 0.5) / (1 << 53)
	return -d.Weight / math.Log(u)
}

type scored struct {
	dest  Destination
	score float64
}

func byScore(a, b any) int {
	sa, sb := a.(scored), b.(scored)
	switch {
	case sa.score > sb.score:
		return -1
	case sa.score < sb.score:
		return 1
	case sa.dest.ID < sb.dest.ID:
		return -1
	case sa.dest.ID > sb.dest.ID:
		return 1
	}
	return 0
}

// SelectHosts returns the replicationFactor highest scoring destinations
// for a shard, best first. Fewer destinations yield fewer hosts.
func SelectHosts(shardID string, dests []Destination, replicationFactor int) []string {
	shardHash := common.Hash64(shardID)
	queue := priorityqueue.NewWith(byScore)
	for _, d := range dests {
		queue.Enqueue(scored{dest: d, score: Score(shardHash, d)})
	}

	hosts := make([]string, 0, replicationFactor)
	for len(hosts) < replicationFactor {
		v, ok := queue.Dequeue()
		if !ok {
			break
		}
		hosts = append(hosts, v.(scored).dest.Host)
	}
	return hosts
}

// fingerprint identifies a destination set regardless of its order.
func fingerprint(dests []Destination) uint64 {
	sorted := make([]Destination, len(dests))
	copy(sorted, dests)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var h uint64
	for _, d := range sorted {
		h = common.Hash64Seeded(h, d.ID)
		h = common.Hash64Seeded(h, math.Float64bits(d.Weight))
	}
	return h
}
