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
	"log/slog"
	"slices"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"

	"github.com/subspace/shardstore/server/tracker"
	"github.com/subspace/shardstore/server/wallet"
	"github.com/subspace/shardstore/shards"
)

type ShardHosts struct {
	ShardID string   `json:"shardId" yaml:"shardId"`
	Hosts   []string `json:"hosts" yaml:"hosts"`
}

// Placer answers which hosts replicate a shard, given the host
// population reported by a tracker.
type Placer struct {
	tracker tracker.Tracker
	self    string
	cache   *ristretto.Cache
	log     *slog.Logger
}

// NewPlacer creates a placer. When self is not empty that host is never
// returned as a replica.
func NewPlacer(t tracker.Tracker, self string) (*Placer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create placement cache")
	}

	return &Placer{
		tracker: t,
		self:    self,
		cache:   cache,
		log: slog.With(
			slog.String("component", "placer"),
		),
	}, nil
}

func (p *Placer) Close() error {
	p.cache.Close()
	return nil
}

func (p *Placer) destinations(ctx context.Context) ([]Destination, error) {
	hosts, err := p.tracker.AllHosts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list hosts")
	}
	return GetDestinations(hosts, p.self), nil
}

// ComputeHostsForShards selects replicationFactor hosts for every shard.
func (p *Placer) ComputeHostsForShards(ctx context.Context, shardIDs []string, replicationFactor int) ([]ShardHosts, error) {
	if replicationFactor <= 0 {
		return nil, errors.Errorf("invalid replication factor %d", replicationFactor)
	}
	dests, err := p.destinations(ctx)
	if err != nil {
		return nil, err
	}
	fp := fingerprint(dests)

	res := make([]ShardHosts, len(shardIDs))
	for i, shardID := range shardIDs {
		key := fmt.Sprintf("%s/%d/%x", shardID, replicationFactor, fp)
		if cached, ok := p.cache.Get(key); ok {
			res[i] = ShardHosts{ShardID: shardID, Hosts: slices.Clone(cached.([]string))}
			continue
		}

		hosts := SelectHosts(shardID, dests, replicationFactor)
		if len(hosts) < replicationFactor {
			p.log.Warn(
				"Not enough hosts to reach the replication factor",
				slog.String("shard", shardID),
				slog.Int("replication-factor", replicationFactor),
				slog.Int("hosts", len(hosts)),
			)
		}
		p.cache.Set(key, slices.Clone(hosts), 1)
		res[i] = ShardHosts{ShardID: shardID, Hosts: hosts}
	}
	return res, nil
}

// GetShardAndHostsForKey resolves the shard of a contract holding key and
// the hosts replicating it.
func (p *Placer) GetShardAndHostsForKey(ctx context.Context, key string, contract wallet.Contract) (ShardHosts, error) {
	shardID, err := shards.ShardIDForKey(key, contract.ID, contract.SpaceReserved)
	if err != nil {
		return ShardHosts{}, err
	}
	res, err := p.ComputeHostsForShards(ctx, []string{shardID}, contract.ReplicationFactor)
	if err != nil {
		return ShardHosts{}, err
	}
	return res[0], nil
}
