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
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/subspace/shardstore/common"
	"github.com/subspace/shardstore/common/crypto"
	"github.com/subspace/shardstore/record"
)

type Profile struct {
	ID         string `yaml:"id" json:"id"`
	PublicKey  string `yaml:"publicKey" json:"publicKey"`
	PrivateKey string `yaml:"privateKey" json:"privateKey"`
}

func (p Profile) Identity() record.Identity {
	return record.Identity{
		ID:   p.ID,
		Keys: crypto.KeyPair{PublicKey: p.PublicKey, PrivateKey: p.PrivateKey},
	}
}

func GenerateProfile() (Profile, error) {
	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return Profile{}, err
	}
	return Profile{ID: keys.ID(), PublicKey: keys.PublicKey, PrivateKey: keys.PrivateKey}, nil
}

// Contract is a reservation of storage space, replicated across
// ReplicationFactor hosts until CreatedAt + TTL.
type Contract struct {
	ID                string        `yaml:"id" json:"id"`
	Owner             string        `yaml:"owner" json:"owner"`
	TTL               time.Duration `yaml:"ttl" json:"ttl"`
	CreatedAt         time.Time     `yaml:"createdAt" json:"createdAt"`
	SpaceReserved     int64         `yaml:"spaceReserved" json:"spaceReserved"`
	ReplicationFactor int           `yaml:"replicationFactor" json:"replicationFactor"`
	PublicKey         string        `yaml:"publicKey" json:"publicKey"`
	PrivateKey        string        `yaml:"privateKey,omitempty" json:"privateKey,omitempty"`
}

func (c Contract) ExpiresAt() time.Time {
	return c.CreatedAt.Add(c.TTL)
}

func (c Contract) IsActive(now time.Time) bool {
	return now.Before(c.ExpiresAt())
}

// Public strips the private key.
func (c Contract) Public() Contract {
	c.PrivateKey = ""
	return c
}

func NewContract(owner Profile, spaceReserved int64, replicationFactor int, ttl time.Duration, now time.Time) (Contract, error) {
	if spaceReserved <= 0 || spaceReserved%common.ShardSize != 0 {
		return Contract{}, errors.Wrapf(common.ErrInvalidContractSize,
			"space reserved %d is not a multiple of %d", spaceReserved, common.ShardSize)
	}
	if replicationFactor <= 0 {
		return Contract{}, errors.Errorf("invalid replication factor %d", replicationFactor)
	}

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return Contract{}, err
	}
	return Contract{
		ID:                keys.ID(),
		Owner:             owner.ID,
		TTL:               ttl,
		CreatedAt:         now.UTC().Truncate(time.Millisecond),
		SpaceReserved:     spaceReserved,
		ReplicationFactor: replicationFactor,
		PublicKey:         keys.PublicKey,
		PrivateKey:        keys.PrivateKey,
	}, nil
}

// Wallet supplies the local identity and the contracts it knows about.
type Wallet interface {
	Profile(ctx context.Context) (Profile, error)
	Contract(ctx context.Context, id string) (Contract, error)
	Contracts(ctx context.Context) ([]Contract, error)
}

type Memory struct {
	sync.RWMutex
	profile   Profile
	contracts map[string]Contract
}

func NewMemory(profile Profile, contracts ...Contract) *Memory {
	m := &Memory{profile: profile, contracts: map[string]Contract{}}
	for _, c := range contracts {
		m.contracts[c.ID] = c
	}
	return m
}

func (m *Memory) Profile(context.Context) (Profile, error) {
	return m.profile, nil
}

func (m *Memory) Contract(_ context.Context, id string) (Contract, error) {
	m.RLock()
	defer m.RUnlock()
	c, ok := m.contracts[id]
	if !ok {
		return Contract{}, errors.Wrapf(common.ErrContractNotFound, "contract %s", id)
	}
	return c, nil
}

func (m *Memory) Contracts(context.Context) ([]Contract, error) {
	m.RLock()
	defer m.RUnlock()
	res := make([]Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		res = append(res, c)
	}
	return res, nil
}

func (m *Memory) AddContract(c Contract) {
	m.Lock()
	defer m.Unlock()
	m.contracts[c.ID] = c
}
