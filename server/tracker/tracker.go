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
	"log/slog"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Host is a storage node as seen by the ledger.
type Host struct {
	Identity     string `mapstructure:"identity" yaml:"identity" json:"identity"`
	Address      string `mapstructure:"address" yaml:"address,omitempty" json:"address,omitempty"`
	PledgedBytes int64  `mapstructure:"pledgedBytes" yaml:"pledgedBytes" json:"pledgedBytes"`
	Status       Status `mapstructure:"status" yaml:"status" json:"status"`
}

func (h Host) IsActive() bool {
	return h.Status == "" || h.Status == StatusActive
}

// Tracker supplies the live host population.
type Tracker interface {
	AllHosts(ctx context.Context) ([]Host, error)
}

// Static is a tracker over a host list provided by configuration. The
// list can be replaced at runtime.
type Static struct {
	sync.RWMutex
	hosts []Host
	log   *slog.Logger
}

func NewStatic(hosts []Host) *Static {
	s := &Static{
		log: slog.With(
			slog.String("component", "host-tracker"),
		),
	}
	s.Update(hosts)
	return s
}

func (s *Static) AllHosts(ctx context.Context) ([]Host, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()
	return slices.Clone(s.hosts), nil
}

func (s *Static) Update(hosts []Host) {
	s.Lock()
	defer s.Unlock()
	s.hosts = slices.Clone(hosts)

	var pledged uint64
	for _, h := range hosts {
		if h.IsActive() && h.PledgedBytes > 0 {
			pledged += uint64(h.PledgedBytes)
		}
	}
	s.log.Info(
		"Updated host population",
		slog.Int("hosts", len(hosts)),
		slog.String("pledged", humanize.Bytes(pledged)),
	)
}
