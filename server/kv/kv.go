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

package kv

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var (
	ErrKeyNotFound    = errors.New("shardstore: key not found")
	ErrUnknownBackend = errors.New("shardstore: unknown store backend")
	ErrStoreClosed    = errors.New("shardstore: store is closed")
)

// Store is the byte store records and shard metadata are kept in.
type Store interface {
	io.Closer

	// Get returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for an absent key.
	Delete(ctx context.Context, key string) error
}

type Backend string

const (
	BackendPebble Backend = "pebble"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

type Options struct {
	Backend     Backend `mapstructure:"backend" yaml:"backend"`
	DataDir     string  `mapstructure:"dataDir" yaml:"dataDir"`
	CacheSizeMB int64   `mapstructure:"cacheSizeMB" yaml:"cacheSizeMB"`

	// Create a pure in-memory database. Used for unit-tests
	InMemory bool `mapstructure:"inMemory" yaml:"inMemory"`
}

var DefaultOptions = Options{
	Backend:     BackendPebble,
	DataDir:     "data",
	CacheSizeMB: 100,
	InMemory:    false,
}

// Open creates the store selected by options.Backend.
func Open(options Options) (Store, error) {
	if options.Backend == "" {
		options.Backend = DefaultOptions.Backend
	}
	if options.DataDir == "" {
		options.DataDir = DefaultOptions.DataDir
	}
	if options.CacheSizeMB == 0 {
		options.CacheSizeMB = DefaultOptions.CacheSizeMB
	}

	switch options.Backend {
	case BackendPebble:
		return NewPebbleStore(options)
	case BackendSQLite:
		return NewSQLiteStore(options)
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "backend %q", options.Backend)
}
