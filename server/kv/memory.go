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
	"slices"
	"sync"
)

type memoryStore struct {
	sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryStore() Store {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.RLock()
	defer m.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(value), nil
}

func (m *memoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	m.data[key] = slices.Clone(value)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error {
	m.Lock()
	defer m.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
