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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) map[Backend]Store {
	t.Helper()
	stores := map[Backend]Store{}
	for _, backend := range []Backend{BackendPebble, BackendSQLite, BackendMemory} {
		store, err := Open(Options{Backend: backend, DataDir: t.TempDir(), InMemory: true})
		require.NoError(t, err)
		stores[backend] = store
	}
	return stores
}

func TestStore_Simple(t *testing.T) {
	ctx := context.Background()

	for backend, store := range newTestStores(t) {
		t.Run(string(backend), func(t *testing.T) {
			assert.NoError(t, store.Put(ctx, "a", []byte("0")))
			assert.NoError(t, store.Put(ctx, "b", []byte("1")))

			res, err := store.Get(ctx, "a")
			assert.NoError(t, err)
			assert.Equal(t, "0", string(res))

			res, err = store.Get(ctx, "non-existing")
			assert.ErrorIs(t, err, ErrKeyNotFound)
			assert.Nil(t, res)

			assert.NoError(t, store.Put(ctx, "a", []byte("00")))
			res, err = store.Get(ctx, "a")
			assert.NoError(t, err)
			assert.Equal(t, "00", string(res))

			assert.NoError(t, store.Delete(ctx, "b"))
			_, err = store.Get(ctx, "b")
			assert.ErrorIs(t, err, ErrKeyNotFound)

			// Deleting a missing key is not an error
			assert.NoError(t, store.Delete(ctx, "b"))

			assert.NoError(t, store.Close())
		})
	}
}

func TestStore_ValueIsCopied(t *testing.T) {
	ctx := context.Background()

	for backend, store := range newTestStores(t) {
		t.Run(string(backend), func(t *testing.T) {
			value := []byte("abc")
			assert.NoError(t, store.Put(ctx, "k", value))
			value[0] = 'x'

			res, err := store.Get(ctx, "k")
			assert.NoError(t, err)
			assert.Equal(t, "abc", string(res))

			res[1] = 'y'
			res, err = store.Get(ctx, "k")
			assert.NoError(t, err)
			assert.Equal(t, "abc", string(res))

			assert.NoError(t, store.Close())
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for backend, store := range newTestStores(t) {
		t.Run(string(backend), func(t *testing.T) {
			assert.Error(t, store.Put(ctx, "k", []byte("v")))
			_, err := store.Get(ctx, "k")
			assert.Error(t, err)
			assert.NoError(t, store.Close())
		})
	}
}

func TestPebble_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewPebbleStore(Options{DataDir: dir})
	require.NoError(t, err)
	assert.NoError(t, store.Put(ctx, "a", []byte("0")))
	assert.NoError(t, store.Close())

	store, err = NewPebbleStore(Options{DataDir: dir})
	require.NoError(t, err)
	res, err := store.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, "0", string(res))
	assert.NoError(t, store.Close())
}

func TestSQLite_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewSQLiteStore(Options{DataDir: dir})
	require.NoError(t, err)
	assert.NoError(t, store.Put(ctx, "a", []byte("0")))
	assert.NoError(t, store.Close())

	store, err = NewSQLiteStore(Options{DataDir: dir})
	require.NoError(t, err)
	res, err := store.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, "0", string(res))
	assert.NoError(t, store.Close())
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(Options{Backend: "bolt"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
