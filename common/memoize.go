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

package common

import (
	"sync"
	"time"
)

type memoize[T any] struct {
	sync.Mutex

	clock      Clock
	provider   func() (T, error)
	value      T
	lastCalled time.Time
	cacheTime  time.Duration
}

// Memoize caches the result of provider for cacheTime.
func Memoize[T any](provider func() T, cacheTime time.Duration) func() T {
	return MemoizeWithClock(SystemClock(), provider, cacheTime)
}

func MemoizeWithClock[T any](clock Clock, provider func() T, cacheTime time.Duration) func() T {
	get := MemoizeErr(clock, func() (T, error) { return provider(), nil }, cacheTime)
	return func() T {
		v, _ := get()
		return v
	}
}

// MemoizeErr caches the result of a fallible provider. A failed call
// returns the last good value with the error and is retried on the next
// call.
func MemoizeErr[T any](clock Clock, provider func() (T, error), cacheTime time.Duration) func() (T, error) {
	m := &memoize[T]{
		clock:     clock,
		provider:  provider,
		cacheTime: cacheTime,
	}
	return m.get
}

func (m *memoize[T]) get() (T, error) {
	m.Lock()
	defer m.Unlock()

	now := m.clock.Now()
	if !m.lastCalled.IsZero() && now.Sub(m.lastCalled) < m.cacheTime {
		return m.value, nil
	}

	v, err := m.provider()
	if err != nil {
		return m.value, err
	}
	m.value = v
	m.lastCalled = now
	return v, nil
}
