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

type Clock interface {
	Now() time.Time
}

type systemClock struct {
}

func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// MockedClock is a Clock whose time only moves when told to.
type MockedClock struct {
	sync.Mutex
	current time.Time
}

func NewMockedClock(initial time.Time) *MockedClock {
	return &MockedClock{current: initial}
}

func (c *MockedClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.current
}

func (c *MockedClock) Set(t time.Time) {
	c.Lock()
	defer c.Unlock()
	c.current = t
}

func (c *MockedClock) Advance(d time.Duration) {
	c.Lock()
	defer c.Unlock()
	c.current = c.current.Add(d)
}
