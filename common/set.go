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
	"slices"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/exp/constraints"
)

// Set is an unordered collection of distinct values. It is persisted as
// a sorted CBOR array.
type Set[T constraints.Ordered] interface {
	cbor.Marshaler
	cbor.Unmarshaler

	Add(t T)
	Remove(t T)
	Contains(t T) bool
	Count() int
	IsEmpty() bool
	GetSorted() []T
	// Union adds every value of other.
	Union(other Set[T])
}

func NewSet[T constraints.Ordered]() Set[T] {
	return &set[T]{
		items: map[T]struct{}{},
	}
}

func NewSetFrom[T constraints.Ordered](i []T) Set[T] {
	s := NewSet[T]()
	for _, x := range i {
		s.Add(x)
	}
	return s
}

type set[T constraints.Ordered] struct {
	items map[T]struct{}
}

func (s *set[T]) Add(t T) {
	s.items[t] = struct{}{}
}

func (s *set[T]) Remove(t T) {
	delete(s.items, t)
}

func (s *set[T]) Contains(t T) bool {
	_, found := s.items[t]
	return found
}

func (s *set[T]) Count() int {
	return len(s.items)
}

func (s *set[T]) IsEmpty() bool {
	return s.Count() == 0
}

func (s *set[T]) Union(other Set[T]) {
	for _, k := range other.GetSorted() {
		s.Add(k)
	}
}

func (s *set[T]) GetSorted() []T {
	r := make([]T, 0, len(s.items))
	for k := range s.items {
		r = append(r, k)
	}
	slices.Sort(r)
	return r
}

func (s *set[T]) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(s.GetSorted())
}

// UnmarshalCBOR replaces the content of the set.
func (s *set[T]) UnmarshalCBOR(data []byte) error {
	var items []T
	if err := cbor.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = make(map[T]struct{}, len(items))
	for _, x := range items {
		s.items[x] = struct{}{}
	}
	return nil
}
