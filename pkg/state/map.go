// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package state

import "fmt"

// Map associates byte keys with integer values, up to a fixed capacity.  When
// a key size is given, keys are truncated or zero-padded to that size.
type Map struct {
	capacity uint
	keySize  uint
	entries  map[string]uint64
}

// NewMap constructs an empty map of a given capacity and key size, where a key
// size of zero permits keys of any size.
func NewMap(capacity uint, keySize uint) *Map {
	return &Map{capacity, keySize, make(map[string]uint64)}
}

// Kind implementation for Object interface.
func (p *Map) Kind() string { return "map" }

// Len implementation for Object interface.
func (p *Map) Len() uint { return uint(len(p.entries)) }

// Capacity implementation for Object interface.
func (p *Map) Capacity() uint { return p.capacity }

// Get returns the value associated with a given key, or false if there is
// none.
func (p *Map) Get(key []byte) (uint64, bool) {
	v, ok := p.entries[p.key(key)]
	return v, ok
}

// Put associates a value with a given key, overwriting any existing
// association.  Adding a new key to a full map is an error.
func (p *Map) Put(key []byte, value uint64) error {
	var k = p.key(key)
	//
	if _, ok := p.entries[k]; !ok && uint(len(p.entries)) >= p.capacity {
		return fmt.Errorf("%w: map of capacity %d", ErrCapacity, p.capacity)
	}
	//
	p.entries[k] = value
	//
	return nil
}

// Erase removes any association for a given key, returning whether there was
// one.
func (p *Map) Erase(key []byte) bool {
	var k = p.key(key)
	//
	if _, ok := p.entries[k]; ok {
		delete(p.entries, k)
		return true
	}
	//
	return false
}

func (p *Map) key(key []byte) string {
	if p.keySize == 0 || uint(len(key)) == p.keySize {
		return string(key)
	}
	//
	var k = make([]byte, p.keySize)
	//
	copy(k, key)
	//
	return string(k)
}
