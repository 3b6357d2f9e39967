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

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// DChain is an index allocator over a fixed range of indices [0, n).  Each
// allocated index carries the time at which it was last allocated or
// rejuvenated, such that stale indices can be expired.
type DChain struct {
	allocated  *bitset.BitSet
	timestamps []int64
}

// NewDChain constructs an allocator over a given number of indices, all of
// which are initially free.
func NewDChain(indexRange uint) *DChain {
	return &DChain{bitset.New(indexRange), make([]int64, indexRange)}
}

// Kind implementation for Object interface.
func (p *DChain) Kind() string { return "dchain" }

// Len implementation for Object interface.
func (p *DChain) Len() uint { return p.allocated.Count() }

// Capacity implementation for Object interface.
func (p *DChain) Capacity() uint { return uint(len(p.timestamps)) }

// Allocate the lowest free index at a given time.  If no index is free, false
// is returned.
func (p *DChain) Allocate(time int64) (uint64, bool) {
	index, ok := p.allocated.NextClear(0)
	//
	if !ok || index >= uint(len(p.timestamps)) {
		return 0, false
	}
	//
	p.allocated.Set(index)
	p.timestamps[index] = time
	//
	return uint64(index), true
}

// Rejuvenate an allocated index, setting its timestamp to a given time.  This
// returns false if the index is not allocated.
func (p *DChain) Rejuvenate(index uint64, time int64) (bool, error) {
	if allocated, err := p.IsAllocated(index); err != nil || !allocated {
		return false, err
	}
	//
	p.timestamps[index] = time
	//
	return true, nil
}

// IsAllocated determines whether a given index is currently allocated.
func (p *DChain) IsAllocated(index uint64) (bool, error) {
	if index >= uint64(len(p.timestamps)) {
		return false, fmt.Errorf("%w: dchain index %d (range %d)", ErrOutOfRange, index, len(p.timestamps))
	}
	//
	return p.allocated.Test(uint(index)), nil
}

// Free a given index, returning whether it was allocated.
func (p *DChain) Free(index uint64) (bool, error) {
	if allocated, err := p.IsAllocated(index); err != nil || !allocated {
		return false, err
	}
	//
	p.allocated.Clear(uint(index))
	//
	return true, nil
}

// Expire frees every allocated index whose timestamp is strictly before a given
// time.  The freed indices are returned in ascending order.
func (p *DChain) Expire(time int64) []uint64 {
	var freed []uint64
	//
	for i, ok := p.allocated.NextSet(0); ok; i, ok = p.allocated.NextSet(i + 1) {
		if p.timestamps[i] < time {
			freed = append(freed, uint64(i))
		}
	}
	//
	for _, i := range freed {
		p.allocated.Clear(uint(i))
	}
	//
	return freed
}
