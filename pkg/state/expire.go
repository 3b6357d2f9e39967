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

// ExpireRange erases from a map every key held in a given range of vector
// cells [start, start+count).
func ExpireRange(m *Map, v *Vector, start uint64, count uint64) error {
	if start+count < start || start+count > uint64(v.Capacity()) {
		return fmt.Errorf("%w: expiring %d cells from %d (capacity %d)", ErrOutOfRange, count, start, v.Capacity())
	}
	//
	for i := start; i < start+count; i++ {
		key, err := v.Borrow(i)
		if err != nil {
			return err
		}
		//
		m.Erase(key)
	}
	//
	return nil
}

// ExpireSingleMap frees every index of an allocator which is older than a given
// time, erasing from the map the keys held in the vector at the freed indices.
// This returns the number of indices freed.
func ExpireSingleMap(chain *DChain, v *Vector, m *Map, time int64) (uint64, error) {
	var freed = chain.Expire(time)
	//
	for _, i := range freed {
		key, err := v.Borrow(i)
		if err != nil {
			return 0, err
		}
		//
		m.Erase(key)
	}
	//
	return uint64(len(freed)), nil
}
