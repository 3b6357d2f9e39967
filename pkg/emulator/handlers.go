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
package emulator

import (
	"fmt"

	"github.com/consensys/go-nfemu/pkg/state"
)

// DefaultRegistry returns a registry populated with handlers for all of the
// primitive operations supported out of the box.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Allocation
	r.Register("map_allocate", mapAllocate)
	r.Register("vector_allocate", vectorAllocate)
	r.Register("dchain_allocate", dchainAllocate)
	// Maps
	r.Register("map_get", mapGet)
	r.Register("map_put", mapPut)
	r.Register("map_erase", mapErase)
	// Expiration
	r.Register("expire_items_range", expireItemsRange)
	r.Register("expire_items_single_map", expireItemsSingleMap)
	// Vectors
	r.Register("vector_borrow", vectorBorrow)
	r.Register("vector_return", vectorReturn)
	// Index allocators
	r.Register("dchain_allocate_new_index", dchainAllocateNewIndex)
	r.Register("dchain_rejuvenate_index", dchainRejuvenateIndex)
	r.Register("dchain_is_index_allocated", dchainIsIndexAllocated)
	r.Register("dchain_free_index", dchainFreeIndex)
	// Time
	r.Register("current_time", currentTime)
	// Packets
	r.Register("packet_borrow_next_chunk", packetBorrowNextChunk)
	r.Register("packet_get_unread_length", packetGetUnreadLength)
	r.Register("packet_return_chunk", noop)
	r.Register("nf_set_rte_ipv4_udptcp_checksum", noop)
	//
	return r
}

func noop(env *Env) error {
	return nil
}

// ============================================================================
// Allocation
// ============================================================================

func mapAllocate(env *Env) error {
	capacity, err := env.Value("capacity")
	if err != nil {
		return err
	}
	// Key size is optional
	var keySize uint64
	//
	if _, ok := env.Node.Call.Arg("key_size"); ok {
		if keySize, err = env.Value("key_size"); err != nil {
			return err
		}
	}
	//
	return allocate(env, "map_out", state.NewMap(uint(capacity), uint(keySize)))
}

func vectorAllocate(env *Env) error {
	elemSize, err := env.Value("elem_size")
	if err != nil {
		return err
	}
	//
	capacity, err := env.Value("capacity")
	if err != nil {
		return err
	}
	//
	return allocate(env, "vector_out", state.NewVector(uint(elemSize), uint(capacity)))
}

func dchainAllocate(env *Env) error {
	indexRange, err := env.Value("index_range")
	if err != nil {
		return err
	}
	//
	return allocate(env, "chain_out", state.NewDChain(uint(indexRange)))
}

func allocate(env *Env, out string, obj state.Object) error {
	addr, err := env.OutAddress(out)
	if err != nil {
		return err
	} else if err = env.State.Allocate(addr, obj); err != nil {
		return err
	}
	//
	env.Return(1)
	//
	return nil
}

// ============================================================================
// Maps
// ============================================================================

func mapGet(env *Env) error {
	m, key, err := mapAndKey(env)
	if err != nil {
		return err
	}
	//
	value, found := m.Get(key)
	//
	if found {
		env.Return(1)
		return env.Out("value_out", le64(value))
	}
	//
	env.Return(0)
	//
	return nil
}

func mapPut(env *Env) error {
	m, key, err := mapAndKey(env)
	if err != nil {
		return err
	}
	//
	value, err := env.Value("value")
	if err != nil {
		return err
	}
	//
	return m.Put(key, value)
}

func mapErase(env *Env) error {
	m, key, err := mapAndKey(env)
	if err != nil {
		return err
	}
	//
	m.Erase(key)
	//
	return nil
}

func mapAndKey(env *Env) (*state.Map, []byte, error) {
	m, err := lookup[*state.Map](env, "map")
	if err != nil {
		return nil, nil, err
	}
	//
	key, err := env.InBytes("key")
	//
	return m, key, err
}

// ============================================================================
// Expiration
// ============================================================================

func expireItemsRange(env *Env) error {
	m, err := lookup[*state.Map](env, "map")
	if err != nil {
		return err
	}
	//
	v, err := lookup[*state.Vector](env, "vector")
	if err != nil {
		return err
	}
	//
	start, err := env.Value("start")
	if err != nil {
		return err
	}
	//
	count, err := env.Value("count")
	if err != nil {
		return err
	} else if err = state.ExpireRange(m, v, start, count); err != nil {
		return err
	}
	//
	env.Return(count)
	//
	return nil
}

func expireItemsSingleMap(env *Env) error {
	chain, err := lookup[*state.DChain](env, "chain")
	if err != nil {
		return err
	}
	//
	v, err := lookup[*state.Vector](env, "vector")
	if err != nil {
		return err
	}
	//
	m, err := lookup[*state.Map](env, "map")
	if err != nil {
		return err
	}
	//
	time, err := env.Signed("time")
	if err != nil {
		return err
	}
	//
	freed, err := state.ExpireSingleMap(chain, v, m, time)
	if err != nil {
		return err
	}
	//
	env.Return(freed)
	//
	return nil
}

// ============================================================================
// Vectors
// ============================================================================

func vectorBorrow(env *Env) error {
	v, index, err := vectorAndIndex(env)
	if err != nil {
		return err
	}
	//
	cell, err := v.Borrow(index)
	if err != nil {
		return err
	}
	//
	return env.Out("val_out", cell)
}

func vectorReturn(env *Env) error {
	v, index, err := vectorAndIndex(env)
	if err != nil {
		return err
	}
	//
	value, err := env.InBytes("value")
	if err != nil {
		return err
	}
	//
	return v.Return(index, value)
}

func vectorAndIndex(env *Env) (*state.Vector, uint64, error) {
	v, err := lookup[*state.Vector](env, "vector")
	if err != nil {
		return nil, 0, err
	}
	//
	index, err := env.Value("index")
	//
	return v, index, err
}

// ============================================================================
// Index allocators
// ============================================================================

func dchainAllocateNewIndex(env *Env) error {
	chain, err := lookup[*state.DChain](env, "chain")
	if err != nil {
		return err
	}
	//
	time, err := env.Signed("time")
	if err != nil {
		return err
	}
	//
	index, ok := chain.Allocate(time)
	//
	if !ok {
		env.Return(0)
		return nil
	}
	//
	env.Meta.Allocations++
	env.Return(1)
	//
	return env.Out("index_out", le64(index))
}

func dchainRejuvenateIndex(env *Env) error {
	chain, index, err := chainAndIndex(env)
	if err != nil {
		return err
	}
	//
	time, err := env.Signed("time")
	if err != nil {
		return err
	}
	//
	ok, err := chain.Rejuvenate(index, time)
	if err != nil {
		return err
	}
	//
	env.Return(flag(ok))
	//
	return nil
}

func dchainIsIndexAllocated(env *Env) error {
	chain, index, err := chainAndIndex(env)
	if err != nil {
		return err
	}
	//
	ok, err := chain.IsAllocated(index)
	if err != nil {
		return err
	}
	//
	env.Return(flag(ok))
	//
	return nil
}

func dchainFreeIndex(env *Env) error {
	chain, index, err := chainAndIndex(env)
	if err != nil {
		return err
	}
	//
	ok, err := chain.Free(index)
	if err != nil {
		return err
	}
	//
	env.Return(flag(ok))
	//
	return nil
}

func chainAndIndex(env *Env) (*state.DChain, uint64, error) {
	chain, err := lookup[*state.DChain](env, "chain")
	if err != nil {
		return nil, 0, err
	}
	//
	index, err := env.Value("index")
	//
	return chain, index, err
}

// ============================================================================
// Time & Packets
// ============================================================================

func currentTime(env *Env) error {
	env.Return(uint64(env.Time))
	return nil
}

func packetBorrowNextChunk(env *Env) error {
	length, err := env.Value("length")
	if err != nil {
		return err
	}
	//
	chunk, err := env.Arg("chunk")
	if err != nil {
		return err
	}
	//
	offset := env.Packet.cursor
	//
	data, err := env.Packet.borrow(length)
	if err != nil {
		return err
	}
	// Chunk address is the cursor, whilst its contents are the packet bytes
	env.Context.Concretize(chunk.Expr, uint64(offset))
	//
	if chunk.Out != nil {
		env.Context.ConcretizeBytes(chunk.Out, data)
	}
	//
	return nil
}

func packetGetUnreadLength(env *Env) error {
	env.Return(uint64(env.Packet.Unread()))
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

// lookup the object of a given kind at the address passed for a given argument.
func lookup[T state.Object](env *Env, name string) (T, error) {
	var empty T
	//
	addr, err := env.Address(name)
	if err != nil {
		return empty, err
	}
	//
	obj, err := state.Get[T](env.State, addr)
	if err != nil {
		return empty, fmt.Errorf("%s: %w", name, err)
	}
	//
	return obj, nil
}

func flag(b bool) uint64 {
	if b {
		return 1
	}
	//
	return 0
}

func le64(value uint64) []byte {
	var bytes = make([]byte, 8)
	//
	for i := range bytes {
		bytes[i] = byte(value >> (8 * i))
	}
	//
	return bytes
}
