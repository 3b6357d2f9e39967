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
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// ErrNoObject signals an access to an address at which nothing was allocated.
var ErrNoObject = errors.New("no object at address")

// ErrWrongKind signals an access to an object of an unexpected kind (e.g. a
// map operation on a vector).
var ErrWrongKind = errors.New("object of wrong kind")

// ErrOutOfRange signals an index outside the bounds of an object.
var ErrOutOfRange = errors.New("index out of range")

// ErrCapacity signals an insertion into an object which is already full.
var ErrCapacity = errors.New("capacity exceeded")

// ErrAllocated signals an allocation at an address which is already in use.
var ErrAllocated = errors.New("address already allocated")

// Address identifies an object in the simulated machine state.  Addresses are
// opaque, being the concrete values of pointers in the behavior graph.
type Address uint64

// Object represents a simulated data structure.
type Object interface {
	// Kind returns a short name for the kind of this object (e.g. "map").
	Kind() string
	// Len returns the number of live entries held in this object.
	Len() uint
	// Capacity returns the maximum number of entries this object can hold.
	Capacity() uint
}

// State is the simulated machine state of a network function.  It owns every
// object, mapping each to the address at which it was allocated.  Objects
// persist for the lifetime of the state and are mutated in place.
type State struct {
	objects map[Address]Object
}

// NewState constructs an empty machine state.
func NewState() *State {
	return &State{make(map[Address]Object)}
}

// Allocate registers a new object at a given address.
func (s *State) Allocate(addr Address, obj Object) error {
	if _, ok := s.objects[addr]; ok {
		return fmt.Errorf("%w: %#x", ErrAllocated, uint64(addr))
	}
	//
	s.objects[addr] = obj
	//
	return nil
}

// Lookup returns the object at a given address, or an error if nothing was
// allocated there.
func (s *State) Lookup(addr Address) (Object, error) {
	if obj, ok := s.objects[addr]; ok {
		return obj, nil
	}
	//
	return nil, fmt.Errorf("%w: %#x", ErrNoObject, uint64(addr))
}

// Addresses returns the addresses of all allocated objects in ascending order.
func (s *State) Addresses() []Address {
	var addrs = make([]Address, 0, len(s.objects))
	//
	for addr := range s.objects {
		addrs = append(addrs, addr)
	}
	//
	slices.Sort(addrs)
	//
	return addrs
}

// Len returns the number of allocated objects.
func (s *State) Len() uint {
	return uint(len(s.objects))
}

// Get returns the object of a given kind at a given address.  An error is
// returned if nothing was allocated there, or the object is of another kind.
func Get[T Object](s *State, addr Address) (T, error) {
	var empty T
	//
	obj, err := s.Lookup(addr)
	if err != nil {
		return empty, err
	} else if t, ok := obj.(T); ok {
		return t, nil
	}
	//
	return empty, fmt.Errorf("%w: %s at %#x", ErrWrongKind, obj.Kind(), uint64(addr))
}
