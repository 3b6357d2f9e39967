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

	"golang.org/x/exp/slices"
)

// Vector is a fixed-capacity array of fixed-size byte cells, indexed densely
// from zero.  Cells are initially zero.
type Vector struct {
	elemSize uint
	cells    [][]byte
}

// NewVector constructs a vector of a given element size and capacity.
func NewVector(elemSize uint, capacity uint) *Vector {
	var cells = make([][]byte, capacity)
	//
	for i := range cells {
		cells[i] = make([]byte, elemSize)
	}
	//
	return &Vector{elemSize, cells}
}

// Kind implementation for Object interface.
func (p *Vector) Kind() string { return "vector" }

// Len implementation for Object interface.  Every cell of a vector is live.
func (p *Vector) Len() uint { return uint(len(p.cells)) }

// Capacity implementation for Object interface.
func (p *Vector) Capacity() uint { return uint(len(p.cells)) }

// ElemSize returns the size (in bytes) of each cell.
func (p *Vector) ElemSize() uint { return p.elemSize }

// Borrow returns a copy of the contents of a given cell.
func (p *Vector) Borrow(index uint64) ([]byte, error) {
	if err := p.check(index); err != nil {
		return nil, err
	}
	//
	return slices.Clone(p.cells[index]), nil
}

// Return overwrites the contents of a given cell.  The value is truncated or
// zero-padded to the element size.
func (p *Vector) Return(index uint64, value []byte) error {
	if err := p.check(index); err != nil {
		return err
	}
	//
	cell := p.cells[index]
	clear(cell)
	copy(cell, value)
	//
	return nil
}

func (p *Vector) check(index uint64) error {
	if index >= uint64(len(p.cells)) {
		return fmt.Errorf("%w: vector index %d (capacity %d)", ErrOutOfRange, index, len(p.cells))
	}
	//
	return nil
}
