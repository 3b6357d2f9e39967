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
package expr

import (
	"fmt"

	"github.com/holiman/uint256"
)

// BoolWidth is the width of boolean expressions (e.g. comparisons).
const BoolWidth = 1

// ByteWidth is the width of a single array read.
const ByteWidth = 8

// MaxWidth is the largest width for which values can be computed.  Wider
// expressions (e.g. a whole packet chunk) can still be bound byte-by-byte.
const MaxWidth = 256

// Expr represents a symbolic bit-vector expression over zero or more symbolic
// arrays.  Every expression has a fixed width in bits, where booleans have
// width one.  The String() form is canonical: two structurally identical
// expressions always print identically.
type Expr interface {
	// Width returns the number of bits in values of this expression.
	Width() uint
	// String returns the canonical kquery rendering of this expression.
	String() string
	// Marker restricting implementations to this package.
	expr()
}

func (*Constant) expr() {}
func (*Read) expr()     {}
func (*Concat) expr()   {}
func (*Extract) expr()  {}
func (*Cast) expr()     {}
func (*Binary) expr()   {}
func (*Not) expr()      {}
func (*Select) expr()   {}

// ============================================================================
// Constant
// ============================================================================

// Constant represents a fixed value of a given width.
type Constant struct {
	Value uint256.Int
	Bits  uint
}

// NewConstant constructs a constant of a given width, truncating the value if
// necessary.
func NewConstant(value uint64, width uint) *Constant {
	var c = &Constant{Bits: width}
	//
	c.Value.SetUint64(value)
	truncate(&c.Value, width)
	//
	return c
}

// NewBool constructs a boolean constant.
func NewBool(value bool) *Constant {
	if value {
		return NewConstant(1, BoolWidth)
	}
	//
	return NewConstant(0, BoolWidth)
}

// Width implementation for Expr interface.
func (e *Constant) Width() uint { return e.Bits }

func (e *Constant) String() string {
	if e.Bits == BoolWidth {
		if e.Value.IsZero() {
			return "false"
		}
		//
		return "true"
	}
	//
	return fmt.Sprintf("(w%d %s)", e.Bits, e.Value.ToBig().String())
}

// ============================================================================
// Read
// ============================================================================

// Read represents a single byte read from a symbolic array.
type Read struct {
	Array string
	Index Expr
}

// Width implementation for Expr interface.
func (e *Read) Width() uint { return ByteWidth }

func (e *Read) String() string {
	if c, ok := e.Index.(*Constant); ok {
		return fmt.Sprintf("(Read w8 %s %s)", c.Value.ToBig().String(), e.Array)
	}
	//
	return fmt.Sprintf("(Read w8 %s %s)", e.Index.String(), e.Array)
}

// ConstantIndex returns the index of this read when that index is a
// constant, and false otherwise.
func (e *Read) ConstantIndex() (uint64, bool) {
	if c, ok := e.Index.(*Constant); ok && c.Value.IsUint64() {
		return c.Value.Uint64(), true
	}
	//
	return 0, false
}

// NewReadLSB constructs a little-endian multi-byte read of a given width
// starting at a given index of an array.  The byte at the index forms the
// least significant byte of the result.
func NewReadLSB(array string, index Expr, width uint) Expr {
	var result Expr
	//
	for k := uint(0); k < width/ByteWidth; k++ {
		ith := &Read{array, offsetIndex(index, uint64(k))}
		//
		if result == nil {
			result = ith
		} else {
			result = &Concat{ith, result}
		}
	}
	//
	return result
}

// NewReadMSB constructs a big-endian multi-byte read of a given width starting
// at a given index of an array.  The byte at the index forms the most
// significant byte of the result.
func NewReadMSB(array string, index Expr, width uint) Expr {
	var result Expr
	//
	for k := uint(0); k < width/ByteWidth; k++ {
		ith := &Read{array, offsetIndex(index, uint64(k))}
		//
		if result == nil {
			result = ith
		} else {
			result = &Concat{result, ith}
		}
	}
	//
	return result
}

func offsetIndex(index Expr, k uint64) Expr {
	if k == 0 {
		return index
	} else if c, ok := index.(*Constant); ok && c.Value.IsUint64() {
		return NewConstant(c.Value.Uint64()+k, c.Bits)
	}
	//
	return &Binary{ADD, index, NewConstant(k, index.Width())}
}

// ============================================================================
// Concat
// ============================================================================

// Concat represents the concatenation of two expressions, where the first
// forms the most significant bits.
type Concat struct {
	MSB Expr
	LSB Expr
}

// Width implementation for Expr interface.
func (e *Concat) Width() uint { return e.MSB.Width() + e.LSB.Width() }

func (e *Concat) String() string {
	return fmt.Sprintf("(Concat w%d %s %s)", e.Width(), e.MSB.String(), e.LSB.String())
}

// ============================================================================
// Extract
// ============================================================================

// Extract represents the extraction of a contiguous range of bits from an
// expression.
type Extract struct {
	Expr   Expr
	Offset uint
	Bits   uint
}

// Width implementation for Expr interface.
func (e *Extract) Width() uint { return e.Bits }

func (e *Extract) String() string {
	return fmt.Sprintf("(Extract w%d %d %s)", e.Bits, e.Offset, e.Expr.String())
}

// ============================================================================
// Cast
// ============================================================================

// Cast represents a zero or sign extension of an expression to a larger
// width.
type Cast struct {
	Expr   Expr
	Bits   uint
	Signed bool
}

// Width implementation for Expr interface.
func (e *Cast) Width() uint { return e.Bits }

func (e *Cast) String() string {
	if e.Signed {
		return fmt.Sprintf("(SExt w%d %s)", e.Bits, e.Expr.String())
	}
	//
	return fmt.Sprintf("(ZExt w%d %s)", e.Bits, e.Expr.String())
}

// ============================================================================
// Binary
// ============================================================================

// Binary represents an arithmetic, bitwise or comparison operation over two
// expressions of equal width.
type Binary struct {
	Op  Op
	LHS Expr
	RHS Expr
}

// Width implementation for Expr interface.
func (e *Binary) Width() uint {
	if e.Op.IsCompare() {
		return BoolWidth
	}
	//
	return e.LHS.Width()
}

func (e *Binary) String() string {
	if e.Op.IsCompare() {
		return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS.String(), e.RHS.String())
	}
	//
	return fmt.Sprintf("(%s w%d %s %s)", e.Op, e.Width(), e.LHS.String(), e.RHS.String())
}

// ============================================================================
// Not
// ============================================================================

// Not represents the bitwise negation of an expression (or logical negation
// for booleans).
type Not struct {
	Expr Expr
}

// Width implementation for Expr interface.
func (e *Not) Width() uint { return e.Expr.Width() }

func (e *Not) String() string {
	if e.Width() == BoolWidth {
		return fmt.Sprintf("(Not %s)", e.Expr.String())
	}
	//
	return fmt.Sprintf("(Not w%d %s)", e.Width(), e.Expr.String())
}

// ============================================================================
// Select
// ============================================================================

// Select represents an if-then-else expression.
type Select struct {
	Cond Expr
	Then Expr
	Else Expr
}

// Width implementation for Expr interface.
func (e *Select) Width() uint { return e.Then.Width() }

func (e *Select) String() string {
	return fmt.Sprintf("(Select w%d %s %s %s)", e.Width(), e.Cond.String(), e.Then.String(), e.Else.String())
}

// ============================================================================
// Helpers
// ============================================================================

// Arrays returns the names of all symbolic arrays read by a given expression,
// in order of first occurrence.
func Arrays(e Expr) []string {
	var (
		names []string
		seen  = make(map[string]bool)
	)
	//
	Walk(e, func(e Expr) {
		if r, ok := e.(*Read); ok && !seen[r.Array] {
			seen[r.Array] = true
			names = append(names, r.Array)
		}
	})
	//
	return names
}

// Walk visits every subexpression of a given expression in pre-order.
func Walk(e Expr, fn func(Expr)) {
	fn(e)
	//
	switch e := e.(type) {
	case *Constant:
		// leaf
	case *Read:
		Walk(e.Index, fn)
	case *Concat:
		Walk(e.MSB, fn)
		Walk(e.LSB, fn)
	case *Extract:
		Walk(e.Expr, fn)
	case *Cast:
		Walk(e.Expr, fn)
	case *Binary:
		Walk(e.LHS, fn)
		Walk(e.RHS, fn)
	case *Not:
		Walk(e.Expr, fn)
	case *Select:
		Walk(e.Cond, fn)
		Walk(e.Then, fn)
		Walk(e.Else, fn)
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

// IsConstant checks whether a given expression is a constant.
func IsConstant(e Expr) bool {
	_, ok := e.(*Constant)
	return ok
}
