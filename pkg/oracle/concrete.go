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
package oracle

import (
	"errors"
	"fmt"

	"github.com/consensys/go-nfemu/pkg/expr"
	"github.com/holiman/uint256"
)

// Concrete is an oracle which never reasons symbolically.  Instead, it turns
// the constraints into a model (i.e. an assignment of bytes to symbolic arrays
// plus a set of whole-expression facts) and simply evaluates queries against
// that model.  Since the emulator binds every symbol before it is used, this is
// sufficient in practice, and an expression which cannot be evaluated is
// reported as undetermined.
type Concrete struct{}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Oracle = Concrete{}

// Decide implementation for the Oracle interface.
func (o Concrete) Decide(constraints []Constraint, cond expr.Expr) (Decision, error) {
	model, err := NewModel(constraints)
	if err != nil {
		return UNDETERMINED, err
	}
	//
	return model.Decide(cond)
}

// ValueOf implementation for the Oracle interface.
func (o Concrete) ValueOf(constraints []Constraint, e expr.Expr) ([]byte, error) {
	model, err := NewModel(constraints)
	if err != nil {
		return nil, err
	}
	//
	return model.ValueOf(e)
}

// Solver implementation for the Oracle interface.  The solver is a model which
// grows with every constraint added.
func (o Concrete) Solver() Solver {
	return &Model{make(map[string]*uint256.Int), make(map[string]map[uint64]byte)}
}

// ============================================================================
// Model
// ============================================================================

// Model is an assignment of concrete values to symbolic arrays, along with
// facts about expressions which cannot be broken down into array bytes.
type Model struct {
	facts  map[string]*uint256.Int
	arrays map[string]map[uint64]byte
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Solver = (*Model)(nil)

// NewModel constructs a model satisfying a given set of constraints.  Later
// constraints take precedence over earlier ones where they overlap.
func NewModel(constraints []Constraint) (*Model, error) {
	m := &Model{make(map[string]*uint256.Int), make(map[string]map[uint64]byte)}
	//
	for _, c := range constraints {
		if err := m.Add(c); err != nil {
			return nil, err
		}
	}
	//
	return m, nil
}

// Add implementation for the Solver interface.
func (m *Model) Add(c Constraint) error {
	return m.Assert(c.Expr, c.Value)
}

// Decide implementation for the Solver interface.  Conditions which cannot be
// evaluated against this model are undetermined.
func (m *Model) Decide(cond expr.Expr) (Decision, error) {
	if cond.Width() != expr.BoolWidth {
		return UNDETERMINED, fmt.Errorf("condition %s is not boolean", cond.String())
	}
	//
	val, err := expr.EvalBool(cond, m)
	//
	switch {
	case errors.Is(err, expr.ErrUnbound):
		return UNDETERMINED, nil
	case err != nil:
		return UNDETERMINED, err
	case val:
		return ALWAYS_TRUE, nil
	default:
		return ALWAYS_FALSE, nil
	}
}

// ValueOf implementation for the Solver interface.
func (m *Model) ValueOf(e expr.Expr) ([]byte, error) {
	return m.Bytes(e)
}

// Assert records that a given expression has a given (little-endian) value.
// Expressions made up from constant-index reads are broken down into array
// bytes, such that any other expression over those bytes can be evaluated.
func (m *Model) Assert(e expr.Expr, le []byte) error {
	switch e := e.(type) {
	case *expr.Constant:
		return nil
	case *expr.Read:
		if index, ok := e.ConstantIndex(); ok {
			m.assign(e.Array, index, le[0])
			return nil
		}
	case *expr.Concat:
		if lw := e.LSB.Width(); lw%expr.ByteWidth == 0 && len(le)*expr.ByteWidth >= int(e.Width()) {
			n := lw / expr.ByteWidth
			//
			if err := m.Assert(e.LSB, le[:n]); err != nil {
				return err
			}
			//
			return m.Assert(e.MSB, le[n:])
		}
	case *expr.Cast:
		if n := expr.ByteLen(e.Expr.Width()); !e.Signed && e.Expr.Width()%expr.ByteWidth == 0 && isZero(le[n:]) {
			return m.Assert(e.Expr, le[:n])
		}
	}
	// Fallback to a fact about the whole expression
	if e.Width() > expr.MaxWidth {
		return fmt.Errorf("%w: cannot bind %s", expr.ErrTooWide, e.String())
	}
	//
	m.facts[e.String()] = expr.FromBytes(le)
	//
	return nil
}

// Fact implementation for the expr.Environment interface.
func (m *Model) Fact(e expr.Expr) (*uint256.Int, bool) {
	if len(m.facts) == 0 {
		return nil, false
	}
	//
	v, ok := m.facts[e.String()]
	//
	return v, ok
}

// Byte implementation for the expr.Environment interface.
func (m *Model) Byte(array string, index uint64) (byte, bool) {
	if bytes, ok := m.arrays[array]; ok {
		b, ok := bytes[index]
		return b, ok
	}
	//
	return 0, false
}

// Bytes evaluates an expression into its little-endian byte representation.
// Unlike expr.Eval this also handles byte-aligned concatenations and reads
// wider than expr.MaxWidth, such as whole packet chunks.
func (m *Model) Bytes(e expr.Expr) ([]byte, error) {
	if c, ok := e.(*expr.Concat); ok && e.Width() > expr.MaxWidth && c.LSB.Width()%expr.ByteWidth == 0 {
		lsb, err := m.Bytes(c.LSB)
		if err != nil {
			return nil, err
		}
		//
		msb, err := m.Bytes(c.MSB)
		if err != nil {
			return nil, err
		}
		//
		return append(lsb, msb...), nil
	}
	//
	v, err := expr.Eval(e, m)
	if err != nil {
		return nil, err
	}
	//
	return expr.ToBytes(v, expr.ByteLen(e.Width())), nil
}

func (m *Model) assign(array string, index uint64, b byte) {
	bytes, ok := m.arrays[array]
	//
	if !ok {
		bytes = make(map[uint64]byte)
		m.arrays[array] = bytes
	}
	//
	bytes[index] = b
}

func isZero(bytes []byte) bool {
	for _, b := range bytes {
		if b != 0 {
			return false
		}
	}
	//
	return true
}
