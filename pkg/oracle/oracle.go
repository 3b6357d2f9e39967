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
	"fmt"

	"github.com/consensys/go-nfemu/pkg/expr"
)

// Decision is the answer given by an oracle when asked about a boolean
// expression under a given set of constraints.
type Decision uint8

const (
	// UNDETERMINED indicates the expression can be either true or false under
	// the constraints.
	UNDETERMINED Decision = iota
	// ALWAYS_TRUE indicates the expression holds under the constraints.
	ALWAYS_TRUE
	// ALWAYS_FALSE indicates the expression cannot hold under the constraints.
	ALWAYS_FALSE
)

func (d Decision) String() string {
	switch d {
	case ALWAYS_TRUE:
		return "always-true"
	case ALWAYS_FALSE:
		return "always-false"
	default:
		return "undetermined"
	}
}

// Constraint asserts that a given expression equals a given concrete value.
// The value is held as little-endian bytes, matching how the value would be
// laid out in memory.
type Constraint struct {
	Expr  expr.Expr
	Value []byte
}

// NewConstraint constructs a constraint binding an expression to a concrete
// value.  The value is truncated or zero-padded to the width of the
// expression.
func NewConstraint(e expr.Expr, value []byte) Constraint {
	var bytes = make([]byte, expr.ByteLen(e.Width()))
	//
	copy(bytes, value)
	//
	return Constraint{e, bytes}
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s == %s", c.Expr.String(), expr.FromBytes(c.Value).ToBig().String())
}

// Oracle is a decision procedure.  It answers whether a boolean expression is
// decided by a set of constraints, and what value an expression has under
// them.  Implementations range from a full constraint solver to a purely
// concrete evaluator.
type Oracle interface {
	// Decide whether the given boolean expression is always true, always false
	// or neither under the given constraints.  An error is returned only for
	// malformed queries.
	Decide(constraints []Constraint, cond expr.Expr) (Decision, error)
	// ValueOf determines the (unique) value of a given expression under the
	// given constraints, as little-endian bytes.
	ValueOf(constraints []Constraint, e expr.Expr) ([]byte, error)
	// Solver returns a solver without any constraints, to which constraints
	// are then added one at a time.
	Solver() Solver
}

// Solver answers the same queries as an Oracle, but against constraints it
// has accumulated itself.  This avoids reconsidering every constraint on every
// query when constraints arrive incrementally, as they do during a traversal.
type Solver interface {
	// Add a constraint.  Later constraints take precedence over earlier ones
	// where they overlap.
	Add(c Constraint) error
	// Decide whether the given boolean expression is always true, always false
	// or neither under the constraints added so far.
	Decide(cond expr.Expr) (Decision, error)
	// ValueOf determines the (unique) value of a given expression under the
	// constraints added so far, as little-endian bytes.
	ValueOf(e expr.Expr) ([]byte, error)
}
