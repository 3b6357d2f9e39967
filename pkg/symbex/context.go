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
package symbex

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/go-nfemu/pkg/expr"
	"github.com/consensys/go-nfemu/pkg/oracle"
)

// ErrUndetermined signals that a condition could not be decided from the
// concrete values bound so far.  This means the concrete inputs do not fully
// determine the symbolic path being followed.
var ErrUndetermined = errors.New("undetermined condition")

// Context accumulates the concrete bindings made while traversing a behavior
// graph for a single packet.  A context must not outlive the traversal it was
// created for.
type Context struct {
	solver      oracle.Solver
	constraints []oracle.Constraint
	// Index of the most recent binding for each expression
	bound map[string]int
	// First binding rejected by the solver (if any)
	err error
}

// NewContext constructs an empty context backed by a fresh solver from a given
// oracle.
func NewContext(o oracle.Oracle) *Context {
	return &Context{o.Solver(), nil, make(map[string]int), nil}
}

// Concretize binds a symbolic expression to a concrete value for the remainder
// of this traversal.
func (c *Context) Concretize(e expr.Expr, value uint64) {
	var le = make([]byte, 8)
	//
	for i := range le {
		le[i] = byte(value >> (8 * i))
	}
	//
	c.ConcretizeBytes(e, le)
}

// ConcretizeBytes binds a symbolic expression to a concrete little-endian
// value.  The value is truncated or zero-padded to the width of the
// expression.  Binding an expression again to the same value has no effect,
// whilst binding it to a different value supersedes the earlier binding.  A
// binding which the solver rejects is reported by the next query.
func (c *Context) ConcretizeBytes(e expr.Expr, value []byte) {
	if expr.IsConstant(e) {
		return
	}
	//
	var (
		cons = oracle.NewConstraint(e, value)
		key  = e.String()
	)
	//
	if i, ok := c.bound[key]; ok && bytes.Equal(c.constraints[i].Value, cons.Value) {
		return
	}
	//
	c.bound[key] = len(c.constraints)
	c.constraints = append(c.constraints, cons)
	//
	if err := c.solver.Add(cons); err != nil && c.err == nil {
		c.err = err
	}
}

// Evaluate decides a boolean condition under the bindings made so far.  It is
// an error if the oracle cannot decide the condition either way.
func (c *Context) Evaluate(cond expr.Expr) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	//
	decision, err := c.solver.Decide(cond)
	//
	switch {
	case err != nil:
		return false, err
	case decision == oracle.ALWAYS_TRUE:
		return true, nil
	case decision == oracle.ALWAYS_FALSE:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUndetermined, cond.String())
	}
}

// ValueOf resolves a symbolic expression of at most 64 bits into a concrete
// value under the bindings made so far.
func (c *Context) ValueOf(e expr.Expr) (uint64, error) {
	le, err := c.BytesOf(e)
	if err != nil {
		return 0, err
	}
	//
	var value uint64
	//
	for i, b := range le {
		if i >= 8 && b != 0 {
			return 0, fmt.Errorf("value of %s exceeds 64 bits", e.String())
		} else if i < 8 {
			value |= uint64(b) << (8 * i)
		}
	}
	//
	return value, nil
}

// BytesOf resolves a symbolic expression into its concrete little-endian bytes
// under the bindings made so far.
func (c *Context) BytesOf(e expr.Expr) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	//
	le, err := c.solver.ValueOf(e)
	//
	if errors.Is(err, expr.ErrUnbound) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUndetermined, e.String(), err.Error())
	}
	//
	return le, err
}

// Constraints returns the bindings made so far, in order.
func (c *Context) Constraints() []oracle.Constraint {
	return c.constraints
}

// Len returns the number of bindings made so far.
func (c *Context) Len() int {
	return len(c.constraints)
}
