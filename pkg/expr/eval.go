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
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrUnbound signals that an expression depends on a symbolic array byte which
// has no known value.
var ErrUnbound = errors.New("unbound symbol")

// ErrTooWide signals that an expression is too wide to be evaluated as a
// single value.
var ErrTooWide = errors.New("expression too wide")

// ErrDivByZero signals a division or remainder by zero.
var ErrDivByZero = errors.New("division by zero")

// Environment supplies known values during evaluation.
type Environment interface {
	// Fact returns a known value for a whole (non-decomposable) expression, if
	// there is one.
	Fact(e Expr) (*uint256.Int, bool)
	// Byte returns the known value of a given byte of a symbolic array, if
	// there is one.
	Byte(array string, index uint64) (byte, bool)
}

// Eval computes the value of an expression in a given environment.  The
// result is always truncated to the width of the expression.
func Eval(e Expr, env Environment) (*uint256.Int, error) {
	if e.Width() > MaxWidth {
		return nil, fmt.Errorf("%w (%d bits)", ErrTooWide, e.Width())
	} else if v, ok := env.Fact(e); ok {
		return truncate(new(uint256.Int).Set(v), e.Width()), nil
	}
	//
	switch e := e.(type) {
	case *Constant:
		return new(uint256.Int).Set(&e.Value), nil
	case *Read:
		return evalRead(e, env)
	case *Concat:
		return evalConcat(e, env)
	case *Extract:
		return evalExtract(e, env)
	case *Cast:
		return evalCast(e, env)
	case *Binary:
		return evalBinary(e, env)
	case *Not:
		v, err := Eval(e.Expr, env)
		if err != nil {
			return nil, err
		}
		//
		return truncate(v.Not(v), e.Width()), nil
	case *Select:
		return evalSelect(e, env)
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

// EvalBool evaluates a boolean expression.
func EvalBool(e Expr, env Environment) (bool, error) {
	v, err := Eval(e, env)
	if err != nil {
		return false, err
	}
	//
	return !v.IsZero(), nil
}

func evalRead(e *Read, env Environment) (*uint256.Int, error) {
	index, err := Eval(e.Index, env)
	if err != nil {
		return nil, err
	} else if !index.IsUint64() {
		return nil, fmt.Errorf("%w: index of %s", ErrTooWide, e.String())
	}
	//
	b, ok := env.Byte(e.Array, index.Uint64())
	if !ok {
		return nil, fmt.Errorf("%w: %s[%d]", ErrUnbound, e.Array, index.Uint64())
	}
	//
	return uint256.NewInt(uint64(b)), nil
}

func evalConcat(e *Concat, env Environment) (*uint256.Int, error) {
	msb, err := Eval(e.MSB, env)
	if err != nil {
		return nil, err
	}
	//
	lsb, err := Eval(e.LSB, env)
	if err != nil {
		return nil, err
	}
	//
	msb.Lsh(msb, e.LSB.Width())
	//
	return msb.Or(msb, lsb), nil
}

func evalExtract(e *Extract, env Environment) (*uint256.Int, error) {
	// Extracting from wider-than-evaluable concatenations is common for packet
	// chunks, so descend into the relevant half where possible.
	if c, ok := e.Expr.(*Concat); ok && e.Expr.Width() > MaxWidth {
		lw := c.LSB.Width()
		//
		if e.Offset+e.Bits <= lw {
			return Eval(&Extract{c.LSB, e.Offset, e.Bits}, env)
		} else if e.Offset >= lw {
			return Eval(&Extract{c.MSB, e.Offset - lw, e.Bits}, env)
		}
	}
	//
	v, err := Eval(e.Expr, env)
	if err != nil {
		return nil, err
	}
	//
	v.Rsh(v, e.Offset)
	//
	return truncate(v, e.Bits), nil
}

func evalCast(e *Cast, env Environment) (*uint256.Int, error) {
	v, err := Eval(e.Expr, env)
	if err != nil {
		return nil, err
	} else if e.Signed {
		return truncate(signExtend(v, e.Expr.Width()), e.Bits), nil
	}
	//
	return v, nil
}

func evalSelect(e *Select, env Environment) (*uint256.Int, error) {
	cond, err := EvalBool(e.Cond, env)
	if err != nil {
		return nil, err
	} else if cond {
		return Eval(e.Then, env)
	}
	//
	return Eval(e.Else, env)
}

func evalBinary(e *Binary, env Environment) (*uint256.Int, error) {
	lhs, err := Eval(e.LHS, env)
	if err != nil {
		return nil, err
	}
	//
	rhs, err := Eval(e.RHS, env)
	if err != nil {
		return nil, err
	}
	//
	if e.Op.IsCompare() {
		return boolValue(compare(e.Op, lhs, rhs, e.LHS.Width())), nil
	}
	//
	return arithmetic(e.Op, lhs, rhs, e.Width())
}

func arithmetic(op Op, x, y *uint256.Int, width uint) (*uint256.Int, error) {
	var z = new(uint256.Int)
	//
	switch op {
	case ADD:
		z.Add(x, y)
	case SUB:
		z.Sub(x, y)
	case MUL:
		z.Mul(x, y)
	case UDIV, UREM, SDIV, SREM:
		if y.IsZero() {
			return nil, ErrDivByZero
		}
		//
		switch op {
		case UDIV:
			z.Div(x, y)
		case UREM:
			z.Mod(x, y)
		case SDIV:
			z.SDiv(signExtend(x, width), signExtend(y, width))
		default:
			z.SMod(signExtend(x, width), signExtend(y, width))
		}
	case AND:
		z.And(x, y)
	case OR:
		z.Or(x, y)
	case XOR:
		z.Xor(x, y)
	case SHL:
		if y.IsUint64() && y.Uint64() < uint64(width) {
			z.Lsh(x, uint(y.Uint64()))
		}
	case LSHR:
		if y.IsUint64() && y.Uint64() < uint64(width) {
			z.Rsh(x, uint(y.Uint64()))
		}
	case ASHR:
		n := uint(width - 1)
		if y.IsUint64() && y.Uint64() < uint64(width) {
			n = uint(y.Uint64())
		}
		//
		z.SRsh(signExtend(x, width), n)
	default:
		panic(fmt.Sprintf("unknown arithmetic operation %s", op))
	}
	//
	return truncate(z, width), nil
}

func compare(op Op, x, y *uint256.Int, width uint) bool {
	switch op {
	case EQ:
		return x.Eq(y)
	case NE:
		return !x.Eq(y)
	case ULT:
		return x.Lt(y)
	case ULE:
		return !y.Lt(x)
	case UGT:
		return y.Lt(x)
	case UGE:
		return !x.Lt(y)
	}
	//
	sx, sy := signExtend(x, width), signExtend(y, width)
	//
	switch op {
	case SLT:
		return sx.Slt(sy)
	case SLE:
		return !sy.Slt(sx)
	case SGT:
		return sy.Slt(sx)
	case SGE:
		return !sx.Slt(sy)
	default:
		panic(fmt.Sprintf("unknown comparison %s", op))
	}
}

func boolValue(b bool) *uint256.Int {
	if b {
		return uint256.NewInt(1)
	}
	//
	return uint256.NewInt(0)
}
