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
	"testing"

	"github.com/consensys/go-nfemu/pkg/expr"
	"github.com/consensys/go-nfemu/pkg/oracle"
	"github.com/consensys/go-nfemu/pkg/util/assert"
)

func Test_Context_01(t *testing.T) {
	ctx := NewContext(oracle.Concrete{})
	ctx.Concretize(expr.MustParse("(ReadLSB w16 0 DEVICE)"), 1)
	//
	checkEvaluate(t, ctx, "(Eq (w16 1) (ReadLSB w16 0 DEVICE))", true)
	checkEvaluate(t, ctx, "(Eq (w16 0) (ReadLSB w16 0 DEVICE))", false)
}

func Test_Context_02(t *testing.T) {
	ctx := NewContext(oracle.Concrete{})
	_, err := ctx.Evaluate(expr.MustParse("(Eq (w16 1) (ReadLSB w16 0 DEVICE))"))
	assert.ErrorIs(t, err, ErrUndetermined)
}

func Test_Context_03(t *testing.T) {
	// Rebinding to the same value is harmless
	ctx := NewContext(oracle.Concrete{})
	e := expr.MustParse("(ReadLSB w32 0 pkt_len)")
	ctx.Concretize(e, 64)
	ctx.Concretize(e, 64)
	assert.Equal(t, 1, ctx.Len())
	checkValue(t, ctx, "(ReadLSB w32 0 pkt_len)", 64)
}

func Test_Context_04(t *testing.T) {
	// Constants are never bound
	ctx := NewContext(oracle.Concrete{})
	ctx.Concretize(expr.MustParse("(w32 5)"), 5)
	assert.Equal(t, 0, ctx.Len())
	checkValue(t, ctx, "(w32 5)", 5)
}

func Test_Context_05(t *testing.T) {
	ctx := NewContext(oracle.Concrete{})
	ctx.ConcretizeBytes(expr.MustParse("(ReadLSB w32 0 chunk)"), []byte{0x45, 0x00, 0x00, 0x54})
	checkValue(t, ctx, "(Read w8 0 chunk)", 0x45)
	checkValue(t, ctx, "(ReadMSB w16 2 chunk)", 0x0054)
	//
	bytes, err := ctx.BytesOf(expr.MustParse("(ReadLSB w16 0 chunk)"))
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0x00}, bytes)
}

func Test_Context_06(t *testing.T) {
	ctx := NewContext(oracle.Concrete{})
	_, err := ctx.ValueOf(expr.MustParse("(ReadLSB w64 0 map)"))
	assert.ErrorIs(t, err, ErrUndetermined)
}

func Test_Context_07(t *testing.T) {
	// Each binding reaches the solver once, however many queries follow
	var (
		o   = &countingOracle{}
		ctx = NewContext(o)
	)
	//
	ctx.Concretize(expr.MustParse("(ReadLSB w16 0 DEVICE)"), 1)
	ctx.Concretize(expr.MustParse("(ReadLSB w16 0 pkt_len)"), 64)
	//
	for i := 0; i < 5; i++ {
		checkEvaluate(t, ctx, "(Eq (w16 1) (ReadLSB w16 0 DEVICE))", true)
		checkValue(t, ctx, "(ReadLSB w16 0 pkt_len)", 64)
	}
	// Rebinding supersedes the earlier value
	ctx.Concretize(expr.MustParse("(ReadLSB w16 0 DEVICE)"), 2)
	checkEvaluate(t, ctx, "(Eq (w16 2) (ReadLSB w16 0 DEVICE))", true)
	assert.Equal(t, 3, o.adds)
	assert.Equal(t, 3, ctx.Len())
}

// ===================================================================
// Test Helpers
// ===================================================================

// countingOracle is a concrete oracle which counts the constraints added to
// the solvers it hands out.
type countingOracle struct {
	oracle.Concrete
	adds int
}

func (o *countingOracle) Solver() oracle.Solver {
	return &countingSolver{o.Concrete.Solver(), &o.adds}
}

type countingSolver struct {
	oracle.Solver
	adds *int
}

func (s *countingSolver) Add(c oracle.Constraint) error {
	*s.adds++
	return s.Solver.Add(c)
}

func checkEvaluate(t *testing.T, ctx *Context, input string, expected bool) {
	t.Helper()
	//
	actual, err := ctx.Evaluate(expr.MustParse(input))
	assert.NoError(t, err, input)
	assert.Equal(t, expected, actual, input)
}

func checkValue(t *testing.T, ctx *Context, input string, expected uint64) {
	t.Helper()
	//
	actual, err := ctx.ValueOf(expr.MustParse(input))
	assert.NoError(t, err, input)
	assert.Equal(t, expected, actual, input)
}
