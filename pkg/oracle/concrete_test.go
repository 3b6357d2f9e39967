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
	"testing"

	"github.com/consensys/go-nfemu/pkg/expr"
	"github.com/consensys/go-nfemu/pkg/util/assert"
)

func Test_Decide_01(t *testing.T) {
	cs := constraints("(ReadLSB w16 0 DEVICE)", 1)
	checkDecision(t, cs, "(Eq (w16 1) (ReadLSB w16 0 DEVICE))", ALWAYS_TRUE)
	checkDecision(t, cs, "(Eq (w16 0) (ReadLSB w16 0 DEVICE))", ALWAYS_FALSE)
}

func Test_Decide_02(t *testing.T) {
	// Individual bytes of a bound multi-byte read are available.
	cs := constraints("(ReadLSB w16 0 DEVICE)", 0x0102)
	checkDecision(t, cs, "(Eq (w8 2) (Read w8 0 DEVICE))", ALWAYS_TRUE)
	checkDecision(t, cs, "(Eq (w8 1) (Read w8 1 DEVICE))", ALWAYS_TRUE)
}

func Test_Decide_03(t *testing.T) {
	// Nothing known about the packet length
	cs := constraints("(ReadLSB w16 0 DEVICE)", 1)
	checkDecision(t, cs, "(Ult (w32 64) (ReadLSB w32 0 pkt_len))", UNDETERMINED)
}

func Test_Decide_04(t *testing.T) {
	// Arbitrary expressions are recorded as facts
	cs := constraints("(Add w32 (ReadLSB w32 0 a) (w32 1))", 5)
	checkDecision(t, cs, "(Eq (w32 5) (Add w32 (ReadLSB w32 0 a) (w32 1)))", ALWAYS_TRUE)
	checkDecision(t, cs, "(Eq (w32 0) (ReadLSB w32 0 a))", UNDETERMINED)
}

func Test_Decide_05(t *testing.T) {
	// Zero extensions are seen through
	cs := constraints("(ZExt w32 (Read w8 0 found))", 1)
	checkDecision(t, cs, "(Eq (w8 0) (Read w8 0 found))", ALWAYS_FALSE)
}

func Test_Decide_06(t *testing.T) {
	// Later bindings take precedence
	cs := append(constraints("(Read w8 0 x)", 1), constraints("(Read w8 0 x)", 2)...)
	checkDecision(t, cs, "(Eq (w8 2) (Read w8 0 x))", ALWAYS_TRUE)
}

func Test_Decide_07(t *testing.T) {
	_, err := Concrete{}.Decide(nil, expr.MustParse("(w8 1)"))
	assert.True(t, err != nil, "expected error for non-boolean condition")
}

func Test_ValueOf_01(t *testing.T) {
	cs := constraints("(ReadLSB w32 0 a)", 0xdeadbeef)
	bytes, err := Concrete{}.ValueOf(cs, expr.MustParse("(ReadLSB w16 2 a)"))
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xad, 0xde}, bytes)
}

func Test_ValueOf_02(t *testing.T) {
	// Wide reads are bound and evaluated byte-wise
	var (
		chunk = expr.NewReadLSB("packet_chunks", expr.NewConstant(0, 32), 48*8)
		data  = make([]byte, 48)
	)
	//
	for i := range data {
		data[i] = byte(i)
	}
	//
	cs := []Constraint{NewConstraint(chunk, data)}
	bytes, err := Concrete{}.ValueOf(cs, chunk)
	assert.NoError(t, err)
	assert.Equal(t, data, bytes)
	// Check a field in the middle of the chunk
	checkDecision(t, cs, "(Eq (w16 0x1819) (ReadMSB w16 24 packet_chunks))", ALWAYS_TRUE)
}

func Test_ValueOf_03(t *testing.T) {
	_, err := Concrete{}.ValueOf(nil, expr.MustParse("(Read w8 0 a)"))
	assert.ErrorIs(t, err, expr.ErrUnbound)
}

func Test_Solver_01(t *testing.T) {
	var solver = Concrete{}.Solver()
	//
	cond := expr.MustParse("(Eq (w16 1) (ReadLSB w16 0 DEVICE))")
	d, err := solver.Decide(cond)
	assert.NoError(t, err)
	assert.Equal(t, UNDETERMINED, d)
	//
	assert.NoError(t, solver.Add(constraints("(ReadLSB w16 0 DEVICE)", 1)[0]))
	d, err = solver.Decide(cond)
	assert.NoError(t, err)
	assert.Equal(t, ALWAYS_TRUE, d)
	// Later constraints take precedence
	assert.NoError(t, solver.Add(constraints("(Read w8 0 DEVICE)", 0)[0]))
	d, err = solver.Decide(cond)
	assert.NoError(t, err)
	assert.Equal(t, ALWAYS_FALSE, d)
	//
	bytes, err := solver.ValueOf(expr.MustParse("(ReadLSB w16 0 DEVICE)"))
	assert.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, bytes)
}

// ===================================================================
// Test Helpers
// ===================================================================

func constraints(input string, value uint64) []Constraint {
	e := expr.MustParse(input)
	v := expr.ToBytes(expr.FromBytes(le64(value)), expr.ByteLen(e.Width()))
	//
	return []Constraint{NewConstraint(e, v)}
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

func checkDecision(t *testing.T, constraints []Constraint, input string, expected Decision) {
	t.Helper()
	//
	d, err := Concrete{}.Decide(constraints, expr.MustParse(input))
	assert.NoError(t, err, input)
	assert.Equal(t, expected, d, input)
}
