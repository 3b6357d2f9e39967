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
package bdd

import (
	"path/filepath"
	"testing"

	"github.com/consensys/go-nfemu/pkg/expr"
	"github.com/consensys/go-nfemu/pkg/util/assert"
)

// TestDir determines the (relative) location of the test directory.  That is
// where the graph files are located.
const TestDir = "../../testdata/graphs"

func Test_Read_01(t *testing.T) {
	g := checkRead(t, "flowtable.yml")
	//
	assert.Equal(t, 3, len(g.Init()))
	assert.Equal(t, "map_allocate", g.Init()[0].Call.Function)
	assert.Equal(t, uint64(0), g.Root().ID())
	// Check the shape
	stats := Stats(g)
	assert.Equal(t, uint(10), stats.Calls)
	assert.Equal(t, uint(4), stats.Branches)
	assert.Equal(t, uint(3), stats.Routes)
	assert.Equal(t, uint(2), stats.Operations["packet_return_chunk"])
	assert.Equal(t, uint(12), stats.Depth)
}

func Test_Read_02(t *testing.T) {
	g := checkRead(t, "bridge.json")
	//
	assert.Equal(t, 0, len(g.Init()))
	assert.Equal(t, 5, len(g.Nodes()))
	//
	n, ok := g.Node(4)
	assert.True(t, ok)
	assert.Equal(t, "#4 drop", n.String())
}

func Test_Read_03(t *testing.T) {
	g := checkRead(t, "flowtable.yml")
	n, _ := g.Node(3)
	call := n.(*Call)
	//
	key, ok := call.Call.Arg("key")
	assert.True(t, ok)
	assert.Equal(t, "(w64 40)", key.Expr.String())
	assert.Equal(t, "(Concat w32 (Read w8 3 packet_chunks) (Concat w24 (Read w8 2 packet_chunks) "+
		"(Concat w16 (Read w8 1 packet_chunks) (Read w8 0 packet_chunks))))", key.In.String())
	assert.True(t, key.Out == nil)
	assert.Equal(t, "#3 map_get(key,map,value_out)", call.String())
}

func Test_Decode_01(t *testing.T) {
	// Unknown successor
	checkInvalid(t, `
root: 0
nodes:
  - {id: 0, kind: branch, condition: "true", on_true: 1, on_false: 2}
  - {id: 1, kind: route, operation: drop}
`)
}

func Test_Decode_02(t *testing.T) {
	// Missing successor
	checkInvalid(t, `
root: 0
nodes:
  - {id: 0, kind: call, function: packet_return_chunk}
`)
}

func Test_Decode_03(t *testing.T) {
	// Cycle
	checkInvalid(t, `
root: 0
nodes:
  - {id: 0, kind: call, function: current_time, next: 1}
  - {id: 1, kind: branch, condition: "true", on_true: 0, on_false: 2}
  - {id: 2, kind: route, operation: drop}
`)
}

func Test_Decode_04(t *testing.T) {
	// Non-boolean condition
	checkInvalid(t, `
root: 0
nodes:
  - {id: 0, kind: branch, condition: "(w8 1)", on_true: 1, on_false: 1}
  - {id: 1, kind: route, operation: drop}
`)
}

func Test_Decode_05(t *testing.T) {
	// Syntax error in expression
	checkInvalid(t, `
root: 0
nodes:
  - {id: 0, kind: branch, condition: "(Eq (w8 1)", on_true: 1, on_false: 1}
  - {id: 1, kind: route, operation: drop}
`)
}

func Test_Decode_06(t *testing.T) {
	// Duplicate identifiers
	checkInvalid(t, `
root: 0
nodes:
  - {id: 0, kind: route, operation: drop}
  - {id: 0, kind: route, operation: fwd}
`)
}

func Test_Decode_07(t *testing.T) {
	// Unknown route
	checkInvalid(t, `
root: 0
nodes:
  - {id: 0, kind: route, operation: flood}
`)
}

func Test_Decode_08(t *testing.T) {
	g, err := Decode([]byte(`
root: 0
device_expr: "(ReadLSB w32 0 VIGOR_DEVICE)"
nodes:
  - {id: 0, kind: route, operation: bcast}
`), false)
	assert.NoError(t, err)
	assert.Equal(t, expr.MustParse("(ReadLSB w32 0 VIGOR_DEVICE)").String(), g.DeviceExpr.String())
	assert.Equal(t, DefaultLengthExpr.String(), g.LengthExpr.String())
	assert.True(t, g.Root().(*Route).Accepts())
}

func Test_Validate_01(t *testing.T) {
	// Graphs constructed programmatically are validated separately
	b := NewBranch(0, expr.NewBool(true))
	b.OnTrue = NewRoute(1, DROP, 0)
	g := NewGraph(b, nil)
	//
	errs := Validate(g)
	assert.Equal(t, 1, len(errs))
	assert.ErrorIs(t, errs[0], ErrMalformed)
	//
	b.OnFalse = b.OnTrue
	assert.Equal(t, 0, len(Validate(g)))
}

// ===================================================================
// Test Helpers
// ===================================================================

func checkRead(t *testing.T, name string) *Graph {
	t.Helper()
	//
	g, err := Read(filepath.Join(TestDir, name))
	assert.NoError(t, err, name)
	//
	return g
}

func checkInvalid(t *testing.T, text string) {
	t.Helper()
	//
	_, err := Decode([]byte(text), false)
	assert.True(t, err != nil, "expected error for %s", text)
}
