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
package emulator

import (
	"path/filepath"
	"testing"

	"github.com/consensys/go-nfemu/pkg/bdd"
	"github.com/consensys/go-nfemu/pkg/expr"
	"github.com/consensys/go-nfemu/pkg/oracle"
	"github.com/consensys/go-nfemu/pkg/state"
	"github.com/consensys/go-nfemu/pkg/symbex"
	"github.com/consensys/go-nfemu/pkg/trace"
	"github.com/consensys/go-nfemu/pkg/util/assert"
)

// TestDir determines the (relative) location of the test directory.  That is
// where the graph files are located.
const TestDir = "../../testdata/graphs"

// ============================================================================
// Driver
// ============================================================================

func Test_Driver_01(t *testing.T) {
	// Rate mode: 64 byte frame at 1Gbps
	emu := checkEmulator(t, "bridge.json", Config{Device: 0, Rate: 1})
	checkRun(t, emu, frames(frame(0xAA, 64)), nil)
	//
	meta := emu.Meta()
	assert.Equal(t, 1, meta.Packets)
	assert.Equal(t, 1, meta.Accepted)
	assert.Equal(t, 704, meta.Elapsed)
}

func Test_Driver_02(t *testing.T) {
	// Three packets, two loops
	emu := checkEmulator(t, "bridge.json", Config{Device: 0, Loops: 2, Rate: 10})
	checkRun(t, emu, frames(frame(1, 64), frame(2, 60), frame(3, 128)), nil)
	//
	meta := emu.Meta()
	assert.Equal(t, 6, meta.Packets)
	assert.Equal(t, 4, meta.Accepted)
	assert.Equal(t, 2, meta.Rejected)
	assert.Equal(t, 6, meta.Hits[0])
	assert.Equal(t, 2, meta.Hits[4])
}

func Test_Driver_03(t *testing.T) {
	// Loops below one still run once
	emu := checkEmulator(t, "bridge.json", Config{Device: 1, Loops: -3, Rate: 10})
	checkRun(t, emu, frames(frame(1, 64), frame(2, 64)), nil)
	//
	assert.Equal(t, 2, emu.Meta().Packets)
	assert.Equal(t, 2, emu.Meta().Hits[2])
}

func Test_Driver_04(t *testing.T) {
	// Timestamp mode
	emu := checkEmulator(t, "bridge.json", Config{Device: 0})
	tr := trace.NewSlice(
		trace.NewRecord(frame(1, 64), 5_000),
		trace.NewRecord(frame(2, 64), 5_300),
		trace.NewRecord(frame(3, 64), 6_000))
	driver := checkRun(t, emu, tr, nil)
	//
	assert.Equal(t, 1_000, emu.Meta().Elapsed)
	assert.Equal(t, 6_000, driver.Now())
}

func Test_Driver_05(t *testing.T) {
	// Timestamp mode with loops keeps time monotonic
	emu := checkEmulator(t, "bridge.json", Config{Device: 0, Loops: 2})
	tr := trace.NewSlice(trace.NewRecord(frame(1, 64), 100), trace.NewRecord(frame(2, 64), 400))
	driver := checkRun(t, emu, tr, nil)
	//
	assert.Equal(t, 600, emu.Meta().Elapsed)
	assert.Equal(t, 700, driver.Now())
}

func Test_Driver_06(t *testing.T) {
	// Warm-up resets statistics but not the machine state
	var (
		emu      = checkEmulator(t, "flowtable.yml", Config{Device: 0, Warmup: true, Rate: 1, Report: true})
		reporter = &recorder{meta: emu.Meta()}
	)
	//
	checkRun(t, emu, frames(frame(1, 64), frame(2, 64), frame(1, 64)), reporter)
	//
	assert.True(t, reporter.zeroAtWarmup)
	assert.Equal(t, 1, reporter.warmups)
	// Two flows created during warm-up survive into the real pass
	meta := emu.Meta()
	assert.Equal(t, 3, meta.Packets)
	assert.Equal(t, 3, meta.Accepted)
	assert.Equal(t, 0, meta.Allocations)
	assert.Equal(t, 3, meta.Hits[10])
	assert.Equal(t, 2, flowTable(t, emu).Len())
	// Reporter sees every packet, including the warm-up pass
	assert.Equal(t, []uint64{3, 3}, reporter.totals)
	assert.Equal(t, 6, reporter.packets)
	assert.Equal(t, 1, reporter.finals)
}

func Test_Driver_07(t *testing.T) {
	// Without reporting, the reporter is never touched
	var (
		emu      = checkEmulator(t, "bridge.json", Config{Device: 0, Warmup: true, Rate: 1})
		reporter = &recorder{meta: emu.Meta()}
	)
	//
	checkRun(t, emu, frames(frame(1, 64)), reporter)
	assert.Equal(t, 0, reporter.packets)
	assert.Equal(t, 0, reporter.warmups)
	assert.Equal(t, 0, reporter.finals)
}

func Test_Driver_08(t *testing.T) {
	// Failures identify the packet
	emu := checkEmulator(t, "flowtable.yml", Config{Device: 0, Rate: 1})
	err := NewDriver(emu).Run(frames(frame(1, 64), frame(2, 2)), &recorder{})
	//
	assert.ErrorIs(t, err, ErrPacketOverrun)
	assert.Equal(t, 1, emu.Meta().Packets)
}

func Test_Driver_09(t *testing.T) {
	// Rate mode rounds over the run, not per frame (70.4ns per frame at 10Gbps)
	var packets = make([][]byte, 1000)
	//
	for i := range packets {
		packets[i] = frame(byte(i), 64)
	}
	//
	emu := checkEmulator(t, "bridge.json", Config{Device: 0, Rate: 10})
	driver := checkRun(t, emu, frames(packets...), nil)
	//
	assert.Equal(t, 70_400, emu.Meta().Elapsed)
	assert.Equal(t, 70_400, driver.Now())
}

func Test_Driver_10(t *testing.T) {
	// Warm-up and measured passes are announced separately
	var (
		emu      = checkEmulator(t, "bridge.json", Config{Device: 0, Loops: 2, Warmup: true, Rate: 1, Report: true})
		reporter = &recorder{meta: emu.Meta()}
	)
	//
	checkRun(t, emu, frames(frame(1, 64), frame(2, 64)), reporter)
	//
	assert.Equal(t, []uint64{2, 4}, reporter.totals)
	assert.Equal(t, 6, reporter.packets)
	assert.Equal(t, 4, emu.Meta().Packets)
}

func Test_Driver_11(t *testing.T) {
	// Device beyond the width of the device symbol
	emu := checkEmulator(t, "bridge.json", Config{Device: 1 << 16, Rate: 1})
	err := NewDriver(emu).Run(frames(frame(1, 64)), &recorder{})
	//
	assert.ErrorIs(t, err, ErrInputWidth)
	assert.Equal(t, 0, emu.Meta().Packets)
	assert.Equal(t, 0, emu.Meta().Rejected)
}

// ============================================================================
// Flow table
// ============================================================================

func Test_FlowTable_01(t *testing.T) {
	emu := checkEmulator(t, "flowtable.yml", Config{Device: 0, Rate: 1})
	checkRun(t, emu, frames(frame(1, 64), frame(1, 64), frame(2, 64)), nil)
	//
	meta := emu.Meta()
	assert.Equal(t, 3, meta.Accepted)
	assert.Equal(t, 2, meta.Allocations)
	// New flows take the allocation path, known flows are rejuvenated
	assert.Equal(t, 2, meta.Hits[6])
	assert.Equal(t, 1, meta.Hits[10])
	assert.Equal(t, 3, meta.Hits[31])
	// Flows are recorded in the map and the vector
	m := flowTable(t, emu)
	index, ok := m.Get(frame(2, 4))
	assert.True(t, ok)
	assert.Equal(t, 1, index)
	//
	v, err := state.Get[*state.Vector](emu.State(), 200)
	assert.NoError(t, err)
	cell, err := v.Borrow(1)
	assert.NoError(t, err)
	assert.Equal(t, frame(2, 4), cell)
}

func Test_FlowTable_02(t *testing.T) {
	// WAN packets are only forwarded for known flows
	emu := checkEmulator(t, "flowtable.yml", Config{Device: 0, Rate: 1})
	checkRun(t, emu, frames(frame(7, 64)), nil)
	//
	emu.config.Device = 1
	checkRun(t, emu, frames(frame(7, 64), frame(8, 64)), nil)
	//
	meta := emu.Meta()
	assert.Equal(t, 3, meta.Packets)
	assert.Equal(t, 2, meta.Accepted)
	assert.Equal(t, 1, meta.Rejected)
	assert.Equal(t, 1, meta.Hits[32])
	assert.Equal(t, 1, meta.Hits[30])
}

func Test_FlowTable_03(t *testing.T) {
	// Flows expire after 1ms of inactivity
	emu := checkEmulator(t, "flowtable.yml", Config{Device: 0})
	tr := trace.NewSlice(
		trace.NewRecord(frame(1, 64), 0),
		trace.NewRecord(frame(2, 64), 500_000),
		trace.NewRecord(frame(1, 64), 2_000_000))
	checkRun(t, emu, tr, nil)
	//
	meta := emu.Meta()
	assert.Equal(t, 3, meta.Allocations)
	assert.Equal(t, 0, meta.Hits[10])
	// Only the most recent flow remains
	m := flowTable(t, emu)
	assert.Equal(t, 1, m.Len())
	//
	_, ok := m.Get(frame(2, 4))
	assert.False(t, ok)
}

func Test_FlowTable_04(t *testing.T) {
	// Out of space drops the packet
	var records []trace.Record
	//
	for i := 0; i < 6; i++ {
		records = append(records, trace.NewRecord(frame(byte(i+1), 64), int64(i)))
	}
	//
	emu := checkEmulator(t, "flowtable.yml", Config{Device: 0})
	checkRun(t, emu, trace.NewSlice(records...), nil)
	//
	meta := emu.Meta()
	assert.Equal(t, 4, meta.Accepted)
	assert.Equal(t, 2, meta.Rejected)
	assert.Equal(t, 4, meta.Allocations)
}

// ============================================================================
// Properties
// ============================================================================

func Test_Property_01(t *testing.T) {
	// Determinism
	var runs [2]*Meta
	//
	for i := range runs {
		emu := checkEmulator(t, "flowtable.yml", Config{Device: 0, Loops: 3, Rate: 2.5})
		checkRun(t, emu, mixedTrace(), nil)
		runs[i] = emu.Meta()
	}
	//
	assert.Equal(t, runs[0], runs[1])
}

func Test_Property_02(t *testing.T) {
	// Every packet reaches exactly one route and is either accepted or rejected
	emu := checkEmulator(t, "flowtable.yml", Config{Device: 0, Loops: 2, Rate: 1})
	checkRun(t, emu, mixedTrace(), nil)
	//
	var (
		meta   = emu.Meta()
		routes uint64
	)
	//
	for _, n := range emu.Graph().Nodes() {
		if _, ok := n.(*bdd.Route); ok {
			routes += meta.Hits[n.ID()]
		}
	}
	//
	assert.Equal(t, meta.Packets, routes)
	assert.Equal(t, meta.Packets, meta.Accepted+meta.Rejected)
	assert.Equal(t, meta.Packets, meta.Hits[0])
}

func Test_Property_03(t *testing.T) {
	// Statistics are labelled and ordered
	emu := checkEmulator(t, "bridge.json", Config{Device: 0, Rate: 1})
	checkRun(t, emu, frames(frame(1, 64), frame(2, 32)), nil)
	//
	stats := emu.Meta().Statistics(emu.Graph())
	assert.Equal(t, 4, len(stats.Hits))
	assert.Equal(t, 0, stats.Hits[0].Node)
	assert.Equal(t, "#4 drop", stats.Hits[3].Label)
	assert.Equal(t, 2, stats.Packets)
}

// ============================================================================
// Interpreter
// ============================================================================

func Test_Process_01(t *testing.T) {
	// Unknown operation
	root := bdd.NewCall(0, bdd.CallInfo{Function: "frobnicate"}, nil)
	root.Next = bdd.NewRoute(1, bdd.DROP, 0)
	//
	err := checkProcess(t, bdd.NewGraph(root, nil))
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func Test_Process_02(t *testing.T) {
	// Missing successor
	root := bdd.NewCall(0, bdd.CallInfo{Function: "current_time"}, nil)
	//
	err := checkProcess(t, bdd.NewGraph(root, nil))
	assert.ErrorIs(t, err, ErrMissingSuccessor)
}

func Test_Process_03(t *testing.T) {
	// Branch on an unbound symbol
	root := bdd.NewBranch(0, expr.MustParse("(Eq (w8 0) (Read w8 0 mystery))"))
	root.OnTrue = bdd.NewRoute(1, bdd.DROP, 0)
	root.OnFalse = bdd.NewRoute(2, bdd.FWD, 1)
	//
	err := checkProcess(t, bdd.NewGraph(root, nil))
	assert.ErrorIs(t, err, symbex.ErrUndetermined)
}

func Test_Process_04(t *testing.T) {
	// Branch on the packet length
	root := bdd.NewBranch(0, expr.MustParse("(Ult (w16 10) (ReadLSB w16 0 pkt_len))"))
	root.OnTrue = bdd.NewRoute(1, bdd.FWD, 1)
	root.OnFalse = bdd.NewRoute(2, bdd.DROP, 0)
	//
	emu := NewEmulator(bdd.NewGraph(root, nil), Config{})
	assert.NoError(t, emu.Process(NewPacket(frame(1, 11), 0), 0))
	assert.NoError(t, emu.Process(NewPacket(frame(1, 10), 0), 0))
	assert.Equal(t, 1, emu.Meta().Accepted)
	assert.Equal(t, 1, emu.Meta().Rejected)
}

func Test_Process_05(t *testing.T) {
	// Custom handlers
	var (
		registry = NewRegistry()
		count    = 0
		root     = bdd.NewCall(0, bdd.CallInfo{Function: "tick"}, nil)
	)
	//
	registry.Register("tick", func(env *Env) error {
		count++
		return nil
	})
	//
	root.Next = bdd.NewRoute(1, bdd.BCAST, 0)
	emu := NewEmulatorWith(bdd.NewGraph(root, nil), Config{}, registry, oracle.Concrete{})
	assert.NoError(t, emu.Process(NewPacket(nil, 0), 0))
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, emu.Meta().Accepted)
	assert.Equal(t, []string{"tick"}, registry.Names())
}

func Test_Process_06(t *testing.T) {
	// Devices must fit the device symbol
	emu := checkEmulator(t, "bridge.json", Config{})
	assert.NoError(t, emu.Process(NewPacket(frame(1, 64), 0xffff), 0))
	assert.ErrorIs(t, emu.Process(NewPacket(frame(1, 64), 0x10000), 0), ErrInputWidth)
	//
	meta := emu.Meta()
	assert.Equal(t, 1, meta.Accepted)
	assert.Equal(t, 0, meta.Rejected)
	assert.Equal(t, 1, meta.Hits[0])
	assert.Equal(t, 1, meta.Hits[2])
}

func Test_Process_07(t *testing.T) {
	// Lengths must fit the length symbol
	var (
		emu    = checkEmulator(t, "bridge.json", Config{})
		packet = NewPacket(frame(1, 64), 0)
	)
	//
	packet.Length = 1 << 16
	assert.ErrorIs(t, emu.Process(packet, 0), ErrInputWidth)
	assert.Equal(t, 0, emu.Meta().Hits[0])
}

// ============================================================================
// Handlers
// ============================================================================

func Test_Handler_01(t *testing.T) {
	// Map round trip
	env := checkEnv(t)
	key := expr.MustParse("(ReadLSB w32 0 key)")
	env.Context.ConcretizeBytes(key, []byte{1, 2, 3, 4})
	//
	env.Node = call("map_put", args{"map": {"(w64 100)", "", ""}, "key": {"(w64 8)", "(ReadLSB w32 0 key)", ""},
		"value": {"(w32 7)", "", ""}}, "")
	assert.NoError(t, mapPut(env))
	//
	env.Node = call("map_get", args{"map": {"(w64 100)", "", ""}, "key": {"(w64 8)", "(ReadLSB w32 0 key)", ""},
		"value_out": {"(w64 16)", "", "(ReadLSB w32 0 value)"}}, "(ReadLSB w32 0 found)")
	assert.NoError(t, mapGet(env))
	//
	checkValue(t, env, "(ReadLSB w32 0 found)", 1)
	checkValue(t, env, "(ReadLSB w32 0 value)", 7)
}

func Test_Handler_02(t *testing.T) {
	// Map miss
	env := checkEnv(t)
	env.Node = call("map_get", args{"map": {"(w64 100)", "", ""}, "key": {"(w32 9)", "", ""},
		"value_out": {"(w64 16)", "", "(ReadLSB w32 0 value)"}}, "(ReadLSB w32 0 found)")
	assert.NoError(t, mapGet(env))
	//
	checkValue(t, env, "(ReadLSB w32 0 found)", 0)
	//
	_, err := env.Context.ValueOf(expr.MustParse("(ReadLSB w32 0 value)"))
	assert.ErrorIs(t, err, symbex.ErrUndetermined)
}

func Test_Handler_03(t *testing.T) {
	// Vector bounds
	env := checkEnv(t)
	env.Node = call("vector_borrow", args{"vector": {"(w64 200)", "", ""}, "index": {"(w32 4)", "", ""},
		"val_out": {"(w64 16)", "", "(ReadLSB w32 0 cell)"}}, "")
	//
	assert.ErrorIs(t, vectorBorrow(env), state.ErrOutOfRange)
}

func Test_Handler_04(t *testing.T) {
	// Vector round trip
	env := checkEnv(t)
	env.Node = call("vector_return", args{"vector": {"(w64 200)", "", ""}, "index": {"(w32 3)", "", ""},
		"value": {"(w32 0xdeadbeef)", "", ""}}, "")
	assert.NoError(t, vectorReturn(env))
	//
	env.Node = call("vector_borrow", args{"vector": {"(w64 200)", "", ""}, "index": {"(w32 3)", "", ""},
		"val_out": {"(w64 16)", "", "(ReadLSB w32 0 cell)"}}, "")
	assert.NoError(t, vectorBorrow(env))
	checkValue(t, env, "(ReadLSB w32 0 cell)", 0xdeadbeef)
}

func Test_Handler_05(t *testing.T) {
	// Wrong kind of object
	env := checkEnv(t)
	env.Node = call("vector_borrow", args{"vector": {"(w64 100)", "", ""}, "index": {"(w32 0)", "", ""}}, "")
	//
	assert.ErrorIs(t, vectorBorrow(env), state.ErrWrongKind)
}

func Test_Handler_06(t *testing.T) {
	// Missing argument
	env := checkEnv(t)
	env.Node = call("map_put", args{"map": {"(w64 100)", "", ""}}, "")
	//
	assert.ErrorIs(t, mapPut(env), ErrMissingArgument)
}

func Test_Handler_07(t *testing.T) {
	// Packet chunks
	env := checkEnv(t)
	env.Packet = NewPacket([]byte{0x10, 0x20, 0x30, 0x40, 0x50}, 0)
	env.Node = call("packet_borrow_next_chunk", args{"length": {"(w32 2)", "", ""},
		"chunk": {"(ReadLSB w64 0 chunk_ptr)", "", "(ReadLSB w16 0 hdr)"}}, "")
	assert.NoError(t, packetBorrowNextChunk(env))
	//
	env.Node = call("packet_borrow_next_chunk", args{"length": {"(w32 2)", "", ""},
		"chunk": {"(ReadLSB w64 0 chunk_ptr2)", "", "(ReadLSB w16 0 body)"}}, "")
	assert.NoError(t, packetBorrowNextChunk(env))
	//
	checkValue(t, env, "(ReadLSB w16 0 hdr)", 0x2010)
	checkValue(t, env, "(ReadLSB w16 0 body)", 0x4030)
	checkValue(t, env, "(ReadLSB w64 0 chunk_ptr2)", 2)
	//
	env.Node = call("packet_get_unread_length", args{}, "(ReadLSB w32 0 unread)")
	assert.NoError(t, packetGetUnreadLength(env))
	checkValue(t, env, "(ReadLSB w32 0 unread)", 1)
	// Overrun
	env.Node = call("packet_borrow_next_chunk", args{"length": {"(w32 2)", "", ""},
		"chunk": {"(w64 0)", "", ""}}, "")
	assert.ErrorIs(t, packetBorrowNextChunk(env), ErrPacketOverrun)
}

func Test_Handler_08(t *testing.T) {
	// Index allocation and rejuvenation
	env := checkEnv(t)
	env.Time = 50
	allocate := call("dchain_allocate_new_index", args{"chain": {"(w64 300)", "", ""},
		"index_out": {"(w64 16)", "", "(ReadLSB w32 0 index)"}, "time": {"(w64 50)", "", ""}}, "(ReadLSB w32 0 ok)")
	env.Node = allocate
	assert.NoError(t, dchainAllocateNewIndex(env))
	checkValue(t, env, "(ReadLSB w32 0 ok)", 1)
	checkValue(t, env, "(ReadLSB w32 0 index)", 0)
	assert.Equal(t, 1, env.Meta.Allocations)
	//
	env.Node = call("dchain_is_index_allocated", args{"chain": {"(w64 300)", "", ""}, "index": {"(w32 0)", "", ""}},
		"(ReadLSB w32 0 allocated)")
	assert.NoError(t, dchainIsIndexAllocated(env))
	checkValue(t, env, "(ReadLSB w32 0 allocated)", 1)
	//
	env.Node = call("dchain_free_index", args{"chain": {"(w64 300)", "", ""}, "index": {"(w32 0)", "", ""}},
		"(ReadLSB w32 0 freed)")
	assert.NoError(t, dchainFreeIndex(env))
	checkValue(t, env, "(ReadLSB w32 0 freed)", 1)
}

func Test_Handler_09(t *testing.T) {
	// Allocation into an occupied address
	env := checkEnv(t)
	env.Node = call("map_allocate", args{"capacity": {"(w32 4)", "", ""}, "map_out": {"(w64 8)", "", "(w64 100)"}}, "")
	//
	assert.ErrorIs(t, mapAllocate(env), state.ErrAllocated)
}

func Test_Handler_10(t *testing.T) {
	// Time
	env := checkEnv(t)
	env.Time = 123456
	env.Node = call("current_time", args{}, "(ReadLSB w64 0 now)")
	assert.NoError(t, currentTime(env))
	checkValue(t, env, "(ReadLSB w64 0 now)", 123456)
}

func Test_Handler_11(t *testing.T) {
	// Expire a range of keys held in a vector
	env := checkExpireEnv(t)
	env.Node = call("expire_items_range", args{"map": {"(w64 100)", "", ""}, "vector": {"(w64 200)", "", ""},
		"start": {"(ReadLSB w32 0 start)", "", ""}, "count": {"(w32 2)", "", ""}}, "(ReadLSB w32 0 expired)")
	env.Context.Concretize(expr.MustParse("(ReadLSB w32 0 start)"), 0)
	assert.NoError(t, expireItemsRange(env))
	//
	checkValue(t, env, "(ReadLSB w32 0 expired)", 2)
	//
	m := lookupMap(t, env)
	assert.Equal(t, 1, m.Len())
	//
	_, ok := m.Get(frame('A', 4))
	assert.False(t, ok)
	_, ok = m.Get(frame('B', 4))
	assert.False(t, ok)
	index, ok := m.Get(frame('C', 4))
	assert.True(t, ok)
	assert.Equal(t, 2, index)
}

func Test_Handler_12(t *testing.T) {
	// Expire beyond the end of the vector
	env := checkExpireEnv(t)
	env.Node = call("expire_items_range", args{"map": {"(w64 100)", "", ""}, "vector": {"(w64 200)", "", ""},
		"start": {"(w32 3)", "", ""}, "count": {"(w32 2)", "", ""}}, "")
	//
	assert.ErrorIs(t, expireItemsRange(env), state.ErrOutOfRange)
	assert.Equal(t, 3, lookupMap(t, env).Len())
	// Unresolved arguments
	env.Node = call("expire_items_range", args{"map": {"(w64 100)", "", ""}, "vector": {"(w64 200)", "", ""},
		"start": {"(ReadLSB w32 0 start)", "", ""}, "count": {"(w32 1)", "", ""}}, "")
	assert.ErrorIs(t, expireItemsRange(env), symbex.ErrUndetermined)
	//
	env.Node = call("expire_items_range", args{"map": {"(w64 100)", "", ""}, "vector": {"(w64 200)", "", ""}}, "")
	assert.ErrorIs(t, expireItemsRange(env), ErrMissingArgument)
}

func Test_Handler_13(t *testing.T) {
	// Erase a key, after which it is no longer found
	env := checkExpireEnv(t)
	key := expr.MustParse("(ReadLSB w32 0 key)")
	env.Context.ConcretizeBytes(key, frame('B', 4))
	//
	env.Node = call("map_erase", args{"map": {"(w64 100)", "", ""}, "key": {"(w64 8)", "(ReadLSB w32 0 key)", ""}}, "")
	assert.NoError(t, mapErase(env))
	assert.Equal(t, 2, lookupMap(t, env).Len())
	//
	env.Node = call("map_get", args{"map": {"(w64 100)", "", ""}, "key": {"(w64 8)", "(ReadLSB w32 0 key)", ""},
		"value_out": {"(w64 16)", "", "(ReadLSB w32 0 value)"}}, "(ReadLSB w32 0 found)")
	assert.NoError(t, mapGet(env))
	checkValue(t, env, "(ReadLSB w32 0 found)", 0)
	// Erasing a missing key is harmless
	env.Node = call("map_erase", args{"map": {"(w64 100)", "", ""}, "key": {"(w64 8)", "(ReadLSB w32 0 key)", ""}}, "")
	assert.NoError(t, mapErase(env))
	// Wrong kind of object
	env.Node = call("map_erase", args{"map": {"(w64 200)", "", ""}, "key": {"(w32 9)", "", ""}}, "")
	assert.ErrorIs(t, mapErase(env), state.ErrWrongKind)
}

// ============================================================================
// Test Helpers
// ============================================================================

// recorder is a reporter which records what it was told.
type recorder struct {
	meta         *Meta
	totals       []uint64
	packets      uint64
	warmups      uint
	finals       uint
	zeroAtWarmup bool
}

func (p *recorder) SetTotalPackets(total uint64) { p.totals = append(p.totals, total) }
func (p *recorder) SetTimeOrigin(time int64)     {}
func (p *recorder) SetCurrentTime(time int64)    {}
func (p *recorder) IncPacketCounter()            { p.packets++ }

func (p *recorder) Show(final bool) {
	if final {
		p.finals++
	}
}

func (p *recorder) StopWarmup() {
	p.warmups++
	p.zeroAtWarmup = p.meta.IsZero()
}

type args map[string]struct{ value, in, out string }

func call(function string, arguments args, ret string) *bdd.Call {
	info := bdd.CallInfo{Function: function, Args: make(map[string]bdd.Arg)}
	//
	for name, a := range arguments {
		arg := bdd.Arg{Expr: expr.MustParse(a.value)}
		//
		if a.in != "" {
			arg.In = expr.MustParse(a.in)
		}
		//
		if a.out != "" {
			arg.Out = expr.MustParse(a.out)
		}
		//
		info.Args[name] = arg
	}
	//
	if ret != "" {
		info.Ret = expr.MustParse(ret)
	}
	//
	return bdd.NewCall(0, info, nil)
}

// frame constructs a packet of n bytes, whose first four bytes all equal key.
func frame(key byte, n int) []byte {
	data := make([]byte, n)
	//
	for i := 0; i < n && i < 4; i++ {
		data[i] = key
	}
	//
	return data
}

// frames constructs a trace of packets all captured at time zero.
func frames(packets ...[]byte) *trace.Slice {
	var records = make([]trace.Record, len(packets))
	//
	for i, p := range packets {
		records[i] = trace.NewRecord(p, 0)
	}
	//
	return trace.NewSlice(records...)
}

func mixedTrace() *trace.Slice {
	return frames(frame(1, 64), frame(2, 64), frame(1, 128), frame(3, 64), frame(4, 64), frame(5, 64),
		frame(2, 64))
}

func flowTable(t *testing.T, emu *Emulator) *state.Map {
	m, err := state.Get[*state.Map](emu.State(), 100)
	assert.NoError(t, err)
	//
	return m
}

func checkEmulator(t *testing.T, name string, config Config) *Emulator {
	g, err := bdd.Read(filepath.Join(TestDir, name))
	assert.NoError(t, err)
	//
	emu := NewEmulator(g, config)
	assert.NoError(t, emu.Init())
	//
	return emu
}

func checkRun(t *testing.T, emu *Emulator, tr trace.Trace, reporter *recorder) *Driver {
	if reporter == nil {
		reporter = &recorder{meta: emu.Meta()}
	}
	//
	driver := NewDriver(emu)
	assert.NoError(t, driver.Run(tr, reporter))
	//
	return driver
}

func checkProcess(t *testing.T, g *bdd.Graph) error {
	emu := NewEmulator(g, Config{})
	assert.NoError(t, emu.Init())
	//
	return emu.Process(NewPacket(frame(1, 64), 0), 0)
}

// checkEnv constructs an environment over a state holding a map at 100, a
// vector at 200 and an index allocator at 300 (each with capacity four).
func checkEnv(t *testing.T) *Env {
	s := state.NewState()
	assert.NoError(t, s.Allocate(100, state.NewMap(4, 4)))
	assert.NoError(t, s.Allocate(200, state.NewVector(4, 4)))
	assert.NoError(t, s.Allocate(300, state.NewDChain(4)))
	//
	return &Env{
		Graph:   nil,
		Packet:  NewPacket(nil, 0),
		State:   s,
		Meta:    NewMeta(),
		Context: symbex.NewContext(oracle.Concrete{}),
		Config:  &Config{},
	}
}

// checkExpireEnv constructs an environment whose map holds the keys A, B and C,
// which are also held (in order) by the first cells of the vector.
func checkExpireEnv(t *testing.T) *Env {
	var (
		env = checkEnv(t)
		m   = lookupMap(t, env)
	)
	//
	v, err := state.Get[*state.Vector](env.State, 200)
	assert.NoError(t, err)
	//
	for i, k := range []byte("ABC") {
		assert.NoError(t, m.Put(frame(k, 4), uint64(i)))
		assert.NoError(t, v.Return(uint64(i), frame(k, 4)))
	}
	//
	return env
}

func lookupMap(t *testing.T, env *Env) *state.Map {
	m, err := state.Get[*state.Map](env.State, 100)
	assert.NoError(t, err)
	//
	return m
}

func checkValue(t *testing.T, env *Env, text string, expected uint64) {
	v, err := env.Context.ValueOf(expr.MustParse(text))
	assert.NoError(t, err)
	assert.Equal(t, expected, v, text)
}
