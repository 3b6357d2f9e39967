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
	"fmt"
	"strings"

	"github.com/consensys/go-nfemu/pkg/expr"
	"golang.org/x/exp/slices"
)

// Node represents a node in a behavior graph.  Nodes come in exactly three
// kinds: *Call, *Branch and *Route.
type Node interface {
	// ID returns the unique identifier of this node within its graph.
	ID() uint64
	// Successors returns the nodes which can follow this node.  Successors
	// which have not been set are returned as nil.
	Successors() []Node
	// String returns a short human-readable summary of this node.
	String() string
	// Marker restricting implementations to this package.
	node()
}

func (*Call) node()   {}
func (*Branch) node() {}
func (*Route) node()  {}

// ============================================================================
// Call
// ============================================================================

// Arg describes an argument passed to a call.  The Expr describes the value
// passed in (e.g. a pointer), whilst In and Out (when present) describe the
// memory pointed to before and after the call.
type Arg struct {
	Expr  expr.Expr
	In    expr.Expr
	Out   expr.Expr
	FnPtr string
}

// CallInfo describes a single invocation of a primitive operation.
type CallInfo struct {
	Function string
	Args     map[string]Arg
	// Return value (if any)
	Ret expr.Expr
}

// Arg returns the argument of a given name, or false if the call has no such
// argument.
func (p *CallInfo) Arg(name string) (Arg, bool) {
	arg, ok := p.Args[name]
	return arg, ok
}

func (p *CallInfo) String() string {
	var names []string
	//
	for name := range p.Args {
		names = append(names, name)
	}
	//
	slices.Sort(names)
	//
	return fmt.Sprintf("%s(%s)", p.Function, strings.Join(names, ","))
}

// Call is a node representing the invocation of a primitive operation, which
// is then followed by exactly one successor.
type Call struct {
	id   uint64
	Call CallInfo
	// Symbols freshly introduced by this call.
	Symbols []string
	Next    Node
}

// NewCall constructs a new call node without a successor.
func NewCall(id uint64, call CallInfo, symbols []string) *Call {
	return &Call{id, call, symbols, nil}
}

// ID implementation for Node interface.
func (p *Call) ID() uint64 { return p.id }

// Successors implementation for Node interface.
func (p *Call) Successors() []Node { return []Node{p.Next} }

func (p *Call) String() string {
	return fmt.Sprintf("#%d %s", p.id, p.Call.String())
}

// ============================================================================
// Branch
// ============================================================================

// Branch is a node which selects between two successors based on a boolean
// condition.
type Branch struct {
	id        uint64
	Condition expr.Expr
	OnTrue    Node
	OnFalse   Node
}

// NewBranch constructs a new branch node without successors.
func NewBranch(id uint64, condition expr.Expr) *Branch {
	return &Branch{id, condition, nil, nil}
}

// ID implementation for Node interface.
func (p *Branch) ID() uint64 { return p.id }

// Successors implementation for Node interface.
func (p *Branch) Successors() []Node { return []Node{p.OnTrue, p.OnFalse} }

func (p *Branch) String() string {
	return fmt.Sprintf("#%d if %s", p.id, p.Condition.String())
}

// ============================================================================
// Route
// ============================================================================

// RouteOp identifies the fate of a packet reaching a route node.
type RouteOp uint8

const (
	// FWD forwards the packet to a given device.
	FWD RouteOp = iota
	// DROP discards the packet.
	DROP
	// BCAST broadcasts the packet on all devices.
	BCAST
)

var routeOps = []string{"fwd", "drop", "bcast"}

func (op RouteOp) String() string {
	return routeOps[op]
}

// ParseRouteOp converts a textual route operation into a RouteOp.
func ParseRouteOp(s string) (RouteOp, bool) {
	i := slices.Index(routeOps, strings.ToLower(s))
	//
	if i < 0 {
		return 0, false
	}
	//
	return RouteOp(i), true
}

// Route is a terminal node determining the fate of a packet.
type Route struct {
	id        uint64
	Operation RouteOp
	// Destination device (for FWD only)
	DstDevice uint64
}

// NewRoute constructs a new route node.
func NewRoute(id uint64, op RouteOp, dst uint64) *Route {
	return &Route{id, op, dst}
}

// ID implementation for Node interface.
func (p *Route) ID() uint64 { return p.id }

// Successors implementation for Node interface.
func (p *Route) Successors() []Node { return nil }

// Accepts determines whether packets reaching this route are accepted (i.e.
// forwarded or broadcast) or rejected.
func (p *Route) Accepts() bool {
	return p.Operation != DROP
}

func (p *Route) String() string {
	if p.Operation == FWD {
		return fmt.Sprintf("#%d fwd(%d)", p.id, p.DstDevice)
	}
	//
	return fmt.Sprintf("#%d %s", p.id, p.Operation)
}
