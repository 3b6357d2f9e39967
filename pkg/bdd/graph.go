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
	"errors"
	"fmt"

	"github.com/consensys/go-nfemu/pkg/expr"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrMalformed signals a behavior graph which violates a structural
// requirement (e.g. a branch without a successor).
var ErrMalformed = errors.New("malformed graph")

// DefaultDeviceExpr is the symbol holding the ingress device of a packet.
var DefaultDeviceExpr = expr.NewReadLSB("DEVICE", expr.NewConstant(0, 32), 16)

// DefaultLengthExpr is the symbol holding the length of a packet.
var DefaultLengthExpr = expr.NewReadLSB("pkt_len", expr.NewConstant(0, 32), 16)

// DefaultTimeExpr is the symbol holding the arrival time of a packet.
var DefaultTimeExpr = expr.NewReadLSB("next_time", expr.NewConstant(0, 32), 64)

// Graph is a behavior graph with a single entry point, along with the sequence
// of calls initialising the network function.  Graphs are immutable once
// constructed.
type Graph struct {
	root  Node
	init  []*Call
	nodes map[uint64]Node
	// Symbol bound to the ingress device of each packet.
	DeviceExpr expr.Expr
	// Symbol bound to the length of each packet.
	LengthExpr expr.Expr
	// Symbol bound to the arrival time of each packet.
	TimeExpr expr.Expr
}

// NewGraph constructs a graph from a given root and sequence of initialisation
// calls, using the default device, length and time symbols.  All nodes
// reachable from the root are indexed.  The graph is not validated.
func NewGraph(root Node, init []*Call) *Graph {
	g := &Graph{root, init, make(map[uint64]Node), DefaultDeviceExpr, DefaultLengthExpr, DefaultTimeExpr}
	//
	var (
		visited  = make(map[Node]bool)
		worklist = []Node{root}
	)
	//
	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		//
		if n == nil || visited[n] {
			continue
		}
		//
		visited[n] = true
		// First node with a given identifier wins
		if _, ok := g.nodes[n.ID()]; !ok {
			g.nodes[n.ID()] = n
		}
		//
		worklist = append(worklist, n.Successors()...)
	}
	//
	return g
}

// Root returns the entry point of this graph.
func (g *Graph) Root() Node {
	return g.root
}

// Init returns the sequence of calls initialising the network function.
func (g *Graph) Init() []*Call {
	return g.init
}

// Node returns the node with a given identifier, or false if no such node is
// reachable from the root.
func (g *Graph) Node(id uint64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes reachable from the root, ordered by identifier.
func (g *Graph) Nodes() []Node {
	var (
		ids   = make([]uint64, 0, len(g.nodes))
		nodes = make([]Node, len(g.nodes))
	)
	//
	for id := range g.nodes {
		ids = append(ids, id)
	}
	//
	slices.Sort(ids)
	//
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	//
	return nodes
}

// Validate checks the structural requirements of a graph: every call has a
// successor; every branch has both successors; node identifiers are unique;
// and, the graph is acyclic.  All violations found are returned.
func Validate(g *Graph) []error {
	var (
		errs  []error
		dag   = simple.NewDirectedGraph()
		seen  = make(map[uint64]Node)
		nodes = reachable(g.root)
	)
	//
	if g.root == nil {
		return []error{fmt.Errorf("%w: missing root", ErrMalformed)}
	}
	//
	for _, n := range nodes {
		if m, ok := seen[n.ID()]; ok && m != n {
			errs = append(errs, fmt.Errorf("%w: duplicate node #%d", ErrMalformed, n.ID()))
		} else if !ok {
			seen[n.ID()] = n
			dag.AddNode(simple.Node(int64(n.ID())))
		}
	}
	//
	for _, n := range nodes {
		for i, succ := range n.Successors() {
			if succ == nil {
				errs = append(errs, fmt.Errorf("%w: node #%d missing successor %d", ErrMalformed, n.ID(), i))
			} else if succ.ID() == n.ID() {
				errs = append(errs, fmt.Errorf("%w: node #%d succeeds itself", ErrMalformed, n.ID()))
			} else {
				dag.SetEdge(dag.NewEdge(simple.Node(int64(n.ID())), simple.Node(int64(succ.ID()))))
			}
		}
	}
	//
	if _, err := topo.Sort(dag); err != nil {
		errs = append(errs, fmt.Errorf("%w: graph contains a cycle", ErrMalformed))
	}
	// Initialisation calls run in isolation
	for _, c := range g.init {
		if c == nil {
			errs = append(errs, fmt.Errorf("%w: missing initialisation call", ErrMalformed))
		}
	}
	//
	return errs
}

// reachable returns all nodes reachable from a given node, in depth-first
// order.  Each node is visited once, even when the graph has cycles.
func reachable(root Node) []Node {
	var (
		nodes   []Node
		visited = make(map[Node]bool)
		visit   func(Node)
	)
	//
	visit = func(n Node) {
		if n == nil || visited[n] {
			return
		}
		//
		visited[n] = true
		nodes = append(nodes, n)
		//
		for _, succ := range n.Successors() {
			visit(succ)
		}
	}
	//
	visit(root)
	//
	return nodes
}

// Statistics summarises the shape of a behavior graph.
type Statistics struct {
	Calls    uint
	Branches uint
	Routes   uint
	// Number of call nodes per operation
	Operations map[string]uint
	// Length of the longest path from the root
	Depth uint
}

// Stats computes summary statistics for a given graph.
func Stats(g *Graph) Statistics {
	var (
		stats = Statistics{Operations: make(map[string]uint)}
		depth = make(map[Node]uint)
	)
	//
	for _, n := range g.Nodes() {
		switch n := n.(type) {
		case *Call:
			stats.Calls++
			stats.Operations[n.Call.Function]++
		case *Branch:
			stats.Branches++
		case *Route:
			stats.Routes++
		}
	}
	//
	stats.Depth = longestPath(g.root, depth)
	//
	return stats
}

// longestPath determines the number of nodes on the longest path starting
// from a given node, which is assumed to be part of a valid graph.
func longestPath(n Node, memo map[Node]uint) uint {
	if n == nil {
		return 0
	} else if d, ok := memo[n]; ok {
		return d
	}
	//
	var longest uint
	//
	for _, succ := range n.Successors() {
		longest = max(longest, longestPath(succ, memo))
	}
	//
	memo[n] = longest + 1
	//
	return longest + 1
}
