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
	"errors"
	"fmt"

	"github.com/consensys/go-nfemu/pkg/bdd"
	"github.com/consensys/go-nfemu/pkg/expr"
	"github.com/consensys/go-nfemu/pkg/oracle"
	"github.com/consensys/go-nfemu/pkg/state"
	"github.com/consensys/go-nfemu/pkg/symbex"
	log "github.com/sirupsen/logrus"
)

// ErrMissingSuccessor signals a non-terminal node without a successor, reached
// during a traversal.
var ErrMissingSuccessor = errors.New("missing successor")

// ErrInputWidth signals a packet attribute (e.g. its ingress device) which does
// not fit into the symbol it is bound to.
var ErrInputWidth = errors.New("input exceeds symbol width")

// Emulator executes a behavior graph one packet at a time against a simulated
// machine state.  The machine state persists across packets, whilst every
// packet is traversed with a fresh symbolic context.
type Emulator struct {
	graph    *bdd.Graph
	registry *Registry
	oracle   oracle.Oracle
	state    *state.State
	meta     *Meta
	config   Config
}

// NewEmulator constructs an emulator for a given graph using the default
// registry and a concrete oracle.
func NewEmulator(graph *bdd.Graph, config Config) *Emulator {
	return NewEmulatorWith(graph, config, DefaultRegistry(), oracle.Concrete{})
}

// NewEmulatorWith constructs an emulator for a given graph using a given
// registry and oracle.
func NewEmulatorWith(graph *bdd.Graph, config Config, registry *Registry, o oracle.Oracle) *Emulator {
	return &Emulator{graph, registry, o, state.NewState(), NewMeta(), config}
}

// Config returns the configuration of this emulator.
func (e *Emulator) Config() Config {
	return e.config
}

// Graph returns the graph being executed.
func (e *Emulator) Graph() *bdd.Graph {
	return e.graph
}

// Meta returns the statistics accumulated so far.
func (e *Emulator) Meta() *Meta {
	return e.meta
}

// State returns the simulated machine state.
func (e *Emulator) State() *state.State {
	return e.state
}

// Init runs the initialisation calls of the graph, thereby populating the
// machine state.  These calls see an empty packet, time zero and a single
// context shared between them.  Statistics are not affected.
func (e *Emulator) Init() error {
	var (
		packet = NewPacket(nil, 0)
		ctx    = symbex.NewContext(e.oracle)
	)
	//
	for i, call := range e.graph.Init() {
		if err := e.dispatch(call, packet, 0, ctx); err != nil {
			return fmt.Errorf("initialisation call %d (%s): %w", i, call.Call.Function, err)
		}
	}
	//
	log.Debugf("initialised %d objects", e.state.Len())
	//
	return nil
}

// Process a single packet arriving at a given (virtual) time, by traversing the
// graph from its root until a route is reached.
func (e *Emulator) Process(packet *Packet, now int64) error {
	var (
		ctx  = symbex.NewContext(e.oracle)
		node = e.graph.Root()
	)
	// Seed context
	packet.Rewind()
	//
	if err := bindInput(ctx, "device", e.graph.DeviceExpr, packet.Device); err != nil {
		return err
	} else if err := bindInput(ctx, "length", e.graph.LengthExpr, uint64(packet.Length)); err != nil {
		return err
	}
	//
	ctx.Concretize(e.graph.TimeExpr, uint64(now))
	//
	for node != nil {
		var next bdd.Node
		//
		e.meta.Hits[node.ID()]++
		//
		if log.IsLevelEnabled(log.TraceLevel) {
			log.Tracef("visiting %s", node.String())
		}
		//
		switch n := node.(type) {
		case *bdd.Call:
			if err := e.dispatch(n, packet, now, ctx); err != nil {
				return fmt.Errorf("node #%d (%s): %w", n.ID(), n.Call.Function, err)
			}
			//
			next = n.Next
		case *bdd.Branch:
			taken, err := ctx.Evaluate(n.Condition)
			if err != nil {
				return fmt.Errorf("node #%d: %w", n.ID(), err)
			} else if taken {
				next = n.OnTrue
			} else {
				next = n.OnFalse
			}
		case *bdd.Route:
			if n.Accepts() {
				e.meta.Accepted++
			} else {
				e.meta.Rejected++
			}
			//
			return nil
		default:
			panic(fmt.Sprintf("unknown node %T", n))
		}
		//
		if next == nil {
			return fmt.Errorf("%w after node #%d", ErrMissingSuccessor, node.ID())
		}
		//
		node = next
	}
	//
	return fmt.Errorf("%w: graph has no root", ErrMissingSuccessor)
}

// Bind a packet attribute to its symbol, provided it fits.
func bindInput(ctx *symbex.Context, name string, e expr.Expr, value uint64) error {
	if w := e.Width(); w < 64 && value>>w != 0 {
		return fmt.Errorf("%w: %s %d does not fit in %d bits", ErrInputWidth, name, value, w)
	}
	//
	ctx.Concretize(e, value)
	//
	return nil
}

func (e *Emulator) dispatch(call *bdd.Call, packet *Packet, now int64, ctx *symbex.Context) error {
	handler, err := e.registry.Lookup(call.Call.Function)
	if err != nil {
		return err
	}
	//
	return handler(&Env{
		Graph:   e.graph,
		Node:    call,
		Packet:  packet,
		Time:    now,
		State:   e.state,
		Meta:    e.meta,
		Context: ctx,
		Config:  &e.config,
	})
}
