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
	"github.com/consensys/go-nfemu/pkg/state"
	"github.com/consensys/go-nfemu/pkg/symbex"
	"golang.org/x/exp/slices"
)

// ErrUnknownOperation signals a call to an operation with no registered
// handler.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrMissingArgument signals a call lacking an argument required by its
// handler.
var ErrMissingArgument = errors.New("missing argument")

// ErrPacketOverrun signals an attempt to borrow beyond the end of a packet.
var ErrPacketOverrun = errors.New("packet overrun")

// Env provides everything a handler may use when servicing a single call.
// Handlers mutate the machine state, the context, the statistics and the
// packet cursor, but never the graph.
type Env struct {
	Graph   *bdd.Graph
	Node    *bdd.Call
	Packet  *Packet
	Time    int64
	State   *state.State
	Meta    *Meta
	Context *symbex.Context
	Config  *Config
}

// Handler implements the effect of an operation.
type Handler func(env *Env) error

// Registry maps operation names to their handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{make(map[string]Handler)}
}

// Register a handler for a given operation, replacing any existing handler for
// that operation.
func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Lookup the handler for a given operation.
func (r *Registry) Lookup(name string) (Handler, error) {
	if h, ok := r.handlers[name]; ok {
		return h, nil
	}
	//
	return nil, fmt.Errorf("%w \"%s\"", ErrUnknownOperation, name)
}

// Names returns the names of all registered operations in sorted order.
func (r *Registry) Names() []string {
	var names = make([]string, 0, len(r.handlers))
	//
	for name := range r.handlers {
		names = append(names, name)
	}
	//
	slices.Sort(names)
	//
	return names
}

// ============================================================================
// Argument helpers
// ============================================================================

// Arg returns the argument of the current call with a given name.
func (e *Env) Arg(name string) (bdd.Arg, error) {
	if arg, ok := e.Node.Call.Arg(name); ok && arg.Expr != nil {
		return arg, nil
	}
	//
	return bdd.Arg{}, fmt.Errorf("%w \"%s\" for %s", ErrMissingArgument, name, e.Node.Call.Function)
}

// Value resolves the value passed for a given argument.
func (e *Env) Value(name string) (uint64, error) {
	arg, err := e.Arg(name)
	if err != nil {
		return 0, err
	}
	//
	return e.Context.ValueOf(arg.Expr)
}

// Address resolves the address passed for a given argument.
func (e *Env) Address(name string) (state.Address, error) {
	v, err := e.Value(name)
	return state.Address(v), err
}

// OutAddress resolves the address written to a given (output) argument by an
// allocation.  When the argument has no output, the address passed is used
// instead.
func (e *Env) OutAddress(name string) (state.Address, error) {
	arg, err := e.Arg(name)
	if err != nil {
		return 0, err
	} else if arg.Out == nil {
		return e.Address(name)
	}
	//
	v, err := e.Context.ValueOf(arg.Out)
	//
	return state.Address(v), err
}

// InBytes resolves the memory read through a given argument.  When the
// argument does not describe the memory read, the value passed is used
// instead.
func (e *Env) InBytes(name string) ([]byte, error) {
	arg, err := e.Arg(name)
	if err != nil {
		return nil, err
	} else if arg.In != nil {
		return e.Context.BytesOf(arg.In)
	}
	//
	return e.Context.BytesOf(arg.Expr)
}

// Out binds the memory written through a given argument to a given value.  This
// does nothing if the argument does not describe the memory written.
func (e *Env) Out(name string, value []byte) error {
	arg, err := e.Arg(name)
	if err != nil {
		return err
	} else if arg.Out != nil {
		e.Context.ConcretizeBytes(arg.Out, value)
	}
	//
	return nil
}

// Return binds the return value of the current call (if it has one).
func (e *Env) Return(value uint64) {
	if ret := e.Node.Call.Ret; ret != nil {
		e.Context.Concretize(ret, value)
	}
}

// Signed interprets the value passed for a given argument as a signed integer
// of the argument's width.
func (e *Env) Signed(name string) (int64, error) {
	arg, err := e.Arg(name)
	if err != nil {
		return 0, err
	}
	//
	v, err := e.Context.ValueOf(arg.Expr)
	if err != nil {
		return 0, err
	}
	//
	if w := arg.Expr.Width(); w < 64 && w > 0 && v&(1<<(w-1)) != 0 {
		v |= ^uint64(0) << w
	}
	//
	return int64(v), nil
}
