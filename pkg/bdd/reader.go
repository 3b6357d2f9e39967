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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/consensys/go-nfemu/pkg/expr"
	"gopkg.in/yaml.v3"
)

// GraphFile is the serialised form of a behavior graph.  Nodes refer to their
// successors by identifier, and expressions are written in kquery syntax.
type GraphFile struct {
	Root       uint64     `json:"root" yaml:"root"`
	DeviceExpr string     `json:"device_expr,omitempty" yaml:"device_expr,omitempty"`
	LengthExpr string     `json:"length_expr,omitempty" yaml:"length_expr,omitempty"`
	TimeExpr   string     `json:"time_expr,omitempty" yaml:"time_expr,omitempty"`
	Init       []CallFile `json:"init" yaml:"init"`
	Nodes      []NodeFile `json:"nodes" yaml:"nodes"`
}

// CallFile is the serialised form of a call.
type CallFile struct {
	Function string             `json:"function" yaml:"function"`
	Args     map[string]ArgFile `json:"args,omitempty" yaml:"args,omitempty"`
	Ret      string             `json:"ret,omitempty" yaml:"ret,omitempty"`
}

// ArgFile is the serialised form of a call argument.
type ArgFile struct {
	Expr  string `json:"expr" yaml:"expr"`
	In    string `json:"in,omitempty" yaml:"in,omitempty"`
	Out   string `json:"out,omitempty" yaml:"out,omitempty"`
	FnPtr string `json:"fn_ptr,omitempty" yaml:"fn_ptr,omitempty"`
}

// NodeFile is the serialised form of a node.  Which fields are relevant is
// determined by the kind of node (call, branch or route).
type NodeFile struct {
	ID   uint64 `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`
	// Call nodes
	CallFile `json:",inline" yaml:",inline"`
	Symbols  []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Next     *uint64  `json:"next,omitempty" yaml:"next,omitempty"`
	// Branch nodes
	Condition string  `json:"condition,omitempty" yaml:"condition,omitempty"`
	OnTrue    *uint64 `json:"on_true,omitempty" yaml:"on_true,omitempty"`
	OnFalse   *uint64 `json:"on_false,omitempty" yaml:"on_false,omitempty"`
	// Route nodes
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
	DstDevice uint64 `json:"dst_device,omitempty" yaml:"dst_device,omitempty"`
}

// Read a behavior graph from a given file.  Files ending in ".json" are read as
// JSON, and all others as YAML.  The resulting graph is validated before being
// returned.
func Read(filename string) (*Graph, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	//
	useJSON := strings.EqualFold(filepath.Ext(filename), ".json")
	//
	g, err := Decode(bytes, useJSON)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	//
	return g, nil
}

// Decode a behavior graph from a given byte slice, either as JSON or YAML.
func Decode(bytes []byte, useJSON bool) (*Graph, error) {
	var (
		file GraphFile
		err  error
	)
	//
	if useJSON {
		err = json.Unmarshal(bytes, &file)
	} else {
		err = yaml.Unmarshal(bytes, &file)
	}
	//
	if err != nil {
		return nil, err
	}
	//
	return file.Build()
}

// Build constructs and validates the graph described by this file.
func (p *GraphFile) Build() (*Graph, error) {
	var (
		nodes = make(map[uint64]Node)
		errs  []error
	)
	// Construct nodes
	for _, n := range p.Nodes {
		if _, ok := nodes[n.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: duplicate node #%d", ErrMalformed, n.ID))
			continue
		}
		//
		node, err := n.build()
		//
		if err != nil {
			errs = append(errs, err)
		} else {
			nodes[n.ID] = node
		}
	}
	// Link successors
	for _, n := range p.Nodes {
		errs = append(errs, n.link(nodes)...)
	}
	// Construct initialisation sequence
	init := make([]*Call, len(p.Init))
	//
	for i, c := range p.Init {
		info, err := c.build(fmt.Sprintf("init %d", i))
		if err != nil {
			errs = append(errs, err)
		}
		//
		init[i] = NewCall(uint64(i), info, nil)
	}
	//
	root, ok := nodes[p.Root]
	if !ok {
		errs = append(errs, fmt.Errorf("%w: unknown root #%d", ErrMalformed, p.Root))
	}
	//
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	//
	g := NewGraph(root, init)
	//
	for _, sym := range []struct {
		text   string
		target *expr.Expr
	}{{p.DeviceExpr, &g.DeviceExpr}, {p.LengthExpr, &g.LengthExpr}, {p.TimeExpr, &g.TimeExpr}} {
		if sym.text == "" {
			continue
		} else if e, err := expr.ParseNamed("graph", sym.text); err != nil {
			errs = append(errs, err)
		} else {
			*sym.target = e
		}
	}
	//
	errs = append(errs, Validate(g)...)
	//
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	//
	return g, nil
}

func (p *NodeFile) build() (Node, error) {
	var name = fmt.Sprintf("node #%d", p.ID)
	//
	switch strings.ToLower(p.Kind) {
	case "call":
		info, err := p.CallFile.build(name)
		if err != nil {
			return nil, err
		}
		//
		return NewCall(p.ID, info, p.Symbols), nil
	case "branch":
		cond, err := parseExpr(name, "condition", p.Condition)
		if err != nil {
			return nil, err
		} else if cond == nil || cond.Width() != expr.BoolWidth {
			return nil, fmt.Errorf("%w: %s requires a boolean condition", ErrMalformed, name)
		}
		//
		return NewBranch(p.ID, cond), nil
	case "route":
		op, ok := ParseRouteOp(p.Operation)
		if !ok {
			return nil, fmt.Errorf("%w: %s has unknown route operation \"%s\"", ErrMalformed, name, p.Operation)
		}
		//
		return NewRoute(p.ID, op, p.DstDevice), nil
	default:
		return nil, fmt.Errorf("%w: %s has unknown kind \"%s\"", ErrMalformed, name, p.Kind)
	}
}

// link a node to its successors, reporting any which do not exist.
func (p *NodeFile) link(nodes map[uint64]Node) []error {
	var (
		errs   []error
		lookup = func(field string, id *uint64) Node {
			if id == nil {
				errs = append(errs, fmt.Errorf("%w: node #%d missing %s", ErrMalformed, p.ID, field))
				return nil
			} else if n, ok := nodes[*id]; ok {
				return n
			}
			//
			errs = append(errs, fmt.Errorf("%w: node #%d has unknown %s #%d", ErrMalformed, p.ID, field, *id))
			//
			return nil
		}
	)
	//
	switch n := nodes[p.ID].(type) {
	case *Call:
		n.Next = lookup("next", p.Next)
	case *Branch:
		n.OnTrue = lookup("on_true", p.OnTrue)
		n.OnFalse = lookup("on_false", p.OnFalse)
	}
	//
	return errs
}

func (p *CallFile) build(name string) (CallInfo, error) {
	var info = CallInfo{Function: p.Function, Args: make(map[string]Arg)}
	//
	if p.Function == "" {
		return info, fmt.Errorf("%w: %s has no function", ErrMalformed, name)
	}
	//
	for argName, a := range p.Args {
		var (
			arg  = Arg{FnPtr: a.FnPtr}
			errs []error
			err  error
		)
		//
		if arg.Expr, err = parseExpr(name, argName, a.Expr); err != nil {
			errs = append(errs, err)
		}
		//
		if arg.In, err = parseExpr(name, argName+".in", a.In); err != nil {
			errs = append(errs, err)
		}
		//
		if arg.Out, err = parseExpr(name, argName+".out", a.Out); err != nil {
			errs = append(errs, err)
		}
		//
		if len(errs) > 0 {
			return info, errors.Join(errs...)
		}
		//
		info.Args[argName] = arg
	}
	//
	ret, err := parseExpr(name, "ret", p.Ret)
	info.Ret = ret
	//
	return info, err
}

// parseExpr parses an optional expression, where an empty string gives nil.
func parseExpr(name string, field string, text string) (expr.Expr, error) {
	if text == "" {
		return nil, nil
	}
	//
	e, err := expr.ParseNamed(fmt.Sprintf("%s (%s)", name, field), text)
	if err != nil {
		return nil, err
	}
	//
	return e, nil
}
