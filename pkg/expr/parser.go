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
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/consensys/go-nfemu/pkg/util/source"
	"github.com/consensys/go-nfemu/pkg/util/source/sexp"
	"github.com/holiman/uint256"
)

// Parse a kquery expression, such as "(Eq (w32 0) (ReadLSB w32 0 DEVICE))".
func Parse(text string) (Expr, error) {
	return ParseNamed("<expr>", text)
}

// ParseNamed parses a kquery expression, where the given name is used when
// reporting syntax errors (e.g. "graph.yaml:node 12").
func ParseNamed(name string, text string) (Expr, error) {
	srcfile := source.NewSourceFile(name, []byte(text))
	// Parse the text into a sequence of S-Expressions.  More than one arises
	// when the outermost expression is labelled, as in "N0:(Read ...)".
	terms, srcmap, err := sexp.ParseAll(srcfile)
	if err != nil {
		return nil, err
	}
	//
	p := &translator{srcmap, make(map[string]Expr)}
	operands := p.group(terms)
	//
	if len(operands) != 1 {
		return nil, srcfile.SyntaxError(source.NewSpan(0, len(srcfile.Contents())), "expected exactly one expression")
	}
	//
	e, serr := p.operand(operands[0])
	if serr != nil {
		return nil, serr
	}
	//
	return e, nil
}

// MustParse parses a kquery expression and panics if it is malformed.  This
// is intended for tests and static tables only.
func MustParse(text string) Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err.Error())
	}
	//
	return e
}

// translator converts S-Expressions into expressions, whilst resolving kquery
// labels.
type translator struct {
	srcmap *source.Map[sexp.SExp]
	labels map[string]Expr
}

// labelled pairs a term with the (optional) label which names it.
type labelled struct {
	label string
	term  sexp.SExp
}

// group pairs each label symbol "N0:" with the term following it.
func (p *translator) group(terms []sexp.SExp) []labelled {
	var result []labelled
	//
	for i := 0; i < len(terms); i++ {
		if s := terms[i].AsSymbol(); s != nil && strings.HasSuffix(s.Value, ":") && i+1 < len(terms) {
			result = append(result, labelled{strings.TrimSuffix(s.Value, ":"), terms[i+1]})
			i++
		} else {
			result = append(result, labelled{"", terms[i]})
		}
	}
	//
	return result
}

func (p *translator) operand(l labelled) (Expr, *source.SyntaxError) {
	e, err := p.term(l.term)
	//
	if err == nil && l.label != "" {
		p.labels[l.label] = e
	}
	//
	return e, err
}

func (p *translator) term(t sexp.SExp) (Expr, *source.SyntaxError) {
	if s := t.AsSymbol(); s != nil {
		return p.symbol(s)
	}
	//
	l := t.AsList()
	head := l.Head()
	args := p.group(l.Elements[min(1, len(l.Elements)):])
	//
	if width, ok := parseWidth(head); ok {
		return p.constant(l, width)
	}
	//
	switch head {
	case "Read", "ReadLSB", "ReadMSB":
		return p.read(l, head, args)
	case "Concat":
		return p.concat(l, args)
	case "Extract":
		return p.extract(l, args)
	case "ZExt", "SExt":
		return p.cast(l, head == "SExt", args)
	case "Not":
		return p.not(l, args)
	case "Select":
		return p.selection(l, args)
	}
	//
	if op, ok := lookupOp(head); ok {
		return p.binary(l, op, args)
	}
	//
	return nil, p.srcmap.SyntaxError(l, fmt.Sprintf("unknown operator \"%s\"", head))
}

func (p *translator) symbol(s *sexp.Symbol) (Expr, *source.SyntaxError) {
	switch s.Value {
	case "true":
		return NewBool(true), nil
	case "false":
		return NewBool(false), nil
	}
	//
	if e, ok := p.labels[s.Value]; ok {
		return e, nil
	}
	//
	return nil, p.srcmap.SyntaxError(s, fmt.Sprintf("unknown symbol \"%s\"", s.Value))
}

// (w32 1234)
func (p *translator) constant(l *sexp.List, width uint) (Expr, *source.SyntaxError) {
	if l.Len() != 2 || l.Get(1).AsSymbol() == nil {
		return nil, p.srcmap.SyntaxError(l, "malformed constant")
	}
	//
	v, ok := parseNumber(l.Get(1).AsSymbol().Value)
	if !ok {
		return nil, p.srcmap.SyntaxError(l.Get(1), "invalid number")
	}
	//
	c := &Constant{Bits: width}
	c.Value.Set(v)
	truncate(&c.Value, width)
	//
	return c, nil
}

// (Read w8 idx array), (ReadLSB w32 idx array), (ReadMSB w32 idx array)
func (p *translator) read(l *sexp.List, head string, args []labelled) (Expr, *source.SyntaxError) {
	if len(args) != 3 {
		return nil, p.srcmap.SyntaxError(l, "expected width, index and array")
	}
	//
	width, err := p.width(args[0].term)
	if err != nil {
		return nil, err
	} else if width == 0 || width%ByteWidth != 0 {
		return nil, p.srcmap.SyntaxError(args[0].term, "read width must be a positive multiple of 8")
	} else if head == "Read" && width != ByteWidth {
		return nil, p.srcmap.SyntaxError(args[0].term, "single read must have width 8")
	}
	//
	index, err := p.index(args[1])
	if err != nil {
		return nil, err
	}
	//
	array := args[2].term.AsSymbol()
	if array == nil {
		return nil, p.srcmap.SyntaxError(args[2].term, "expected array name")
	}
	//
	if head == "ReadMSB" {
		return NewReadMSB(array.Value, index, width), nil
	}
	//
	return NewReadLSB(array.Value, index, width), nil
}

// (Concat w16 msb lsb)
func (p *translator) concat(l *sexp.List, args []labelled) (Expr, *source.SyntaxError) {
	operands, err := p.widthAndOperands(l, args, 2)
	if err != nil {
		return nil, err
	}
	//
	e := &Concat{operands[1], operands[2]}
	//
	return e, p.checkWidth(l, e, operands[0])
}

// (Extract w8 offset e)
func (p *translator) extract(l *sexp.List, args []labelled) (Expr, *source.SyntaxError) {
	if len(args) != 3 {
		return nil, p.srcmap.SyntaxError(l, "expected width, offset and operand")
	}
	//
	width, err := p.width(args[0].term)
	if err != nil {
		return nil, err
	}
	//
	offset, ok := uint64(0), false
	if s := args[1].term.AsSymbol(); s != nil {
		offset, ok = parseUint(s.Value)
	}
	//
	if !ok {
		return nil, p.srcmap.SyntaxError(args[1].term, "invalid offset")
	}
	//
	arg, err := p.operand(args[2])
	if err != nil {
		return nil, err
	} else if uint(offset)+width > arg.Width() {
		return nil, p.srcmap.SyntaxError(l, "extract out of bounds")
	}
	//
	return &Extract{arg, uint(offset), width}, nil
}

// (ZExt w32 e), (SExt w32 e)
func (p *translator) cast(l *sexp.List, signed bool, args []labelled) (Expr, *source.SyntaxError) {
	operands, err := p.widthAndOperands(l, args, 1)
	if err != nil {
		return nil, err
	}
	//
	width := operands[0].Width()
	if width < operands[1].Width() {
		return nil, p.srcmap.SyntaxError(l, "cast cannot narrow")
	}
	//
	return &Cast{operands[1], width, signed}, nil
}

// (Not e), (Not w32 e)
func (p *translator) not(l *sexp.List, args []labelled) (Expr, *source.SyntaxError) {
	if len(args) == 2 {
		operands, err := p.widthAndOperands(l, args, 1)
		if err != nil {
			return nil, err
		}
		//
		e := &Not{operands[1]}
		//
		return e, p.checkWidth(l, e, operands[0])
	} else if len(args) != 1 {
		return nil, p.srcmap.SyntaxError(l, "expected one operand")
	}
	//
	arg, err := p.operand(args[0])
	if err != nil {
		return nil, err
	}
	//
	return &Not{arg}, nil
}

// (Select w32 cond then else)
func (p *translator) selection(l *sexp.List, args []labelled) (Expr, *source.SyntaxError) {
	operands, err := p.widthAndOperands(l, args, 3)
	if err != nil {
		return nil, err
	} else if operands[1].Width() != BoolWidth {
		return nil, p.srcmap.SyntaxError(l, "select condition must be boolean")
	} else if operands[2].Width() != operands[3].Width() {
		return nil, p.srcmap.SyntaxError(l, "select branches have different widths")
	}
	//
	e := &Select{operands[1], operands[2], operands[3]}
	//
	return e, p.checkWidth(l, e, operands[0])
}

// (Add w32 a b), (Eq a b)
func (p *translator) binary(l *sexp.List, op Op, args []labelled) (Expr, *source.SyntaxError) {
	var (
		lhs, rhs Expr
		err      *source.SyntaxError
		declared Expr
	)
	// Comparisons carry no width, whilst arithmetic does.
	if op.IsCompare() && len(args) == 2 {
		if lhs, err = p.operand(args[0]); err != nil {
			return nil, err
		} else if rhs, err = p.operand(args[1]); err != nil {
			return nil, err
		}
	} else {
		operands, err := p.widthAndOperands(l, args, 2)
		if err != nil {
			return nil, err
		}
		//
		declared, lhs, rhs = operands[0], operands[1], operands[2]
	}
	//
	if lhs.Width() != rhs.Width() {
		return nil, p.srcmap.SyntaxError(l, fmt.Sprintf("operand widths differ (%d vs %d)", lhs.Width(), rhs.Width()))
	}
	//
	e := &Binary{op, lhs, rhs}
	//
	if declared != nil && !op.IsCompare() {
		return e, p.checkWidth(l, e, declared)
	}
	//
	return e, nil
}

// widthAndOperands parses a leading width followed by exactly n operands.  The
// width is returned as a zero constant of that width in position 0.
func (p *translator) widthAndOperands(l *sexp.List, args []labelled, n int) ([]Expr, *source.SyntaxError) {
	if len(args) != n+1 {
		return nil, p.srcmap.SyntaxError(l, fmt.Sprintf("expected width and %d operand(s)", n))
	}
	//
	width, err := p.width(args[0].term)
	if err != nil {
		return nil, err
	}
	//
	operands := []Expr{NewConstant(0, width)}
	//
	for _, arg := range args[1:] {
		e, err := p.operand(arg)
		if err != nil {
			return nil, err
		}
		//
		operands = append(operands, e)
	}
	//
	return operands, nil
}

func (p *translator) checkWidth(l *sexp.List, e Expr, declared Expr) *source.SyntaxError {
	if e.Width() != declared.Width() {
		return p.srcmap.SyntaxError(l, fmt.Sprintf("declared width %d, actual width %d", declared.Width(), e.Width()))
	}
	//
	return nil
}

func (p *translator) width(t sexp.SExp) (uint, *source.SyntaxError) {
	if s := t.AsSymbol(); s != nil {
		if w, ok := parseWidth(s.Value); ok {
			return w, nil
		}
	}
	//
	return 0, p.srcmap.SyntaxError(t, "expected width (e.g. w32)")
}

// index parses a read index, which is either a bare number or an expression.
func (p *translator) index(l labelled) (Expr, *source.SyntaxError) {
	if s := l.term.AsSymbol(); s != nil {
		if v, ok := parseUint(s.Value); ok {
			return NewConstant(v, 32), nil
		}
	}
	//
	return p.operand(l)
}

// parseWidth parses a width token of the form "wN".
func parseWidth(s string) (uint, bool) {
	if len(s) < 2 || s[0] != 'w' {
		return 0, false
	}
	//
	w, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil || w == 0 {
		return 0, false
	}
	//
	return uint(w), true
}

func parseUint(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 0, 64)
	return v, err == nil
}

func parseNumber(s string) (*uint256.Int, bool) {
	var b big.Int
	//
	if _, ok := b.SetString(s, 0); !ok || b.Sign() < 0 {
		return nil, false
	}
	//
	v, overflow := uint256.FromBig(&b)
	//
	return v, !overflow
}
