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

import "fmt"

// Op identifies the operation of a binary expression.
type Op uint8

// Binary operations.  Arithmetic and bitwise operations come first, followed
// by the comparisons.
const (
	ADD Op = iota
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	XOR
	SHL
	LSHR
	ASHR
	// comparisons
	EQ
	NE
	ULT
	ULE
	UGT
	UGE
	SLT
	SLE
	SGT
	SGE
)

var opNames = [...]string{
	ADD:  "Add",
	SUB:  "Sub",
	MUL:  "Mul",
	UDIV: "UDiv",
	SDIV: "SDiv",
	UREM: "URem",
	SREM: "SRem",
	AND:  "And",
	OR:   "Or",
	XOR:  "Xor",
	SHL:  "Shl",
	LSHR: "LShr",
	ASHR: "AShr",
	EQ:   "Eq",
	NE:   "Ne",
	ULT:  "Ult",
	ULE:  "Ule",
	UGT:  "Ugt",
	UGE:  "Uge",
	SLT:  "Slt",
	SLE:  "Sle",
	SGT:  "Sgt",
	SGE:  "Sge",
}

// String returns the kquery name of this operation.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	//
	return fmt.Sprintf("Op<%d>", op)
}

// IsCompare returns true if this is a comparison, i.e. produces a boolean.
func (op Op) IsCompare() bool {
	return op >= EQ
}

// lookupOp finds the operation with the given kquery name.
func lookupOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	//
	return 0, false
}
