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
	"github.com/holiman/uint256"
	"golang.org/x/exp/slices"
)

// Mask returns the value with the lowest width bits set.
func Mask(width uint) *uint256.Int {
	var m = new(uint256.Int)
	//
	if width >= MaxWidth {
		return m.SetAllOne()
	}
	//
	m.SetOne()
	m.Lsh(m, width)
	//
	return m.Sub(m, uint256.NewInt(1))
}

// truncate a value in place to a given width.
func truncate(v *uint256.Int, width uint) *uint256.Int {
	return v.And(v, Mask(width))
}

// signExtend a width-bit value into a full 256-bit two's complement value.
func signExtend(v *uint256.Int, width uint) *uint256.Int {
	var r = new(uint256.Int).Set(v)
	//
	if width == 0 || width >= MaxWidth {
		return r
	}
	//
	if isNegative(v, width) {
		r.Or(r, new(uint256.Int).Not(Mask(width)))
	}
	//
	return r
}

// isNegative checks whether the sign bit of a width-bit value is set.
func isNegative(v *uint256.Int, width uint) bool {
	var top = new(uint256.Int).Rsh(v, width-1)
	//
	return top.Uint64()&1 == 1
}

// FromBytes converts a little-endian byte sequence into a value.  At most
// MaxWidth / 8 bytes are considered.
func FromBytes(le []byte) *uint256.Int {
	var be = slices.Clone(le[:min(len(le), MaxWidth/ByteWidth)])
	//
	slices.Reverse(be)
	//
	return new(uint256.Int).SetBytes(be)
}

// ToBytes converts a value into a little-endian byte sequence of a given
// length.
func ToBytes(v *uint256.Int, n uint) []byte {
	var (
		be  = v.Bytes32()
		out = make([]byte, n)
	)
	//
	for i := uint(0); i < n && i < 32; i++ {
		out[i] = be[31-i]
	}
	//
	return out
}

// ByteLen returns the number of bytes needed to hold values of a given width.
func ByteLen(width uint) uint {
	return (width + ByteWidth - 1) / ByteWidth
}
