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

import "fmt"

// Packet is a packet being processed by the network function.  Chunks of the
// packet are borrowed in order, as tracked by a cursor which is local to a
// single traversal.
type Packet struct {
	// Captured bytes of the packet
	Data []byte
	// Length of the packet on the wire, which may exceed the captured bytes.
	Length uint
	// Ingress device
	Device uint64
	// Offset of the next unborrowed byte
	cursor uint
}

// NewPacket constructs a packet arriving on a given device, whose wire length
// is the number of bytes given.
func NewPacket(data []byte, device uint64) *Packet {
	return &Packet{data, uint(len(data)), device, 0}
}

// Unread returns the number of captured bytes not yet borrowed.
func (p *Packet) Unread() uint {
	return uint(len(p.Data)) - p.cursor
}

// Rewind the cursor to the start of the packet.
func (p *Packet) Rewind() {
	p.cursor = 0
}

// borrow the next length bytes of the packet, advancing the cursor.
func (p *Packet) borrow(length uint64) ([]byte, error) {
	if length > uint64(p.Unread()) {
		return nil, fmt.Errorf("%w: borrowing %d bytes at offset %d of %d", ErrPacketOverrun, length, p.cursor,
			len(p.Data))
	}
	//
	start := p.cursor
	p.cursor += uint(length)
	//
	return p.Data[start:p.cursor], nil
}
