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
package trace

// Record is a single packet in a trace.
type Record struct {
	// Captured bytes of the packet.
	Data []byte
	// Length of the packet on the wire, which may exceed the captured bytes.
	Length uint
	// Arrival time of the packet (in nanoseconds).
	Timestamp int64
}

// NewRecord constructs a record whose wire length matches its data.
func NewRecord(data []byte, timestamp int64) Record {
	return Record{data, uint(len(data)), timestamp}
}

// Trace is an ordered sequence of packet records which can be iterated from
// the start any number of times.
type Trace interface {
	// Rewind to the first record.
	Rewind() error
	// Next returns the next record, or false if there are no more records.
	Next() (Record, bool, error)
	// Len returns the total number of records.
	Len() uint
}

// Slice is a trace held in memory.
type Slice struct {
	records []Record
	index   uint
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Trace = (*Slice)(nil)

// NewSlice constructs an in-memory trace from a given sequence of records.
func NewSlice(records ...Record) *Slice {
	return &Slice{records, 0}
}

// Rewind implementation for Trace interface.
func (p *Slice) Rewind() error {
	p.index = 0
	return nil
}

// Next implementation for Trace interface.
func (p *Slice) Next() (Record, bool, error) {
	if p.index >= uint(len(p.records)) {
		return Record{}, false, nil
	}
	//
	p.index++
	//
	return p.records[p.index-1], true, nil
}

// Len implementation for Trace interface.
func (p *Slice) Len() uint {
	return uint(len(p.records))
}

// Records returns the records making up this trace.
func (p *Slice) Records() []Record {
	return p.records
}
