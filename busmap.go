// Copyright 2023 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hdlsim

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Bit is a wire value: 0, 1, or undefined (undriven).
type Bit int8

const (
	BitU Bit = iota // undriven
	Bit0
	Bit1
)

func bitOf(b bool) Bit {
	if b {
		return Bit1
	}
	return Bit0
}

func (b Bit) defined() bool { return b != BitU }

func (b Bit) String() string {
	switch b {
	case Bit0:
		return "0"
	case Bit1:
		return "1"
	}
	return "?"
}

// BitRange is an inclusive range of bit positions.
type BitRange struct {
	Start, End int
}

// Bus names a bus slice. A nil Range selects the whole bus.
type Bus struct {
	Name  string
	Range *BitRange
}

func wholeBus(name string) Bus { return Bus{Name: name} }

func bitsString(bits []Bit) string {
	// Display order is MSB first; bit 0 is the rightmost character.
	var sb strings.Builder
	for i := len(bits) - 1; i >= 0; i-- {
		sb.WriteString(bits[i].String())
	}
	return sb.String()
}

// BusMap is a namespace of named bit vectors. Bit i of a bus carries the 2^i
// weight; conversion to and from MSB-first display order happens at the IO
// boundaries, never here.
type BusMap struct {
	buses map[string][]Bit
}

func NewBusMap() *BusMap {
	return &BusMap{buses: make(map[string][]Bit)}
}

// CreateBus declares a bus. Re-declaring a bus keeps the longer of the two
// widths and preserves existing values.
func (m *BusMap) CreateBus(name string, width int) error {
	if width <= 0 {
		return errorf(ErrInvalidWidth, "bus %s declared with width %d", name, width)
	}
	if old, ok := m.buses[name]; ok {
		if len(old) < width {
			grown := make([]Bit, width)
			copy(grown, old)
			m.buses[name] = grown
		}
		return nil
	}
	m.buses[name] = make([]Bit, width)
	return nil
}

// Width returns the declared width of a bus.
func (m *BusMap) Width(name string) (int, bool) {
	b, ok := m.buses[name]
	return len(b), ok
}

func (m *BusMap) resolve(b Bus) (start, end int, bits []Bit, err error) {
	bits, ok := m.buses[b.Name]
	if !ok {
		return 0, 0, nil, errorf(ErrUnknownPort, "no bus named %s", b.Name)
	}
	if b.Range == nil {
		return 0, len(bits) - 1, bits, nil
	}
	start, end = b.Range.Start, b.Range.End
	if start < 0 || end < start || end >= len(bits) {
		return 0, 0, nil, errorf(ErrInvalidWidth, "slice %s[%d..%d] out of range for width %d",
			b.Name, start, end, len(bits))
	}
	return start, end, bits, nil
}

// Insert writes values into the given slice. len(values) must equal the
// slice width.
func (m *BusMap) Insert(b Bus, values []Bit) error {
	start, end, bits, err := m.resolve(b)
	if err != nil {
		return err
	}
	if len(values) != end-start+1 {
		return errorf(ErrWidthMismatch, "writing %d bits into %d-bit slice of %s",
			len(values), end-start+1, b.Name)
	}
	copy(bits[start:end+1], values)
	return nil
}

// Read returns a copy of the values in the given slice. Undriven bits read
// as BitU.
func (m *BusMap) Read(b Bus) ([]Bit, error) {
	start, end, bits, err := m.resolve(b)
	if err != nil {
		return nil, err
	}
	out := make([]Bit, end-start+1)
	copy(out, bits[start:end+1])
	return out, nil
}

// PartialLE reports whether every defined bit in m equals the corresponding
// bit in other. A bit defined here but undriven (or absent) there is a
// mismatch. Used for wildcard-aware output comparison: expected.PartialLE(actual).
func (m *BusMap) PartialLE(other *BusMap) bool {
	for name, bits := range m.buses {
		obits, ok := other.buses[name]
		for i, b := range bits {
			if !b.defined() {
				continue
			}
			if !ok || i >= len(obits) || obits[i] != b {
				return false
			}
		}
	}
	return true
}

// Copy returns a deep copy.
func (m *BusMap) Copy() *BusMap {
	c := NewBusMap()
	for name, bits := range m.buses {
		c.buses[name] = slices.Clone(bits)
	}
	return c
}

func (m *BusMap) String() string {
	names := maps.Keys(m.buses)
	slices.Sort(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, bitsString(m.buses[name])))
	}
	return strings.Join(parts, " ")
}
