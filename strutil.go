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
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// Conversions between external literal text and internal bit vectors.
// Internally bit 0 always carries the 2^0 weight; the MSB-first display
// order of literals and .cmp rows is handled here and nowhere else.

// NumberSystem is the radix of a test-script literal or output column.
type NumberSystem int

const (
	Decimal NumberSystem = iota
	Binary
	Hex
	StringSys
)

func (n NumberSystem) String() string {
	switch n {
	case Decimal:
		return "D"
	case Binary:
		return "B"
	case Hex:
		return "X"
	case StringSys:
		return "S"
	}
	return "?"
}

func numberSystemOf(c byte) (NumberSystem, bool) {
	switch c {
	case 'D':
		return Decimal, true
	case 'B':
		return Binary, true
	case 'X':
		return Hex, true
	case 'S':
		return StringSys, true
	}
	return 0, false
}

// InputValue is an unconverted literal together with its number system.
type InputValue struct {
	System NumberSystem
	Value  string
}

// inputBits converts a literal to exactly width bits, LSB first. Decimal
// literals are two's-complement and sign-extend; binary literals are
// MSB-first text and zero-extend. Literals wider than the target are
// truncated on the MSB side with a warning. Hex and string literals are not
// supported.
func inputBits(v InputValue, width int) ([]Bit, error) {
	switch v.System {
	case Decimal:
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, errorf(ErrParse, "bad decimal literal %q: %v", v.Value, err)
		}
		if width < 64 {
			lo, hi := int64(-1)<<(width-1), int64(1)<<(width-1)-1
			if n < lo || n > hi {
				glog.Warningf("decimal literal %s truncated to %d bits", v.Value, width)
			}
		}
		bits := make([]Bit, width)
		for i := range bits {
			if i < 64 {
				bits[i] = bitOf(n&(1<<uint(i)) != 0)
			} else {
				// Sign extension beyond the parsed word.
				bits[i] = bitOf(n < 0)
			}
		}
		return bits, nil
	case Binary:
		text := v.Value
		if len(text) > width {
			glog.Warningf("binary literal %s truncated to %d bits", text, width)
			text = text[len(text)-width:]
		}
		// Zero-extend on the MSB side: every slot above the literal's own
		// bits is a defined 0, not undriven.
		bits := make([]Bit, width)
		for i := range bits {
			bits[i] = Bit0
		}
		for i, c := range text {
			// text[0] is the MSB.
			var b Bit
			switch c {
			case '0':
				b = Bit0
			case '1':
				b = Bit1
			default:
				return nil, errorf(ErrParse, "bad binary literal %q: expected 0 or 1", v.Value)
			}
			bits[len(text)-1-i] = b
		}
		return bits, nil
	case Hex:
		return nil, errorf(ErrUnsupported, "hex literals are not supported")
	case StringSys:
		return nil, errorf(ErrUnsupported, "string literals are not supported")
	}
	return nil, errorf(ErrUnsupported, "unknown number system")
}

// stripSpace removes every whitespace character, the way .cmp rows are
// normalized before splitting on pipes.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
