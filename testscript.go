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
)

// Test scripts are line-oriented: statements end with ';', instructions
// within a statement are separated by ','. Setup statements (load,
// output-file, compare-to, output-list) configure the run; every following
// statement is one step of set/eval/tick/tock/output instructions.

type InstrOp int

const (
	InstrSet InstrOp = iota
	InstrEval
	InstrTick
	InstrTock
	InstrOutput
)

func (op InstrOp) String() string {
	switch op {
	case InstrSet:
		return "set"
	case InstrEval:
		return "eval"
	case InstrTick:
		return "tick"
	case InstrTock:
		return "tock"
	case InstrOutput:
		return "output"
	}
	return "?"
}

type Instruction struct {
	Op    InstrOp
	Port  string     // InstrSet only
	Value InputValue // InstrSet only
}

type Step struct {
	Instructions []Instruction
}

// OutputSpec is one output-list column: port name, number system, and the
// display column layout (left pad, width, right pad).
type OutputSpec struct {
	Port     string
	System   NumberSystem
	PadLeft  int
	Width    int
	PadRight int
}

// TestScript is a parsed .tst file.
type TestScript struct {
	HDLFile     string
	OutputFile  string
	CompareFile string
	OutputList  []OutputSpec
	// Generics are concrete values for the chip's generic declarations,
	// written after the loaded file name, e.g. `load Add.hdl<4>`.
	Generics []int
	Steps    []Step
	Path     string
}

// stripComments removes // line comments and /* */ block comments.
func stripComments(src string) string {
	var sb strings.Builder
	for i := 0; i < len(src); {
		if strings.HasPrefix(src[i:], "//") {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		}
		if strings.HasPrefix(src[i:], "/*") {
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
				continue
			}
			i += 2 + end + 2
			continue
		}
		sb.WriteByte(src[i])
		i++
	}
	return sb.String()
}

// ParseTestScript parses the text of a .tst file.
func ParseTestScript(src, path string) (*TestScript, error) {
	ts := &TestScript{Path: path}
	pos := srcpos{path: path, line: 1}

	for _, stmt := range strings.Split(stripComments(src), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		var step Step
		for _, raw := range strings.Split(stmt, ",") {
			fields := strings.Fields(raw)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "load":
				if len(fields) != 2 {
					return nil, pos.errorf(ErrParse, "load takes one file name")
				}
				name := fields[1]
				if i := strings.IndexByte(name, '<'); i >= 0 {
					if !strings.HasSuffix(name, ">") {
						return nil, pos.errorf(ErrParse, "unterminated generic list in %q", name)
					}
					for _, g := range strings.Split(name[i+1:len(name)-1], ",") {
						n, err := strconv.Atoi(strings.TrimSpace(g))
						if err != nil {
							return nil, pos.errorf(ErrParse, "bad generic value %q in %q", g, name)
						}
						ts.Generics = append(ts.Generics, n)
					}
					name = name[:i]
				}
				ts.HDLFile = name
			case "output-file":
				if len(fields) != 2 {
					return nil, pos.errorf(ErrParse, "output-file takes one file name")
				}
				ts.OutputFile = fields[1]
			case "compare-to":
				if len(fields) != 2 {
					return nil, pos.errorf(ErrParse, "compare-to takes one file name")
				}
				ts.CompareFile = fields[1]
			case "output-list":
				for _, item := range fields[1:] {
					spec, err := parseOutputSpec(item, pos)
					if err != nil {
						return nil, err
					}
					ts.OutputList = append(ts.OutputList, spec)
				}
			case "set":
				if len(fields) != 3 {
					return nil, pos.errorf(ErrParse, "set takes a port and a value")
				}
				v, err := parseLiteral(fields[2], pos)
				if err != nil {
					return nil, err
				}
				step.Instructions = append(step.Instructions, Instruction{
					Op:    InstrSet,
					Port:  fields[1],
					Value: v,
				})
			case "eval":
				step.Instructions = append(step.Instructions, Instruction{Op: InstrEval})
			case "tick":
				step.Instructions = append(step.Instructions, Instruction{Op: InstrTick})
			case "tock":
				step.Instructions = append(step.Instructions, Instruction{Op: InstrTock})
			case "output":
				step.Instructions = append(step.Instructions, Instruction{Op: InstrOutput})
			default:
				return nil, pos.errorf(ErrParse, "unknown test instruction %q", fields[0])
			}
		}
		if len(step.Instructions) > 0 {
			ts.Steps = append(ts.Steps, step)
		}
	}

	if ts.HDLFile == "" {
		return nil, pos.errorf(ErrParse, "test script has no load statement")
	}
	if ts.CompareFile == "" {
		return nil, pos.errorf(ErrParse, "test script has no compare-to statement")
	}
	return ts, nil
}

// parseLiteral splits an optional %-prefix off a set value. `%B0101` is
// binary, `%D-3`, a bare number, or `%X..`/`%S..` for the reserved systems.
func parseLiteral(s string, pos srcpos) (InputValue, error) {
	if !strings.HasPrefix(s, "%") {
		return InputValue{System: Decimal, Value: s}, nil
	}
	if len(s) < 3 {
		return InputValue{}, pos.errorf(ErrParse, "bad literal %q", s)
	}
	sys, ok := numberSystemOf(s[1])
	if !ok {
		return InputValue{}, pos.errorf(ErrParse, "bad number system in literal %q", s)
	}
	return InputValue{System: sys, Value: s[2:]}, nil
}

// parseOutputSpec parses an output-list item of the form
// name%Spad.width.pad. A bare name gets decimal with unit widths.
func parseOutputSpec(item string, pos srcpos) (OutputSpec, error) {
	name, format, hasFormat := strings.Cut(item, "%")
	spec := OutputSpec{Port: name, System: Decimal, PadLeft: 1, Width: 1, PadRight: 1}
	if !hasFormat {
		return spec, nil
	}
	if len(format) < 2 {
		return OutputSpec{}, pos.errorf(ErrParse, "bad output-list format %q", item)
	}
	sys, ok := numberSystemOf(format[0])
	if !ok {
		return OutputSpec{}, pos.errorf(ErrParse, "bad number system in output-list item %q", item)
	}
	spec.System = sys
	dims := strings.Split(format[1:], ".")
	if len(dims) != 3 {
		return OutputSpec{}, pos.errorf(ErrParse, "output-list format in %q needs pad.width.pad", item)
	}
	var err error
	if spec.PadLeft, err = strconv.Atoi(dims[0]); err != nil {
		return OutputSpec{}, pos.errorf(ErrParse, "bad pad in %q", item)
	}
	if spec.Width, err = strconv.Atoi(dims[1]); err != nil {
		return OutputSpec{}, pos.errorf(ErrParse, "bad width in %q", item)
	}
	if spec.PadRight, err = strconv.Atoi(dims[2]); err != nil {
		return OutputSpec{}, pos.errorf(ErrParse, "bad pad in %q", item)
	}
	return spec, nil
}
