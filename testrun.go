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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// readCmp parses a compare-vector file into one expected BusMap per row.
// The first line is the header naming the column order; a cell containing
// '*' is a wildcard and leaves its column out of the row's map, as do
// columns whose output-list system is S.
func readCmp(src, path string, script *TestScript, chip *Chip) ([]*BusMap, error) {
	lines := strings.Split(src, "\n")
	for len(lines) > 0 && stripSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, errorf(ErrOther, "cmp file %s is empty", path)
	}
	header := stripSpace(lines[0])
	// Two pipes and a one-letter port name is the shortest valid header.
	if len(header) < 3 {
		return nil, errorf(ErrOther, "header line of cmp file %s is too short", path)
	}
	portOrder := strings.Split(header[1:len(header)-1], "|")

	var rows []*BusMap
	for _, raw := range lines[1:] {
		line := stripSpace(raw)
		if line == "" {
			continue
		}
		if len(line) < 3 {
			return nil, errorf(ErrOther, "line %q in %s is too short to be correct", line, path)
		}
		row := NewBusMap()
		for i, cell := range strings.Split(line[1:len(line)-1], "|") {
			if i >= len(script.OutputList) {
				return nil, errorf(ErrOther,
					"line %q in %s has more columns than the test script output-list", line, path)
			}
			if i >= len(portOrder) {
				return nil, errorf(ErrOther,
					"line %q in %s has more columns than the header line", line, path)
			}
			system := script.OutputList[i].System
			if system == StringSys {
				continue
			}
			if strings.Contains(cell, "*") {
				continue
			}
			port, err := chip.Port(portOrder[i])
			if err != nil {
				return nil, errorf(ErrOther,
					"cmp / HDL mismatch: %s refers to port %s, but the chip does not have it",
					path, portOrder[i])
			}
			bits, err := inputBits(InputValue{System: system, Value: cell}, port.Width)
			if err != nil {
				return nil, err
			}
			if err := row.CreateBus(port.Name, port.Width); err != nil {
				return nil, err
			}
			if err := row.Insert(wholeBus(port.Name), bits); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RunTest executes the test script at scriptPath: parse the script, parse
// and elaborate the chip it loads, simulate every step, and compare each
// output instruction against the expected vector file. Progress goes to
// stdout, mismatch detail to stderr. A non-nil error means the run failed.
func RunTest(scriptPath string) error {
	return runTest(scriptPath, os.Stdout, os.Stderr)
}

func runTest(scriptPath string, stdout, stderr io.Writer) error {
	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return errorf(ErrIO, "unable to read test script: %v", err)
	}
	script, err := ParseTestScript(string(src), scriptPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(scriptPath)
	hdlPath := filepath.Join(dir, script.HDLFile)
	provider := NewFileReader(filepath.Dir(hdlPath))
	chipName := strings.TrimSuffix(filepath.Base(hdlPath), ".hdl")

	hdl, err := ResolveHDL(chipName, provider)
	if err != nil {
		return err
	}
	if len(script.Generics) != len(hdl.GenericDecls) {
		return errorf(ErrGenericArity, "chip %s takes %d generic parameters, test script supplies %d",
			hdl.Name, len(hdl.GenericDecls), len(script.Generics))
	}
	bindings := make(map[string]int, len(script.Generics))
	for i, g := range script.Generics {
		bindings[hdl.GenericDecls[i].Value] = g
	}
	chip, err := Elaborate(hdl, bindings, provider)
	if err != nil {
		return err
	}
	sim, err := NewSimulator(chip)
	if err != nil {
		return err
	}

	cmpPath := filepath.Join(dir, script.CompareFile)
	cmpSrc, err := os.ReadFile(cmpPath)
	if err != nil {
		return errorf(ErrIO, "unable to read cmp file: %v", err)
	}
	expected, err := readCmp(string(cmpSrc), cmpPath, script, chip)
	if err != nil {
		return err
	}

	inputs := NewBusMap()
	outputs := NewBusMap()
	cmpIdx := 0
	failures := 0
	for _, step := range script.Steps {
		for _, ins := range step.Instructions {
			glog.V(2).Infof("step %d: %s", cmpIdx, ins.Op)
			switch ins.Op {
			case InstrSet:
				port, err := chip.Port(ins.Port)
				if err != nil {
					return err
				}
				bits, err := inputBits(ins.Value, port.Width)
				if err != nil {
					return err
				}
				if err := inputs.CreateBus(port.Name, port.Width); err != nil {
					return err
				}
				if err := inputs.Insert(wholeBus(port.Name), bits); err != nil {
					return err
				}
			case InstrEval:
				if outputs, err = sim.Simulate(inputs); err != nil {
					return err
				}
				fmt.Fprint(stdout, ".")
			case InstrTick:
				// Capture the pre-clock state.
				if outputs, err = sim.Simulate(inputs); err != nil {
					return err
				}
			case InstrTock:
				if err := sim.Tick(); err != nil {
					return err
				}
				if outputs, err = sim.Simulate(inputs); err != nil {
					return err
				}
			case InstrOutput:
				if cmpIdx >= len(expected) {
					return errorf(ErrOther, "more output instructions than rows in %s", cmpPath)
				}
				if !expected[cmpIdx].PartialLE(outputs) {
					failures++
					reportMismatch(stderr, cmpIdx, expected[cmpIdx], outputs)
				}
				cmpIdx++
			}
		}
	}

	fmt.Fprintln(stdout)
	if failures > 0 {
		fmt.Fprintf(stdout, "%d failures, %d successes, %d total.\n",
			failures, cmpIdx-failures, cmpIdx)
		return errorf(ErrComparatorMismatch, "%d of %d comparisons failed", failures, cmpIdx)
	}
	fmt.Fprintf(stdout, "%d comparisons passed.\n", cmpIdx)
	return nil
}

func reportMismatch(w io.Writer, cmpIdx int, expected, actual *BusMap) {
	fmt.Fprintf(w, "step %d:\n", cmpIdx+1)
	fmt.Fprintf(w, "expected: %s\n", expected)
	fmt.Fprintf(w, "actual:   %s\n", actual)
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(actual.String(), expected.String(), false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	fmt.Fprintf(w, "diff:     %s\n\n", dmp.DiffPrettyText(diffs))
}
