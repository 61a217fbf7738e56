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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const muxTst = `
// Mux test.
load Mux.hdl,
output-file Mux.out,
compare-to Mux.cmp,
output-list a%B3.1.3 b%B3.1.3 sel%B3.1.3 out%B3.1.3;

set a 1, set b 0, set sel 0, eval, output;
set sel 1, eval, output;
`

func TestParseTestScript(t *testing.T) {
	ts, err := ParseTestScript(muxTst, "Mux.tst")
	require.NoError(t, err)

	assert.Equal(t, "Mux.hdl", ts.HDLFile)
	assert.Equal(t, "Mux.out", ts.OutputFile)
	assert.Equal(t, "Mux.cmp", ts.CompareFile)
	assert.Empty(t, ts.Generics)

	require.Len(t, ts.OutputList, 4)
	assert.Equal(t, "a", ts.OutputList[0].Port)
	assert.Equal(t, Binary, ts.OutputList[0].System)
	assert.Equal(t, 1, ts.OutputList[0].Width)
	assert.Equal(t, 3, ts.OutputList[0].PadLeft)
	assert.Equal(t, 3, ts.OutputList[0].PadRight)

	require.Len(t, ts.Steps, 2)
	first := ts.Steps[0].Instructions
	require.Len(t, first, 5)
	assert.Equal(t, InstrSet, first[0].Op)
	assert.Equal(t, "a", first[0].Port)
	assert.Equal(t, InputValue{System: Decimal, Value: "1"}, first[0].Value)
	assert.Equal(t, InstrEval, first[3].Op)
	assert.Equal(t, InstrOutput, first[4].Op)

	second := ts.Steps[1].Instructions
	require.Len(t, second, 3)
	assert.Equal(t, InstrSet, second[0].Op)
	assert.Equal(t, "sel", second[0].Port)
}

func TestParseTestScriptGenerics(t *testing.T) {
	src := `
load Add.hdl<4>,
compare-to Add.cmp,
output-list a%B1.4.1 out%B1.4.1;

set a %B0011, eval, output;
`
	ts, err := ParseTestScript(src, "Add.tst")
	require.NoError(t, err)
	assert.Equal(t, "Add.hdl", ts.HDLFile)
	assert.Equal(t, []int{4}, ts.Generics)

	set := ts.Steps[0].Instructions[0]
	assert.Equal(t, InputValue{System: Binary, Value: "0011"}, set.Value)
}

func TestParseTestScriptTickTock(t *testing.T) {
	src := `
load Delay.hdl,
compare-to Delay.cmp,
output-list in%B3.1.3 out%B3.1.3;

set in 1, tick, tock, output;
tick, tock, output;
`
	ts, err := ParseTestScript(src, "Delay.tst")
	require.NoError(t, err)
	require.Len(t, ts.Steps, 2)
	ops := []InstrOp{}
	for _, ins := range ts.Steps[0].Instructions {
		ops = append(ops, ins.Op)
	}
	assert.Equal(t, []InstrOp{InstrSet, InstrTick, InstrTock, InstrOutput}, ops)
}

func TestParseTestScriptErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
	}{
		{"no load", `compare-to X.cmp, output-list a%B1.1.1; eval;`},
		{"no compare-to", `load X.hdl, output-list a%B1.1.1; eval;`},
		{"unknown instruction", `load X.hdl, compare-to X.cmp; evil;`},
		{"bad set", `load X.hdl, compare-to X.cmp; set a;`},
		{"bad format", `load X.hdl, compare-to X.cmp, output-list a%Q1.1.1; eval;`},
		{"bad generics", `load X.hdl<wide>, compare-to X.cmp; eval;`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTestScript(tc.in, "x.tst")
			require.Error(t, err)
			assert.Equal(t, ErrParse, kindOf(err))
		})
	}
}

func TestReadCmp(t *testing.T) {
	chip, err := elaborateFile(t, "Mux", nil)
	require.NoError(t, err)
	script, err := ParseTestScript(muxTst, "Mux.tst")
	require.NoError(t, err)

	src := `|  a  |  b  | sel | out |
|  1  |  0  |  0  |  1  |
|  1  |  0  |  *  |  0  |

|  0  |  1  |  1  |  1  |
`
	rows, err := readCmp(src, "Mux.cmp", script, chip)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	bits, err := rows[0].Read(wholeBus("out"))
	require.NoError(t, err)
	assert.Equal(t, []Bit{Bit1}, bits)

	// The wildcard column is absent from the row's map.
	_, err = rows[1].Read(wholeBus("sel"))
	require.Error(t, err)
	bits, err = rows[1].Read(wholeBus("a"))
	require.NoError(t, err)
	assert.Equal(t, []Bit{Bit1}, bits)
}

func TestReadCmpErrors(t *testing.T) {
	chip, err := elaborateFile(t, "Mux", nil)
	require.NoError(t, err)
	script, err := ParseTestScript(muxTst, "Mux.tst")
	require.NoError(t, err)

	for _, tc := range []struct {
		name string
		src  string
	}{
		{"empty", "\n\n"},
		{"short header", "|\n"},
		{"too many columns", "|a|b|sel|out|\n|1|0|0|1|1|\n"},
		{"unknown port", "|a|b|zap|out|\n|1|0|0|1|\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := readCmp(tc.src, "bad.cmp", script, chip)
			require.Error(t, err)
		})
	}
}
