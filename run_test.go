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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// TestScripts runs every test script under testdata end to end: parse,
// elaborate, simulate, compare.
func TestScripts(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join("testdata", "*.tst"))
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) == 0 {
		t.Fatal("no test scripts in testdata")
	}
	for _, script := range scripts {
		script := script
		t.Run(filepath.Base(script), func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			if err := runTest(script, &stdout, &stderr); err != nil {
				t.Errorf("runTest(%s): %v\n%s", script, err, stderr.String())
				return
			}
			if !strings.Contains(stdout.String(), "comparisons passed") {
				t.Errorf("runTest(%s) stdout:\n%s", script, stdout.String())
			}
		})
	}
}

// TestScriptMismatch checks that a wrong expected vector fails the run and
// that the report names the step.
func TestScriptMismatch(t *testing.T) {
	dir := t.TempDir()
	copyTestdata := func(names ...string) {
		for _, name := range names {
			src, err := os.ReadFile(filepath.Join("testdata", name))
			if err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, name), src, 0666); err != nil {
				t.Fatal(err)
			}
		}
	}
	copyTestdata("Not.hdl", "Not.tst")
	cmp := "| in  | out |\n|  0  |  1  |\n|  1  |  1  |\n"
	if err := os.WriteFile(filepath.Join(dir, "Not.cmp"), []byte(cmp), 0666); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := runTest(filepath.Join(dir, "Not.tst"), &stdout, &stderr)
	if err == nil {
		t.Fatal("runTest succeeded; want comparator mismatch")
	}
	if kindOf(err) != ErrComparatorMismatch {
		t.Fatalf("runTest: %v; want comparator mismatch", err)
	}
	if !strings.Contains(stderr.String(), "step 2") {
		t.Errorf("mismatch report does not name the failing step:\n%s", stderr.String())
	}

	// The first comparison still passed.
	if got := stdout.String(); !strings.Contains(got, "1 failures, 1 successes") {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(got, "1 failures, 1 successes, 2 total.", false)
		t.Errorf("unexpected summary (diff to expected):\n%s", dmp.DiffPrettyText(diffs))
	}
}

// TestScriptBadElaboration checks that a width error surfaces before any
// simulation happens.
func TestScriptBadElaboration(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []struct{ name, body string }{
		{"Bad.tst", "load BadSlice.hdl,\ncompare-to Bad.cmp,\noutput-list out%B1.4.1;\n\neval, output;\n"},
		{"Bad.cmp", "| out  |\n| 0000 |\n"},
	} {
		if err := os.WriteFile(filepath.Join(dir, f.name), []byte(f.body), 0666); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"BadSlice.hdl", "NotN.hdl"} {
		src, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), src, 0666); err != nil {
			t.Fatal(err)
		}
	}

	var stdout, stderr bytes.Buffer
	err := runTest(filepath.Join(dir, "Bad.tst"), &stdout, &stderr)
	if err == nil {
		t.Fatal("runTest succeeded; want width mismatch")
	}
	if kindOf(err) != ErrWidthMismatch {
		t.Fatalf("runTest: %v; want width mismatch", err)
	}
}
