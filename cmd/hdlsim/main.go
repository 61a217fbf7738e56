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

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/hdlsim"
)

var (
	testFlag  string
	checkFlag string
	genFlag   genericFlags
)

// genericFlags collects repeated -g name=value bindings.
type genericFlags map[string]int

func (g genericFlags) String() string {
	var parts []string
	for name, v := range g {
		parts = append(parts, fmt.Sprintf("%s=%d", name, v))
	}
	return strings.Join(parts, ",")
}

func (g genericFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("bad generic value in %q: %v", s, err)
	}
	g[name] = n
	return nil
}

func init() {
	genFlag = make(genericFlags)
	flag.StringVar(&testFlag, "test", "", "Run the given .tst test script.")
	flag.StringVar(&checkFlag, "c", "", "Parse and elaborate the given .hdl file, then stop.")
	flag.Var(genFlag, "g", "Generic binding name=value for -c; may repeat.")
	flag.BoolVar(&hdlsim.StatsFlag, "stats", false, "Show phase statistics.")
}

func main() {
	flag.Parse()
	err := run()
	hdlsim.DumpStats()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	switch {
	case testFlag != "":
		return hdlsim.RunTest(testFlag)
	case checkFlag != "":
		return check(checkFlag)
	}
	return fmt.Errorf("nothing to do; use -test or -c")
}

func check(path string) error {
	provider := hdlsim.NewFileReader(filepath.Dir(path))
	name := strings.TrimSuffix(filepath.Base(path), ".hdl")
	hdl, err := hdlsim.ResolveHDL(name, provider)
	if err != nil {
		return err
	}
	chip, err := hdlsim.Elaborate(hdl, genFlag, provider)
	if err != nil {
		return err
	}
	for _, p := range chip.Ports {
		fmt.Printf("%s %s[%d]\n", p.Direction, p.Name, p.Width)
	}
	return nil
}
