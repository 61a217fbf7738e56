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
	"os"
	"sort"
	"time"
)

// StatsFlag enables per-phase statistics, dumped by DumpStats.
var StatsFlag bool

type statsData struct {
	count map[string]int
	spent map[string]time.Duration
}

var stats = statsData{
	count: make(map[string]int),
	spent: make(map[string]time.Duration),
}

// statsMark records one run of the named phase. Use as
//
//	defer statsMark("elaborate", time.Now())
func statsMark(phase string, start time.Time) {
	if !StatsFlag {
		return
	}
	stats.count[phase]++
	stats.spent[phase] += time.Since(start)
}

// DumpStats prints accumulated phase statistics to stderr.
func DumpStats() {
	if !StatsFlag {
		return
	}
	phases := make([]string, 0, len(stats.count))
	for phase := range stats.count {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	for _, phase := range phases {
		fmt.Fprintf(os.Stderr, "*hdlsim*: %s: %d calls, %v\n",
			phase, stats.count[phase], stats.spent[phase])
	}
}
