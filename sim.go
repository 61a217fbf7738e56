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
	"time"

	"github.com/golang/glog"
)

// The netlist flattens an elaborated chip into an arena of bit slots. Every
// net (a wire bit together with all port bits mapped onto it) is one slot
// index; each leaf gate carries the indices of its input and output bits.
// Settling is then a linear scan over the gates, no pointer graph involved.

type nandGate struct {
	a, b, out int
}

type dffGate struct {
	in, out int
}

type netPort struct {
	name  string
	dir   PortDirection
	slots []int // slot per bit, LSB at index 0
}

type netlist struct {
	slots int
	nands []nandGate
	dffs  []dffGate
	ports []netPort // root ports
}

func (n *netlist) alloc(k int) []int {
	s := make([]int, k)
	for i := range s {
		s[i] = n.slots + i
	}
	n.slots += k
	return s
}

func newNetlist(c *Chip) (*netlist, error) {
	n := &netlist{}
	rootSlots := make(map[string][]int)
	for _, p := range c.Ports {
		slots := n.alloc(p.Width)
		rootSlots[p.Name] = slots
		n.ports = append(n.ports, netPort{name: p.Name, dir: p.Direction, slots: slots})
	}
	if err := n.build(c, rootSlots); err != nil {
		return nil, err
	}

	// Elaboration checks drivers per scope; re-check on the flat netlist
	// where aliasing across scopes could merge two drivers onto one net.
	drivers := make([]int, n.slots)
	for _, p := range n.ports {
		if p.dir == In {
			for _, s := range p.slots {
				drivers[s]++
			}
		}
	}
	for _, g := range n.nands {
		drivers[g.out]++
	}
	for _, d := range n.dffs {
		drivers[d.out]++
	}
	for s, count := range drivers {
		if count > 1 {
			return nil, errorf(ErrMultipleDrivers, "net %d in chip %s has %d drivers", s, c.Name, count)
		}
	}
	glog.V(1).Infof("netlist for %s: %d nets, %d NAND, %d DFF",
		c.Name, n.slots, len(n.nands), len(n.dffs))
	return n, nil
}

// build walks the instance tree. portSlots maps each of c's port names to
// the slot indices its bits live in; bits of a child port mapped to a parent
// wire share the parent's slots, unmapped bits get fresh ones.
func (n *netlist) build(c *Chip, portSlots map[string][]int) error {
	switch c.Kind {
	case LeafNAND:
		n.nands = append(n.nands, nandGate{
			a:   portSlots["a"][0],
			b:   portSlots["b"][0],
			out: portSlots["out"][0],
		})
		return nil
	case LeafDFF:
		n.dffs = append(n.dffs, dffGate{
			in:  portSlots["in"][0],
			out: portSlots["out"][0],
		})
		return nil
	}

	wires := make(map[string][]int, len(c.Wires)+len(c.Ports))
	for _, p := range c.Ports {
		wires[p.Name] = portSlots[p.Name]
	}
	for name, w := range c.Wires {
		wires[name] = n.alloc(w)
	}

	for _, inst := range c.Parts {
		childSlots := make(map[string][]int, len(inst.Chip.Ports))
		for _, p := range inst.Chip.Ports {
			slots := make([]int, p.Width)
			for i := range slots {
				slots[i] = -1
			}
			childSlots[p.Name] = slots
		}
		for _, m := range inst.Mappings {
			ps := childSlots[m.Port.Name]
			ws := wires[m.Wire.Name]
			for i := 0; i < m.Port.width(); i++ {
				ps[m.Port.Start+i] = ws[m.Wire.Start+i]
			}
		}
		for _, slots := range childSlots {
			for i, s := range slots {
				if s == -1 {
					slots[i] = n.alloc(1)[0]
				}
			}
		}
		if err := n.build(inst.Chip, childSlots); err != nil {
			return err
		}
	}
	return nil
}

// Simulator drives an elaborated chip. The chip is read-only; the live slot
// values and the DFF shadow state belong exclusively to the simulator.
// Single-threaded; no operation blocks.
type Simulator struct {
	chip   *Chip
	net    *netlist
	shadow []Bit // per DFF, changes only on Tick
	values []Bit // slot values from the most recent settle
}

func NewSimulator(chip *Chip) (*Simulator, error) {
	net, err := newNetlist(chip)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		chip:   chip,
		net:    net,
		shadow: make([]Bit, len(net.dffs)),
	}, nil
}

// Chip returns the elaborated chip under simulation.
func (s *Simulator) Chip() *Chip { return s.chip }

// Simulate settles the chip combinationally against the given primary
// inputs and returns a BusMap of all primary ports. Input buses absent from
// inputs stay undriven. The result depends only on the chip and the inputs,
// not on evaluation order: a net goes from undriven to a definite bit at
// most once per settle.
func (s *Simulator) Simulate(inputs *BusMap) (*BusMap, error) {
	defer statsMark("settle", time.Now())
	values := make([]Bit, s.net.slots)
	for _, p := range s.net.ports {
		if p.dir != In {
			continue
		}
		bits, err := inputs.Read(wholeBus(p.name))
		if err != nil {
			continue // undriven input
		}
		for i, b := range bits {
			if i < len(p.slots) {
				values[p.slots[i]] = b
			}
		}
	}
	for i, d := range s.net.dffs {
		values[d.out] = s.shadow[i]
	}

	// Iterate to the fixed point. Each pass computes every NAND whose
	// inputs are defined and whose output is not; values are monotone, so
	// the number of passes is bounded by the gate count.
	limit := len(s.net.nands) + len(s.net.dffs) + 1
	for pass := 0; ; pass++ {
		if pass > limit {
			return nil, errorf(ErrCombinationalLoop,
				"chip %s did not settle after %d passes", s.chip.Name, pass)
		}
		changed := false
		for _, g := range s.net.nands {
			if values[g.out] != BitU {
				continue
			}
			a, b := values[g.a], values[g.b]
			if !a.defined() || !b.defined() {
				continue
			}
			values[g.out] = bitOf(!(a == Bit1 && b == Bit1))
			changed = true
		}
		if !changed {
			glog.V(2).Infof("settled %s in %d passes", s.chip.Name, pass)
			break
		}
	}
	s.values = values

	out := NewBusMap()
	for _, p := range s.net.ports {
		if err := out.CreateBus(p.name, len(p.slots)); err != nil {
			return nil, err
		}
		bits := make([]Bit, len(p.slots))
		for i, slot := range p.slots {
			bits[i] = values[slot]
		}
		if err := out.Insert(wholeBus(p.name), bits); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Tick latches every DFF's current combinational input into its shadow
// value. The new outputs become visible on the next settle.
func (s *Simulator) Tick() error {
	if s.values == nil {
		// No settle has happened yet; latch undriven.
		s.values = make([]Bit, s.net.slots)
	}
	for i, d := range s.net.dffs {
		s.shadow[i] = s.values[d.in]
	}
	return nil
}

// Step advances one full clock cycle: latch DFF inputs, then settle with the
// given inputs.
func (s *Simulator) Step(inputs *BusMap) (*BusMap, error) {
	if err := s.Tick(); err != nil {
		return nil, err
	}
	return s.Simulate(inputs)
}
