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
	"time"

	"github.com/golang/glog"
)

// LeafKind discriminates the two primitive chips from composites.
type LeafKind int

const (
	LeafNone LeafKind = iota
	LeafNAND
	LeafDFF
)

// Port is a concrete port: the generic width has been evaluated.
type Port struct {
	Name      string
	Width     int
	Direction PortDirection
}

// Slice is a concrete bus slice, inclusive on both ends, bit 0 carrying the
// 2^0 weight.
type Slice struct {
	Name  string
	Start int
	End   int
}

func (s Slice) width() int { return s.End - s.Start + 1 }

func (s Slice) String() string {
	if s.Start == s.End {
		return fmt.Sprintf("%s[%d]", s.Name, s.Start)
	}
	return fmt.Sprintf("%s[%d..%d]", s.Name, s.Start, s.End)
}

// Mapping is a concretized PortMapping: both slices fully numeric and width
// checked.
type Mapping struct {
	Wire Slice
	Port Slice
	// OutDriver is set when the child port is an output, i.e. this mapping
	// drives the wire.
	OutDriver bool
}

// Instance is one elaborated subchip with its mappings into the parent
// scope.
type Instance struct {
	Chip     *Chip
	Mappings []Mapping
}

// Chip is an elaborated chip: every width is numeric, every loop unrolled,
// every leaf NAND or DFF. A parent exclusively owns its children. Immutable
// after construction.
type Chip struct {
	Name  string
	Kind  LeafKind
	Ports []Port
	Parts []*Instance
	// Wires holds the inferred widths of the scope's internal wires (scope
	// ports excluded).
	Wires map[string]int
}

// Port returns the concrete port with the given name.
func (c *Chip) Port(name string) (*Port, error) {
	for i := range c.Ports {
		if c.Ports[i].Name == name {
			return &c.Ports[i], nil
		}
	}
	return nil, errorf(ErrUnknownPort, "chip %s has no port %s", c.Name, name)
}

// Inputs returns the chip's input ports in declaration order.
func (c *Chip) Inputs() []Port {
	var ps []Port
	for _, p := range c.Ports {
		if p.Direction == In {
			ps = append(ps, p)
		}
	}
	return ps
}

// Outputs returns the chip's output ports in declaration order.
func (c *Chip) Outputs() []Port {
	var ps []Port
	for _, p := range c.Ports {
		if p.Direction == Out {
			ps = append(ps, p)
		}
	}
	return ps
}

// Elaborate expands hdl into a concrete Chip. bindings must supply a value
// for every generic declaration of the root chip; referenced subchips are
// fetched through provider.
func Elaborate(hdl *ChipHDL, bindings map[string]int, provider HDLProvider) (*Chip, error) {
	defer statsMark("elaborate", time.Now())
	env := newGenericEnv()
	for _, decl := range hdl.GenericDecls {
		v, ok := bindings[decl.Value]
		if !ok {
			return nil, decl.pos().errorf(ErrUnboundGeneric,
				"no binding for generic %s of chip %s", decl.Value, hdl.Name)
		}
		env.bind(decl.Value, v)
	}
	e := &elaborator{provider: provider}
	c, err := e.chip(hdl, env)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("elaborated %s: %d instances at top level", c.Name, len(c.Parts))
	return c, nil
}

type elaborator struct {
	provider HDLProvider
	// stack holds the chip names currently being elaborated, for
	// circularity detection.
	stack []string
}

// scope tracks wire widths and drivers while one chip's parts are expanded.
type scope struct {
	chip *Chip
	// width of each wire; scope ports are fixed, internal wires may grow
	// until an unsliced use pins them.
	width map[string]int
	fixed map[string]bool
	port  map[string]*Port
	// driven records which (wire, bit) pairs already have a driver.
	driven map[string]map[int]bool
}

func (e *elaborator) chip(hdl *ChipHDL, env *genericEnv) (*Chip, error) {
	for _, name := range e.stack {
		if name == hdl.Name {
			return nil, errorf(ErrRecursion, "chip %s transitively instantiates itself (%s)",
				hdl.Name, strings.Join(append(e.stack, hdl.Name), " -> "))
		}
	}
	e.stack = append(e.stack, hdl.Name)
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	c := &Chip{
		Name:  hdl.Name,
		Wires: make(map[string]int),
	}
	switch strings.ToLower(hdl.Name) {
	case "nand":
		c.Kind = LeafNAND
	case "dff":
		c.Kind = LeafDFF
	}

	for _, gp := range hdl.Ports {
		w, err := gp.Width.Substitute(env).Evaluate(env)
		if err != nil {
			return nil, err
		}
		if w <= 0 {
			return nil, gp.Name.pos().errorf(ErrInvalidWidth,
				"port %s of chip %s has width %d", gp.Name.Value, hdl.Name, w)
		}
		c.Ports = append(c.Ports, Port{Name: gp.Name.Value, Width: w, Direction: gp.Direction})
	}

	sc := &scope{
		chip:   c,
		width:  make(map[string]int),
		fixed:  make(map[string]bool),
		port:   make(map[string]*Port),
		driven: make(map[string]map[int]bool),
	}
	for i := range c.Ports {
		p := &c.Ports[i]
		sc.width[p.Name] = p.Width
		sc.fixed[p.Name] = true
		sc.port[p.Name] = p
		if p.Direction == In {
			// Input port bits arrive driven from the enclosing scope.
			sc.markDriven(p.Name, 0, p.Width-1)
		}
	}

	for _, part := range hdl.Parts {
		switch part := part.(type) {
		case *Component:
			if err := e.component(part, env, sc); err != nil {
				return nil, err
			}
		case *Loop:
			start, err := part.Start.Evaluate(env)
			if err != nil {
				return nil, err
			}
			end, err := part.End.Evaluate(env)
			if err != nil {
				return nil, err
			}
			glog.V(2).Infof("unroll %s in %d..%d in chip %s", part.Iterator.Value, start, end, hdl.Name)
			for i := start; i <= end; i++ {
				restore := env.push(part.Iterator.Value, i)
				for _, comp := range part.Body {
					if err := e.component(comp, env, sc); err != nil {
						restore()
						return nil, err
					}
				}
				restore()
			}
		}
	}

	for name, w := range sc.width {
		if _, isPort := sc.port[name]; !isPort {
			c.Wires[name] = w
		}
	}
	return c, nil
}

func (sc *scope) markDriven(wire string, start, end int) {
	bits := sc.driven[wire]
	if bits == nil {
		bits = make(map[int]bool)
		sc.driven[wire] = bits
	}
	for i := start; i <= end; i++ {
		bits[i] = true
	}
}

func (sc *scope) checkDriven(wire string, start, end int) error {
	bits := sc.driven[wire]
	for i := start; i <= end; i++ {
		if bits[i] {
			return errorf(ErrMultipleDrivers, "wire bit %s[%d] in chip %s has more than one driver",
				wire, i, sc.chip.Name)
		}
	}
	return nil
}

func (e *elaborator) component(comp *Component, env *genericEnv, sc *scope) error {
	sub, err := ResolveHDL(comp.Name.Value, e.provider)
	if err != nil {
		if kindOf(err) == ErrIO {
			return comp.Name.pos().errorf(ErrUnknownChip, "unknown chip %s: %v", comp.Name.Value, err)
		}
		return err
	}

	if len(comp.GenericParams) != len(sub.GenericDecls) {
		return comp.Name.pos().errorf(ErrGenericArity,
			"chip %s takes %d generic parameters, got %d",
			sub.Name, len(sub.GenericDecls), len(comp.GenericParams))
	}
	childEnv := newGenericEnv()
	for i, param := range comp.GenericParams {
		v, err := param.Evaluate(env)
		if err != nil {
			return err
		}
		childEnv.bind(sub.GenericDecls[i].Value, v)
	}

	child, err := e.chip(sub, childEnv)
	if err != nil {
		return err
	}

	inst := &Instance{Chip: child}
	for _, pm := range comp.Mappings {
		m, err := e.mapping(pm, child, env, sc)
		if err != nil {
			return err
		}
		inst.Mappings = append(inst.Mappings, m)
	}
	sc.chip.Parts = append(sc.chip.Parts, inst)
	return nil
}

// sliceOf evaluates an optional start/end pair against a declared width.
// Absent bounds select the whole declared range.
func sliceOf(b BusHDL, declared int, env *genericEnv) (Slice, error) {
	if b.Start == nil {
		return Slice{Name: b.Name, Start: 0, End: declared - 1}, nil
	}
	start, err := b.Start.Evaluate(env)
	if err != nil {
		return Slice{}, err
	}
	end := start
	if b.End != nil {
		if end, err = b.End.Evaluate(env); err != nil {
			return Slice{}, err
		}
	}
	if end < start {
		return Slice{}, errorf(ErrInvalidWidth, "slice %s[%d..%d] has end before start", b.Name, start, end)
	}
	return Slice{Name: b.Name, Start: start, End: end}, nil
}

func (e *elaborator) mapping(pm PortMapping, child *Chip, env *genericEnv, sc *scope) (Mapping, error) {
	port, err := child.Port(pm.Port.Name)
	if err != nil {
		return Mapping{}, pm.WireIdent.pos().errorf(ErrUnknownPort,
			"chip %s has no port %s", child.Name, pm.Port.Name)
	}
	ps, err := sliceOf(pm.Port, port.Width, env)
	if err != nil {
		return Mapping{}, stampPos(err, pm.WireIdent.pos())
	}
	if ps.End >= port.Width {
		return Mapping{}, pm.WireIdent.pos().errorf(ErrInvalidWidth,
			"slice %s exceeds the %d-bit port %s.%s", ps, port.Width, child.Name, port.Name)
	}

	var ws Slice
	if wp, isPort := sc.port[pm.Wire.Name]; isPort {
		if ws, err = sliceOf(pm.Wire, wp.Width, env); err != nil {
			return Mapping{}, stampPos(err, pm.WireIdent.pos())
		}
		if ws.End >= wp.Width {
			return Mapping{}, pm.WireIdent.pos().errorf(ErrInvalidWidth,
				"slice %s exceeds the %d-bit port %s", ws, wp.Width, wp.Name)
		}
	} else if pm.Wire.Start == nil {
		// Unsliced internal wire: its width is the port slice's width. The
		// first such use pins the wire width; later uses must agree.
		w := ps.width()
		if sc.fixed[pm.Wire.Name] && sc.width[pm.Wire.Name] != w {
			return Mapping{}, pm.WireIdent.pos().errorf(ErrWidthMismatch,
				"wire %s used as %d bits here but %d bits elsewhere",
				pm.Wire.Name, w, sc.width[pm.Wire.Name])
		}
		if sc.width[pm.Wire.Name] > w {
			return Mapping{}, pm.WireIdent.pos().errorf(ErrWidthMismatch,
				"wire %s used as %d bits here but sliced up to bit %d elsewhere",
				pm.Wire.Name, w, sc.width[pm.Wire.Name]-1)
		}
		sc.width[pm.Wire.Name] = w
		sc.fixed[pm.Wire.Name] = true
		ws = Slice{Name: pm.Wire.Name, Start: 0, End: w - 1}
	} else {
		if ws, err = sliceOf(pm.Wire, 0, env); err != nil {
			return Mapping{}, stampPos(err, pm.WireIdent.pos())
		}
		if sc.fixed[pm.Wire.Name] && ws.End >= sc.width[pm.Wire.Name] {
			return Mapping{}, pm.WireIdent.pos().errorf(ErrInvalidWidth,
				"slice %s exceeds the %d-bit wire %s", ws, sc.width[pm.Wire.Name], pm.Wire.Name)
		}
		if ws.End+1 > sc.width[pm.Wire.Name] {
			sc.width[pm.Wire.Name] = ws.End + 1
		}
	}

	if ps.width() != ws.width() {
		return Mapping{}, pm.WireIdent.pos().errorf(ErrWidthMismatch,
			"mapping %s = %s connects a %d-bit port slice to a %d-bit wire slice",
			ps, ws, ps.width(), ws.width())
	}

	out := port.Direction == Out
	if out {
		if err := sc.checkDriven(ws.Name, ws.Start, ws.End); err != nil {
			return Mapping{}, stampPos(err, pm.WireIdent.pos())
		}
		sc.markDriven(ws.Name, ws.Start, ws.End)
	}
	return Mapping{Wire: ws, Port: ps, OutDriver: out}, nil
}

// stampPos attaches a source location to errors that do not carry one yet.
func stampPos(err error, pos srcpos) error {
	if he, ok := err.(*Error); ok && he.Pos.path == "" && he.Pos.line == 0 {
		he.Pos = pos
	}
	return err
}
