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
	"time"

	"github.com/golang/glog"
)

// parser is a recursive-descent parser for the HDL grammar:
//
//	chip        := 'CHIP' IDENT generic_decls? '{' in_section out_section parts_section '}'
//	generic_decls := '<' IDENT (',' IDENT)* '>'
//	in_section  := 'IN' port_list ';'
//	out_section := 'OUT' port_list ';'
//	port_list   := IDENT port_width? (',' IDENT port_width?)*
//	port_width  := '[' expr ']'
//	parts_section := 'PARTS' ':' (component | for_loop)* '}'
//	component   := IDENT generic_args? '(' port_mappings? ')' ';'
//	generic_args := '<' (NUMBER | IDENT) (',' (NUMBER | IDENT))* '>'
//	for_loop    := 'FOR' IDENT 'IN' expr 'TO' expr 'GENERATE' '{' component* '}'
//	port_mappings := mapping (',' mapping)*
//	mapping     := IDENT bus_idx? '=' IDENT bus_idx?
//	bus_idx     := '[' expr ('.' '.' expr)? ']'
//	expr        := terminal (('+'|'-') terminal)?
//	terminal    := NUMBER | IDENT
//
// The first error aborts the parse; no recovery is attempted.
type parser struct {
	s *scanner
}

// ParseHDL parses one chip definition from src. path is used for source
// locations in the AST and in errors.
func ParseHDL(src, path string) (*ChipHDL, error) {
	defer statsMark("parse", time.Now())
	p := &parser{s: newScanner(src, path)}
	hdl, err := p.chip()
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("parsed chip %s: %d ports, %d parts", hdl.Name, len(hdl.Ports), len(hdl.Parts))
	return hdl, nil
}

// expected builds the error for finding tok where want was required.
func (p *parser) expected(tok token, want string) error {
	if tok.typ == tokEOF {
		return tok.pos.errorf(ErrParse, "unexpected end of file, expected %s", want)
	}
	return tok.pos.errorf(ErrParse, "unexpected %s, expected %s", tok, want)
}

func (p *parser) consume(tt tokenType) (token, error) {
	t, err := p.s.next()
	if err != nil {
		return token{}, err
	}
	if t.typ != tt {
		return token{}, p.expected(t, tt.String())
	}
	return t, nil
}

func (p *parser) chip() (*ChipHDL, error) {
	if _, err := p.consume(tokChip); err != nil {
		return nil, err
	}
	name, err := p.consume(tokIdent)
	if err != nil {
		return nil, err
	}
	decls, err := p.genericDecls()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(tokLeftCurly); err != nil {
		return nil, err
	}
	if _, err := p.consume(tokIn); err != nil {
		return nil, err
	}
	ports, err := p.portNames(In)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(tokOut); err != nil {
		return nil, err
	}
	outs, err := p.portNames(Out)
	if err != nil {
		return nil, err
	}
	ports = append(ports, outs...)
	if _, err := p.consume(tokParts); err != nil {
		return nil, err
	}
	if _, err := p.consume(tokColon); err != nil {
		return nil, err
	}
	parts, err := p.parts()
	if err != nil {
		return nil, err
	}
	return &ChipHDL{
		Name:         name.lexeme,
		Ports:        ports,
		Parts:        parts,
		GenericDecls: decls,
		Path:         p.s.path,
	}, nil
}

// genericDecls parses the optional <N, M, ...> list after the chip name.
func (p *parser) genericDecls() ([]Identifier, error) {
	t, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	if t.typ != tokLeftAngle {
		return nil, nil
	}
	p.s.next()

	var decls []Identifier
	for {
		t, err := p.s.next()
		if err != nil {
			return nil, err
		}
		switch t.typ {
		case tokIdent:
			decls = append(decls, identFromToken(t))
		case tokComma:
		case tokRightAngle:
			return decls, nil
		default:
			return nil, p.expected(t, "identifier, `,`, or `>`")
		}
	}
}

// genericArgs parses the optional <arg, ...> list after a component name.
// Each argument is a number or a generic variable; +/- expressions are not
// accepted here.
func (p *parser) genericArgs() ([]GenericWidth, error) {
	t, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	if t.typ != tokLeftAngle {
		return nil, nil
	}
	p.s.next()

	var args []GenericWidth
	for {
		t, err := p.s.next()
		if err != nil {
			return nil, err
		}
		switch t.typ {
		case tokNumber:
			n, err := strconv.Atoi(t.lexeme)
			if err != nil {
				return nil, t.pos.errorf(ErrParse, "bad number %q: %v", t.lexeme, err)
			}
			args = append(args, Num(n))
		case tokIdent:
			args = append(args, VarRef{Ident: identFromToken(t)})
		case tokComma:
		case tokRightAngle:
			return args, nil
		default:
			return nil, p.expected(t, "identifier, number, `,`, or `>`")
		}
	}
}

func (p *parser) portNames(dir PortDirection) ([]GenericPort, error) {
	var ports []GenericPort
	for {
		t, err := p.s.next()
		if err != nil {
			return nil, err
		}
		switch t.typ {
		case tokIdent:
			w, err := p.portWidth()
			if err != nil {
				return nil, err
			}
			ports = append(ports, GenericPort{
				Name:      identFromToken(t),
				Width:     w,
				Direction: dir,
			})
		case tokComma:
		case tokSemicolon:
			return ports, nil
		default:
			return nil, p.expected(t, "identifier, `,`, or `;`")
		}
	}
}

// portWidth parses the optional [expr] after a port name. An unadorned port
// is one bit wide.
func (p *parser) portWidth() (GenericWidth, error) {
	t, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	if t.typ != tokLeftBracket {
		return Num(1), nil
	}
	p.s.next()
	w, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(tokRightBracket); err != nil {
		return nil, err
	}
	return w, nil
}

// parts parses the PARTS section body, consuming the chip's closing brace.
func (p *parser) parts() ([]Part, error) {
	var parts []Part
	for {
		t, err := p.s.peek()
		if err != nil {
			return nil, err
		}
		switch t.typ {
		case tokIdent:
			c, err := p.component()
			if err != nil {
				return nil, err
			}
			parts = append(parts, c)
		case tokFor:
			l, err := p.forLoop()
			if err != nil {
				return nil, err
			}
			parts = append(parts, l)
		case tokRightCurly:
			p.s.next()
			return parts, nil
		default:
			return nil, p.expected(t, "identifier, FOR, or `}`")
		}
	}
}

// components parses a loop body, which allows components only, and consumes
// the closing brace.
func (p *parser) components() ([]*Component, error) {
	var comps []*Component
	for {
		t, err := p.s.peek()
		if err != nil {
			return nil, err
		}
		switch t.typ {
		case tokIdent:
			c, err := p.component()
			if err != nil {
				return nil, err
			}
			comps = append(comps, c)
		case tokRightCurly:
			p.s.next()
			return comps, nil
		default:
			return nil, p.expected(t, "identifier or `}`")
		}
	}
}

func (p *parser) forLoop() (*Loop, error) {
	if _, err := p.consume(tokFor); err != nil {
		return nil, err
	}
	it, err := p.consume(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(tokIn); err != nil {
		return nil, err
	}
	start, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(tokTo); err != nil {
		return nil, err
	}
	end, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(tokGenerate); err != nil {
		return nil, err
	}
	if _, err := p.consume(tokLeftCurly); err != nil {
		return nil, err
	}
	body, err := p.components()
	if err != nil {
		return nil, err
	}
	return &Loop{
		Iterator: identFromToken(it),
		Start:    start,
		End:      end,
		Body:     body,
	}, nil
}

func (p *parser) component() (*Component, error) {
	name, err := p.consume(tokIdent)
	if err != nil {
		return nil, err
	}
	args, err := p.genericArgs()
	if err != nil {
		return nil, err
	}
	mappings, err := p.portMappings()
	if err != nil {
		return nil, err
	}
	return &Component{
		Name:          identFromToken(name),
		GenericParams: args,
		Mappings:      mappings,
	}, nil
}

func (p *parser) expr() (GenericWidth, error) {
	t1, err := p.terminal()
	if err != nil {
		return nil, err
	}
	t, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	switch t.typ {
	case tokPlus:
		p.s.next()
		t2, err := p.terminal()
		if err != nil {
			return nil, err
		}
		return WidthExpr{Op: opAdd, Left: t1, Right: t2}, nil
	case tokMinus:
		p.s.next()
		t2, err := p.terminal()
		if err != nil {
			return nil, err
		}
		return WidthExpr{Op: opSub, Left: t1, Right: t2}, nil
	}
	return t1, nil
}

func (p *parser) terminal() (GenericWidth, error) {
	t, err := p.s.next()
	if err != nil {
		return nil, err
	}
	switch t.typ {
	case tokNumber:
		n, err := strconv.Atoi(t.lexeme)
		if err != nil {
			return nil, t.pos.errorf(ErrParse, "bad number %q: %v", t.lexeme, err)
		}
		return Num(n), nil
	case tokIdent:
		return VarRef{Ident: identFromToken(t)}, nil
	}
	return nil, p.expected(t, "number or generic variable")
}

// busIdx parses the optional [expr] or [expr..expr] slice after a wire or
// port name. A single index selects one bit; start and end come back equal.
func (p *parser) busIdx() (start, end GenericWidth, err error) {
	t, err := p.s.peek()
	if err != nil {
		return nil, nil, err
	}
	if t.typ != tokLeftBracket {
		return nil, nil, nil
	}
	p.s.next()
	start, err = p.expr()
	if err != nil {
		return nil, nil, err
	}
	end = start
	t, err = p.s.peek()
	if err != nil {
		return nil, nil, err
	}
	if t.typ == tokDot {
		p.s.next()
		if _, err := p.consume(tokDot); err != nil {
			return nil, nil, err
		}
		end, err = p.expr()
		if err != nil {
			return nil, nil, err
		}
	}
	if _, err := p.consume(tokRightBracket); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (p *parser) portMappings() ([]PortMapping, error) {
	var mappings []PortMapping
	if _, err := p.consume(tokLeftParen); err != nil {
		return nil, err
	}
	for {
		t, err := p.s.next()
		if err != nil {
			return nil, err
		}
		switch t.typ {
		case tokIdent:
			portStart, portEnd, err := p.busIdx()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(tokEqual); err != nil {
				return nil, err
			}
			wire, err := p.consume(tokIdent)
			if err != nil {
				return nil, err
			}
			wireStart, wireEnd, err := p.busIdx()
			if err != nil {
				return nil, err
			}
			mappings = append(mappings, PortMapping{
				WireIdent: identFromToken(t),
				Wire:      BusHDL{Name: wire.lexeme, Start: wireStart, End: wireEnd},
				Port:      BusHDL{Name: t.lexeme, Start: portStart, End: portEnd},
			})
			nt, err := p.s.peek()
			if err != nil {
				return nil, err
			}
			if nt.typ != tokComma && nt.typ != tokRightParen {
				return nil, p.expected(nt, "`,` or `)`")
			}
		case tokComma:
		case tokRightParen:
			if _, err := p.consume(tokSemicolon); err != nil {
				return nil, err
			}
			return mappings, nil
		default:
			return nil, p.expected(t, "`,` or `)`")
		}
	}
}
