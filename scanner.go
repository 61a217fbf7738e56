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

	"github.com/golang/glog"
)

type tokenType int

const (
	tokChip tokenType = iota
	tokIn
	tokOut
	tokParts
	tokFor
	tokTo
	tokGenerate
	tokIdent
	tokNumber
	tokLeftCurly
	tokRightCurly
	tokLeftParen
	tokRightParen
	tokLeftBracket
	tokRightBracket
	tokLeftAngle
	tokRightAngle
	tokComma
	tokSemicolon
	tokColon
	tokEqual
	tokPlus
	tokMinus
	tokDot
	tokEOF
)

func (t tokenType) String() string {
	switch t {
	case tokChip:
		return "CHIP"
	case tokIn:
		return "IN"
	case tokOut:
		return "OUT"
	case tokParts:
		return "PARTS"
	case tokFor:
		return "FOR"
	case tokTo:
		return "TO"
	case tokGenerate:
		return "GENERATE"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokLeftCurly:
		return "`{`"
	case tokRightCurly:
		return "`}`"
	case tokLeftParen:
		return "`(`"
	case tokRightParen:
		return "`)`"
	case tokLeftBracket:
		return "`[`"
	case tokRightBracket:
		return "`]`"
	case tokLeftAngle:
		return "`<`"
	case tokRightAngle:
		return "`>`"
	case tokComma:
		return "`,`"
	case tokSemicolon:
		return "`;`"
	case tokColon:
		return "`:`"
	case tokEqual:
		return "`=`"
	case tokPlus:
		return "`+`"
	case tokMinus:
		return "`-`"
	case tokDot:
		return "`.`"
	case tokEOF:
		return "end of file"
	}
	return "unknown token"
}

type token struct {
	typ    tokenType
	lexeme string
	pos    srcpos
}

func (t token) String() string {
	if t.typ == tokIdent || t.typ == tokNumber {
		return fmt.Sprintf("%s `%s`", t.typ, t.lexeme)
	}
	return t.typ.String()
}

var hdlKeywords = map[string]tokenType{
	"CHIP":     tokChip,
	"IN":       tokIn,
	"OUT":      tokOut,
	"PARTS":    tokParts,
	"FOR":      tokFor,
	"TO":       tokTo,
	"GENERATE": tokGenerate,
}

// scanner turns HDL source text into a token stream with one token of
// lookahead.
type scanner struct {
	src    []rune
	path   string
	off    int
	line   int
	col    int
	peeked *token
}

func newScanner(src, path string) *scanner {
	return &scanner{
		src:  []rune(src),
		path: path,
		line: 1,
		col:  1,
	}
}

func (s *scanner) pos() srcpos {
	return srcpos{path: s.path, line: s.line, col: s.col}
}

// peek returns the next token without consuming it.
func (s *scanner) peek() (token, error) {
	if s.peeked == nil {
		t, err := s.scan()
		if err != nil {
			return token{}, err
		}
		s.peeked = &t
	}
	return *s.peeked, nil
}

// next consumes and returns the next token. Once the input is exhausted it
// returns tokEOF forever.
func (s *scanner) next() (token, error) {
	if s.peeked != nil {
		t := *s.peeked
		s.peeked = nil
		return t, nil
	}
	return s.scan()
}

func (s *scanner) advance() rune {
	r := s.src[s.off]
	s.off++
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) skipBlanks() error {
	for s.off < len(s.src) {
		r := s.src[s.off]
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			s.advance()
		case r == '/' && s.off+1 < len(s.src) && s.src[s.off+1] == '/':
			for s.off < len(s.src) && s.src[s.off] != '\n' {
				s.advance()
			}
		case r == '/' && s.off+1 < len(s.src) && s.src[s.off+1] == '*':
			start := s.pos()
			s.advance()
			s.advance()
			closed := false
			for s.off < len(s.src) {
				if s.src[s.off] == '*' && s.off+1 < len(s.src) && s.src[s.off+1] == '/' {
					s.advance()
					s.advance()
					closed = true
					break
				}
				s.advance()
			}
			if !closed {
				return start.errorf(ErrParse, "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (s *scanner) scan() (token, error) {
	if err := s.skipBlanks(); err != nil {
		return token{}, err
	}
	pos := s.pos()
	if s.off >= len(s.src) {
		return token{typ: tokEOF, pos: pos}, nil
	}
	r := s.advance()

	var typ tokenType
	switch r {
	case '{':
		typ = tokLeftCurly
	case '}':
		typ = tokRightCurly
	case '(':
		typ = tokLeftParen
	case ')':
		typ = tokRightParen
	case '[':
		typ = tokLeftBracket
	case ']':
		typ = tokRightBracket
	case '<':
		typ = tokLeftAngle
	case '>':
		typ = tokRightAngle
	case ',':
		typ = tokComma
	case ';':
		typ = tokSemicolon
	case ':':
		typ = tokColon
	case '=':
		typ = tokEqual
	case '+':
		typ = tokPlus
	case '-':
		typ = tokMinus
	case '.':
		typ = tokDot
	default:
		switch {
		case isDigit(r):
			lex := []rune{r}
			for s.off < len(s.src) && isDigit(s.src[s.off]) {
				lex = append(lex, s.advance())
			}
			t := token{typ: tokNumber, lexeme: string(lex), pos: pos}
			glog.V(3).Infof("scan %s", t)
			return t, nil
		case isIdentStart(r):
			lex := []rune{r}
			for s.off < len(s.src) && isIdentRune(s.src[s.off]) {
				lex = append(lex, s.advance())
			}
			word := string(lex)
			t := token{typ: tokIdent, lexeme: word, pos: pos}
			if kw, ok := hdlKeywords[word]; ok {
				t.typ = kw
			}
			glog.V(3).Infof("scan %s", t)
			return t, nil
		default:
			return token{}, pos.errorf(ErrParse, "unexpected character %q", r)
		}
	}
	t := token{typ: typ, lexeme: string(r), pos: pos}
	glog.V(3).Infof("scan %s", t)
	return t, nil
}
