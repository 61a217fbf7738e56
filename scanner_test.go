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

import "testing"

func TestScanTokens(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []tokenType
	}{
		{
			in:   "CHIP Not { }",
			want: []tokenType{tokChip, tokIdent, tokLeftCurly, tokRightCurly, tokEOF},
		},
		{
			in:   "IN a, b; OUT out;",
			want: []tokenType{tokIn, tokIdent, tokComma, tokIdent, tokSemicolon, tokOut, tokIdent, tokSemicolon, tokEOF},
		},
		{
			in:   "a[0..15]",
			want: []tokenType{tokIdent, tokLeftBracket, tokNumber, tokDot, tokDot, tokNumber, tokRightBracket, tokEOF},
		},
		{
			in:   "NotN<W-1>",
			want: []tokenType{tokIdent, tokLeftAngle, tokIdent, tokMinus, tokNumber, tokRightAngle, tokEOF},
		},
		{
			in:   "FOR i IN 0 TO 15 GENERATE",
			want: []tokenType{tokFor, tokIdent, tokIn, tokNumber, tokTo, tokNumber, tokGenerate, tokEOF},
		},
		{
			in:   "PARTS: x=y+2",
			want: []tokenType{tokParts, tokColon, tokIdent, tokEqual, tokIdent, tokPlus, tokNumber, tokEOF},
		},
		{
			// Comments and whitespace disappear.
			in:   "a // line comment\n/* block\ncomment */ b",
			want: []tokenType{tokIdent, tokIdent, tokEOF},
		},
		{
			// Keywords are case sensitive; lowercase forms are identifiers.
			in:   "chip in out",
			want: []tokenType{tokIdent, tokIdent, tokIdent, tokEOF},
		},
		{
			in:   "",
			want: []tokenType{tokEOF},
		},
	} {
		s := newScanner(tc.in, "test.hdl")
		for i, want := range tc.want {
			tok, err := s.next()
			if err != nil {
				t.Errorf("scan(%q) token %d: %v", tc.in, i, err)
				break
			}
			if tok.typ != want {
				t.Errorf("scan(%q) token %d = %s; want %s", tc.in, i, tok.typ, want)
			}
		}
	}
}

func TestScanPositions(t *testing.T) {
	s := newScanner("CHIP Not {\n    IN in;\n", "Not.hdl")
	var toks []token
	for {
		tok, err := s.next()
		if err != nil {
			t.Fatal(err)
		}
		toks = append(toks, tok)
		if tok.typ == tokEOF {
			break
		}
	}
	for i, want := range []srcpos{
		{path: "Not.hdl", line: 1, col: 1},  // CHIP
		{path: "Not.hdl", line: 1, col: 6},  // Not
		{path: "Not.hdl", line: 1, col: 10}, // {
		{path: "Not.hdl", line: 2, col: 5},  // IN
		{path: "Not.hdl", line: 2, col: 8},  // in
		{path: "Not.hdl", line: 2, col: 10}, // ;
	} {
		if toks[i].pos != want {
			t.Errorf("token %d (%s) at %s; want %s", i, toks[i], toks[i].pos, want)
		}
	}
}

func TestScanPeek(t *testing.T) {
	s := newScanner("CHIP Not", "x.hdl")
	p1, err := s.peek()
	if err != nil {
		t.Fatal(err)
	}
	p2, err := s.peek()
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Errorf("peek not stable: %s vs %s", p1, p2)
	}
	n, err := s.next()
	if err != nil {
		t.Fatal(err)
	}
	if n != p1 {
		t.Errorf("next=%s after peek=%s", n, p1)
	}
	if tok, _ := s.next(); tok.typ != tokIdent {
		t.Errorf("second token %s; want identifier", tok)
	}
	// EOF repeats forever.
	for i := 0; i < 3; i++ {
		if tok, _ := s.next(); tok.typ != tokEOF {
			t.Errorf("token after end %s; want EOF", tok)
		}
	}
}

func TestScanBadCharacter(t *testing.T) {
	s := newScanner("a $ b", "x.hdl")
	if _, err := s.next(); err != nil {
		t.Fatal(err)
	}
	_, err := s.next()
	if err == nil {
		t.Fatal("scanning `$` succeeded; want error")
	}
	if kindOf(err) != ErrParse {
		t.Errorf("err=%v; want parse error", err)
	}
}
