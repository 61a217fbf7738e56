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
	"reflect"
	"testing"
)

func bindEnv(bindings map[string]int) *genericEnv {
	env := newGenericEnv()
	for name, v := range bindings {
		env.bind(name, v)
	}
	return env
}

func TestEvaluateWidth(t *testing.T) {
	for _, tc := range []struct {
		in      GenericWidth
		env     map[string]int
		val     int
		errKind ErrorKind
		isErr   bool
	}{
		{
			in:  Num(4),
			val: 4,
		},
		{
			in:  VarRef{Ident: ident("W")},
			env: map[string]int{"W": 16},
			val: 16,
		},
		{
			in:      VarRef{Ident: ident("W")},
			isErr:   true,
			errKind: ErrUnboundGeneric,
		},
		{
			in:  WidthExpr{Op: opAdd, Left: VarRef{Ident: ident("W")}, Right: Num(1)},
			env: map[string]int{"W": 7},
			val: 8,
		},
		{
			in:  WidthExpr{Op: opSub, Left: VarRef{Ident: ident("W")}, Right: Num(1)},
			env: map[string]int{"W": 7},
			val: 6,
		},
		{
			in:      WidthExpr{Op: opSub, Left: Num(1), Right: Num(2)},
			isErr:   true,
			errKind: ErrArithmetic,
		},
	} {
		got, err := tc.in.Evaluate(bindEnv(tc.env))
		if tc.isErr {
			if err == nil {
				t.Errorf("Evaluate(%s)=%d, nil; want error", tc.in, got)
			} else if kindOf(err) != tc.errKind {
				t.Errorf("Evaluate(%s)=_, %v; want kind %v", tc.in, err, tc.errKind)
			}
			continue
		}
		if err != nil {
			t.Errorf("Evaluate(%s)=_, %v; want nil error", tc.in, err)
			continue
		}
		if got != tc.val {
			t.Errorf("Evaluate(%s)=%d; want %d", tc.in, got, tc.val)
		}
	}
}

func TestSubstituteWidth(t *testing.T) {
	for _, tc := range []struct {
		in   GenericWidth
		env  map[string]int
		want GenericWidth
	}{
		{
			in:   VarRef{Ident: ident("W")},
			env:  map[string]int{"W": 3},
			want: Num(3),
		},
		{
			// Partial substitution keeps the unbound variable.
			in:   WidthExpr{Op: opAdd, Left: VarRef{Ident: ident("W")}, Right: VarRef{Ident: ident("K")}},
			env:  map[string]int{"W": 3},
			want: WidthExpr{Op: opAdd, Left: Num(3), Right: VarRef{Ident: ident("K")}},
		},
		{
			in:   Num(9),
			env:  nil,
			want: Num(9),
		},
	} {
		got := tc.in.Substitute(bindEnv(tc.env))
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Substitute(%s)=%#v; want %#v", tc.in, got, tc.want)
		}
	}
}

func TestFreeVars(t *testing.T) {
	e := WidthExpr{Op: opSub, Left: VarRef{Ident: ident("W")}, Right: VarRef{Ident: ident("K")}}
	got := freeVars(e)
	want := map[string]bool{"W": true, "K": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("freeVars(%s)=%v; want %v", e, got, want)
	}
	if len(freeVars(Num(1))) != 0 {
		t.Errorf("freeVars(1) is not empty")
	}
}

func TestEnvShadowing(t *testing.T) {
	env := newGenericEnv()
	env.bind("i", 10)
	restore := env.push("i", 3)
	if v, _ := env.lookup("i"); v != 3 {
		t.Errorf("lookup(i)=%d inside push; want 3", v)
	}
	restore()
	if v, _ := env.lookup("i"); v != 10 {
		t.Errorf("lookup(i)=%d after restore; want 10", v)
	}

	restore = env.push("j", 1)
	restore()
	if _, ok := env.lookup("j"); ok {
		t.Errorf("lookup(j) still bound after restore")
	}
}
