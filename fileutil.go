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
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
)

// HDLProvider retrieves HDL source text by relative file name. The chip
// resolver asks it for "<name>.hdl"; implementations decide where that
// lives.
type HDLProvider interface {
	GetHDL(fileName string) (string, error)
	GetPath(fileName string) string
}

// FileReader is an HDLProvider rooted at a base directory. Files are opened
// and closed per call; no handles are retained.
type FileReader struct {
	base string
}

func NewFileReader(base string) *FileReader {
	return &FileReader{base: base}
}

func (r *FileReader) GetHDL(fileName string) (string, error) {
	path := filepath.Join(r.base, fileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errorf(ErrIO, "unable to get HDL for %s: %v", path, err)
	}
	return string(b), nil
}

func (r *FileReader) GetPath(fileName string) string {
	return filepath.Join(r.base, fileName)
}

// nandHDL and dffHDL are the primitive chips. Their names resolve
// case-insensitively and never touch the provider.
var (
	nandHDL = &ChipHDL{
		Name: "NAND",
		Ports: []GenericPort{
			{Name: ident("a"), Width: Num(1), Direction: In},
			{Name: ident("b"), Width: Num(1), Direction: In},
			{Name: ident("out"), Width: Num(1), Direction: Out},
		},
	}
	dffHDL = &ChipHDL{
		Name: "DFF",
		Ports: []GenericPort{
			{Name: ident("in"), Width: Num(1), Direction: In},
			{Name: ident("out"), Width: Num(1), Direction: Out},
		},
	}
)

// ResolveHDL returns the parse tree for the named chip. NAND and DFF are
// built in; everything else maps to "<name>.hdl" under the provider.
func ResolveHDL(name string, provider HDLProvider) (*ChipHDL, error) {
	switch strings.ToLower(name) {
	case "nand":
		return nandHDL, nil
	case "dff":
		return dffHDL, nil
	}
	fileName := name + ".hdl"
	src, err := provider.GetHDL(fileName)
	if err != nil {
		glog.V(1).Infof("resolve %s: %v", name, err)
		return nil, err
	}
	return ParseHDL(src, provider.GetPath(fileName))
}
