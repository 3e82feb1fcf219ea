// Copyright 2024 Josh Deprez
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package script

import (
	"fmt"
	"io/fs"
	"strings"

	yarnpb "github.com/DrJosh9000/yarn/bytecode"
	"google.golang.org/protobuf/proto"
)

// LoadFS loads a compiled program and its line table from fsys. When passed
// a programPath named dialogue/build/bar.yarnc, LoadFS expects the line table
// to be dialogue/build/bar-Lines.csv. langCode should be a valid BCP 47
// language tag.
func LoadFS(fsys fs.FS, programPath, langCode string) (*yarnpb.Program, *LineTable, error) {
	prog, err := LoadProgramFS(fsys, programPath)
	if err != nil {
		return nil, nil, err
	}
	lt, err := LoadLineTableFS(fsys, LineTablePath(programPath), langCode)
	if err != nil {
		return nil, nil, err
	}
	return prog, lt, nil
}

// LoadProgramFS loads a compiled program from fsys.
func LoadProgramFS(fsys fs.FS, programPath string) (*yarnpb.Program, error) {
	yarnc, err := fs.ReadFile(fsys, programPath)
	if err != nil {
		return nil, fmt.Errorf("reading program file: %w", err)
	}
	return UnmarshalProgram(yarnc)
}

// UnmarshalProgram decodes a compiled program.
func UnmarshalProgram(yarnc []byte) (*yarnpb.Program, error) {
	prog := new(yarnpb.Program)
	if err := proto.Unmarshal(yarnc, prog); err != nil {
		return nil, fmt.Errorf("unmarshaling program: %w", err)
	}
	if len(prog.Nodes) == 0 {
		return nil, ErrMissingProgram
	}
	return prog, nil
}

// LineTablePath returns the path of the line table that accompanies a
// compiled program.
func LineTablePath(programPath string) string {
	return strings.TrimSuffix(programPath, ".yarnc") + "-Lines.csv"
}
