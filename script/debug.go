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
	"io"
	"sort"
	"strconv"
	"strings"

	yarnpb "github.com/DrJosh9000/yarn/bytecode"
)

// FormatInstruction prints an instruction in a format convenient for
// debugging. The output is intended for human consumption only and may change
// between incremental versions of this package.
func FormatInstruction(inst *yarnpb.Instruction) string {
	b := new(strings.Builder)
	fmt.Fprint(b, inst.Opcode)
	for _, op := range inst.Operands {
		switch op.Value.(type) {
		case *yarnpb.Operand_BoolValue:
			fmt.Fprintf(b, " %t", op.GetBoolValue())
		case *yarnpb.Operand_FloatValue:
			// Print as an int for instructions that use int operands
			switch inst.Opcode {
			case yarnpb.Instruction_PUSH_FLOAT:
				fmt.Fprintf(b, " %f", op.GetFloatValue())
			default:
				fmt.Fprintf(b, " %d", int(op.GetFloatValue()))
			}
		case *yarnpb.Operand_StringValue:
			fmt.Fprintf(b, " %q", op.GetStringValue())
		}
	}
	return b.String()
}

// FormatProgram writes a program to w in a pseudo-assembler format. Nodes are
// written in name order so that dumps can be diffed.
func FormatProgram(w io.Writer, prog *yarnpb.Program) error {
	// Make all the labels line up, even across nodes
	labelWidth := 0
	names := make([]string, 0, len(prog.Nodes))
	for name, node := range prog.Nodes {
		names = append(names, name)
		for l := range node.Labels {
			labelWidth = max(labelWidth, len(l))
		}
	}
	sort.Strings(names)
	labelFmt := "% " + strconv.Itoa(labelWidth) + "s: "
	labelSpace := strings.Repeat(" ", labelWidth+2)

	for _, name := range names {
		node := prog.Nodes[name]
		labels := make(map[int]string)
		for l, a := range node.Labels {
			labels[int(a)] = l
		}

		if _, err := fmt.Fprintf(w, "%s--- %s ---\n", labelSpace, name); err != nil {
			return err
		}
		for n, inst := range node.Instructions {
			var err error
			if l := labels[n]; l != "" {
				_, err = fmt.Fprintf(w, labelFmt, l)
			} else {
				_, err = fmt.Fprint(w, labelSpace)
			}
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%06d %s\n", n, FormatInstruction(inst)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
