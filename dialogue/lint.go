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

package dialogue

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	yarnpb "github.com/DrJosh9000/yarn/bytecode"

	"github.com/DrJosh9000/cardtalk/script"
)

// LintIssue is a content problem found by Lint.
type LintIssue struct {
	Node string
	PC   int
	Msg  string
}

func (i LintIssue) String() string {
	return fmt.Sprintf("%s:%d: %s", i.Node, i.PC, i.Msg)
}

// Lint checks a compiled program against the conventions Update relies on:
// every line exists in the table, speaker tags are in the cast, commands are
// known, and no offer has more than two important phrasings. Options are
// grouped by scanning each node in order, so options added on different
// branches before one SHOW_OPTIONS are counted together.
func (d *Director) Lint(prog *yarnpb.Program, lines *script.LineTable) []LintIssue {
	d.init()
	var issues []LintIssue
	for _, name := range slices.Sorted(maps.Keys(prog.Nodes)) {
		node := prog.Nodes[name]
		report := func(pc int, format string, args ...any) {
			issues = append(issues, LintIssue{Node: name, PC: pc, Msg: fmt.Sprintf(format, args...)})
		}
		important := 0
		for pc, inst := range node.Instructions {
			switch inst.Opcode {
			case yarnpb.Instruction_RUN_LINE:
				id := inst.Operands[0].GetStringValue()
				raw, err := lines.Raw(id)
				if err != nil {
					report(pc, "%v", err)
					continue
				}
				if _, _, ok := SplitSpeaker(StripAnnotations(raw), d.cast); !ok {
					report(pc, "line %q has an unknown speaker tag", id)
				}

			case yarnpb.Instruction_ADD_OPTION:
				id := inst.Operands[0].GetStringValue()
				raw, err := lines.Raw(id)
				if err != nil {
					report(pc, "%v", err)
					continue
				}
				for _, ph := range SplitPhrasings(StripAnnotations(raw)) {
					if ph.Important {
						important++
					}
				}

			case yarnpb.Instruction_SHOW_OPTIONS:
				if important > len(ImportantPair{}) {
					report(pc, "%d important phrasings on offer, at most %d allowed", important, len(ImportantPair{}))
				}
				important = 0

			case yarnpb.Instruction_RUN_COMMAND:
				cmd := inst.Operands[0].GetStringValue()
				verb, _, _ := strings.Cut(strings.TrimSpace(cmd), " ")
				if d.commands[verb] == nil {
					report(pc, "unknown command %q", cmd)
				}
			}
		}
	}
	return issues
}
