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

// Line represents a line of dialogue.
type Line struct {
	// The string ID for the line.
	ID string
	// Values that should be interpolated into the user-facing text.
	Substitutions []string
}

// Option represents one option (among others) that the player could
// choose.
type Option struct {
	// A number identifying this option. If this option is selected, pass
	// this number to SelectOption.
	ID int

	// The line that should be presented for this option.
	Line Line

	// Name of the node to run if this option is selected.
	DestinationNode string

	// Indicates whether the player should be permitted to select the option,
	// e.g. for an option that the player _could_ have taken if they had
	// satisfied some prerequisite earlier on.
	IsAvailable bool
}

// Event is one narrative event produced by Interpreter.Advance. The concrete
// type is one of LineEvent, OptionsEvent, CommandEvent, or FunctionCallEvent.
type Event interface {
	scriptEvent()
}

// LineEvent is produced when the program runs a line of dialogue.
type LineEvent struct {
	Line Line
}

// OptionsEvent is produced when the program shows a set of options. The
// interpreter will not continue until SelectOption is called.
type OptionsEvent struct {
	Options []Option
}

// CommandEvent is produced when the program runs a command. Any {n}
// substitutions have already been applied.
type CommandEvent struct {
	Command string
}

// FunctionCallEvent is produced when the program calls a function. The
// interpreter will not continue until ResumeFunction is called with the
// result.
type FunctionCallEvent struct {
	Name string
	Args []any
}

func (LineEvent) scriptEvent()         {}
func (OptionsEvent) scriptEvent()      {}
func (CommandEvent) scriptEvent()      {}
func (FunctionCallEvent) scriptEvent() {}
