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

// Package script runs compiled Yarn Spinner programs one event at a time.
//
// Unlike a callback-driven virtual machine, Interpreter is a pull source:
// each call to Advance executes instructions until exactly one Event is
// produced, and the interpreter then sits still until the caller responds
// (SelectOption after options, ResumeFunction after a function call). This
// suits a game loop, which must keep rendering frames regardless of where the
// dialogue is up to.
package script // import "github.com/DrJosh9000/cardtalk/script"

import (
	"errors"
	"fmt"
	"strings"

	yarnpb "github.com/DrJosh9000/yarn/bytecode"
)

// Various sentinel errors.
var (
	// ErrFinished is returned by Advance once the program has stopped.
	ErrFinished = errors.New("dialogue finished")

	// ErrNoNodeSelected indicates Advance was called before SetNode.
	ErrNoNodeSelected = errors.New("no node selected to run")

	// ErrNilVariableStorage indicates Advance was passed nil storage.
	ErrNilVariableStorage = errors.New("nil variable storage")

	// ErrMissingProgram indicates the program hasn't been loaded.
	ErrMissingProgram = errors.New("missing or empty program")

	// ErrNoOptions indicates the program is invalid - it tried to show options
	// but none had been added.
	ErrNoOptions = errors.New("no options were added")

	// ErrStackUnderflow indicates the program tried to pop or peek when the
	// stack was empty.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrWrongType indicates the program needed a value of one type, but got
	// something else instead.
	ErrWrongType = errors.New("wrong type")

	// ErrType indicates the host supplied a function result that is not a
	// script value.
	ErrType = errors.New("type error")

	// Internal error for signifying a machine stop.
	errStop = errors.New("stopped")
)

// Phase enumerates what the interpreter is waiting for.
type Phase int32

const (
	// PhaseReady means Advance may be called.
	PhaseReady Phase = iota

	// PhaseAwaitingOption means an OptionsEvent was delivered and
	// SelectOption must be called next.
	PhaseAwaitingOption

	// PhaseAwaitingFunction means a FunctionCallEvent was delivered and
	// ResumeFunction must be called next.
	PhaseAwaitingFunction

	// PhaseFinished means the program has stopped.
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "Ready"
	case PhaseAwaitingOption:
		return "AwaitingOption"
	case PhaseAwaitingFunction:
		return "AwaitingFunction"
	case PhaseFinished:
		return "Finished"
	}
	return fmt.Sprintf("(invalid Phase %d)", p)
}

// ProtocolError is returned when the interpreter is driven out of order:
// SelectOption or ResumeFunction without the matching event, Advance while a
// response is outstanding, or an option index that was never offered. It
// always means the caller's state machine is broken.
type ProtocolError struct {
	// The method that was called.
	Op string
	// The interpreter was in phase Got, but Op requires phase Want.
	Got, Want Phase
	// Reason, if set, explains a failure that isn't a phase mismatch.
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s called while interpreter is %v, want %v", e.Op, e.Got, e.Want)
}

// Interpreter executes a compiled Yarn Spinner program.
type Interpreter struct {
	program *yarnpb.Program
	lines   *LineTable
	phase   Phase
	state   state

	// vars is only valid for the duration of one Advance.
	vars VariableStorage

	// TraceLogf, if set, receives a line per executed instruction.
	TraceLogf func(string, ...any)
}

// NewInterpreter returns an interpreter for the program and line table.
// Either may be nil, and supplied later with Load.
func NewInterpreter(prog *yarnpb.Program, lines *LineTable) *Interpreter {
	return &Interpreter{program: prog, lines: lines}
}

// Load replaces the program and line table. Execution state is reset; call
// SetNode before the next Advance.
func (in *Interpreter) Load(prog *yarnpb.Program, lines *LineTable) {
	in.program = prog
	in.lines = lines
	in.state = state{}
	in.phase = PhaseReady
}

// Ready reports whether both a non-empty program and a line table are loaded.
func (in *Interpreter) Ready() bool {
	return in != nil && in.program != nil && len(in.program.Nodes) > 0 && in.lines != nil
}

// Phase returns what the interpreter is waiting for.
func (in *Interpreter) Phase() Phase { return in.phase }

// Node returns the name of the running node, or "" if none.
func (in *Interpreter) Node() string {
	if in.state.node == nil {
		return ""
	}
	return in.state.node.Name
}

// Text renders a line using the loaded line table.
func (in *Interpreter) Text(line Line) (string, error) {
	if in.lines == nil {
		return "", ErrMissingProgram
	}
	return in.lines.Text(line)
}

// SetNode resets execution to the start of the named node.
func (in *Interpreter) SetNode(name string) error {
	if in.program == nil || len(in.program.Nodes) == 0 {
		return ErrMissingProgram
	}
	node, found := in.program.Nodes[name]
	if !found {
		return fmt.Errorf("node %q not found", name)
	}
	in.state = state{node: node}
	in.phase = PhaseReady
	return nil
}

// Advance executes the program until it produces the next event. Once the
// program stops, Advance returns ErrFinished.
func (in *Interpreter) Advance(vars VariableStorage) (Event, error) {
	switch in.phase {
	case PhaseFinished:
		return nil, ErrFinished
	case PhaseAwaitingOption, PhaseAwaitingFunction:
		return nil, &ProtocolError{Op: "Advance", Got: in.phase, Want: PhaseReady}
	}
	if !in.Ready() {
		return nil, ErrMissingProgram
	}
	if in.state.node == nil {
		return nil, ErrNoNodeSelected
	}
	if vars == nil {
		return nil, ErrNilVariableStorage
	}
	in.vars = vars
	defer func() { in.vars = nil }()

	for {
		if in.state.pc >= len(in.state.node.Instructions) {
			// Ran off the end of the node without a STOP.
			in.phase = PhaseFinished
			return nil, ErrFinished
		}
		inst := in.state.node.Instructions[in.state.pc]
		if in.TraceLogf != nil {
			in.TraceLogf("stack %v; options %d", in.state.stack, len(in.state.options))
			in.TraceLogf("% 15s %06d %s", in.state.node.Name, in.state.pc, FormatInstruction(inst))
		}
		ev, err := in.execute(inst)
		if err == errStop {
			in.phase = PhaseFinished
			return nil, ErrFinished
		}
		if err != nil {
			return nil, fmt.Errorf("%s %06d %s: %w", in.state.node.Name, in.state.pc, FormatInstruction(inst), err)
		}
		if ev != nil {
			return ev, nil
		}
	}
}

// SelectOption chooses one of the options from the most recent OptionsEvent.
// It must be called after that event and before the next Advance.
func (in *Interpreter) SelectOption(index int) error {
	if in.phase != PhaseAwaitingOption {
		return &ProtocolError{Op: "SelectOption", Got: in.phase, Want: PhaseAwaitingOption}
	}
	if n := len(in.state.options); index < 0 || index >= n {
		return &ProtocolError{
			Op:     "SelectOption",
			Got:    in.phase,
			Want:   PhaseAwaitingOption,
			Reason: fmt.Sprintf("option %d out of bounds [0, %d)", index, n),
		}
	}
	in.state.push(in.state.options[index].DestinationNode)
	in.state.options = nil
	in.state.pc++
	in.phase = PhaseReady
	return nil
}

// ResumeFunction supplies the result of the most recent FunctionCallEvent.
// Pass no results for a function that returns nothing.
func (in *Interpreter) ResumeFunction(results ...any) error {
	if in.phase != PhaseAwaitingFunction {
		return &ProtocolError{Op: "ResumeFunction", Got: in.phase, Want: PhaseAwaitingFunction}
	}
	switch len(results) {
	case 0:
		// void
	case 1:
		v, err := toValue(results[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrType, err)
		}
		in.state.push(v)
	default:
		return fmt.Errorf("%w: got %d results, want at most 1", ErrType, len(results))
	}
	in.phase = PhaseReady
	return nil
}

func (in *Interpreter) label(k string) (int, error) {
	pc, ok := in.state.node.Labels[k]
	if !ok {
		return 0, fmt.Errorf("unknown label %q in node %q", k, in.state.node.Name)
	}
	return int(pc), nil
}

func (in *Interpreter) execJumpTo(operands []*yarnpb.Operand) (Event, error) {
	// opA = string: label name
	pc, err := in.label(operands[0].GetStringValue())
	if err != nil {
		return nil, err
	}
	in.state.pc = pc
	return nil, nil
}

func (in *Interpreter) execJump([]*yarnpb.Operand) (Event, error) {
	// Peeks a label name from the stack.
	k, err := in.state.peekString()
	if err != nil {
		return nil, err
	}
	pc, err := in.label(k)
	if err != nil {
		return nil, err
	}
	in.state.pc = pc
	return nil, nil
}

func (in *Interpreter) execRunLine(operands []*yarnpb.Operand) (Event, error) {
	// opA = string: string ID
	// opB = number: count of substitutions on the stack (optional)
	line := Line{ID: operands[0].GetStringValue()}
	if len(operands) > 1 {
		n, err := operandToInt(operands[1])
		if err != nil {
			return nil, fmt.Errorf("operandToInt(opB): %w", err)
		}
		ss, err := in.state.popNStrings(n)
		if err != nil {
			return nil, fmt.Errorf("popNStrings(%d): %w", n, err)
		}
		line.Substitutions = ss
	}
	in.state.pc++
	return LineEvent{Line: line}, nil
}

func (in *Interpreter) execRunCommand(operands []*yarnpb.Operand) (Event, error) {
	// opA = string: command text
	// opB = number: count of substitutions on the stack (optional)
	cmd := operands[0].GetStringValue()
	if len(operands) > 1 {
		n, err := operandToInt(operands[1])
		if err != nil {
			return nil, fmt.Errorf("operandToInt(opB): %w", err)
		}
		ss, err := in.state.popNStrings(n)
		if err != nil {
			return nil, fmt.Errorf("popNStrings(%d): %w", n, err)
		}
		for i, s := range ss {
			cmd = strings.ReplaceAll(cmd, fmt.Sprintf("{%d}", i), s)
		}
	}
	in.state.pc++
	return CommandEvent{Command: cmd}, nil
}

func (in *Interpreter) execAddOption(operands []*yarnpb.Operand) (Event, error) {
	// opA = string: string ID for option to add
	// opB = string: destination node
	// opC = number: count of substitutions on the stack
	// opD = bool: whether a condition is on the stack
	line := Line{ID: operands[0].GetStringValue()}
	if len(operands) > 2 {
		n, err := operandToInt(operands[2])
		if err != nil {
			return nil, fmt.Errorf("operandToInt(opC): %w", err)
		}
		ss, err := in.state.popNStrings(n)
		if err != nil {
			return nil, fmt.Errorf("popNStrings(%d): %w", n, err)
		}
		line.Substitutions = ss
	}
	avail := true
	if len(operands) > 3 && operands[3].GetBoolValue() {
		cp, err := in.state.popBool()
		if err != nil {
			return nil, err
		}
		avail = cp
	}
	in.state.options = append(in.state.options, Option{
		ID:              len(in.state.options),
		Line:            line,
		DestinationNode: operands[1].GetStringValue(),
		IsAvailable:     avail,
	})
	in.state.pc++
	return nil, nil
}

func (in *Interpreter) execShowOptions([]*yarnpb.Operand) (Event, error) {
	// The PC stays put until SelectOption pushes the destination.
	if len(in.state.options) == 0 {
		return nil, ErrNoOptions
	}
	opts := make([]Option, len(in.state.options))
	copy(opts, in.state.options)
	in.phase = PhaseAwaitingOption
	return OptionsEvent{Options: opts}, nil
}

func (in *Interpreter) execPushString(operands []*yarnpb.Operand) (Event, error) {
	in.state.push(operands[0].GetStringValue())
	in.state.pc++
	return nil, nil
}

func (in *Interpreter) execPushFloat(operands []*yarnpb.Operand) (Event, error) {
	in.state.push(operands[0].GetFloatValue())
	in.state.pc++
	return nil, nil
}

func (in *Interpreter) execPushBool(operands []*yarnpb.Operand) (Event, error) {
	in.state.push(operands[0].GetBoolValue())
	in.state.pc++
	return nil, nil
}

func (in *Interpreter) execPushNull([]*yarnpb.Operand) (Event, error) {
	in.state.push(nil)
	in.state.pc++
	return nil, nil
}

func (in *Interpreter) execJumpIfFalse(operands []*yarnpb.Operand) (Event, error) {
	// Jumps if the top of the stack is null, zero, or false. Doesn't pop.
	x, err := in.state.peek()
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	b, err := convertToBool(x)
	if err != nil {
		return nil, fmt.Errorf("convertToBool: %w", err)
	}
	if b {
		in.state.pc++
		return nil, nil
	}
	pc, err := in.label(operands[0].GetStringValue())
	if err != nil {
		return nil, err
	}
	in.state.pc = pc
	return nil, nil
}

func (in *Interpreter) execPop([]*yarnpb.Operand) (Event, error) {
	if _, err := in.state.pop(); err != nil {
		return nil, fmt.Errorf("pop: %w", err)
	}
	in.state.pc++
	return nil, nil
}

func (in *Interpreter) execCallFunc(operands []*yarnpb.Operand) (Event, error) {
	// opA = string: name of the function
	// The compiler puts the arg count on top of the stack, args beneath.
	name := operands[0].GetStringValue()
	gotx, err := in.state.pop()
	if err != nil {
		return nil, fmt.Errorf("pop: %w", err)
	}
	argc, err := convertToInt(gotx)
	if err != nil {
		return nil, fmt.Errorf("convertToInt: %w", err)
	}
	if argc < 0 || argc > len(in.state.stack) {
		return nil, fmt.Errorf("%w [want %d args, have %d]", ErrStackUnderflow, argc, len(in.state.stack))
	}
	args := make([]any, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i], _ = in.state.pop()
	}
	in.state.pc++
	in.phase = PhaseAwaitingFunction
	return FunctionCallEvent{Name: name, Args: args}, nil
}

func (in *Interpreter) execPushVariable(operands []*yarnpb.Operand) (Event, error) {
	k := operands[0].GetStringValue()
	in.state.pc++
	if v, ok := in.vars.GetValue(k); ok {
		in.state.push(v)
		return nil, nil
	}
	// Is it provided as an initial value?
	w, ok := in.program.InitialValues[k]
	if !ok {
		// Yarn Spinner pushes null.
		in.state.push(nil)
		return nil, nil
	}
	switch x := w.Value.(type) {
	case *yarnpb.Operand_BoolValue:
		in.state.push(x.BoolValue)
	case *yarnpb.Operand_FloatValue:
		in.state.push(x.FloatValue)
	case *yarnpb.Operand_StringValue:
		in.state.push(x.StringValue)
	default:
		in.state.push(nil)
	}
	return nil, nil
}

func (in *Interpreter) execStoreVariable(operands []*yarnpb.Operand) (Event, error) {
	k := operands[0].GetStringValue()
	v, err := in.state.peek()
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	in.vars.SetValue(k, v)
	in.state.pc++
	return nil, nil
}

func (in *Interpreter) execStop([]*yarnpb.Operand) (Event, error) {
	return nil, errStop
}

func (in *Interpreter) execRunNode([]*yarnpb.Operand) (Event, error) {
	node, err := in.state.popString()
	if err != nil {
		return nil, fmt.Errorf("popString: %w", err)
	}
	if err := in.SetNode(node); err != nil {
		return nil, fmt.Errorf("SetNode: %w", err)
	}
	return nil, nil
}

var dispatchTable = []func(*Interpreter, []*yarnpb.Operand) (Event, error){
	yarnpb.Instruction_JUMP_TO:        (*Interpreter).execJumpTo,
	yarnpb.Instruction_JUMP:           (*Interpreter).execJump,
	yarnpb.Instruction_RUN_LINE:       (*Interpreter).execRunLine,
	yarnpb.Instruction_RUN_COMMAND:    (*Interpreter).execRunCommand,
	yarnpb.Instruction_ADD_OPTION:     (*Interpreter).execAddOption,
	yarnpb.Instruction_SHOW_OPTIONS:   (*Interpreter).execShowOptions,
	yarnpb.Instruction_PUSH_STRING:    (*Interpreter).execPushString,
	yarnpb.Instruction_PUSH_FLOAT:     (*Interpreter).execPushFloat,
	yarnpb.Instruction_PUSH_BOOL:      (*Interpreter).execPushBool,
	yarnpb.Instruction_PUSH_NULL:      (*Interpreter).execPushNull,
	yarnpb.Instruction_JUMP_IF_FALSE:  (*Interpreter).execJumpIfFalse,
	yarnpb.Instruction_POP:            (*Interpreter).execPop,
	yarnpb.Instruction_CALL_FUNC:      (*Interpreter).execCallFunc,
	yarnpb.Instruction_PUSH_VARIABLE:  (*Interpreter).execPushVariable,
	yarnpb.Instruction_STORE_VARIABLE: (*Interpreter).execStoreVariable,
	yarnpb.Instruction_STOP:           (*Interpreter).execStop,
	yarnpb.Instruction_RUN_NODE:       (*Interpreter).execRunNode,
}

func (in *Interpreter) execute(inst *yarnpb.Instruction) (Event, error) {
	if inst.Opcode < 0 || int(inst.Opcode) >= len(dispatchTable) {
		return nil, fmt.Errorf("invalid opcode %v", inst.Opcode)
	}
	exec := dispatchTable[inst.Opcode]
	if exec == nil {
		return nil, fmt.Errorf("invalid opcode %v", inst.Opcode)
	}
	return exec(in, inst.Operands)
}
