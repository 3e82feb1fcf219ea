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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TestPlan checks that a program produces specific lines, options, and
// commands, and makes the option selections the plan calls for. Plans use
// the Yarn Spinner .testplan format:
//
//	line: Hello
//	option: Yes
//	option: No
//	select: 1
//	command: wait 2
type TestPlan struct {
	Steps []TestStep
	Step  int

	dialogueCompleted bool
}

// TestStep is a step in a test plan.
type TestStep struct {
	Type     string
	Contents string
}

func (s TestStep) String() string { return s.Type + ": " + s.Contents }

// ReadTestPlan reads a testplan from an io.Reader.
func ReadTestPlan(r io.Reader) (*TestPlan, error) {
	var tp TestPlan
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		txt := strings.TrimSpace(sc.Text())
		if txt == "" || strings.HasPrefix(txt, "#") {
			continue
		}
		if strings.HasPrefix(txt, "stop") {
			// Superfluous stop at end of file
			break
		}
		typ, contents, ok := strings.Cut(txt, ":")
		if !ok {
			return nil, fmt.Errorf("malformed step %q", txt)
		}
		tp.Steps = append(tp.Steps, TestStep{
			Type:     strings.TrimSpace(typ),
			Contents: strings.TrimSpace(contents),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &tp, nil
}

// Run drives the interpreter until the program finishes, checking each event
// against the plan. Function calls are answered from funcs.
func (p *TestPlan) Run(in *Interpreter, vars VariableStorage, funcs FuncMap) error {
	for {
		ev, err := in.Advance(vars)
		if errors.Is(err, ErrFinished) {
			p.dialogueCompleted = true
			return p.Complete()
		}
		if err != nil {
			return err
		}
		switch ev := ev.(type) {
		case LineEvent:
			if err := p.line(in, ev.Line); err != nil {
				return err
			}
		case OptionsEvent:
			n, err := p.options(in, ev.Options)
			if err != nil {
				return err
			}
			if err := in.SelectOption(n); err != nil {
				return err
			}
		case CommandEvent:
			if err := p.expect("command", ev.Command); err != nil {
				return err
			}
		case FunctionCallEvent:
			res, err := funcs.Call(ev.Name, ev.Args)
			if err != nil {
				return err
			}
			if err := in.ResumeFunction(res...); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown event type %T", ev)
		}
	}
}

// Complete checks if the test plan was completed.
func (p *TestPlan) Complete() error {
	if p.Step != len(p.Steps) {
		return fmt.Errorf("on step %d %v", p.Step, p.Steps[p.Step])
	}
	if !p.dialogueCompleted {
		return errors.New("dialogue did not finish")
	}
	return nil
}

func (p *TestPlan) next(typ string) (TestStep, error) {
	if p.Step >= len(p.Steps) {
		return TestStep{}, fmt.Errorf("testplan got %s after end", typ)
	}
	step := p.Steps[p.Step]
	if step.Type != typ {
		return TestStep{}, fmt.Errorf("testplan got %s, want %q", typ, step.Type)
	}
	p.Step++
	return step, nil
}

func (p *TestPlan) expect(typ, got string) error {
	step, err := p.next(typ)
	if err != nil {
		return err
	}
	if got != step.Contents {
		return fmt.Errorf("testplan got %s %q, want %q", typ, got, step.Contents)
	}
	return nil
}

func (p *TestPlan) line(in *Interpreter, line Line) error {
	text, err := in.Text(line)
	if err != nil {
		return err
	}
	return p.expect("line", text)
}

func (p *TestPlan) options(in *Interpreter, opts []Option) (int, error) {
	for _, opt := range opts {
		text, err := in.Text(opt.Line)
		if err != nil {
			return 0, err
		}
		if err := p.expect("option", text); err != nil {
			return 0, err
		}
	}
	step, err := p.next("select")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(step.Contents)
	if err != nil {
		return 0, fmt.Errorf("converting testplan step to int: %w", err)
	}
	// Plans count options from 1.
	return n - 1, nil
}
