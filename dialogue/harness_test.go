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
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"testing"

	yarnpb "github.com/DrJosh9000/yarn/bytecode"

	"github.com/DrJosh9000/cardtalk/savedata"
	"github.com/DrJosh9000/cardtalk/script"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func str(s string) *yarnpb.Operand {
	return &yarnpb.Operand{Value: &yarnpb.Operand_StringValue{StringValue: s}}
}

func num(f float32) *yarnpb.Operand {
	return &yarnpb.Operand{Value: &yarnpb.Operand_FloatValue{FloatValue: f}}
}

func boolean(b bool) *yarnpb.Operand {
	return &yarnpb.Operand{Value: &yarnpb.Operand_BoolValue{BoolValue: b}}
}

// asm assembles a single-node program.
type asm struct {
	node *yarnpb.Node
}

func newAsm() *asm {
	return &asm{node: &yarnpb.Node{Name: "Start", Labels: make(map[string]int32)}}
}

func (a *asm) op(code yarnpb.Instruction_OpCode, operands ...*yarnpb.Operand) *asm {
	a.node.Instructions = append(a.node.Instructions, &yarnpb.Instruction{Opcode: code, Operands: operands})
	return a
}

func (a *asm) label(name string) *asm {
	a.node.Labels[name] = int32(len(a.node.Instructions))
	return a
}

func (a *asm) line(id string) *asm { return a.op(yarnpb.Instruction_RUN_LINE, str(id)) }
func (a *asm) command(cmd string) *asm { return a.op(yarnpb.Instruction_RUN_COMMAND, str(cmd)) }
func (a *asm) jumpTo(label string) *asm { return a.op(yarnpb.Instruction_JUMP_TO, str(label)) }
func (a *asm) stop() *asm { return a.op(yarnpb.Instruction_STOP) }
func (a *asm) branch(optID string) *asm { return a.label("L_" + optID).op(yarnpb.Instruction_POP) }
func (a *asm) program() *yarnpb.Program { return &yarnpb.Program{Name: "test", Nodes: map[string]*yarnpb.Node{"Start": a.node}} }

// offer adds an option per line ID, each jumping to label "L_<id>", and
// shows them.
func (a *asm) offer(ids ...string) *asm {
	for _, id := range ids {
		a.op(yarnpb.Instruction_ADD_OPTION, str(id), str("L_"+id), num(0), boolean(false))
	}
	return a.op(yarnpb.Instruction_SHOW_OPTIONS).op(yarnpb.Instruction_JUMP)
}

func lineTable(t *testing.T, lines map[string]string) *script.LineTable {
	t.Helper()
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{"id", "text", "file", "node", "lineNumber"})
	for i, id := range slices.Sorted(maps.Keys(lines)) {
		w.Write([]string{id, lines[id], "test.yarn", "Start", strconv.Itoa(i + 1)})
	}
	w.Flush()
	lt, err := script.ReadLineTable(strings.NewReader(sb.String()), "en")
	if err != nil {
		t.Fatalf("ReadLineTable() error = %v", err)
	}
	return lt
}

type notice struct {
	Op            string
	Key           CardKey
	Speaker, Body string
	Words         []WordSpan
}

type fakePresenter struct {
	notices []notice
}

func (p *fakePresenter) SetDialogueText(speaker, body string) {
	p.notices = append(p.notices, notice{Op: "text", Speaker: speaker, Body: body})
}

func (p *fakePresenter) CardCreated(key CardKey) {
	p.notices = append(p.notices, notice{Op: "created", Key: key})
}

func (p *fakePresenter) CardWordsChanged(key CardKey, words []WordSpan) {
	p.notices = append(p.notices, notice{Op: "words", Key: key, Words: words})
}

func (p *fakePresenter) CardRemoved(key CardKey) {
	p.notices = append(p.notices, notice{Op: "removed", Key: key})
}

func (p *fakePresenter) DialogueComplete() {
	p.notices = append(p.notices, notice{Op: "complete"})
}

// take returns the notices since the last take.
func (p *fakePresenter) take() []notice {
	n := p.notices
	p.notices = nil
	return n
}

type fakeSaver struct {
	err      error
	endings  []savedata.Endings
	selected []savedata.SelectedOptions
}

func (s *fakeSaver) SaveEndings(_ context.Context, e savedata.Endings) error {
	s.endings = append(s.endings, e)
	return s.err
}

func (s *fakeSaver) SaveSelectedOptions(_ context.Context, so savedata.SelectedOptions) error {
	s.selected = append(s.selected, so)
	return s.err
}

type harness struct {
	t       *testing.T
	d       *Director
	s       *Session
	r       *Registry
	p       *fakePresenter
	saver   *fakeSaver
	handles map[CardKey]Handle
	next    Handle
}

func newHarness(t *testing.T, prog *yarnpb.Program, lines map[string]string) *harness {
	t.Helper()
	in := script.NewInterpreter(prog, lineTable(t, lines))
	if err := in.SetNode("Start"); err != nil {
		t.Fatalf("SetNode(Start) error = %v", err)
	}
	p := &fakePresenter{}
	sv := &fakeSaver{}
	return &harness{
		t:       t,
		d:       &Director{Interpreter: in, Presenter: p, Saver: sv, Logger: testLogger()},
		s:       NewSession(context.Background(), nil, testLogger()),
		r:       NewRegistry(),
		p:       p,
		saver:   sv,
		handles: make(map[CardKey]Handle),
	}
}

func (h *harness) tick(in Input) {
	h.t.Helper()
	if err := h.d.Update(context.Background(), h.s, h.r, in); err != nil {
		h.t.Fatalf("Update(%+v) error = %v", in, err)
	}
}

// render gives every New card a handle, as a presenter would.
func (h *harness) render() {
	h.t.Helper()
	for _, k := range h.r.Live() {
		if c, _ := h.r.Card(k); c.Status != StatusNew {
			continue
		}
		h.next++
		if err := h.r.MarkRendered(k, h.next); err != nil {
			h.t.Fatalf("MarkRendered(%q, %d) error = %v", k, h.next, err)
		}
		h.handles[k] = h.next
	}
}

// choose points at a card and confirms.
func (h *harness) choose(key CardKey) {
	h.t.Helper()
	hd, found := h.handles[key]
	if !found {
		h.t.Fatalf("card %q was never rendered", key)
	}
	h.s.Selected = hd
	h.tick(Input{Confirm: true})
}

func (h *harness) status(key CardKey) CardStatus {
	h.t.Helper()
	c, found := h.r.Card(key)
	if !found {
		h.t.Fatalf("card %q not in registry", key)
	}
	return c.Status
}
