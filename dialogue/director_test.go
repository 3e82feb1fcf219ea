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
	"errors"
	"testing"
	"time"

	yarnpb "github.com/DrJosh9000/yarn/bytecode"
	"github.com/google/go-cmp/cmp"

	"github.com/DrJosh9000/cardtalk/savedata"
	"github.com/DrJosh9000/cardtalk/script"
)

// barProgram asks a question with three answers.
func barProgram() *yarnpb.Program {
	return newAsm().
		line("hello").
		offer("yes", "no", "other").
		branch("yes").line("yay").stop().
		branch("no").line("nay").stop().
		branch("other").line("meh").stop().
		program()
}

var barLines = map[string]string{
	"hello": "Remie: Hello [wave/]___",
	"yes":   "yes (please)",
	"no":    "no",
	"other": "other",
	"yay":   "Remie: Coming right up.",
	"nay":   "Remie: Suit yourself.",
	"meh":   "Remie: Hmm.",
}

func TestQuestionLine(t *testing.T) {
	h := newHarness(t, barProgram(), barLines)
	h.tick(Input{})

	want := []notice{{Op: "text", Speaker: "Remie", Body: "Hello ___"}}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if h.s.WaitingContinue {
		t.Error("WaitingContinue = true after a question, want false")
	}
	if !h.s.HasQuestion || h.s.Question != QuestionIDOf("Hello ___") {
		t.Errorf("Question = %v, %v; want %v, true", h.s.Question, h.s.HasQuestion, QuestionIDOf("Hello ___"))
	}
}

func TestOfferAndResolve(t *testing.T) {
	h := newHarness(t, barProgram(), barLines)
	h.tick(Input{})
	h.p.take()
	h.tick(Input{})

	yesWords := []WordSpan{{Kind: Regular, Text: "yes"}, {Kind: Varying, Text: "please "}}
	noWords := []WordSpan{{Kind: Regular, Text: "no"}}
	want := []notice{
		{Op: "created", Key: "yes please"},
		{Op: "words", Key: "yes please", Words: yesWords},
		{Op: "created", Key: "no"},
		{Op: "words", Key: "no", Words: noWords},
	}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}

	cards := map[CardKey]CardEntry{}
	for _, k := range h.r.Keys() {
		cards[k], _ = h.r.Card(k)
	}
	wantCards := map[CardKey]CardEntry{
		"yes please": {Status: StatusNew, Option: 0, HasOption: true, Words: yesWords},
		"no":         {Status: StatusNew, Option: 1, HasOption: true, Words: noWords},
	}
	if diff := cmp.Diff(cards, wantCards); diff != "" {
		t.Errorf("registry diff (-got +want):\n%s", diff)
	}
	if got, want := h.s.Fallback, 2; got != want {
		t.Errorf("Fallback = %d, want %d", got, want)
	}
	if !h.s.WaitingResponse {
		t.Error("WaitingResponse = false after options, want true")
	}

	// Confirm without a selection does nothing.
	h.render()
	h.tick(Input{Confirm: true})
	if !h.s.WaitingResponse {
		t.Error("WaitingResponse = false after empty confirm, want true")
	}

	h.choose("no")
	want = []notice{
		{Op: "removed", Key: "no"},
		{Op: "text", Speaker: "Remie", Body: "Suit yourself."},
	}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if got := h.status("no"); got != StatusPlayed {
		t.Errorf("status(no) = %v, want Played", got)
	}
	if got := h.status("yes please"); got != StatusRendered {
		t.Errorf("status(yes please) = %v, want Rendered", got)
	}
	if h.s.WaitingResponse || h.s.Selected != NoHandle || h.s.Previous != NoHandle {
		t.Errorf("after resolve: WaitingResponse = %v, Selected = %v, Previous = %v", h.s.WaitingResponse, h.s.Selected, h.s.Previous)
	}
	q := QuestionIDOf("Hello ___")
	wantSaved := []savedata.SelectedOptions{{uint64(q): {"no"}}}
	if diff := cmp.Diff(h.saver.selected, wantSaved); diff != "" {
		t.Errorf("saved history diff (-got +want):\n%s", diff)
	}

	// Continue to the end.
	h.tick(Input{})
	if h.s.Finished {
		t.Fatal("Finished without an advance")
	}
	h.tick(Input{Advance: true})
	if !h.s.Finished {
		t.Fatal("Finished = false after final advance")
	}
	if diff := cmp.Diff(h.p.take(), []notice{{Op: "complete"}}); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	h.tick(Input{Advance: true})
	if !h.s.Acknowledged {
		t.Error("Acknowledged = false after advancing past the end")
	}
	if got := h.s.State(); got != StateFinished {
		t.Errorf("State() = %v, want Finished", got)
	}
}

func TestPhrasingsShareOption(t *testing.T) {
	prog := newAsm().
		line("q").
		offer("drink", "none").
		branch("drink").line("drank").stop().
		branch("none").line("nothing").stop().
		program()
	lines := map[string]string{
		"q":       "Remie: What'll it be ___",
		"drink":   "coffee|tea (please)|other",
		"none":    "nothing",
		"drank":   "Remie: Here you go.",
		"nothing": "Remie: Fine.",
	}
	for _, key := range []CardKey{"coffee", "tea please"} {
		t.Run(string(key), func(t *testing.T) {
			h := newHarness(t, prog, lines)
			h.tick(Input{})
			h.tick(Input{})
			for _, k := range []CardKey{"coffee", "tea please"} {
				if c, _ := h.r.Card(k); c.Option != 0 || !c.HasOption {
					t.Errorf("Card(%q) option = %d, %v; want 0, true", k, c.Option, c.HasOption)
				}
			}
			if _, found := h.r.Card("other"); found {
				t.Error("Card(other) found, want the fallback never to be a card")
			}
			h.render()
			h.p.take()
			h.choose(key)
			want := []notice{
				{Op: "removed", Key: key},
				{Op: "text", Speaker: "Remie", Body: "Here you go."},
			}
			if diff := cmp.Diff(h.p.take(), want); diff != "" {
				t.Errorf("notices diff (-got +want):\n%s", diff)
			}
		})
	}
}

func TestFallbackBindsLeftoverCards(t *testing.T) {
	prog := newAsm().
		line("q1").
		offer("a", "b").
		branch("a").jumpTo("round2").
		branch("b").jumpTo("round2").
		label("round2").
		line("q2").
		offer("c", "other2").
		branch("c").line("gotc").stop().
		branch("other2").line("gotother").stop().
		program()
	lines := map[string]string{
		"q1":       "Remie: Pick one ___",
		"a":        "a",
		"b":        "b",
		"q2":       "Remie: And now ___",
		"c":        "c",
		"other2":   "other",
		"gotc":     "Remie: C it is.",
		"gotother": "Remie: Something else, then.",
	}
	h := newHarness(t, prog, lines)
	h.tick(Input{})
	h.tick(Input{})
	h.render()
	h.choose("a")
	h.tick(Input{})
	h.render()

	b, _ := h.r.Card("b")
	if b.Option != 1 || !b.HasOption {
		t.Errorf("Card(b) option = %d, %v; want fallback 1, true", b.Option, b.HasOption)
	}
	if diff := cmp.Diff(h.r.Layout(h.s.ImportantPair), []CardKey{"c", "b"}); diff != "" {
		t.Errorf("Layout diff (-got +want):\n%s", diff)
	}

	h.p.take()
	h.choose("b")
	want := []notice{
		{Op: "removed", Key: "b"},
		{Op: "text", Speaker: "Remie", Body: "Something else, then."},
	}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if !h.s.History.Has(QuestionIDOf("And now ___"), "b") {
		t.Error("History lacks b for the second question")
	}
}

func TestDiscard(t *testing.T) {
	prog := newAsm().
		line("q").
		offer("a", "b", "c").
		branch("a").jumpTo("after").
		branch("b").jumpTo("after").
		branch("c").jumpTo("after").
		label("after").
		command("discard").
		line("q2").
		offer("b2", "d").
		branch("b2").stop().
		branch("d").stop().
		program()
	lines := map[string]string{
		"q":  "Remie: Which ___",
		"a":  "a",
		"b":  "b",
		"c":  "c",
		"q2": "Remie: Again ___",
		"b2": "b",
		"d":  "d",
	}
	h := newHarness(t, prog, lines)
	h.tick(Input{})
	h.tick(Input{})
	h.render()
	h.p.take()
	h.choose("a")

	want := []notice{
		{Op: "removed", Key: "a"},
		{Op: "removed", Key: "b"},
		{Op: "removed", Key: "c"},
	}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	for _, k := range []CardKey{"a", "b", "c"} {
		if got := h.status(k); got != StatusPlayed {
			t.Errorf("status(%q) = %v, want Played", k, got)
		}
	}

	h.tick(Input{})
	h.tick(Input{})
	want = []notice{
		{Op: "text", Speaker: "Remie", Body: "Again ___"},
		{Op: "created", Key: "d"},
		{Op: "words", Key: "d", Words: []WordSpan{{Kind: Regular, Text: "d"}}},
	}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if got := h.status("b"); got != StatusPlayed {
		t.Errorf("status(b) = %v after re-offer, want Played", got)
	}
	if diff := cmp.Diff(h.r.Layout(h.s.ImportantPair), []CardKey{"d"}); diff != "" {
		t.Errorf("Layout diff (-got +want):\n%s", diff)
	}
}

func TestDiscardClearsPointer(t *testing.T) {
	h := newHarness(t, barProgram(), barLines)
	h.tick(Input{})
	h.tick(Input{})
	h.render()
	h.s.Selected, h.s.Previous = h.handles["no"], h.handles["yes please"]

	h.d.runCommand(context.Background(), h.s, h.r, "discard")

	if h.s.Selected != NoHandle || h.s.Previous != NoHandle {
		t.Errorf("Selected, Previous = %v, %v; want both cleared", h.s.Selected, h.s.Previous)
	}
	if diff := cmp.Diff(h.r.Live(), []CardKey(nil)); diff != "" {
		t.Errorf("Live diff (-got +want):\n%s", diff)
	}
}

func TestWait(t *testing.T) {
	prog := newAsm().command("wait 2.5").line("after").stop().program()
	h := newHarness(t, prog, map[string]string{"after": "Remie: Done waiting."})

	h.tick(Input{})
	if got, want := h.s.Wait, (WaitTimer{Target: 2500 * time.Millisecond}); got != want {
		t.Fatalf("Wait = %+v, want %+v", got, want)
	}
	if got := h.s.State(); got != StatePaused {
		t.Errorf("State() = %v, want Paused", got)
	}

	for _, dt := range []time.Duration{time.Second, time.Second, 400 * time.Millisecond} {
		h.tick(Input{DT: dt, Advance: true})
		if n := h.p.take(); len(n) != 0 {
			t.Fatalf("notices at elapsed %v = %v, want none", h.s.Wait.Elapsed, n)
		}
	}
	if got, want := h.s.Wait.Elapsed, 2400*time.Millisecond; got != want {
		t.Errorf("Wait.Elapsed = %v, want %v", got, want)
	}

	h.tick(Input{DT: 100 * time.Millisecond})
	want := []notice{{Op: "text", Speaker: "Remie", Body: "Done waiting."}}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if h.s.Wait.Active() {
		t.Error("Wait still active after expiry")
	}
}

func TestImportantPair(t *testing.T) {
	prog := newAsm().
		line("q").
		offer("stay", "go", "chat").
		branch("stay").line("end").stop().
		branch("go").line("end").stop().
		branch("chat").line("end").stop().
		program()
	lines := map[string]string{
		"q":    "Remie: Now or never ___",
		"stay": "!stay",
		"go":   "!go",
		"chat": "chat",
		"end":  "Remie: So be it.",
	}
	h := newHarness(t, prog, lines)
	h.tick(Input{})
	h.tick(Input{})
	h.render()

	if got, want := h.s.ImportantPair, (ImportantPair{"stay", "go"}); got != want {
		t.Errorf("ImportantPair = %v, want %v", got, want)
	}
	if diff := cmp.Diff(h.r.Layout(h.s.ImportantPair), []CardKey{"stay", "go"}); diff != "" {
		t.Errorf("Layout diff (-got +want):\n%s", diff)
	}

	// Cards outside the pair can't be chosen.
	h.choose("chat")
	if !h.s.WaitingResponse {
		t.Fatal("choosing a card outside the pair resolved the options")
	}

	h.p.take()
	h.choose("go")
	want := []notice{
		{Op: "removed", Key: "go"},
		{Op: "removed", Key: "stay"},
		{Op: "text", Speaker: "Remie", Body: "So be it."},
	}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if h.s.ImportantPair.Active() {
		t.Error("ImportantPair still active after resolution")
	}
	if got := h.status("chat"); got != StatusRendered {
		t.Errorf("status(chat) = %v, want Rendered", got)
	}
}

func TestImportantPairLimits(t *testing.T) {
	tests := []struct {
		name       string
		lines      map[string]string
		wantPair   ImportantPair
		wantLayout []CardKey
	}{
		{
			name:       "third ignored",
			lines:      map[string]string{"q": "Remie: Hm ___", "x": "!stay|!go|!maybe", "y": "chat"},
			wantPair:   ImportantPair{"stay", "go"},
			wantLayout: []CardKey{"stay", "go"},
		},
		{
			name:       "single is inactive",
			lines:      map[string]string{"q": "Remie: Hm ___", "x": "!stay", "y": "go"},
			wantPair:   ImportantPair{"stay", ""},
			wantLayout: []CardKey{"stay", "go"},
		},
	}
	prog := newAsm().line("q").offer("x", "y").branch("x").stop().branch("y").stop().program()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t, prog, test.lines)
			h.tick(Input{})
			h.tick(Input{})
			if h.s.ImportantPair != test.wantPair {
				t.Errorf("ImportantPair = %v, want %v", h.s.ImportantPair, test.wantPair)
			}
			if diff := cmp.Diff(h.r.Layout(h.s.ImportantPair), test.wantLayout); diff != "" {
				t.Errorf("Layout diff (-got +want):\n%s", diff)
			}
		})
	}
}

func TestSoftLockGuard(t *testing.T) {
	prog := newAsm().
		line("q").
		offer("a").
		branch("a").jumpTo("round2").
		label("round2").
		line("q2").
		offer("a2").
		branch("a2").line("end").stop().
		program()
	lines := map[string]string{
		"q":   "Remie: Pick ___",
		"a":   "a",
		"q2":  "Remie: Again ___",
		"a2":  "a",
		"end": "Remie: Auto.",
	}
	h := newHarness(t, prog, lines)
	h.tick(Input{})
	h.tick(Input{})
	h.render()
	h.choose("a")
	h.tick(Input{})
	if h.s.WaitingResponse {
		t.Fatal("WaitingResponse = true with no playable cards")
	}
	h.p.take()
	h.tick(Input{})
	want := []notice{{Op: "text", Speaker: "Remie", Body: "Auto."}}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
}

func TestUnavailableOptionSkipped(t *testing.T) {
	a := newAsm().line("q")
	a.op(yarnpb.Instruction_PUSH_BOOL, boolean(false))
	a.op(yarnpb.Instruction_ADD_OPTION, str("locked"), str("L_locked"), num(0), boolean(true))
	prog := a.offer("open").branch("locked").stop().branch("open").stop().program()
	h := newHarness(t, prog, map[string]string{"q": "Remie: Door ___", "locked": "unlock", "open": "open"})
	h.tick(Input{})
	h.tick(Input{})
	if _, found := h.r.Card("unlock"); found {
		t.Error("Card(unlock) found for an unavailable option")
	}
	if c, _ := h.r.Card("open"); c.Option != 1 {
		t.Errorf("Card(open).Option = %d, want 1", c.Option)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := savedata.NewStore(savedata.NewMemory(), testLogger())

	h := newHarness(t, barProgram(), barLines)
	h.d.Saver = store
	h.tick(Input{})
	h.tick(Input{})
	h.render()
	h.choose("no")

	// A new run with the same store.
	h2 := newHarness(t, barProgram(), barLines)
	h2.s = NewSession(ctx, store, testLogger())
	h2.tick(Input{})
	h2.tick(Input{})
	no, _ := h2.r.Card("no")
	if diff := cmp.Diff(no.Words, []WordSpan{{Kind: PreviouslySelected, Text: "no"}}); diff != "" {
		t.Errorf("Card(no).Words diff (-got +want):\n%s", diff)
	}
	yes, _ := h2.r.Card("yes please")
	if diff := cmp.Diff(yes.Words, []WordSpan{{Kind: Regular, Text: "yes"}, {Kind: Varying, Text: "please "}}); diff != "" {
		t.Errorf("Card(yes please).Words diff (-got +want):\n%s", diff)
	}
}

func TestSaveFailureNotFatal(t *testing.T) {
	h := newHarness(t, barProgram(), barLines)
	h.saver.err = errors.New("disk on fire")
	h.tick(Input{})
	h.tick(Input{})
	h.render()
	h.choose("yes please")
	if !h.s.History.Has(QuestionIDOf("Hello ___"), "yes please") {
		t.Error("History lost the selection after a failed save")
	}
	if len(h.saver.selected) != 1 {
		t.Errorf("save attempts = %d, want 1", len(h.saver.selected))
	}
}

func TestCommands(t *testing.T) {
	a := newAsm().
		command("ending 2").
		command("ending 9").
		command("ending 2").
		command("frobnicate").
		command("enter Sam").
		command("drink mead").
		command("wait soon")
	a.op(yarnpb.Instruction_PUSH_VARIABLE, str("$drink"))
	a.op(yarnpb.Instruction_RUN_LINE, str("serve"), num(1))
	prog := a.stop().program()
	h := newHarness(t, prog, map[string]string{"serve": "Remie: One {0}, coming up."})

	for range 8 {
		h.tick(Input{})
	}
	want := []notice{{Op: "text", Speaker: "Remie", Body: "One mead, coming up."}}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if got, want := h.s.Endings, (savedata.Endings{false, false, true, false}); got != want {
		t.Errorf("Endings = %v, want %v", got, want)
	}
	if diff := cmp.Diff(h.saver.endings, []savedata.Endings{{false, false, true, false}}); diff != "" {
		t.Errorf("saved endings diff (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(h.s.Present, map[string]bool{"Sam": true}); diff != "" {
		t.Errorf("Present diff (-got +want):\n%s", diff)
	}
	if h.s.Wait.Active() {
		t.Error("malformed wait started the timer")
	}
}

func TestHostCommand(t *testing.T) {
	var got []string
	prog := newAsm().command("shake hard").line("l").stop().program()
	h := newHarness(t, prog, map[string]string{"l": "Remie: Whoa."})
	h.d.Commands = CommandMap{
		"shake": func(_ context.Context, _ *Session, _ *Registry, args []string) error {
			got = args
			return nil
		},
	}
	h.tick(Input{})
	if diff := cmp.Diff(got, []string{"hard"}); diff != "" {
		t.Errorf("shake args diff (-got +want):\n%s", diff)
	}
}

func TestFunctionCalls(t *testing.T) {
	a := newAsm()
	a.op(yarnpb.Instruction_PUSH_FLOAT, num(2))
	a.op(yarnpb.Instruction_PUSH_FLOAT, num(1))
	a.op(yarnpb.Instruction_CALL_FUNC, str("Double"))
	a.op(yarnpb.Instruction_RUN_LINE, str("result"), num(1))
	prog := a.stop().program()
	lines := map[string]string{"result": "Remie: Twice is {0}."}

	h := newHarness(t, prog, lines)
	h.d.FuncMap = script.FuncMap{"Double": func(x float32) float32 { return 2 * x }}
	h.tick(Input{})
	h.tick(Input{})
	want := []notice{{Op: "text", Speaker: "Remie", Body: "Twice is 4."}}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}

	h = newHarness(t, prog, lines)
	err := h.d.Update(context.Background(), h.s, h.r, Input{})
	if !errors.Is(err, script.ErrUnresolvedFunction) {
		t.Errorf("Update() error = %v, want %v", err, script.ErrUnresolvedFunction)
	}
}

func TestFatalErrors(t *testing.T) {
	h := newHarness(t, newAsm().line("missing").stop().program(), map[string]string{})
	err := h.d.Update(context.Background(), h.s, h.r, Input{})
	if !errors.Is(err, script.ErrMissingLineID) {
		t.Errorf("Update() error = %v, want %v", err, script.ErrMissingLineID)
	}
}

func TestUnknownSpeaker(t *testing.T) {
	prog := newAsm().line("l").line("n").stop().program()
	h := newHarness(t, prog, map[string]string{"l": "Bob: Hi there.", "n": "The bar is quiet."})
	h.tick(Input{})
	h.tick(Input{Advance: true})
	want := []notice{
		{Op: "text", Body: "Bob: Hi there."},
		{Op: "text", Body: "The bar is quiet."},
	}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}

	h = newHarness(t, prog, map[string]string{"l": "Bob: Hi there.", "n": "x"})
	h.d.Speakers = []string{"Bob"}
	h.tick(Input{})
	want = []notice{{Op: "text", Speaker: "Bob", Body: "Hi there."}}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
}

func TestOneEventPerTick(t *testing.T) {
	prog := newAsm().line("a").line("b").stop().program()
	h := newHarness(t, prog, map[string]string{"a": "One.", "b": "Two."})
	h.tick(Input{})
	h.tick(Input{})
	h.tick(Input{})
	if diff := cmp.Diff(h.p.take(), []notice{{Op: "text", Body: "One."}}); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if got := h.s.State(); got != StateWaitingContinue {
		t.Errorf("State() = %v, want WaitingContinue", got)
	}
	h.tick(Input{Advance: true})
	if diff := cmp.Diff(h.p.take(), []notice{{Op: "text", Body: "Two."}}); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
}

func TestNotReady(t *testing.T) {
	d := &Director{Interpreter: script.NewInterpreter(nil, nil)}
	s := NewSession(context.Background(), nil, testLogger())
	if err := d.Update(context.Background(), s, NewRegistry(), Input{Advance: true}); err != nil {
		t.Errorf("Update() error = %v, want nil", err)
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("State() = %v, want Idle", got)
	}
}

func TestReofferIsIdempotent(t *testing.T) {
	h := newHarness(t, barProgram(), barLines)
	h.tick(Input{})
	h.tick(Input{})
	h.render()
	h.p.take()
	if _, err := h.r.play("no"); err != nil {
		t.Fatalf("play(no) error = %v", err)
	}

	snapshot := func() map[CardKey]CardEntry {
		m := make(map[CardKey]CardEntry)
		for _, k := range h.r.Keys() {
			m[k], _ = h.r.Card(k)
		}
		return m
	}
	before := snapshot()

	opts := []script.Option{
		{ID: 0, Line: script.Line{ID: "yes"}, DestinationNode: "L_yes", IsAvailable: true},
		{ID: 1, Line: script.Line{ID: "no"}, DestinationNode: "L_no", IsAvailable: true},
		{ID: 2, Line: script.Line{ID: "other"}, DestinationNode: "L_other", IsAvailable: true},
	}
	if err := h.d.handleOptions(h.s, h.r, opts); err != nil {
		t.Fatalf("handleOptions() error = %v", err)
	}

	if diff := cmp.Diff(h.p.take(), []notice(nil)); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot(), before); diff != "" {
		t.Errorf("registry diff (-got +want):\n%s", diff)
	}
	if got := h.status("no"); got != StatusPlayed {
		t.Errorf("status(no) = %v after re-offer, want Played", got)
	}
	if got, want := h.s.Fallback, 2; got != want {
		t.Errorf("Fallback = %d, want %d", got, want)
	}
}

func TestZeroSession(t *testing.T) {
	a := newAsm().
		command("enter Sam").
		command("drink mead")
	a.op(yarnpb.Instruction_PUSH_VARIABLE, str("$drink"))
	a.op(yarnpb.Instruction_RUN_LINE, str("serve"), num(1))
	prog := a.stop().program()
	h := newHarness(t, prog, map[string]string{"serve": "Remie: One {0}, coming up."})
	h.s = &Session{}

	for range 3 {
		h.tick(Input{})
	}
	want := []notice{{Op: "text", Speaker: "Remie", Body: "One mead, coming up."}}
	if diff := cmp.Diff(h.p.take(), want); diff != "" {
		t.Errorf("notices diff (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(h.s.Present, map[string]bool{"Sam": true}); diff != "" {
		t.Errorf("Present diff (-got +want):\n%s", diff)
	}
}
