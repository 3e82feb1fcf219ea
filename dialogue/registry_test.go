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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarkRendered(t *testing.T) {
	r := NewRegistry()
	r.upsert("a")
	r.upsert("b")

	if err := r.MarkRendered("a", 1); err != nil {
		t.Fatalf("MarkRendered(a, 1) error = %v", err)
	}
	if k, found := r.KeyFor(1); !found || k != "a" {
		t.Errorf("KeyFor(1) = %q, %v; want a, true", k, found)
	}
	if err := r.MarkRendered("a", 2); err == nil {
		t.Error("MarkRendered(a) twice error = nil, want error")
	}
	if err := r.MarkRendered("b", 1); err == nil {
		t.Error("MarkRendered(b, 1) with a used handle error = nil, want error")
	}
	if err := r.MarkRendered("b", NoHandle); err == nil {
		t.Error("MarkRendered(b, NoHandle) error = nil, want error")
	}
	if err := r.MarkRendered("nope", 3); err == nil {
		t.Error("MarkRendered(nope) error = nil, want error")
	}
	if _, found := r.KeyFor(NoHandle); found {
		t.Error("KeyFor(NoHandle) found a card")
	}

	// A card played before it was rendered.
	if _, err := r.play("b"); err != nil {
		t.Fatalf("play(b) error = %v", err)
	}
	if err := r.MarkRendered("b", 3); !errors.Is(err, ErrCardPlayed) {
		t.Errorf("MarkRendered(played b) error = %v, want %v", err, ErrCardPlayed)
	}
}

func TestLayoutOrder(t *testing.T) {
	r := NewRegistry()
	for key, opt := range map[CardKey]int{"zeta": 0, "alpha": 1, "beta": 0, "gone": 2, "loose": -1} {
		e, _ := r.upsert(key)
		if opt >= 0 {
			e.Option, e.HasOption = opt, true
		}
	}
	r.play("gone")

	if diff := cmp.Diff(r.Layout(ImportantPair{}), []CardKey{"beta", "zeta", "alpha"}); diff != "" {
		t.Errorf("Layout diff (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(r.Layout(ImportantPair{"alpha", "zeta"}), []CardKey{"alpha", "zeta"}); diff != "" {
		t.Errorf("Layout(pair) diff (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(r.Live(), []CardKey{"alpha", "beta", "loose", "zeta"}); diff != "" {
		t.Errorf("Live diff (-got +want):\n%s", diff)
	}
}

func TestCardIsCopy(t *testing.T) {
	r := NewRegistry()
	e, _ := r.upsert("a")
	e.Words = []WordSpan{{Regular, "a"}}
	c, _ := r.Card("a")
	c.Words[0].Text = "changed"
	c.Status = StatusPlayed
	if got, _ := r.Card("a"); got.Words[0].Text != "a" || got.Status != StatusNew {
		t.Errorf("Card(a) = %+v after modifying a copy", got)
	}
}

func TestHistoryRecord(t *testing.T) {
	h := make(History)
	if !h.Add(7, "yes") {
		t.Error("Add(7, yes) = false, want true")
	}
	if h.Add(7, "yes") {
		t.Error("second Add(7, yes) = true, want false")
	}
	h.Add(7, "a coffee")
	h.Add(9, "no")

	rec := h.Record()
	want := map[uint64][]string{7: {"a coffee", "yes"}, 9: {"no"}}
	if diff := cmp.Diff(map[uint64][]string(rec), want); diff != "" {
		t.Errorf("Record diff (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(HistoryFromRecord(rec), h); diff != "" {
		t.Errorf("HistoryFromRecord(Record()) diff (-got +want):\n%s", diff)
	}
}
