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
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/DrJosh9000/cardtalk/savedata"
	"github.com/DrJosh9000/cardtalk/script"
)

// ImportantPair holds the two cards of a binary decision. The decision is
// active only while both slots are filled.
type ImportantPair [2]CardKey

// Active reports whether both slots are filled.
func (p ImportantPair) Active() bool { return p[0] != "" && p[1] != "" }

// Other returns the pair member that isn't key.
func (p ImportantPair) Other(key CardKey) CardKey {
	if p[0] == key {
		return p[1]
	}
	return p[0]
}

// WaitTimer pauses the dialogue for a while. A zero WaitTimer is inactive.
type WaitTimer struct {
	Elapsed, Target time.Duration
}

// Active reports whether the timer is running.
func (w WaitTimer) Active() bool { return w.Target > 0 }

// Done reports whether the timer has run its course.
func (w WaitTimer) Done() bool { return w.Elapsed >= w.Target }

// History records which cards were chosen for which questions. It survives
// between runs via savedata.
type History map[QuestionID]map[CardKey]bool

// HistoryFromRecord converts persisted selections into a History.
func HistoryFromRecord(rec savedata.SelectedOptions) History {
	h := make(History, len(rec))
	for q, keys := range rec {
		for _, k := range keys {
			h.Add(QuestionID(q), CardKey(k))
		}
	}
	return h
}

// Add records that key was chosen for q. It reports whether the record is new.
func (h History) Add(q QuestionID, key CardKey) bool {
	set := h[q]
	if set == nil {
		set = make(map[CardKey]bool)
		h[q] = set
	}
	if set[key] {
		return false
	}
	set[key] = true
	return true
}

// Has reports whether key was chosen for q.
func (h History) Has(q QuestionID, key CardKey) bool { return h[q][key] }

// Record converts the History into its persisted form.
func (h History) Record() savedata.SelectedOptions {
	rec := make(savedata.SelectedOptions, len(h))
	for q, set := range h {
		keys := make([]string, 0, len(set))
		for _, k := range slices.Sorted(maps.Keys(set)) {
			keys = append(keys, string(k))
		}
		rec[uint64(q)] = keys
	}
	return rec
}

// Loader reads persisted progress.
type Loader interface {
	LoadEndings(context.Context) (savedata.Endings, error)
	LoadSelectedOptions(context.Context) (savedata.SelectedOptions, error)
}

// Saver writes persisted progress.
type Saver interface {
	SaveEndings(context.Context, savedata.Endings) error
	SaveSelectedOptions(context.Context, savedata.SelectedOptions) error
}

// State summarises what a session is waiting for.
type State int

const (
	StateIdle State = iota
	StatePaused
	StateWaitingContinue
	StateWaitingResponse
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePaused:
		return "Paused"
	case StateWaitingContinue:
		return "WaitingContinue"
	case StateWaitingResponse:
		return "WaitingResponse"
	case StateFinished:
		return "Finished"
	}
	return "(invalid State)"
}

// Session is the mutable state of one conversation. The Director changes it;
// the presenter reads it and writes only Selected and Previous (via Pick).
// Use NewSession to load saved progress; a zero Session starts afresh.
type Session struct {
	// WaitingContinue is set after a line is shown, until the player
	// advances.
	WaitingContinue bool

	// WaitingResponse is set while options are on offer, until one is
	// chosen.
	WaitingResponse bool

	// Selected is the card under the pointer now, Previous the one under it
	// on the tick before.
	Selected, Previous Handle

	ImportantPair ImportantPair

	// Question is the most recent question, if HasQuestion.
	Question    QuestionID
	HasQuestion bool

	// Fallback is the option index of the "other" phrasing in the current
	// offer, or -1.
	Fallback int

	History History
	Wait    WaitTimer
	Endings savedata.Endings

	// Present is who is on stage, per enter and exit commands.
	Present map[string]bool
	Drink   string

	Vars script.Variables

	// Finished is set when the script stops; Acknowledged once the player
	// has advanced past the end.
	Finished, Acknowledged bool
}

// NewSession returns a session primed with whatever progress l can provide.
// Load failures are logged and leave the corresponding state empty. l may be
// nil.
func NewSession(ctx context.Context, l Loader, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		Fallback: -1,
		History:  make(History),
		Present:  make(map[string]bool),
		Vars:     make(script.Variables),
	}
	if l == nil {
		return s
	}
	if e, err := l.LoadEndings(ctx); err != nil {
		logger.Warn("loading unlocked endings", "error", err)
	} else {
		s.Endings = e
	}
	if rec, err := l.LoadSelectedOptions(ctx); err != nil {
		logger.Warn("loading decision history", "error", err)
	} else {
		s.History = HistoryFromRecord(rec)
	}
	return s
}

// State summarises what the session is waiting for.
func (s *Session) State() State {
	switch {
	case s.Finished:
		return StateFinished
	case s.Wait.Active():
		return StatePaused
	case s.WaitingResponse:
		return StateWaitingResponse
	case s.WaitingContinue:
		return StateWaitingContinue
	}
	return StateIdle
}

// PreviouslyChosen reports whether key was chosen for the current question.
func (s *Session) PreviouslyChosen(key CardKey) bool {
	return s.HasQuestion && s.History.Has(s.Question, key)
}

// fill creates any maps a zero Session is missing.
func (s *Session) fill() {
	if s.History == nil {
		s.History = make(History)
	}
	if s.Present == nil {
		s.Present = make(map[string]bool)
	}
	if s.Vars == nil {
		s.Vars = make(script.Variables)
	}
}

func (s *Session) clearPointer() {
	s.Selected, s.Previous = NoHandle, NoHandle
}
