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

// Package dialogue turns script events into a game of cards. A Director is
// ticked once per frame: it pulls at most one event from the interpreter,
// keeps a Registry of option cards in step with what the script offers, and
// resolves the player's pick when they confirm.
package dialogue // import "github.com/DrJosh9000/cardtalk/dialogue"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/DrJosh9000/cardtalk/script"
)

// DefaultSaveTimeout bounds each write of persisted progress.
const DefaultSaveTimeout = 2 * time.Second

// DefaultSpeakers is the cast used when Director.Speakers is empty.
var DefaultSpeakers = []string{"Remie"}

// Input is what the player did during one frame.
type Input struct {
	// Advance is the "continue" action.
	Advance bool
	// Confirm is the "choose the selected card" action.
	Confirm bool
	// DT is the time since the previous tick.
	DT time.Duration
}

// Director drives an Interpreter on behalf of a Session and Registry.
type Director struct {
	Interpreter *script.Interpreter

	// Presenter receives display notices. If nil, NopPresenter is used.
	Presenter Presenter

	// Saver persists history and endings. May be nil.
	Saver Saver

	// FuncMap is merged over script.DefaultFuncMap.
	FuncMap script.FuncMap

	// Commands is merged over the built-in commands.
	Commands CommandMap

	// Speakers are the tags allowed before a ':' in a line.
	Speakers []string

	Logger      *slog.Logger
	SaveTimeout time.Duration

	once     sync.Once
	funcs    script.FuncMap
	commands CommandMap
	cast     map[string]bool
}

func (d *Director) init() {
	d.once.Do(func() {
		if d.Presenter == nil {
			d.Presenter = NopPresenter{}
		}
		if d.Logger == nil {
			d.Logger = slog.Default()
		}
		if d.SaveTimeout <= 0 {
			d.SaveTimeout = DefaultSaveTimeout
		}
		d.funcs = script.DefaultFuncMap().Merge(d.FuncMap)
		d.commands = d.builtinCommands().Merge(d.Commands)
		speakers := d.Speakers
		if len(speakers) == 0 {
			speakers = DefaultSpeakers
		}
		d.cast = make(map[string]bool, len(speakers))
		for _, sp := range speakers {
			d.cast[sp] = true
		}
	})
}

// Update advances the conversation by one frame. It pulls at most one event
// from the interpreter. A non-nil error means the script or this program is
// broken and the session cannot continue.
func (d *Director) Update(ctx context.Context, s *Session, r *Registry, in Input) error {
	if !d.Interpreter.Ready() {
		return nil
	}
	d.init()
	s.fill()

	if s.Finished {
		if in.Advance && !s.Acknowledged {
			s.Acknowledged = true
			d.Logger.Debug("end of dialogue acknowledged")
		}
		return nil
	}

	if s.Wait.Active() {
		s.Wait.Elapsed += in.DT
		if !s.Wait.Done() {
			return nil
		}
		s.Wait = WaitTimer{}
	}

	if s.WaitingResponse && in.Confirm && s.Selected != NoHandle {
		if err := d.resolve(ctx, s, r); err != nil {
			return err
		}
	}

	if in.Advance {
		s.WaitingContinue = false
	}
	if s.WaitingContinue || s.WaitingResponse {
		return nil
	}

	ev, err := d.Interpreter.Advance(s.Vars)
	if errors.Is(err, script.ErrFinished) {
		s.Finished = true
		d.Presenter.DialogueComplete()
		return nil
	}
	if err != nil {
		return fmt.Errorf("advancing script in node %q: %w", d.Interpreter.Node(), err)
	}

	switch ev := ev.(type) {
	case script.LineEvent:
		return d.handleLine(s, ev.Line)
	case script.OptionsEvent:
		return d.handleOptions(s, r, ev.Options)
	case script.CommandEvent:
		d.runCommand(ctx, s, r, ev.Command)
		return nil
	case script.FunctionCallEvent:
		results, err := d.funcs.Call(ev.Name, ev.Args)
		if err != nil {
			return fmt.Errorf("calling %s: %w", ev.Name, err)
		}
		if err := d.Interpreter.ResumeFunction(results...); err != nil {
			return fmt.Errorf("resuming after %s: %w", ev.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown event type %T", ev)
	}
}

func (d *Director) handleLine(s *Session, line script.Line) error {
	text, err := d.Interpreter.Text(line)
	if err != nil {
		return fmt.Errorf("rendering line: %w", err)
	}
	speaker, body, ok := SplitSpeaker(StripAnnotations(text), d.cast)
	if !ok {
		d.Logger.Warn("unknown speaker tag", "line", line.ID, "text", body)
	}
	question := strings.Contains(body, QuestionMarker)
	if question {
		s.Question, s.HasQuestion = QuestionIDOf(body), true
	}
	d.Presenter.SetDialogueText(speaker, body)
	if !question {
		s.WaitingContinue = true
	}
	return nil
}

func (d *Director) handleOptions(s *Session, r *Registry, opts []script.Option) error {
	r.unbindAll()
	s.ImportantPair = ImportantPair{}
	s.Fallback = -1
	important := 0

	for _, opt := range opts {
		if !opt.IsAvailable {
			d.Logger.Debug("skipping unavailable option", "option", opt.ID)
			continue
		}
		text, err := d.Interpreter.Text(opt.Line)
		if err != nil {
			return fmt.Errorf("rendering option %d: %w", opt.ID, err)
		}
		for _, ph := range SplitPhrasings(StripAnnotations(text)) {
			if ph.Fallback {
				s.Fallback = opt.ID
				continue
			}
			e, created := r.upsert(ph.Key)
			if !e.Live() {
				d.Logger.Debug("ignoring played card", "card", ph.Key)
				continue
			}
			e.Option, e.HasOption = opt.ID, true
			words := Tokenize(ph.Text, s.PreviouslyChosen(ph.Key))
			if created {
				d.Presenter.CardCreated(ph.Key)
			}
			if created || !slices.Equal(e.Words, words) {
				e.Words = words
				d.Logger.Debug("card words", "card", ph.Key, "option", opt.ID, "text", JoinWords(words))
				d.Presenter.CardWordsChanged(ph.Key, words)
			}
			if !ph.Important {
				continue
			}
			if important < len(s.ImportantPair) {
				s.ImportantPair[important] = ph.Key
			} else {
				d.Logger.Warn("too many important phrasings, ignoring", "card", ph.Key)
			}
			important++
		}
	}
	if s.Fallback >= 0 {
		r.bindUnbound(s.Fallback)
	}

	if len(r.Layout(s.ImportantPair)) == 0 {
		return d.breakSoftLock(s, opts)
	}
	s.WaitingResponse = true
	return nil
}

// breakSoftLock picks an option on the player's behalf when an offer
// produced no playable cards.
func (d *Director) breakSoftLock(s *Session, opts []script.Option) error {
	idx := s.Fallback
	if idx < 0 {
		idx = opts[0].ID
		for _, opt := range opts {
			if opt.IsAvailable {
				idx = opt.ID
				break
			}
		}
	}
	d.Logger.Warn("no playable cards on offer, choosing automatically", "option", idx)
	if err := d.Interpreter.SelectOption(idx); err != nil {
		return fmt.Errorf("selecting option %d: %w", idx, err)
	}
	return nil
}

// resolve plays the selected card.
func (d *Director) resolve(ctx context.Context, s *Session, r *Registry) error {
	key, found := r.KeyFor(s.Selected)
	if !found {
		d.Logger.Warn("selected object is not a card", "handle", s.Selected)
		return nil
	}
	pair := s.ImportantPair
	if !r.Selectable(key) || (pair.Active() && key != pair[0] && key != pair[1]) {
		d.Logger.Debug("card not selectable", "card", key)
		return nil
	}
	e := r.cards[key]
	if err := d.Interpreter.SelectOption(e.Option); err != nil {
		return fmt.Errorf("selecting option %d for %q: %w", e.Option, key, err)
	}

	if s.HasQuestion && s.History.Add(s.Question, key) {
		d.saveHistory(ctx, s)
	}
	if err := d.retire(r, key); err != nil {
		return err
	}
	if pair.Active() {
		if err := d.retire(r, pair.Other(key)); err != nil {
			return err
		}
		s.ImportantPair = ImportantPair{}
	}
	s.WaitingResponse = false
	s.clearPointer()
	return nil
}

// retire plays a card and tells the presenter.
func (d *Director) retire(r *Registry, key CardKey) error {
	played, err := r.play(key)
	if err != nil {
		return err
	}
	if played {
		d.Presenter.CardRemoved(key)
	}
	return nil
}

func (d *Director) saveHistory(ctx context.Context, s *Session) {
	if d.Saver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.SaveTimeout)
	defer cancel()
	if err := d.Saver.SaveSelectedOptions(ctx, s.History.Record()); err != nil {
		d.Logger.Warn("saving decision history", "error", err)
	}
}

func (d *Director) saveEndings(ctx context.Context, s *Session) {
	if d.Saver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.SaveTimeout)
	defer cancel()
	if err := d.Saver.SaveEndings(ctx, s.Endings); err != nil {
		d.Logger.Warn("saving unlocked endings", "error", err)
	}
}
