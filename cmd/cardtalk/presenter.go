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

package main

import (
	"errors"
	"log/slog"

	"github.com/DrJosh9000/cardtalk/dialogue"
)

// renderFrames is how many frames a new card is on screen before it counts
// as rendered and can be picked.
const renderFrames = 1

type cardView struct {
	words  []dialogue.WordSpan
	handle dialogue.Handle
	frames int
}

// termPresenter collects display notices from the Director for the view to
// draw.
type termPresenter struct {
	speaker, body string
	cards         map[dialogue.CardKey]*cardView
	nextHandle    dialogue.Handle
	complete      bool
}

var _ dialogue.Presenter = (*termPresenter)(nil)

func newTermPresenter() *termPresenter {
	return &termPresenter{cards: make(map[dialogue.CardKey]*cardView)}
}

func (p *termPresenter) SetDialogueText(speaker, body string) {
	p.speaker, p.body = speaker, body
}

func (p *termPresenter) CardCreated(key dialogue.CardKey) {
	p.cards[key] = &cardView{}
}

func (p *termPresenter) CardWordsChanged(key dialogue.CardKey, words []dialogue.WordSpan) {
	if c := p.cards[key]; c != nil {
		c.words = words
	}
}

func (p *termPresenter) CardRemoved(key dialogue.CardKey) {
	delete(p.cards, key)
}

func (p *termPresenter) DialogueComplete() {
	p.complete = true
}

// settle hands out handles to cards that have been drawn for long enough.
func (p *termPresenter) settle(r *dialogue.Registry, log *slog.Logger) {
	for key, c := range p.cards {
		if c.handle != dialogue.NoHandle {
			continue
		}
		c.frames++
		if c.frames < renderFrames {
			continue
		}
		p.nextHandle++
		if err := r.MarkRendered(key, p.nextHandle); err != nil {
			if errors.Is(err, dialogue.ErrCardPlayed) {
				delete(p.cards, key)
				continue
			}
			log.Warn("card could not be rendered", "card", key, "error", err)
			continue
		}
		c.handle = p.nextHandle
	}
}
