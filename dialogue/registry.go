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
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Registry holds every card offered during a run, keyed by CardKey. Entries
// are never removed: played cards stay so that late notices about them are
// recognised and ignored.
type Registry struct {
	cards   map[CardKey]*CardEntry
	handles map[Handle]CardKey
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		cards:   make(map[CardKey]*CardEntry),
		handles: make(map[Handle]CardKey),
	}
}

// Card returns a copy of the entry for key.
func (r *Registry) Card(key CardKey) (CardEntry, bool) {
	e, found := r.cards[key]
	if !found {
		return CardEntry{}, false
	}
	c := *e
	c.Words = slices.Clone(e.Words)
	return c, true
}

// Keys returns all keys in the registry, sorted.
func (r *Registry) Keys() []CardKey {
	return slices.Sorted(maps.Keys(r.cards))
}

// Live returns the keys of cards that are not yet played, sorted.
func (r *Registry) Live() []CardKey {
	var out []CardKey
	for _, k := range r.Keys() {
		if r.cards[k].Live() {
			out = append(out, k)
		}
	}
	return out
}

// MarkRendered records that the presenter has created a visual object for
// the card. It returns ErrCardPlayed (wrapped) for a card that was played in
// the meantime; the presenter should drop the object.
func (r *Registry) MarkRendered(key CardKey, h Handle) error {
	if h == NoHandle {
		return fmt.Errorf("card %q: zero handle", key)
	}
	e, found := r.cards[key]
	if !found {
		return fmt.Errorf("card %q not in registry", key)
	}
	if other, used := r.handles[h]; used && other != key {
		return fmt.Errorf("card %q: handle %d already belongs to %q", key, h, other)
	}
	if err := e.transition(key, StatusRendered, h); err != nil {
		return err
	}
	r.handles[h] = key
	return nil
}

// KeyFor returns the key of the card with the given handle.
func (r *Registry) KeyFor(h Handle) (CardKey, bool) {
	if h == NoHandle {
		return "", false
	}
	k, found := r.handles[h]
	return k, found
}

// Selectable reports whether the card can be chosen right now: it has been
// rendered, is not played, and is bound to an option.
func (r *Registry) Selectable(key CardKey) bool {
	e, found := r.cards[key]
	return found && e.Status == StatusRendered && e.HasOption
}

// Layout returns the cards the presenter should show, in order. While an
// important decision is active only its two cards are shown.
func (r *Registry) Layout(pair ImportantPair) []CardKey {
	if pair.Active() {
		var out []CardKey
		for _, k := range pair {
			if e, found := r.cards[k]; found && e.Live() {
				out = append(out, k)
			}
		}
		return out
	}
	var out []CardKey
	for k, e := range r.cards {
		if e.Live() && e.HasOption {
			out = append(out, k)
		}
	}
	slices.SortFunc(out, func(a, b CardKey) int {
		return cmp.Or(cmp.Compare(r.cards[a].Option, r.cards[b].Option), cmp.Compare(a, b))
	})
	return out
}

// upsert returns the entry for key, creating a New one if needed.
func (r *Registry) upsert(key CardKey) (e *CardEntry, created bool) {
	if e, found := r.cards[key]; found {
		return e, false
	}
	e = &CardEntry{Status: StatusNew}
	r.cards[key] = e
	return e, true
}

// unbindAll clears the option binding of every live card.
func (r *Registry) unbindAll() {
	for _, e := range r.cards {
		if e.Live() {
			e.Option, e.HasOption = 0, false
		}
	}
}

// bindUnbound binds every live card without an option to idx.
func (r *Registry) bindUnbound(idx int) {
	for _, e := range r.cards {
		if e.Live() && !e.HasOption {
			e.Option, e.HasOption = idx, true
		}
	}
}

// play moves one card to Played. It reports false if the card was absent or
// already played.
func (r *Registry) play(key CardKey) (bool, error) {
	e, found := r.cards[key]
	if !found || !e.Live() {
		return false, nil
	}
	if err := e.transition(key, StatusPlayed, NoHandle); err != nil {
		return false, err
	}
	return true, nil
}

// playAll moves every live card to Played, returning their keys.
func (r *Registry) playAll() ([]CardKey, error) {
	live := r.Live()
	for _, k := range live {
		if _, err := r.play(k); err != nil {
			return nil, err
		}
	}
	return live, nil
}
