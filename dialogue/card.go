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
	"fmt"
	"strings"
)

// CardKey identifies one selectable option across repeated offers: the
// option phrasing without its important marker or parentheses, with
// whitespace collapsed. Phrasings that normalise to the same key are the same
// card.
type CardKey string

// NormalizeKey returns the CardKey for an option phrasing.
func NormalizeKey(phrasing string) CardKey {
	p := strings.TrimSpace(phrasing)
	p = strings.TrimPrefix(p, importantPrefix)
	p = strings.NewReplacer("(", "", ")", "").Replace(p)
	return CardKey(strings.Join(strings.Fields(p), " "))
}

// Handle is an opaque reference to the visual object the presenter created
// for a card. The zero Handle means "no card".
type Handle uint64

// NoHandle is the zero Handle.
const NoHandle Handle = 0

// WordKind says how a run of words on a card is styled.
type WordKind int

const (
	// Regular words are plain option text.
	Regular WordKind = iota
	// Varying words were drawn from a script variable.
	Varying
	// PreviouslySelected words belong to a card the player has picked for
	// this question before (in this run or an earlier one).
	PreviouslySelected
)

func (k WordKind) String() string {
	switch k {
	case Regular:
		return "Regular"
	case Varying:
		return "Varying"
	case PreviouslySelected:
		return "PreviouslySelected"
	}
	return fmt.Sprintf("(invalid WordKind %d)", k)
}

// WordSpan is a styled run of text on a card.
type WordSpan struct {
	Kind WordKind
	Text string
}

// Tokenize splits a phrasing into word spans. A parenthesised token, such as
// "(please)" or "(a coffee)", becomes one Varying span without its
// parentheses and with a trailing space. Runs of other words merge into one
// span, PreviouslySelected if chosen is set and Regular otherwise.
func Tokenize(phrasing string, chosen bool) []WordSpan {
	runKind := Regular
	if chosen {
		runKind = PreviouslySelected
	}
	var spans []WordSpan
	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		spans = append(spans, WordSpan{Kind: runKind, Text: strings.Join(run, " ")})
		run = nil
	}

	tokens := strings.Fields(phrasing)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "(") {
			run = append(run, tok)
			continue
		}
		// Find the closing parenthesis, which may be a few tokens on when a
		// substituted value has spaces in it.
		end := -1
		for j := i; j < len(tokens); j++ {
			if strings.HasSuffix(tokens[j], ")") && (j > i || len(tok) > 1) {
				end = j
				break
			}
		}
		if end < 0 {
			run = append(run, tok)
			continue
		}
		flush()
		inner := strings.Join(tokens[i:end+1], " ")
		inner = inner[1 : len(inner)-1]
		spans = append(spans, WordSpan{Kind: Varying, Text: inner + " "})
		i = end
	}
	flush()
	return spans
}

// JoinWords renders word spans back into plain text.
func JoinWords(words []WordSpan) string {
	var sb strings.Builder
	for _, w := range words {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.Text)
	}
	return strings.TrimSpace(sb.String())
}

// CardStatus is where a card is in its lifecycle.
type CardStatus int

const (
	// StatusNew cards exist in the registry but have no visual object yet.
	StatusNew CardStatus = iota
	// StatusRendered cards have a visual object (and a Handle).
	StatusRendered
	// StatusPlayed cards were chosen or discarded. Played is terminal; the
	// entry is kept so that late updates about it can be ignored.
	StatusPlayed
)

func (s CardStatus) String() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusRendered:
		return "Rendered"
	case StatusPlayed:
		return "Played"
	}
	return fmt.Sprintf("(invalid CardStatus %d)", s)
}

// ErrCardPlayed is returned when a played card is asked to change.
var ErrCardPlayed = errors.New("card already played")

// TransitionErr is returned for a card lifecycle change that isn't allowed.
type TransitionErr struct {
	Key      CardKey
	From, To CardStatus
}

func (e TransitionErr) Error() string {
	return fmt.Sprintf("card %q cannot go from %v to %v", e.Key, e.From, e.To)
}

func (e TransitionErr) Is(target error) bool {
	return target == ErrCardPlayed && e.From == StatusPlayed
}

// CardEntry is the registry's record of one card.
type CardEntry struct {
	Status CardStatus

	// Handle is set once the card is Rendered.
	Handle Handle

	// Option is the script option index this card selects. It is only
	// meaningful if HasOption is set.
	Option    int
	HasOption bool

	Words []WordSpan
}

// Live reports whether the card can still be played.
func (e *CardEntry) Live() bool { return e.Status != StatusPlayed }

// transition is the only place a card's status changes. Cards move
// New -> Rendered -> Played; a card retired before it was ever rendered
// (by discard, or by losing an important decision) goes New -> Played.
func (e *CardEntry) transition(key CardKey, to CardStatus, h Handle) error {
	switch {
	case e.Status == StatusNew && to == StatusRendered:
		e.Handle = h
	case e.Status == StatusNew && to == StatusPlayed,
		e.Status == StatusRendered && to == StatusPlayed:
		// the handle is kept so the presenter can find the object to remove
	default:
		return TransitionErr{Key: key, From: e.Status, To: to}
	}
	e.Status = to
	return nil
}
