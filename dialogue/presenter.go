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

// Presenter receives notices from the Director about what to show. Its
// methods are called synchronously within Update and must not block.
type Presenter interface {
	// SetDialogueText shows a line. speaker is empty for narration.
	SetDialogueText(speaker, body string)

	// CardCreated asks for a visual object for a new card. Once it exists,
	// report it with Registry.MarkRendered.
	CardCreated(key CardKey)

	// CardWordsChanged delivers the (possibly new) words for a card.
	CardWordsChanged(key CardKey, words []WordSpan)

	// CardRemoved says the card was played and its object should go.
	CardRemoved(key CardKey)

	// DialogueComplete is called once when the script stops.
	DialogueComplete()
}

// NopPresenter implements Presenter with methods that do nothing. Embed it
// to implement only the notices you care about:
//
//	type MyPresenter struct {
//		dialogue.NopPresenter
//	}
//	func (p *MyPresenter) SetDialogueText(speaker, body string) { ... }
type NopPresenter struct{}

// SetDialogueText does nothing.
func (NopPresenter) SetDialogueText(string, string) {}

// CardCreated does nothing.
func (NopPresenter) CardCreated(CardKey) {}

// CardWordsChanged does nothing.
func (NopPresenter) CardWordsChanged(CardKey, []WordSpan) {}

// CardRemoved does nothing.
func (NopPresenter) CardRemoved(CardKey) {}

// DialogueComplete does nothing.
func (NopPresenter) DialogueComplete() {}
