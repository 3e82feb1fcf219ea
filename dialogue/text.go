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
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// QuestionMarker in a line body marks the line as a question, answered
	// by the options that follow.
	QuestionMarker = "___"

	// FallbackPhrasing is the option phrasing that catches every card not
	// otherwise bound to an option.
	FallbackPhrasing = "other"

	importantPrefix = "!"
	phrasingSep     = "|"
)

// QuestionID identifies a question line across runs.
type QuestionID uint64

// QuestionIDOf hashes a question body (after annotations are stripped).
func QuestionIDOf(body string) QuestionID {
	return QuestionID(xxhash.Sum64String(body))
}

// StripAnnotations removes every [bracketed] span from s and tidies the
// whitespace left behind. An unclosed '[' is kept as text.
func StripAnnotations(s string) string {
	var sb strings.Builder
	for {
		open := strings.IndexByte(s, '[')
		if open < 0 {
			break
		}
		end := strings.IndexByte(s[open:], ']')
		if end < 0 {
			break
		}
		sb.WriteString(s[:open])
		sb.WriteByte(' ')
		s = s[open+end+1:]
	}
	sb.WriteString(s)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// SplitSpeaker separates "Tag: body" into speaker and body. Lines without a
// colon have no speaker. If the tag is not in cast, the whole text is
// returned as the body and ok is false.
func SplitSpeaker(text string, cast map[string]bool) (speaker, body string, ok bool) {
	tag, rest, found := strings.Cut(text, ":")
	if !found {
		return "", strings.TrimSpace(text), true
	}
	tag = strings.TrimSpace(tag)
	if !cast[tag] {
		return "", strings.TrimSpace(text), false
	}
	return tag, strings.TrimSpace(rest), true
}

// Phrasing is one alternative wording within an option's text.
type Phrasing struct {
	// Text is the phrasing as written, minus any important marker.
	Text string
	// Key is the normalised card key.
	Key CardKey
	// Important phrasings take part in a binary decision.
	Important bool
	// Fallback is set for the catch-all "other" phrasing.
	Fallback bool
}

// SplitPhrasings splits option text on '|' into its phrasings, dropping
// empty ones.
func SplitPhrasings(text string) []Phrasing {
	var out []Phrasing
	for _, part := range strings.Split(text, phrasingSep) {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if p == FallbackPhrasing {
			out = append(out, Phrasing{Text: p, Fallback: true})
			continue
		}
		ph := Phrasing{}
		if rest, found := strings.CutPrefix(p, importantPrefix); found {
			ph.Important = true
			p = strings.TrimSpace(rest)
		}
		ph.Text = p
		ph.Key = NormalizeKey(p)
		if ph.Key == "" {
			continue
		}
		out = append(out, ph)
	}
	return out
}
