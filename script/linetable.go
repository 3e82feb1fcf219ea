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

package script

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	cldr "github.com/razor-1/localizer-cldr"
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

// ErrMissingLineID is returned when a line ID isn't in the line table. It
// means the program and the line table were built from different content.
var ErrMissingLineID = errors.New("line ID not in line table")

// LineTableRow contains all the information from one row in a line table.
type LineTableRow struct {
	ID, Text, File, Node string
	LineNumber           int
}

// LineTable maps line IDs to template strings, as produced by the Yarn
// Spinner compiler's "-Lines.csv" output.
type LineTable struct {
	Language language.Tag
	Table    map[string]LineTableRow
}

// LoadLineTableFS loads a CSV line table from fsys. langCode must be a valid
// BCP 47 language tag.
func LoadLineTableFS(fsys fs.FS, path, langCode string) (*LineTable, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening line table file: %w", err)
	}
	defer f.Close()
	lt, err := ReadLineTable(f, langCode)
	if err != nil {
		return nil, fmt.Errorf("reading line table: %w", err)
	}
	return lt, nil
}

// ReadLineTable reads a CSV line table. It assumes the first row is a header.
func ReadLineTable(r io.Reader, langCode string) (*LineTable, error) {
	lang, err := language.Parse(langCode)
	if err != nil {
		return nil, fmt.Errorf("invalid lang code: %w", err)
	}

	table := make(map[string]LineTableRow)
	header := true
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if header {
			header = false
			continue
		}
		ln, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("atoi: %w", err)
		}
		table[rec[0]] = LineTableRow{
			ID:         rec[0],
			Text:       rec[1],
			File:       rec[2],
			Node:       rec[3],
			LineNumber: ln,
		}
	}
	return &LineTable{Language: lang, Table: table}, nil
}

// Raw returns the unrendered template for a line ID.
func (t *LineTable) Raw(id string) (string, error) {
	row, found := t.Table[id]
	if !found {
		return "", fmt.Errorf("%w: %q", ErrMissingLineID, id)
	}
	return row.Text, nil
}

// Text looks up the row for line.ID, interpolates line.Substitutions, and
// evaluates the select, plural, and ordinal format functions. Other [markup]
// is left in the output untouched; stripping it is up to the caller.
func (t *LineTable) Text(line Line) (string, error) {
	row, found := t.Table[line.ID]
	if !found {
		return "", fmt.Errorf("%w: %q", ErrMissingLineID, line.ID)
	}
	filename := fmt.Sprintf("%s:%d", row.File, row.LineNumber)
	pl, err := lineParser.ParseString(filename, row.Text)
	if err != nil {
		return "", fmt.Errorf("parsing line %q: %w", line.ID, err)
	}
	lr := lineRenderer{
		src:    row.Text,
		substs: line.Substitutions,
		lang:   t.Language,
	}
	if err := lr.renderString(pl); err != nil {
		return "", fmt.Errorf("rendering line %q: %w", line.ID, err)
	}
	return lr.sb.String(), nil
}

var (
	lineLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "Escaped", Pattern: `\\[\{\}\[\]"\\]`, Action: nil},
			{Name: "Markup", Pattern: `\[`, Action: lexer.Push("Markup")},
			{Name: "Subst", Pattern: `{`, Action: lexer.Push("Subst")},
			{Name: "Char", Pattern: `[%\{\["\\]|[^%\{\["\\]+`, Action: nil},
		},
		"Markup": {
			{Name: "Whitespace", Pattern: `\s+`, Action: nil},
			{Name: "Slash", Pattern: `/`, Action: nil},
			{Name: "Ident", Pattern: `\w+`, Action: nil},
			{Name: "Equals", Pattern: `=`, Action: nil},
			{Name: "String", Pattern: `"`, Action: lexer.Push("String")},
			{Name: "MarkupEnd", Pattern: `\]`, Action: lexer.Pop()},
		},
		"Subst": {
			{Name: "Index", Pattern: `\d+`, Action: nil},
			{Name: "SubstEnd", Pattern: `}`, Action: lexer.Pop()},
		},
		"String": {
			{Name: "StringEnd", Pattern: `"`, Action: lexer.Pop()},
			lexer.Include("Root"),
		},
	})

	// a line is a kind of string, just missing the quotes...
	lineParser = participle.MustBuild[parsedString](
		participle.Lexer(lineLexer),
		participle.Elide("Whitespace"),
	)
)

// parsedString is used for both entire lines and the contents of double-quoted
// strings.
type parsedString struct {
	Fragments []*fragment `parser:"@@*"`
}

// fragment is part of a string or line. Pos lets markup that isn't a format
// function be copied through from the source verbatim.
type fragment struct {
	Pos lexer.Position

	Escaped string        `parser:"@Escaped"`
	Markup  *parsedMarkup `parser:"| Markup @@ MarkupEnd"`
	Subst   string        `parser:"| Subst @Index SubstEnd"`
	Text    string        `parser:"| @Char"`
}

// parsedMarkup is used for both format functions (select, plural, ordinal) and
// BBCode-esque markup tags ([b]Bold!?[/b]).
type parsedMarkup struct {
	OpeningSlash string        `parser:"@Slash?"`
	Name         string        `parser:"@Ident?"`
	Input        *parsedString `parser:"( String @@ StringEnd )?"`
	Props        []*parsedProp `parser:"@@*"`
	ClosingSlash string        `parser:"@Slash?"`
}

// parsedProp is used for key="value" properties of format funcs and markup
// tags.
type parsedProp struct {
	Key   string        `parser:"@Ident Equals"`
	Value *parsedString `parser:"String @@ StringEnd"`
}

// maps plural.Form values to identifiers used in Yarn Spinner plural and
// ordinal format functions
var formKeyTable = []string{
	plural.Other: "other",
	plural.Zero:  "zero",
	plural.One:   "one",
	plural.Two:   "two",
	plural.Few:   "few",
	plural.Many:  "many",
}

// lineRenderer accumulates the rendered text of one line.
type lineRenderer struct {
	sb     strings.Builder
	src    string
	substs []string
	lang   language.Tag
}

func (lr *lineRenderer) renderString(s *parsedString) error {
	if s == nil {
		return nil
	}
	for _, f := range s.Fragments {
		if err := lr.renderFragment(f); err != nil {
			return err
		}
	}
	return nil
}

func (lr *lineRenderer) renderFragment(f *fragment) error {
	switch {
	case f == nil:
		return nil
	case f.Escaped != "":
		lr.sb.WriteString(f.Escaped[1:])
	case f.Markup != nil:
		return lr.renderMarkup(f)
	case f.Subst != "":
		n, err := strconv.Atoi(f.Subst)
		if err != nil || n < 0 || n >= len(lr.substs) {
			lr.sb.WriteString("{" + f.Subst + "}")
			break
		}
		lr.sb.WriteString(lr.substs[n])
	default:
		lr.sb.WriteString(f.Text)
	}
	return nil
}

func (lr *lineRenderer) renderMarkup(f *fragment) error {
	m := f.Markup
	var in string
	if m.Input != nil {
		sub := lineRenderer{src: lr.src, substs: lr.substs, lang: lr.lang}
		if err := sub.renderString(m.Input); err != nil {
			return err
		}
		in = sub.sb.String()
	}

	switch m.Name {
	case "select":
		return lr.findAndRender(m, in, in)

	case "plural", "ordinal":
		ops, err := cldr.NewOperands(in)
		if err != nil {
			return err
		}
		rules := plural.Cardinal
		if m.Name == "ordinal" {
			rules = plural.Ordinal
		}
		form := rules.MatchPlural(lr.lang, int(ops.I), int(ops.V), int(ops.W), int(ops.F), int(ops.T))
		if int(form) >= len(formKeyTable) {
			return fmt.Errorf("plural form %v not supported", form)
		}
		return lr.findAndRender(m, in, formKeyTable[form])

	default:
		// Not a format function: copy the tag through as written.
		tag, err := markupSource(lr.src, f.Pos.Offset)
		if err != nil {
			return err
		}
		lr.sb.WriteString(tag)
		return nil
	}
}

// markupSource returns the markup tag starting at src[start], up to and
// including the closing bracket. Brackets inside quoted values don't count.
func markupSource(src string, start int) (string, error) {
	if start < 0 || start >= len(src) || src[start] != '[' {
		return "", fmt.Errorf("no markup at offset %d", start)
	}
	quoted := false
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '"':
			quoted = !quoted
		case ']':
			if !quoted {
				return src[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated markup at offset %d", start)
}

// findAndRender searches the markup's properties for the key, and renders
// that value. A % in the value is replaced by the input.
func (lr *lineRenderer) findAndRender(m *parsedMarkup, input, key string) error {
	for _, p := range m.Props {
		if p.Key != key {
			continue
		}
		for _, v := range p.Value.Fragments {
			if v.Text == "%" {
				lr.sb.WriteString(input)
				continue
			}
			if err := lr.renderFragment(v); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("key %q not found in markup %q", key, m.Name)
}
