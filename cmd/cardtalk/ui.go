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
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/muesli/reflow/wordwrap"

	"github.com/DrJosh9000/cardtalk/dialogue"
	"github.com/DrJosh9000/cardtalk/savedata"
)

// Screen geometry, in terminal cells. Cards sit in a row below the title.
const (
	cardWidth  = 20
	cardHeight = 7
	cardGap    = 1
	cardsLeft  = 2
	cardsTop   = 2
)

type keyMap struct {
	Advance key.Binding
	Confirm key.Binding
	Left    key.Binding
	Right   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Advance, k.Confirm, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Advance, k.Confirm},
		{k.Left, k.Right},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Advance: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "continue")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter/click", "play card")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous card")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next card")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more help")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c", "esc", "q"), key.WithHelp("q", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Width(cardWidth - 2).
			Height(cardHeight - 2)

	hoverCardStyle = cardStyle.
			BorderForeground(lipgloss.Color("205"))

	// A card hovered this tick but not the last.
	freshHoverCardStyle = hoverCardStyle.
				BorderStyle(lipgloss.ThickBorder())

	importantCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("196"))

	pendingCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("236"))

	regularWordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	varyingWordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Italic(true) // green
	previousWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
)

type tickMsg time.Time

// model is the bubbletea model. It owns the dialogue state and drives the
// Director once per tick.
type model struct {
	ctx      context.Context
	interval time.Duration
	dir      *dialogue.Director
	sess     *dialogue.Session
	reg      *dialogue.Registry
	pres     *termPresenter
	log      *slog.Logger

	help  help.Model
	width int

	last             time.Time
	advance, confirm bool

	hasPointer bool
	pointerCol int
	pointerRow int
	cursor     int

	err error
}

func newModel(ctx context.Context, interval time.Duration, dir *dialogue.Director, sess *dialogue.Session, reg *dialogue.Registry, pres *termPresenter, log *slog.Logger) model {
	return model{
		ctx:      ctx,
		interval: interval,
		dir:      dir,
		sess:     sess,
		reg:      reg,
		pres:     pres,
		log:      log,
		help:     help.New(),
		width:    80,
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Advance):
			m.advance = true
		case key.Matches(msg, keys.Confirm):
			m.confirm = true
		case key.Matches(msg, keys.Left):
			m.moveCursor(-1)
		case key.Matches(msg, keys.Right):
			m.moveCursor(1)
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.MouseMsg:
		m.hasPointer = true
		m.pointerCol, m.pointerRow = msg.X, msg.Y
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.confirm = true
		}

	case tickMsg:
		return m.step(time.Time(msg))
	}
	return m, nil
}

// step runs one frame of dialogue.
func (m model) step(now time.Time) (tea.Model, tea.Cmd) {
	var dt time.Duration
	if !m.last.IsZero() {
		dt = now.Sub(m.last)
	}
	m.last = now

	// Cards created last frame have now been drawn once.
	m.pres.settle(m.reg, m.log)

	if m.hasPointer {
		dialogue.Pick(m.sess, pointerRay(m.pointerCol, m.pointerRow), m.planes())
	}

	in := dialogue.Input{Advance: m.advance, Confirm: m.confirm, DT: dt}
	m.advance, m.confirm = false, false
	if err := m.dir.Update(m.ctx, m.sess, m.reg, in); err != nil {
		m.log.Error("dialogue stopped", "error", err)
		m.err = err
		return m, tea.Quit
	}
	if m.sess.Acknowledged {
		return m, tea.Quit
	}
	return m, m.tick()
}

// moveCursor points at the next or previous card in the layout.
func (m *model) moveCursor(delta int) {
	layout := m.reg.Layout(m.sess.ImportantPair)
	if len(layout) == 0 {
		return
	}
	m.cursor = (m.cursor + delta + len(layout)) % len(layout)
	m.hasPointer = true
	m.pointerCol = cardsLeft + m.cursor*(cardWidth+cardGap) + cardWidth/2
	m.pointerRow = cardsTop + cardHeight/2
}

// planes places the laid-out cards in world space.
func (m model) planes() []dialogue.CardPlane {
	var planes []dialogue.CardPlane
	for i, k := range m.reg.Layout(m.sess.ImportantPair) {
		c := m.pres.cards[k]
		if c == nil || c.handle == dialogue.NoHandle {
			continue
		}
		planes = append(planes, cardPlane(i, c.handle))
	}
	return planes
}

// cardPlane is where the card in slot i of the row sits: one world unit per
// cell, X rightwards from the left of the row, Y up from its top, and each
// card a hair in front of the one before.
func cardPlane(i int, h dialogue.Handle) dialogue.CardPlane {
	left := float64(i * (cardWidth + cardGap))
	return dialogue.CardPlane{
		Handle:      h,
		Center:      mgl64.Vec3{left + cardWidth/2.0, -cardHeight / 2.0, float64(i) * 0.01},
		Orientation: mgl64.QuatIdent(),
		HalfExtent:  mgl64.Vec2{cardWidth / 2.0, cardHeight / 2.0},
	}
}

// pointerRay casts a ray into the screen through the middle of a cell.
func pointerRay(col, row int) dialogue.Ray {
	return dialogue.Ray{
		Origin:    mgl64.Vec3{float64(col-cardsLeft) + 0.5, -float64(row-cardsTop) - 0.5, 10},
		Direction: mgl64.Vec3{0, 0, -1},
	}
}

func (m model) View() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", cardsLeft) + titleStyle.Render("CARDTALK") + "\n\n")

	var row []string
	for i, k := range m.reg.Layout(m.sess.ImportantPair) {
		if i > 0 {
			row = append(row, strings.Repeat(" ", cardGap))
		}
		row = append(row, m.renderCard(k))
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top, row...)
	if len(row) == 0 {
		cards = strings.Repeat("\n", cardHeight-1)
	}
	sb.WriteString(lipgloss.NewStyle().PaddingLeft(cardsLeft).Render(cards) + "\n\n")

	textWidth := max(m.width-2*cardsLeft, 20)
	pad := strings.Repeat(" ", cardsLeft)
	if m.pres.speaker != "" {
		sb.WriteString(pad + speakerStyle.Render(m.pres.speaker) + "\n")
	}
	for _, l := range strings.Split(wordwrap.String(m.pres.body, textWidth), "\n") {
		sb.WriteString(pad + bodyStyle.Render(l) + "\n")
	}
	sb.WriteString("\n" + pad + promptStyle.Render(m.prompt()) + "\n\n")

	if m.err != nil {
		sb.WriteString(pad + errorStyle.Render(m.err.Error()) + "\n\n")
	}
	sb.WriteString(pad + promptStyle.Render(m.status()) + "\n")
	sb.WriteString(pad + m.help.View(keys) + "\n")
	return sb.String()
}

func (m model) prompt() string {
	switch m.sess.State() {
	case dialogue.StateWaitingContinue:
		return "(space to continue)"
	case dialogue.StateWaitingResponse:
		return "(pick a card)"
	case dialogue.StateFinished:
		return "The end. (space to leave)"
	}
	return ""
}

func (m model) status() string {
	var parts []string
	if len(m.sess.Present) > 0 {
		var who []string
		for name := range m.sess.Present {
			who = append(who, name)
		}
		slices.Sort(who)
		parts = append(parts, "present: "+strings.Join(who, ", "))
	}
	if m.sess.Drink != "" {
		parts = append(parts, "drink: "+m.sess.Drink)
	}
	n := 0
	for _, e := range m.sess.Endings {
		if e {
			n++
		}
	}
	parts = append(parts, fmt.Sprintf("endings: %d/%d", n, savedata.NumEndings))
	return strings.Join(parts, " · ")
}

func (m model) renderCard(k dialogue.CardKey) string {
	c := m.pres.cards[k]
	if c == nil {
		return ""
	}
	style := cardStyle
	pair := m.sess.ImportantPair
	switch {
	case c.handle == dialogue.NoHandle:
		style = pendingCardStyle
	case c.handle == m.sess.Selected && m.sess.Selected != m.sess.Previous:
		style = freshHoverCardStyle
	case c.handle == m.sess.Selected:
		style = hoverCardStyle
	case pair.Active():
		style = importantCardStyle
	}
	return style.Render(wordwrap.String(renderWords(c.words), cardWidth-4))
}

// renderWords styles each span, spacing them as dialogue.JoinWords does.
func renderWords(words []dialogue.WordSpan) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		switch w.Kind {
		case dialogue.Varying:
			parts = append(parts, varyingWordStyle.Render(text))
		case dialogue.PreviouslySelected:
			parts = append(parts, previousWordStyle.Render(text))
		default:
			parts = append(parts, regularWordStyle.Render(text))
		}
	}
	return strings.Join(parts, " ")
}
