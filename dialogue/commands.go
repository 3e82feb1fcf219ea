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
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/DrJosh9000/cardtalk/savedata"
)

// ErrUnknownCommand is returned for a command with no handler.
var ErrUnknownCommand = errors.New("unknown command")

// CommandFunc handles one script command. args excludes the command name.
type CommandFunc func(ctx context.Context, s *Session, r *Registry, args []string) error

// CommandMap maps command names to handlers.
type CommandMap map[string]CommandFunc

// Merge returns a new map with the contents of m and cm; cm wins on
// conflicts.
func (m CommandMap) Merge(cm CommandMap) CommandMap {
	out := maps.Clone(m)
	if out == nil {
		out = make(CommandMap)
	}
	maps.Copy(out, cm)
	return out
}

func (d *Director) builtinCommands() CommandMap {
	return CommandMap{
		"wait":    cmdWait,
		"discard": d.cmdDiscard,
		"enter":   cmdEnter,
		"exit":    cmdExit,
		"drink":   cmdDrink,
		"ending":  d.cmdEnding,
	}
}

// runCommand runs a command. Command failures are logged, never fatal.
func (d *Director) runCommand(ctx context.Context, s *Session, r *Registry, raw string) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		d.Logger.Warn("empty command")
		return
	}
	fn := d.commands[fields[0]]
	if fn == nil {
		d.Logger.Warn("ignoring command", "command", raw, "error", ErrUnknownCommand)
		return
	}
	if err := fn(ctx, s, r, fields[1:]); err != nil {
		d.Logger.Warn("command failed", "command", raw, "error", err)
	}
}

func wantArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("got %d arguments, want %d", len(args), n)
	}
	return nil
}

// wait <seconds>
func cmdWait(_ context.Context, s *Session, _ *Registry, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("parsing duration: %w", err)
	}
	if secs < 0 {
		return fmt.Errorf("negative duration %v", secs)
	}
	s.Wait = WaitTimer{Target: time.Duration(secs * float64(time.Second))}
	return nil
}

// discard
func (d *Director) cmdDiscard(_ context.Context, s *Session, r *Registry, _ []string) error {
	played, err := r.playAll()
	if err != nil {
		return err
	}
	for _, k := range played {
		d.Presenter.CardRemoved(k)
	}
	s.ImportantPair = ImportantPair{}
	s.clearPointer()
	return nil
}

// enter <name>
func cmdEnter(_ context.Context, s *Session, _ *Registry, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	s.Present[args[0]] = true
	return nil
}

// exit <name>
func cmdExit(_ context.Context, s *Session, _ *Registry, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	delete(s.Present, args[0])
	return nil
}

// drink <name>
func cmdDrink(_ context.Context, s *Session, _ *Registry, args []string) error {
	if len(args) == 0 {
		return wantArgs(args, 1)
	}
	s.Drink = strings.Join(args, " ")
	s.Vars.SetValue("$drink", s.Drink)
	return nil
}

// ending <n>
func (d *Director) cmdEnding(ctx context.Context, s *Session, _ *Registry, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("parsing ending: %w", err)
	}
	if n < 0 || n >= savedata.NumEndings {
		return fmt.Errorf("ending %d out of range [0, %d)", n, savedata.NumEndings)
	}
	if s.Endings[n] {
		return nil
	}
	s.Endings[n] = true
	d.saveEndings(ctx, s)
	return nil
}
