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

// The cardtalk binary plays a compiled dialogue in the terminal. Lines appear
// beneath a row of cards; point at a card with the mouse or arrow keys and
// click or press enter to play it.
//
// Usage from the root of the repo:
//
//	go run ./cmd/cardtalk dialogue/build/dialogue.yarnc
//
// Settings come from the CARDTALK_* environment variables. Logs go to
// cardtalk.log unless CARDTALK_LOG_FILE says otherwise.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DrJosh9000/cardtalk/dialogue"
	"github.com/DrJosh9000/cardtalk/internal/config"
	"github.com/DrJosh9000/cardtalk/internal/logger"
	"github.com/DrJosh9000/cardtalk/savedata"
	"github.com/DrJosh9000/cardtalk/script"
)

func main() {
	os.Exit(run())
}

// run plays the dialogue and returns the exit code, so that deferred cleanup
// happens before the process exits.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Couldn't read configuration: %v\n", err)
		return 1
	}
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: cardtalk [YARNC_FILE]")
		flag.PrintDefaults()
	}
	flag.Parse()
	programPath := cfg.ProgramPath
	switch flag.NArg() {
	case 0:
	case 1:
		programPath = flag.Arg(0)
	default:
		flag.Usage()
		return 2
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "cardtalk.log"
	}

	log, closer, err := logger.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Couldn't set up logging: %v\n", err)
		return 1
	}
	defer closer.Close()
	log, runID := logger.WithRunID(log)

	ctx := context.Background()
	store, err := savedata.Open(ctx, savedata.Options{
		Backend:     cfg.SaveBackend,
		Path:        cfg.SavePath,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
	}, log)
	if err != nil {
		logger.WithError(log, err).Warn("Couldn't open save data, progress won't be kept", "backend", cfg.SaveBackend)
		store = savedata.NewStore(savedata.NewMemory(), log)
	}
	defer store.Close()

	prog, lines, err := script.LoadFS(os.DirFS(filepath.Dir(programPath)), filepath.Base(programPath), cfg.Language)
	if err != nil {
		return failed(err, "Couldn't load dialogue")
	}
	in := script.NewInterpreter(prog, lines)
	if err := in.SetNode(cfg.StartNode); err != nil {
		return failed(err, "Couldn't start dialogue")
	}

	pres := newTermPresenter()
	dir := &dialogue.Director{
		Interpreter: in,
		Presenter:   pres,
		Saver:       store,
		Speakers:    cfg.Speakers,
		Logger:      log,
		SaveTimeout: cfg.SaveTimeout,
	}
	sess := dialogue.NewSession(ctx, store, log)
	reg := dialogue.NewRegistry()

	log.Info("Starting dialogue", "program", programPath, "node", cfg.StartNode, "run_id", runID)
	m := newModel(ctx, cfg.FrameInterval(), dir, sess, reg, pres, log)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	if err != nil {
		return failed(err, "UI error")
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		return failed(fm.err, "Dialogue stopped")
	}
	return 0
}

// failed reports err and returns the exit code for it.
func failed(err error, msg string) int {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return 1
}
