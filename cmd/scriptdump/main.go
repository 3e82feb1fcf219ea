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

// The scriptdump binary prints a compiled program in a pseudo-assembler
// format, and can check it against a line table or run a test plan.
//
// Usage from the root of the repo:
//
//	go run ./cmd/scriptdump dialogue/build/dialogue.yarnc
//	go run ./cmd/scriptdump -lint dialogue/build/dialogue.yarnc
//	go run ./cmd/scriptdump -plan dialogue/bar.testplan dialogue/build/dialogue.yarnc
//
// Defaults (program path, language, start node, speakers) come from the
// CARDTALK_* environment variables.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/DrJosh9000/cardtalk/dialogue"
	"github.com/DrJosh9000/cardtalk/internal/config"
	"github.com/DrJosh9000/cardtalk/internal/logger"
	"github.com/DrJosh9000/cardtalk/script"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Couldn't read configuration: %v\n", err)
		os.Exit(1)
	}
	lint := flag.Bool("lint", false, "Check the program against its line table instead of dumping it")
	plan := flag.String("plan", "", "Run the program against this .testplan file")
	lang := flag.String("lang", cfg.Language, "BCP 47 language of the line table")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: scriptdump [-lint] [-plan FILE] [-lang CODE] [YARNC_FILE]")
		flag.PrintDefaults()
	}
	flag.Parse()

	log, closer, err := logger.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Couldn't set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	programPath := cfg.ProgramPath
	switch flag.NArg() {
	case 0:
	case 1:
		programPath = flag.Arg(0)
	default:
		flag.Usage()
		os.Exit(2)
	}
	fsys := os.DirFS(filepath.Dir(programPath))
	name := filepath.Base(programPath)

	if !*lint && *plan == "" {
		prog, err := script.LoadProgramFS(fsys, name)
		if err != nil {
			fatal(log, "Couldn't read program file", err)
		}
		if err := script.FormatProgram(os.Stdout, prog); err != nil {
			fatal(log, "Couldn't write program", err)
		}
		return
	}

	prog, lines, err := script.LoadFS(fsys, name, *lang)
	if err != nil {
		fatal(log, "Couldn't load program", err)
	}

	if *lint {
		d := &dialogue.Director{Speakers: cfg.Speakers, Logger: log}
		issues := d.Lint(prog, lines)
		for _, issue := range issues {
			fmt.Println(issue)
		}
		if len(issues) > 0 {
			os.Exit(1)
		}
	}

	if *plan != "" {
		f, err := os.Open(*plan)
		if err != nil {
			fatal(log, "Couldn't open test plan", err)
		}
		defer f.Close()
		tp, err := script.ReadTestPlan(f)
		if err != nil {
			fatal(log, "Couldn't read test plan", err)
		}
		in := script.NewInterpreter(prog, lines)
		if err := in.SetNode(cfg.StartNode); err != nil {
			fatal(log, "Couldn't start program", err)
		}
		if err := tp.Run(in, make(script.Variables), script.DefaultFuncMap()); err != nil {
			fatal(log, "Test plan failed", err)
		}
		fmt.Printf("Test plan passed (%d steps)\n", len(tp.Steps))
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
