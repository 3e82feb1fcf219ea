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

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/DrJosh9000/cardtalk/internal/config"
)

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, &config.Config{Environment: "production"}).Info("hello", "n", 1)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("production log is not JSON: %v (%q)", err, buf.String())
	}
	if got, want := rec["msg"], "hello"; got != want {
		t.Errorf("msg = %v, want %v", got, want)
	}

	buf.Reset()
	New(&buf, &config.Config{Environment: "development"}).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("development log = %q, want text format", buf.String())
	}
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, &config.Config{LogLevel: slog.LevelWarn})
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %q", buf.String())
	}
	l.Warn("loud")
	if buf.Len() == 0 {
		t.Error("warn record not written at warn level")
	}
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	l, id := WithRunID(New(&buf, &config.Config{}))
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run ID %q is not a UUID: %v", id, err)
	}
	l.Info("tick")
	if !strings.Contains(buf.String(), "run_id="+id) {
		t.Errorf("log = %q, want run_id=%s", buf.String(), id)
	}

	buf.Reset()
	WithError(l, errors.New("boom")).Info("x")
	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("log = %q, want error=boom", buf.String())
	}
}

func TestSetupLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "cardtalk.log")
	l, closer, err := Setup(&config.Config{LogFile: path})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	l.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q, want record", data)
	}
}
