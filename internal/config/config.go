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

// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the binaries read.
type Config struct {
	Environment string `env:"CARDTALK_ENV" envDefault:"development"`

	ProgramPath string   `env:"CARDTALK_PROGRAM"    envDefault:"dialogue/build/dialogue.yarnc"`
	Language    string   `env:"CARDTALK_LANGUAGE"   envDefault:"en"`
	StartNode   string   `env:"CARDTALK_START_NODE" envDefault:"Start"`
	Speakers    []string `env:"CARDTALK_SPEAKERS"   envDefault:"Remie" envSeparator:","`

	SaveBackend string        `env:"CARDTALK_SAVE_BACKEND" envDefault:"sqlite"`
	SavePath    string        `env:"CARDTALK_SAVE_PATH"    envDefault:"cardtalk.db"`
	RedisURL    string        `env:"CARDTALK_REDIS_URL"    envDefault:"redis://localhost:6379/0"`
	RedisPrefix string        `env:"CARDTALK_REDIS_PREFIX" envDefault:"cardtalk:"`
	SaveTimeout time.Duration `env:"CARDTALK_SAVE_TIMEOUT" envDefault:"2s"`

	FrameRate int `env:"CARDTALK_FPS" envDefault:"30"`

	LogLevelName string `env:"CARDTALK_LOG_LEVEL" envDefault:"info"`
	// LogFile, if set, receives logs instead of stderr. The terminal UI
	// owns the screen, so it sets this.
	LogFile string `env:"CARDTALK_LOG_FILE"`

	// LogLevel is parsed from LogLevelName by Load.
	LogLevel slog.Level
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	level, err := ParseLevel(cfg.LogLevelName)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	if cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %d", cfg.FrameRate)
	}
	return &cfg, nil
}

// ParseLevel converts a level name such as "debug" or "WARN" to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return level, nil
}

// FrameInterval is the time between ticks at the configured frame rate.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}
