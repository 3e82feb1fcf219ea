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

// Package savedata persists progress that outlives a run: which endings have
// been unlocked, and which cards were chosen for which questions. Values are
// JSON documents under fixed keys in a small key-value backend.
package savedata // import "github.com/DrJosh9000/cardtalk/savedata"

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// NumEndings is how many endings the game has.
const NumEndings = 4

// Keys under which progress is stored.
const (
	KeyEndings         = "unlocked_endings"
	KeySelectedOptions = "selected_options"
)

// ErrNotFound is returned by a KV for a key that was never set.
var ErrNotFound = errors.New("key not found")

// Endings records which endings have been reached.
type Endings [NumEndings]bool

// SelectedOptions maps question IDs to the card keys chosen for them.
type SelectedOptions map[uint64][]string

// KV is a byte-valued key-value backend.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store reads and writes progress through a KV.
type Store struct {
	kv     KV
	logger *slog.Logger
}

// NewStore returns a Store over kv.
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Close closes the backend.
func (s *Store) Close() error { return s.kv.Close() }

// LoadEndings returns the unlocked endings. Nothing stored means none.
// Stored lists of the wrong length are truncated or padded.
func (s *Store) LoadEndings(ctx context.Context) (Endings, error) {
	var e Endings
	var list []bool
	found, err := s.load(ctx, KeyEndings, &list)
	if err != nil || !found {
		return e, err
	}
	if len(list) != NumEndings {
		s.logger.Warn("stored endings have unexpected length", "got", len(list), "want", NumEndings)
	}
	copy(e[:], list)
	return e, nil
}

// SaveEndings stores the unlocked endings.
func (s *Store) SaveEndings(ctx context.Context, e Endings) error {
	return s.save(ctx, KeyEndings, e[:])
}

// LoadSelectedOptions returns the decision history. Nothing stored means an
// empty history.
func (s *Store) LoadSelectedOptions(ctx context.Context) (SelectedOptions, error) {
	raw := make(map[string][]string)
	found, err := s.load(ctx, KeySelectedOptions, &raw)
	if err != nil {
		return nil, err
	}
	so := make(SelectedOptions, len(raw))
	if !found {
		return so, nil
	}
	for k, v := range raw {
		q, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			s.logger.Warn("skipping bad question ID in history", "id", k, "error", err)
			continue
		}
		so[q] = v
	}
	return so, nil
}

// SaveSelectedOptions stores the decision history.
func (s *Store) SaveSelectedOptions(ctx context.Context, so SelectedOptions) error {
	return s.save(ctx, KeySelectedOptions, so)
}

func (s *Store) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	s.logger.Debug("saved progress", "key", key, "bytes", len(data))
	return nil
}
