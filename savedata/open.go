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

package savedata

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options says where to keep progress.
type Options struct {
	Backend string
	// Path is the SQLite database file.
	Path string
	// RedisURL and RedisPrefix configure the Redis backend.
	RedisURL    string
	RedisPrefix string
}

// Open returns a Store on the chosen backend.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	var kv KV
	switch opts.Backend {
	case BackendMemory, "":
		kv = NewMemory()
	case BackendSQLite:
		db, err := OpenSQLite(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		kv = db
	case BackendRedis:
		prefix := opts.RedisPrefix
		if prefix == "" {
			prefix = DefaultRedisPrefix
		}
		rdb, err := OpenRedis(ctx, opts.RedisURL, prefix)
		if err != nil {
			return nil, err
		}
		kv = rdb
	default:
		return nil, fmt.Errorf("unknown save backend %q", opts.Backend)
	}
	return NewStore(kv, logger), nil
}
