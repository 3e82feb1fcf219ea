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

// VariableStorage stores values of any kind.
type VariableStorage interface {
	GetValue(name string) (value any, ok bool)
	SetValue(name string, value any)
}

// Variables implements VariableStorage with a plain map. It is meant to have
// exactly one owner (the dialogue session), so it does no locking.
type Variables map[string]any

var _ VariableStorage = Variables(nil)

// GetValue fetches a value, returning (nil, false) if not present.
func (v Variables) GetValue(name string) (any, bool) {
	value, found := v[name]
	return value, found
}

// SetValue sets a value. Numbers are stored as float32, the same as the
// program's own numbers, so that comparisons in the script behave.
func (v Variables) SetValue(name string, value any) {
	if nv, err := toValue(value); err == nil {
		value = nv
	}
	v[name] = value
}
