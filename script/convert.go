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
	"errors"
	"fmt"
	"strconv"

	yarnpb "github.com/DrJosh9000/yarn/bytecode"
)

// ConvertToBool applies the script's truthiness rules: null, zero, false and
// the empty string are false.
func ConvertToBool(x any) (bool, error) { return convertToBool(x) }

func convertToBool(x any) (bool, error) {
	switch t := x.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case float32:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case string:
		return len(t) > 0, nil
	}
	return false, fmt.Errorf("cannot convert value of type %T to a bool", x)
}

func convertToInt(x any) (int, error) {
	switch t := x.(type) {
	case nil:
		return 0, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case float32:
		return int(t), nil
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		return strconv.Atoi(t)
	}
	return 0, fmt.Errorf("cannot convert value of type %T to int", x)
}

// convertToString formats values the way they appear when interpolated into
// lines: numbers without trailing zeroes, null as "null".
func convertToString(x any) string {
	switch t := x.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return fmt.Sprint(x)
}

// toValue normalises a host value into one the interpreter keeps on its
// stack. All numbers become float32, matching PUSH_FLOAT.
func toValue(x any) (any, error) {
	switch t := x.(type) {
	case nil, bool, string, float32:
		return t, nil
	case float64:
		return float32(t), nil
	case int:
		return float32(t), nil
	case int32:
		return float32(t), nil
	case int64:
		return float32(t), nil
	}
	return nil, fmt.Errorf("value %v [type %T] is not a bool, number, string, or null", x, x)
}

func operandToInt(op *yarnpb.Operand) (int, error) {
	if op == nil {
		return 0, errors.New("nil operand")
	}
	f, ok := op.Value.(*yarnpb.Operand_FloatValue)
	if !ok {
		return 0, fmt.Errorf("wrong operand type [%T != Operand_FloatValue]", op.Value)
	}
	return int(f.FloatValue), nil
}
