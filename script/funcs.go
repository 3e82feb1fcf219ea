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
	"reflect"
)

// ErrUnresolvedFunction is returned by FuncMap.Call when the program calls a
// function that isn't in the map.
var ErrUnresolvedFunction = errors.New("unresolved function")

// Used to check the last return arg of functions in FuncMap.
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FuncMap works like text/template.FuncMap. It maps function names to
// implementations. Each implementation must return 0, 1, or 2 values; if
// there are two, the second must be an error.
type FuncMap map[string]any

// Merge copies fm into m, overriding functions with the same name, and
// returns m.
func (m FuncMap) Merge(fm FuncMap) FuncMap {
	for n, f := range fm {
		m[n] = f
	}
	return m
}

// Call invokes the named function with args taken from a FunctionCallEvent.
// The results (zero or one value) are suitable for passing to
// Interpreter.ResumeFunction.
func (m FuncMap) Call(name string, args []any) ([]any, error) {
	function, found := m[name]
	if !found {
		return nil, fmt.Errorf("%w %q", ErrUnresolvedFunction, name)
	}
	functype := reflect.TypeOf(function)
	if functype == nil || functype.Kind() != reflect.Func {
		return nil, fmt.Errorf("function %q not actually a function [type %T]", name, function)
	}

	gotArgc := len(args)
	switch wantArgc := functype.NumIn(); {
	case functype.IsVariadic() && gotArgc < wantArgc-1:
		return nil, fmt.Errorf("insufficient args provided by program [got %d < want %d]", gotArgc, wantArgc-1)
	case !functype.IsVariadic() && gotArgc != wantArgc:
		return nil, fmt.Errorf("wrong number of args provided by program [got %d, want %d]", gotArgc, wantArgc)
	}

	switch functype.NumOut() {
	case 0, 1:
		// ok
	case 2:
		if functype.Out(1) != errorType {
			return nil, fmt.Errorf("wrong type for second return arg [got %s, want error]", functype.Out(1).Name())
		}
	default:
		return nil, fmt.Errorf("unsupported number of return args [got %d, want in {0,1,2}]", functype.NumOut())
	}

	params := make([]reflect.Value, gotArgc)
	for i, param := range args {
		var argtype reflect.Type
		if functype.IsVariadic() && i >= functype.NumIn()-1 {
			// last arg is reported by reflect as a slice type
			argtype = functype.In(functype.NumIn() - 1).Elem()
		} else {
			argtype = functype.In(i)
		}
		if param == nil {
			params[i] = reflect.Zero(argtype)
			continue
		}
		pv := reflect.ValueOf(param)
		switch pt := pv.Type(); {
		case pt.AssignableTo(argtype):
			params[i] = pv
		case isNumber(pt) && isNumber(argtype):
			params[i] = pv.Convert(argtype)
		default:
			return nil, fmt.Errorf("value %v [type %T] not assignable to argument %d of %q [type %v]", param, param, i, name, argtype)
		}
	}

	result := reflect.ValueOf(function).Call(params)

	if last := functype.NumOut() - 1; last >= 0 && functype.Out(last) == errorType {
		if !result[last].IsNil() {
			return nil, fmt.Errorf("function %q: %w", name, result[last].Interface().(error))
		}
		result = result[:last]
	}
	if len(result) == 0 {
		return nil, nil
	}
	return []any{result[0].Interface()}, nil
}

func isNumber(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// DefaultFuncMap returns a FuncMap with all the basic Yarn Spinner operators.
// The compiler emits these as ordinary function calls.
func DefaultFuncMap() FuncMap {
	return FuncMap{
		"None":                 func(x any) any { return x },
		"EqualTo":              func(x, y any) bool { return x == y },
		"NotEqualTo":           func(x, y any) bool { return x != y },
		"GreaterThan":          funcGreaterThan,
		"GreaterThanOrEqualTo": funcGreaterThanOrEqualTo,
		"LessThan":             funcLessThan,
		"LessThanOrEqualTo":    funcLessThanOrEqualTo,
		"Or":                   func(x, y bool) bool { return x || y },
		"And":                  func(x, y bool) bool { return x && y },
		"Xor":                  func(x, y bool) bool { return x != y },
		"Not":                  func(x bool) bool { return !x },
		"UnaryMinus":           funcUnaryMinus,
		"Add":                  funcAdd,
		"Minus":                func(x, y float32) float32 { return x - y },
		"Multiply":             func(x, y float32) float32 { return x * y },
		"Divide":               funcDivide,
		"Modulo":               funcModulo,
	}
}

func funcGreaterThan(x, y any) (bool, error) {
	switch xt := x.(type) {
	case string:
		yt, ok := y.(string)
		if !ok {
			return false, fmt.Errorf("mismatching types [%T != string]", y)
		}
		return xt > yt, nil
	case float32:
		yt, ok := y.(float32)
		if !ok {
			return false, fmt.Errorf("mismatching types [%T != float32]", y)
		}
		return xt > yt, nil
	}
	return false, fmt.Errorf("unsupported type [%T ∉ {float32,string}]", x)
}

func funcGreaterThanOrEqualTo(x, y any) (bool, error) {
	if x == y {
		return true, nil
	}
	return funcGreaterThan(x, y)
}

func funcLessThan(x, y any) (bool, error) {
	return funcGreaterThan(y, x)
}

func funcLessThanOrEqualTo(x, y any) (bool, error) {
	return funcGreaterThanOrEqualTo(y, x)
}

func funcUnaryMinus(x any) (any, error) {
	xt, ok := x.(float32)
	if !ok {
		return nil, fmt.Errorf("unsupported type [%T != float32]", x)
	}
	return -xt, nil
}

func funcAdd(x, y any) (any, error) {
	switch xt := x.(type) {
	case string:
		// Strings concatenate with anything.
		return xt + convertToString(y), nil
	case float32:
		yt, ok := y.(float32)
		if !ok {
			return nil, fmt.Errorf("mismatching types [%T != float32]", y)
		}
		return xt + yt, nil
	}
	return nil, fmt.Errorf("unsupported type [%T ∉ {float32,string}]", x)
}

func funcDivide(x, y float32) (float32, error) {
	if y == 0 {
		return 0, errors.New("division by zero")
	}
	return x / y, nil
}

func funcModulo(x, y float32) (float32, error) {
	if int(y) == 0 {
		return 0, errors.New("modulo by zero")
	}
	return float32(int(x) % int(y)), nil
}
