// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package assert

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
)

// Equal fails the test immediately if expected and actual differ.  Integers of
// different types are compared by value, so that e.g. uint64(3) equals 3.
func Equal(t *testing.T, expected, actual any, msg ...any) {
	t.Helper()
	//
	if reflect.DeepEqual(expected, actual) || intEqual(expected, actual) {
		return
	}

	t.Errorf("expected: %v, actual: %v%s", expected, actual, format(msg))
	t.FailNow()
}

// True fails the test immediately if the condition does not hold.
func True(t *testing.T, condition bool, msg ...any) {
	t.Helper()
	//
	if !condition {
		t.Errorf("condition is false%s", format(msg))
		t.FailNow()
	}
}

// False fails the test immediately if the condition holds.
func False(t *testing.T, condition bool, msg ...any) {
	t.Helper()
	//
	if condition {
		t.Errorf("condition is true%s", format(msg))
		t.FailNow()
	}
}

// NoError fails the test immediately if an error is given.
func NoError(t *testing.T, err error, msg ...any) {
	t.Helper()
	//
	if err != nil {
		t.Errorf("unexpected error: %v%s", err, format(msg))
		t.FailNow()
	}
}

// ErrorIs fails the test immediately unless the given error wraps the target
// error.
func ErrorIs(t *testing.T, err error, target error, msg ...any) {
	t.Helper()
	//
	if !errors.Is(err, target) {
		t.Errorf("expected error \"%v\", actual: %v%s", target, err, format(msg))
		t.FailNow()
	}
}

// format renders an optional printf-style message.
func format(msg []any) string {
	if len(msg) == 0 {
		return ""
	} else if f, ok := msg[0].(string); ok {
		return " (" + fmt.Sprintf(f, msg[1:]...) + ")"
	}
	//
	return fmt.Sprint(msg...)
}

// intEqual returns whether expected and actual are both integers and whether they are equal
// if that is the case.
func intEqual(expected, actual any) bool {
	a, aInt64 := asInt64(expected)
	b, bInt64 := asInt64(actual)

	if aInt64 != bInt64 {
		return false
	}

	if aInt64 {
		return a == b
	}

	x, aUint64 := expected.(uint64)
	y, bUint64 := actual.(uint64)

	if !aUint64 || !bUint64 {
		return false
	}

	return x == y
}

// asInt64 tries to convert x to an int64 and specifies if the conversion was successful or
// if x only can be expressed as a uint64
func asInt64(x any) (int64, bool) {
	if y, ok := x.(uint64); ok && y > math.MaxInt64 {
		return 0, false
	}

	switch x := x.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}

	return 0, false
}
