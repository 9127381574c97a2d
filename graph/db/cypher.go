// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/expr-lang/expr"
)

var errDivisionByZero = errors.New("division by zero")

// cypherFunctions returns the expr functions used by translated predicates. A nil
// argument or result stands for the Cypher null.
func cypherFunctions(patterns []*regexp.Regexp) []expr.Option {
	return []expr.Option{
		expr.Function(fnAnd, func(params ...interface{}) (interface{}, error) {
			return logicalAnd(params[0], params[1])
		}),
		expr.Function(fnOr, func(params ...interface{}) (interface{}, error) {
			return logicalOr(params[0], params[1])
		}),
		expr.Function(fnNot, func(params ...interface{}) (interface{}, error) {
			return logicalNot(params[0])
		}),
		expr.Function(fnCompare, func(params ...interface{}) (interface{}, error) {
			return compareValues(params[0].(string), params[1], params[2]), nil
		}),
		expr.Function(fnArith, func(params ...interface{}) (interface{}, error) {
			return arithmetic(params[0].(string), params[1], params[2])
		}),
		expr.Function(fnIn, func(params ...interface{}) (interface{}, error) {
			return inList(params[0], params[1])
		}),
		expr.Function(fnString, func(params ...interface{}) (interface{}, error) {
			return stringPredicate(params[0].(string), params[1], params[2]), nil
		}),
		expr.Function(fnMatch, func(params ...interface{}) (interface{}, error) {
			s, ok := params[0].(string)
			if !ok {
				return nil, nil
			}
			return patterns[params[1].(int)].MatchString(s), nil
		}),
		expr.Function(fnCall, func(params ...interface{}) (interface{}, error) {
			return callFunction(params[0].(string), params[1])
		}),
	}
}

// truth reads a value of the three-valued logic, where known is false for null.
func truth(v interface{}) (value bool, known bool, err error) {
	switch x := v.(type) {
	case nil:
		return false, false, nil
	case bool:
		return x, true, nil
	}
	return false, false, fmt.Errorf("expected a boolean, got %T", v)
}

func logicalAnd(a, b interface{}) (interface{}, error) {
	av, aknown, err := truth(a)
	if err != nil {
		return nil, err
	}
	bv, bknown, err := truth(b)
	if err != nil {
		return nil, err
	}

	if (aknown && !av) || (bknown && !bv) {
		return false, nil
	}
	if aknown && bknown {
		return true, nil
	}
	return nil, nil
}

func logicalOr(a, b interface{}) (interface{}, error) {
	av, aknown, err := truth(a)
	if err != nil {
		return nil, err
	}
	bv, bknown, err := truth(b)
	if err != nil {
		return nil, err
	}

	if (aknown && av) || (bknown && bv) {
		return true, nil
	}
	if aknown && bknown {
		return false, nil
	}
	return nil, nil
}

func logicalNot(a interface{}) (interface{}, error) {
	v, known, err := truth(a)
	if err != nil || !known {
		return nil, err
	}
	return !v, nil
}

// compareValues returns null when either side is null or the values cannot be ordered.
func compareValues(op string, a, b interface{}) interface{} {
	if a == nil || b == nil {
		return nil
	}

	switch op {
	case "=":
		return valuesEqual(a, b)
	case "<>", "!=":
		eq := valuesEqual(a, b)
		if eq == nil {
			return nil
		}
		return !eq.(bool)
	}

	c, ok := orderValues(a, b)
	if !ok {
		return nil
	}

	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return nil
}

// valuesEqual compares numbers by value regardless of their kind, so 30 equals 30.0.
// Values of different types are not equal. Lists holding a null may compare as null.
func valuesEqual(a, b interface{}) interface{} {
	if a == nil || b == nil {
		return nil
	}

	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return ai == bi
		}
	}
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return af == bf
		}
		return false
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []interface{}:
		y, ok := b.([]interface{})
		if !ok || len(x) != len(y) {
			return false
		}

		var unknown bool
		for i := range x {
			switch valuesEqual(x[i], y[i]) {
			case false:
				return false
			case nil:
				unknown = true
			}
		}
		if unknown {
			return nil
		}
		return true
	}
	return false
}

func orderValues(a, b interface{}) (int, bool) {
	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return cmp.Compare(ai, bi), true
		}
	}
	if af, ok := toFloat64(a); ok {
		bf, ok := toFloat64(b)
		if !ok || math.IsNaN(af) || math.IsNaN(bf) {
			return 0, false
		}
		return cmp.Compare(af, bf), true
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			return cmp.Compare(boolRank(x), boolRank(y)), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// arithmetic keeps integer operands as integers, so 7 / 2 is 3 like in Cypher.
func arithmetic(op string, a, b interface{}) (interface{}, error) {
	if a == nil || b == nil {
		return nil, nil
	}

	if op == "+" {
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				return as + bs, nil
			}
			if _, ok := toFloat64(b); ok {
				return as + fmt.Sprint(b), nil
			}
		} else if bs, ok := b.(string); ok {
			if _, ok := toFloat64(a); ok {
				return fmt.Sprint(a) + bs, nil
			}
		}
	}

	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			switch op {
			case "+":
				return ai + bi, nil
			case "-":
				return ai - bi, nil
			case "*":
				return ai * bi, nil
			case "/", "%":
				if bi == 0 {
					return nil, errDivisionByZero
				}
				if op == "/" {
					return ai / bi, nil
				}
				return ai % bi, nil
			}
		}
	}

	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if !aok || !bok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, a, b)
	}

	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		return af / bf, nil
	case "%":
		return math.Mod(af, bf), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// inList is null when the value is not found and the list holds a null.
func inList(v, list interface{}) (interface{}, error) {
	if list == nil {
		return nil, nil
	}

	elems, ok := list.([]interface{})
	if !ok {
		return nil, fmt.Errorf("IN expects a list, got %T", list)
	}
	if len(elems) == 0 {
		return false, nil
	}
	if v == nil {
		return nil, nil
	}

	var unknown bool
	for _, e := range elems {
		switch valuesEqual(v, e) {
		case true:
			return true, nil
		case nil:
			unknown = true
		}
	}
	if unknown {
		return nil, nil
	}
	return false, nil
}

// stringPredicate is null unless both sides are strings.
func stringPredicate(op string, a, b interface{}) interface{} {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return nil
	}

	switch op {
	case "STARTS WITH":
		return strings.HasPrefix(as, bs)
	case "ENDS WITH":
		return strings.HasSuffix(as, bs)
	case "CONTAINS":
		return strings.Contains(as, bs)
	}
	return nil
}

func callFunction(name string, arg interface{}) (interface{}, error) {
	if arg == nil {
		return nil, nil
	}

	switch x := arg.(type) {
	case string:
		switch name {
		case "tolower":
			return strings.ToLower(x), nil
		case "toupper":
			return strings.ToUpper(x), nil
		case "trim":
			return strings.TrimSpace(x), nil
		case "size":
			return int64(utf8.RuneCountInString(x)), nil
		}
	case []interface{}:
		if name == "size" {
			return int64(len(x)), nil
		}
	}
	return nil, fmt.Errorf("%s cannot be applied to %T", name, arg)
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
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
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}

	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
