package sqlgen

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// ErrUnknownColumn is returned when a predicate references a column the
// row does not carry.
var ErrUnknownColumn = fmt.Errorf("sqlgen: unknown column")

// truth is the three-valued logic carrier used during evaluation.
// A comparison against NULL is neither satisfied nor refuted.
type truth int8

const (
	truthFalse truth = iota
	truthTrue
	truthNull
)

func truthOf(b bool) truth {
	if b {
		return truthTrue
	}
	return truthFalse
}

func (t truth) not() truth {
	switch t {
	case truthTrue:
		return truthFalse
	case truthFalse:
		return truthTrue
	default:
		return truthNull
	}
}

// Eval applies a predicate to a single row. lookup resolves a column name
// to its value; ok=false means the row has no such column, which is an
// error (the predicate is malformed for this row shape, not merely
// unsatisfied).
//
// Evaluation follows SQL three-valued logic internally; a predicate whose
// final truth value is NULL does not keep the row. A nil predicate keeps
// every row.
func Eval(p Predicate, lookup func(column string) (any, bool)) (bool, error) {
	if p == nil {
		return true, nil
	}
	t, err := eval(p, lookup)
	if err != nil {
		return false, err
	}
	return t == truthTrue, nil
}

// EvalAll applies a filter sequence in order, conjoined.
func EvalAll(ps []Predicate, lookup func(column string) (any, bool)) (bool, error) {
	for _, p := range ps {
		keep, err := Eval(p, lookup)
		if err != nil {
			return false, err
		}
		if !keep {
			return false, nil
		}
	}
	return true, nil
}

func eval(p Predicate, lookup func(string) (any, bool)) (truth, error) {
	switch n := p.(type) {
	case *Comparison:
		return evalComparison(n, lookup)
	case *Membership:
		return evalMembership(n, lookup)
	case *Range:
		return evalRange(n, lookup)
	case *Nullness:
		v, err := columnValue(n.Column, lookup)
		if err != nil {
			return truthFalse, err
		}
		isNull := v == nil
		if n.Negate {
			return truthOf(!isNull), nil
		}
		return truthOf(isNull), nil
	case *Conjunction:
		return evalConjunction(n, lookup)
	case *Negation:
		if n.Child == nil {
			return truthFalse, ErrNilPredicate
		}
		t, err := eval(n.Child, lookup)
		if err != nil {
			return truthFalse, err
		}
		return t.not(), nil
	default:
		return truthFalse, fmt.Errorf("sqlgen: unsupported predicate type %T", p)
	}
}

func evalComparison(n *Comparison, lookup func(string) (any, bool)) (truth, error) {
	v, err := columnValue(n.Column, lookup)
	if err != nil {
		return truthFalse, err
	}
	if v == nil || n.Value == nil {
		return truthNull, nil
	}

	switch n.Op {
	case OpLike, OpILike:
		s, ok := v.(string)
		pat, ok2 := n.Value.(string)
		if !ok || !ok2 {
			return truthFalse, fmt.Errorf("sqlgen: LIKE requires string operands, got %T and %T", v, n.Value)
		}
		re, err := likeRegexp(pat, n.Op == OpILike)
		if err != nil {
			return truthFalse, err
		}
		return truthOf(re.MatchString(s)), nil
	case OpEq:
		return truthOf(valuesEqual(v, n.Value)), nil
	case OpNe:
		return truthOf(!valuesEqual(v, n.Value)), nil
	}

	cmp, ok := compareValues(v, n.Value)
	if !ok {
		return truthFalse, fmt.Errorf("sqlgen: cannot order %T against %T", v, n.Value)
	}
	switch n.Op {
	case OpLt:
		return truthOf(cmp < 0), nil
	case OpGt:
		return truthOf(cmp > 0), nil
	case OpLe:
		return truthOf(cmp <= 0), nil
	case OpGe:
		return truthOf(cmp >= 0), nil
	default:
		return truthFalse, fmt.Errorf("sqlgen: unsupported comparison operator %q", n.Op)
	}
}

func evalMembership(n *Membership, lookup func(string) (any, bool)) (truth, error) {
	v, err := columnValue(n.Column, lookup)
	if err != nil {
		return truthFalse, err
	}
	if v == nil {
		return truthNull, nil
	}

	sawNull := false
	for _, candidate := range n.Values {
		if candidate == nil {
			sawNull = true
			continue
		}
		if valuesEqual(v, candidate) {
			return truthOf(!n.Negate), nil
		}
	}
	// No match. With a NULL candidate the result is unknown, not false.
	if sawNull {
		return truthNull, nil
	}
	return truthOf(n.Negate), nil
}

func evalRange(n *Range, lookup func(string) (any, bool)) (truth, error) {
	v, err := columnValue(n.Column, lookup)
	if err != nil {
		return truthFalse, err
	}
	if v == nil || n.Lower == nil || n.Upper == nil {
		return truthNull, nil
	}

	lo, ok := compareValues(v, n.Lower)
	if !ok {
		return truthFalse, fmt.Errorf("sqlgen: cannot order %T against %T", v, n.Lower)
	}
	hi, ok := compareValues(v, n.Upper)
	if !ok {
		return truthFalse, fmt.Errorf("sqlgen: cannot order %T against %T", v, n.Upper)
	}
	return truthOf(lo >= 0 && hi <= 0), nil
}

func evalConjunction(n *Conjunction, lookup func(string) (any, bool)) (truth, error) {
	if len(n.Children) == 0 {
		if n.Op == OpOr {
			return truthFalse, nil
		}
		return truthTrue, nil
	}

	result := truthOf(n.Op == OpAnd)
	for _, child := range n.Children {
		if child == nil {
			return truthFalse, ErrNilPredicate
		}
		t, err := eval(child, lookup)
		if err != nil {
			return truthFalse, err
		}
		if n.Op == OpAnd {
			if t == truthFalse {
				return truthFalse, nil
			}
			if t == truthNull {
				result = truthNull
			}
		} else {
			if t == truthTrue {
				return truthTrue, nil
			}
			if t == truthNull {
				result = truthNull
			}
		}
	}
	return result, nil
}

func columnValue(column string, lookup func(string) (any, bool)) (any, error) {
	v, ok := lookup(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return v, nil
}

// valuesEqual reports equality across the value types a row can carry.
// Numeric values compare by magnitude regardless of their Go type.
func valuesEqual(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	if ab, ok := a.([]byte); ok {
		if bb, ok := b.([]byte); ok {
			return bytes.Equal(ab, bb)
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values when an ordering exists.
// Returns the usual -1/0/1 and whether the pair is orderable.
func compareValues(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			// false orders before true
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), true
		}
	case []byte:
		if bv, ok := b.([]byte); ok {
			return bytes.Compare(av, bv), true
		}
	}
	return 0, false
}

// asFloat widens any numeric value to float64 for cross-type ordering.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// likeRegexp translates a SQL LIKE pattern to an anchored regexp.
// % matches any run of characters, _ matches exactly one.
func likeRegexp(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	var sb strings.Builder
	if caseInsensitive {
		sb.WriteString("(?i)")
	}
	sb.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
