package expression

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// Evaluate runs the tree against the given properties and reduces the
// result to a bool. Evaluation is pure apart from Random and Now. Any
// error inside the tree (unknown property types, non-numeric comparison,
// malformed subtree) collapses to false: a bad rule disables, it never
// aborts.
func (e Expression) Evaluate(properties map[string]any) bool {
	v, err := e.eval(properties)
	if err != nil {
		return false
	}
	return truthy(v)
}

func (e Expression) eval(props map[string]any) (any, error) {
	if want, known := arity[e.op]; known && want >= 0 && len(e.args) != want {
		return nil, fmt.Errorf("expression: %s takes %d argument(s), got %d", e.op, want, len(e.args))
	}
	switch e.op {
	case "":
		return e.lit, nil

	case OpProperty:
		name, err := e.argString(0, props)
		if err != nil {
			return nil, err
		}
		return normalizeScalar(props[name]), nil

	case OpEqual:
		a, b, err := e.argPair(props)
		if err != nil {
			return nil, err
		}
		return looseEqual(a, b), nil

	case OpNotEqual:
		a, b, err := e.argPair(props)
		if err != nil {
			return nil, err
		}
		return !looseEqual(a, b), nil

	case OpGreaterThan, OpGreaterThanOrEqualTo, OpLessThan, OpLessThanOrEqualTo:
		a, b, err := e.argPair(props)
		if err != nil {
			return nil, err
		}
		af, aok := toNumber(a)
		bf, bok := toNumber(b)
		if !aok || !bok {
			return nil, fmt.Errorf("expression: %s requires numeric operands, got %T and %T", e.op, a, b)
		}
		switch e.op {
		case OpGreaterThan:
			return af > bf, nil
		case OpGreaterThanOrEqualTo:
			return af >= bf, nil
		case OpLessThan:
			return af < bf, nil
		default:
			return af <= bf, nil
		}

	case OpNumber:
		v, err := e.args[0].eval(props)
		if err != nil {
			return nil, err
		}
		if f, ok := toNumber(v); ok {
			return f, nil
		}
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("expression: Number cannot parse %q", s)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expression: Number cannot coerce %T", v)

	case OpString:
		v, err := e.args[0].eval(props)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%v", v), nil

	case OpBoolean:
		v, err := e.args[0].eval(props)
		if err != nil {
			return nil, err
		}
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("expression: Boolean cannot parse %q", b)
			}
			return parsed, nil
		default:
			if f, ok := toNumber(v); ok {
				return f != 0, nil
			}
			return nil, fmt.Errorf("expression: Boolean cannot coerce %T", v)
		}

	case OpRandom:
		v, err := e.args[0].eval(props)
		if err != nil {
			return nil, err
		}
		max, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("expression: Random requires a numeric bound, got %T", v)
		}
		if max <= 0 {
			return float64(0), nil
		}
		return rand.Float64() * max, nil

	case OpNow:
		return float64(time.Now().Unix()), nil

	case OpTime:
		s, err := e.argString(0, props)
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("expression: Time cannot parse %q: %w", s, err)
		}
		return float64(t.Unix()), nil

	case OpAny:
		for _, arg := range e.args {
			v, err := arg.eval(props)
			if err != nil {
				continue
			}
			if truthy(v) {
				return true, nil
			}
		}
		return false, nil

	case OpAll:
		for _, arg := range e.args {
			v, err := arg.eval(props)
			if err != nil || !truthy(v) {
				return false, nil
			}
		}
		return true, nil

	default:
		return nil, fmt.Errorf("expression: unknown operator %q", e.op)
	}
}

func (e Expression) argPair(props map[string]any) (any, any, error) {
	if len(e.args) != 2 {
		return nil, nil, fmt.Errorf("expression: %s takes 2 arguments, got %d", e.op, len(e.args))
	}
	a, err := e.args[0].eval(props)
	if err != nil {
		return nil, nil, err
	}
	b, err := e.args[1].eval(props)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (e Expression) argString(i int, props map[string]any) (string, error) {
	if i >= len(e.args) {
		return "", fmt.Errorf("expression: %s missing argument %d", e.op, i)
	}
	v, err := e.args[i].eval(props)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expression: %s requires a string argument, got %T", e.op, v)
	}
	return s, nil
}

// looseEqual compares numbers numerically and everything else by type and
// value. Values of mismatched kinds are never equal.
func looseEqual(a, b any) bool {
	if af, ok := toNumber(a); ok {
		bf, ok := toNumber(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return false
	}
}

// toNumber accepts the numeric types a properties map realistically
// carries. Strings are not numbers; route them through Number().
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// truthy mirrors the upstream engine: nil and false are false, anything
// else is true.
func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	default:
		return true
	}
}
