// Package expression implements the boolean rule trees evaluated by the
// expression gate. A tree is an immutable value: leaves are scalars
// (string, number, bool), inner nodes are operators applied to child
// expressions. Trees serialize to the nested-mapping JSON form
// {"Op": [arg, arg, ...]} with scalars encoded as themselves.
package expression

import "fmt"

// Operator names as they appear in the serialized form.
const (
	OpProperty             = "Property"
	OpEqual                = "Equal"
	OpNotEqual             = "NotEqual"
	OpGreaterThan          = "GreaterThan"
	OpGreaterThanOrEqualTo = "GreaterThanOrEqualTo"
	OpLessThan             = "LessThan"
	OpLessThanOrEqualTo    = "LessThanOrEqualTo"
	OpNumber               = "Number"
	OpString               = "String"
	OpBoolean              = "Boolean"
	OpRandom               = "Random"
	OpNow                  = "Now"
	OpTime                 = "Time"
	OpAny                  = "Any"
	OpAll                  = "All"
)

// Expression is one node of a rule tree. The zero value is an empty
// literal and evaluates to false; build trees with the package
// constructors and the comparison methods.
type Expression struct {
	op   string
	args []Expression
	lit  any // scalar payload when op is empty
}

// Value returns a literal scalar expression. Integers are widened to
// float64 so that trees compare equal regardless of whether they were
// built in code or decoded from JSON.
func Value(v any) Expression {
	return Expression{lit: normalizeScalar(v)}
}

// Property returns an expression that reads the named property from the
// evaluation input.
func Property(name string) Expression {
	return node(OpProperty, Value(name))
}

// Any is true when at least one child is true. With no children it is
// always false.
func Any(children ...Expression) Expression {
	return node(OpAny, children...)
}

// All is true when every child is true. With no children it is always true.
func All(children ...Expression) Expression {
	return node(OpAll, children...)
}

// Number coerces its argument to a number at evaluation time.
func Number(v any) Expression { return node(OpNumber, coerce(v)) }

// String coerces its argument to a string at evaluation time.
func String(v any) Expression { return node(OpString, coerce(v)) }

// Boolean coerces its argument to a bool at evaluation time.
func Boolean(v any) Expression { return node(OpBoolean, coerce(v)) }

// Random draws a fresh uniform number in [0, max) on every evaluation.
func Random(max any) Expression { return node(OpRandom, coerce(max)) }

// Now yields the current time as unix seconds.
func Now() Expression { return Expression{op: OpNow} }

// Time parses an RFC 3339 timestamp into unix seconds.
func Time(value string) Expression { return node(OpTime, Value(value)) }

// Equal compares the receiver with v for loose equality.
func (e Expression) Equal(v any) Expression { return node(OpEqual, e, coerce(v)) }

// NotEqual is the negation of Equal.
func (e Expression) NotEqual(v any) Expression { return node(OpNotEqual, e, coerce(v)) }

// GreaterThan compares numerically.
func (e Expression) GreaterThan(v any) Expression { return node(OpGreaterThan, e, coerce(v)) }

// GreaterThanOrEqual compares numerically.
func (e Expression) GreaterThanOrEqual(v any) Expression {
	return node(OpGreaterThanOrEqualTo, e, coerce(v))
}

// LessThan compares numerically.
func (e Expression) LessThan(v any) Expression { return node(OpLessThan, e, coerce(v)) }

// LessThanOrEqual compares numerically.
func (e Expression) LessThanOrEqual(v any) Expression {
	return node(OpLessThanOrEqualTo, e, coerce(v))
}

// Operator returns the node's operator name, or the empty string for a
// literal scalar.
func (e Expression) Operator() string { return e.op }

// Arguments returns a copy of the node's child expressions.
func (e Expression) Arguments() []Expression {
	out := make([]Expression, len(e.args))
	copy(out, e.args)
	return out
}

// IsZero reports whether the expression is the empty zero value.
func (e Expression) IsZero() bool {
	return e.op == "" && e.lit == nil && len(e.args) == 0
}

// Validate checks that every node uses a known operator with the arity it
// requires and that literals hold only string, number, or bool scalars.
// Trees decoded from untrusted input should be validated before storage.
func (e Expression) Validate() error {
	if e.op == "" {
		switch e.lit.(type) {
		case string, float64, bool:
			return nil
		case nil:
			return fmt.Errorf("expression: empty literal")
		default:
			return fmt.Errorf("expression: unsupported literal type %T", e.lit)
		}
	}

	want, known := arity[e.op]
	if !known {
		return fmt.Errorf("expression: unknown operator %q", e.op)
	}
	if want >= 0 && len(e.args) != want {
		return fmt.Errorf("expression: %s takes %d argument(s), got %d", e.op, want, len(e.args))
	}

	for _, arg := range e.args {
		if err := arg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// arity maps operators to their required argument count; -1 means variadic.
var arity = map[string]int{
	OpProperty:             1,
	OpEqual:                2,
	OpNotEqual:             2,
	OpGreaterThan:          2,
	OpGreaterThanOrEqualTo: 2,
	OpLessThan:             2,
	OpLessThanOrEqualTo:    2,
	OpNumber:               1,
	OpString:               1,
	OpBoolean:              1,
	OpRandom:               1,
	OpNow:                  0,
	OpTime:                 1,
	OpAny:                  -1,
	OpAll:                  -1,
}

func node(op string, args ...Expression) Expression {
	// Keep no-argument nodes canonical (nil, not empty) so trees compare
	// equal no matter whether they were built in code or decoded.
	if len(args) == 0 {
		args = nil
	}
	return Expression{op: op, args: args}
}

// coerce lifts a plain Go value into an expression, leaving expressions
// untouched.
func coerce(v any) Expression {
	if e, ok := v.(Expression); ok {
		return e
	}
	return Value(v)
}

// normalizeScalar widens numeric types to float64, matching what
// encoding/json produces on decode.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
