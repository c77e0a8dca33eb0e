package expression

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the tree into the nested-mapping form. A literal
// scalar encodes as itself; an operator node encodes as a single-key
// object whose value is the argument list.
func (e Expression) MarshalJSON() ([]byte, error) {
	if e.op == "" {
		return json.Marshal(e.lit)
	}

	args := make([]json.RawMessage, 0, len(e.args))
	for _, arg := range e.args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, raw)
	}

	return json.Marshal(map[string][]json.RawMessage{e.op: args})
}

// UnmarshalJSON decodes the nested-mapping form. Single-key objects become
// operator nodes; strings, numbers, and booleans become literals. A
// non-array operator payload is accepted and treated as a one-argument
// list.
func (e *Expression) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("expression: empty document")
	}

	if trimmed[0] != '{' {
		var lit any
		if err := json.Unmarshal(trimmed, &lit); err != nil {
			return fmt.Errorf("expression: invalid scalar: %w", err)
		}
		switch lit.(type) {
		case string, float64, bool:
			*e = Expression{lit: lit}
			return nil
		default:
			return fmt.Errorf("expression: unsupported scalar %s", trimmed)
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("expression: invalid node: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("expression: node must have exactly one operator, got %d keys", len(obj))
	}

	for op, payload := range obj {
		if _, known := arity[op]; !known {
			return fmt.Errorf("expression: unknown operator %q", op)
		}

		var rawArgs []json.RawMessage
		if err := json.Unmarshal(payload, &rawArgs); err != nil {
			// Shorthand: {"Property": "plan"} means {"Property": ["plan"]}.
			rawArgs = []json.RawMessage{payload}
		}

		var args []Expression
		for _, raw := range rawArgs {
			var arg Expression
			if err := arg.UnmarshalJSON(raw); err != nil {
				return err
			}
			args = append(args, arg)
		}

		*e = Expression{op: op, args: args}
	}
	return nil
}

// FromJSON decodes and validates a serialized tree.
func FromJSON(data []byte) (Expression, error) {
	var e Expression
	if err := json.Unmarshal(data, &e); err != nil {
		return Expression{}, err
	}
	if err := e.Validate(); err != nil {
		return Expression{}, err
	}
	return e, nil
}
