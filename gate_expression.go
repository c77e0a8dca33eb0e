package flipper

import (
	"context"

	"github.com/larouxn/flipper/expression"
)

// ExpressionGate evaluates the stored rule tree against each actor's
// properties. Evaluation is pure and total: a malformed or erroring
// subtree yields false, never an abort.
type ExpressionGate struct{}

func (ExpressionGate) Name() GateName     { return GateExpression }
func (ExpressionGate) DataType() DataType { return DataTypeJSON }

func (ExpressionGate) IsEnabled(values *GateValues) bool {
	return values.Expression != nil
}

func (ExpressionGate) IsOpen(_ context.Context, ec EvalContext) bool {
	if ec.Values.Expression == nil {
		return false
	}
	for _, actor := range ec.Actors {
		if actor == nil {
			continue
		}
		if ec.Values.Expression.Evaluate(actorProperties(actor)) {
			return true
		}
	}
	return false
}

func (ExpressionGate) Protects(thing any) bool {
	switch thing.(type) {
	case expression.Expression, *expression.Expression:
		return true
	default:
		return false
	}
}
