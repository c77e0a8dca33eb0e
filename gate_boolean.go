package flipper

import "context"

// BooleanGate is the kill switch: a stored "true" enables the feature for
// everyone, regardless of which actors are asking.
type BooleanGate struct{}

func (BooleanGate) Name() GateName     { return GateBoolean }
func (BooleanGate) DataType() DataType { return DataTypeBoolean }

func (BooleanGate) IsEnabled(values *GateValues) bool {
	return values.Boolean != nil
}

func (BooleanGate) IsOpen(_ context.Context, ec EvalContext) bool {
	return ec.Values.Boolean != nil && *ec.Values.Boolean
}

func (BooleanGate) Protects(thing any) bool {
	switch thing.(type) {
	case bool, Boolean:
		return true
	default:
		return false
	}
}
