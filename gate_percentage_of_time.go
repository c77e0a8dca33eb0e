package flipper

import (
	"context"
	"math/rand/v2"
)

// PercentageOfTimeGate probabilistically enables a share of calls. Each
// evaluation draws a fresh uniform number; the actor never participates,
// so the same actor may see the feature flip between calls.
type PercentageOfTimeGate struct{}

func (PercentageOfTimeGate) Name() GateName     { return GatePercentageOfTime }
func (PercentageOfTimeGate) DataType() DataType { return DataTypeInteger }

func (PercentageOfTimeGate) IsEnabled(values *GateValues) bool {
	return values.PercentageOfTime > 0
}

func (PercentageOfTimeGate) IsOpen(_ context.Context, ec EvalContext) bool {
	return rand.Float64()*100 < float64(ec.Values.PercentageOfTime)
}

func (PercentageOfTimeGate) Protects(thing any) bool {
	_, ok := thing.(PercentageOfTime)
	return ok
}
