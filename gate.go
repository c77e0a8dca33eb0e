package flipper

import "context"

// GateName identifies a gate and doubles as its storage key.
type GateName string

const (
	GateBoolean            GateName = "boolean"
	GateGroups             GateName = "groups"
	GateActors             GateName = "actors"
	GatePercentageOfActors GateName = "percentage_of_actors"
	GatePercentageOfTime   GateName = "percentage_of_time"
	GateExpression         GateName = "expression"
)

// DataType describes the wire shape of a gate's stored value. Adapters
// branch on it to decide between set membership and scalar overwrite.
type DataType string

const (
	DataTypeBoolean DataType = "boolean"
	DataTypeSet     DataType = "set"
	DataTypeInteger DataType = "integer"
	DataTypeJSON    DataType = "json"
)

// EvalContext carries one evaluation's snapshot through the gates: the
// feature being checked, the state read from the adapter, the actors the
// caller supplied (possibly none), and the group registry in effect.
type EvalContext struct {
	FeatureName string
	Values      *GateValues
	Actors      []Actor
	Registry    *Registry
}

// Gate is one dimension of enablement. Implementations are stateless;
// all six are held in a fixed-order list so evaluation and
// instrumentation stay deterministic.
type Gate interface {
	// Name is the gate's identity and storage key.
	Name() GateName

	// DataType is the wire shape adapters persist for this gate.
	DataType() DataType

	// IsEnabled reports whether the stored value differs from the
	// gate's default. Disabled gates are skipped during evaluation.
	IsEnabled(values *GateValues) bool

	// IsOpen decides whether this gate enables the feature for the
	// given evaluation snapshot.
	IsOpen(ctx context.Context, ec EvalContext) bool

	// Protects reports whether the generic Enable/Disable routing
	// should send the given value to this gate.
	Protects(thing any) bool
}

// defaultGates returns the six gates in evaluation order: boolean first
// (kill switch), expression last.
func defaultGates() []Gate {
	return []Gate{
		BooleanGate{},
		GroupGate{},
		ActorGate{},
		PercentageOfActorsGate{},
		PercentageOfTimeGate{},
		ExpressionGate{},
	}
}

// Gates returns the six gates in evaluation order.
func Gates() []Gate { return defaultGates() }

// GateByName returns the gate with the given storage key.
func GateByName(name GateName) (Gate, bool) {
	for _, gate := range defaultGates() {
		if gate.Name() == name {
			return gate, true
		}
	}
	return nil, false
}
