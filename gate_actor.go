package flipper

import "context"

// ActorGate enables a feature for individually enrolled actors.
type ActorGate struct{}

func (ActorGate) Name() GateName     { return GateActors }
func (ActorGate) DataType() DataType { return DataTypeSet }

func (ActorGate) IsEnabled(values *GateValues) bool {
	return len(values.Actors) > 0
}

func (ActorGate) IsOpen(_ context.Context, ec EvalContext) bool {
	for _, actor := range ec.Actors {
		if actor == nil {
			continue
		}
		if _, ok := ec.Values.Actors[actor.FlipperID()]; ok {
			return true
		}
	}
	return false
}

func (ActorGate) Protects(thing any) bool {
	_, ok := thing.(Actor)
	return ok
}
