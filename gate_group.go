package flipper

import "context"

// GroupGate enables a feature for actors matched by a registered group
// predicate. Names stored without a matching registration are skipped at
// evaluation but stay persisted; the operator may register them later.
type GroupGate struct{}

func (GroupGate) Name() GateName     { return GateGroups }
func (GroupGate) DataType() DataType { return DataTypeSet }

func (GroupGate) IsEnabled(values *GateValues) bool {
	return len(values.Groups) > 0
}

func (GroupGate) IsOpen(ctx context.Context, ec EvalContext) bool {
	if ec.Registry == nil {
		return false
	}
	for name := range ec.Values.Groups {
		group, ok := ec.Registry.Group(name)
		if !ok {
			continue
		}
		for _, actor := range ec.Actors {
			if actor == nil {
				continue
			}
			if group.Match(ctx, actor) {
				return true
			}
		}
	}
	return false
}

func (GroupGate) Protects(thing any) bool {
	switch thing.(type) {
	case *Group, GroupName, string:
		return true
	default:
		return false
	}
}
