package flipper

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/larouxn/flipper/expression"
)

// State classifies a feature from its stored gate values.
type State string

const (
	// StateOn means the feature is fully on: boolean gate true or
	// percentage of time at 100.
	StateOn State = "on"
	// StateOff means every gate is at its default.
	StateOff State = "off"
	// StateConditional means some gate is configured but the feature is
	// not unconditionally on.
	StateConditional State = "conditional"
)

// Feature is the orchestrator for one named flag. It is stateless beyond
// its name and the shared adapter/instrumenter handles, so values are
// cheap and safe to use from any number of goroutines.
type Feature struct {
	name         string
	adapter      Adapter
	instrumenter Instrumenter
	registry     *Registry
	gates        []Gate
}

// NewFeature builds a feature bound to an adapter. Most callers go
// through Flipper.Feature instead.
func NewFeature(name string, adapter Adapter, opts ...Option) *Feature {
	if name == "" {
		panic("flipper: feature name cannot be empty")
	}
	if adapter == nil {
		panic("flipper: adapter cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Feature{
		name:         name,
		adapter:      adapter,
		instrumenter: o.instrumenter,
		registry:     o.registry,
		gates:        defaultGates(),
	}
}

// Name returns the feature's identity and persistence key.
func (f *Feature) Name() string { return f.name }

// Adapter returns the storage backend the feature reads and writes.
func (f *Feature) Adapter() Adapter { return f.adapter }

// Gates returns the six gates in evaluation order.
func (f *Feature) Gates() []Gate {
	out := make([]Gate, len(f.gates))
	copy(out, f.gates)
	return out
}

// Gate returns the gate with the given name.
func (f *Feature) Gate(name GateName) (Gate, bool) {
	for _, gate := range f.gates {
		if gate.Name() == name {
			return gate, true
		}
	}
	return nil, false
}

// GateFor returns the gate that protects the given value, mirroring the
// routing of the generic Enable and Disable.
func (f *Feature) GateFor(thing any) (Gate, error) {
	for _, gate := range f.gates {
		if gate.Protects(thing) {
			return gate, nil
		}
	}
	return nil, GateNotFoundError{Thing: thing}
}

// Enabled reports whether the feature is enabled for the given actors.
// With no actors only the actor-independent gates (boolean, percentage of
// time) can open. With several actors the feature is enabled when any
// gate opens for any of them.
//
// One adapter read per call; the six gates see one consistent snapshot.
// Adapter failures propagate; the engine never defaults to enabled.
func (f *Feature) Enabled(ctx context.Context, actors ...Actor) (bool, error) {
	values, err := f.adapter.Get(ctx, f.name)
	if err != nil {
		return false, fmt.Errorf("flipper: get %q: %w", f.name, err)
	}

	ec := EvalContext{
		FeatureName: f.name,
		Values:      values,
		Actors:      compactActors(actors),
		Registry:    f.registry,
	}

	result := false
	for _, gate := range f.gates {
		if !gate.IsEnabled(values) {
			continue
		}
		if gate.IsOpen(ctx, ec) {
			result = true
			break
		}
	}

	f.instrument("enabled?", result, map[string]any{
		PayloadActors: actorIDs(ec.Actors),
	})
	return result, nil
}

// Enable turns gates on. With no arguments it enables the boolean gate,
// turning the feature on for everyone. Each argument is routed to its gate by
// runtime type: bool/Boolean, Actor, group name or *Group,
// PercentageOfActors, PercentageOfTime, expression.Expression.
func (f *Feature) Enable(ctx context.Context, things ...any) error {
	if len(things) == 0 {
		things = []any{true}
	}
	for _, thing := range things {
		if err := f.enableThing(ctx, thing); err != nil {
			return err
		}
	}
	return nil
}

// Disable turns gates off. With no arguments it clears every gate. Each
// argument is routed like Enable.
func (f *Feature) Disable(ctx context.Context, things ...any) error {
	if len(things) == 0 {
		return f.Clear(ctx)
	}
	for _, thing := range things {
		if err := f.disableThing(ctx, thing); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feature) enableThing(ctx context.Context, thing any) error {
	switch v := thing.(type) {
	case bool:
		if !v {
			return f.disableBoolean(ctx)
		}
		return f.enableBoolean(ctx)
	case Boolean:
		if !v {
			return f.disableBoolean(ctx)
		}
		return f.enableBoolean(ctx)
	case Actor:
		return f.EnableActor(ctx, v)
	case *Group:
		return f.EnableGroup(ctx, v.Name())
	case GroupName:
		return f.EnableGroup(ctx, string(v))
	case string:
		return f.EnableGroup(ctx, v)
	case PercentageOfActors:
		return f.EnablePercentageOfActors(ctx, int(v))
	case PercentageOfTime:
		return f.EnablePercentageOfTime(ctx, int(v))
	case expression.Expression:
		return f.EnableExpression(ctx, v)
	case *expression.Expression:
		return f.EnableExpression(ctx, *v)
	default:
		return GateNotFoundError{Thing: thing}
	}
}

func (f *Feature) disableThing(ctx context.Context, thing any) error {
	switch v := thing.(type) {
	case bool, Boolean:
		return f.disableBoolean(ctx)
	case Actor:
		return f.DisableActor(ctx, v)
	case *Group:
		return f.DisableGroup(ctx, v.Name())
	case GroupName:
		return f.DisableGroup(ctx, string(v))
	case string:
		return f.DisableGroup(ctx, v)
	case PercentageOfActors:
		return f.DisablePercentageOfActors(ctx)
	case PercentageOfTime:
		return f.DisablePercentageOfTime(ctx)
	case expression.Expression, *expression.Expression:
		return f.DisableExpression(ctx)
	default:
		return GateNotFoundError{Thing: thing}
	}
}

func (f *Feature) enableBoolean(ctx context.Context) error {
	err := f.write(ctx, BooleanGate{}, "true", true)
	f.instrumentMutation("enable", GateBoolean, true, err)
	return err
}

// disableBoolean clears the whole feature, so Disable(ctx, false) and a
// bare Disable(ctx) agree.
func (f *Feature) disableBoolean(ctx context.Context) error {
	err := f.adapter.Disable(ctx, f.name, BooleanGate{}, "false")
	f.instrumentMutation("disable", GateBoolean, false, err)
	return err
}

// EnableActor enrolls one actor.
func (f *Feature) EnableActor(ctx context.Context, actor Actor) error {
	if actor == nil || actor.FlipperID() == "" {
		return ErrInvalidActor
	}
	err := f.write(ctx, ActorGate{}, actor.FlipperID(), true)
	f.instrumentMutation("enable", GateActors, actor.FlipperID(), err)
	return err
}

// DisableActor removes one actor. Removing an actor that was never
// enrolled succeeds.
func (f *Feature) DisableActor(ctx context.Context, actor Actor) error {
	if actor == nil || actor.FlipperID() == "" {
		return ErrInvalidActor
	}
	err := f.write(ctx, ActorGate{}, actor.FlipperID(), false)
	f.instrumentMutation("disable", GateActors, actor.FlipperID(), err)
	return err
}

// EnableGroup enables the feature for every actor the named group
// matches. The group must be registered.
func (f *Feature) EnableGroup(ctx context.Context, name string) error {
	if _, ok := f.registry.Group(name); !ok {
		return GroupNotRegisteredError{Name: name}
	}
	err := f.write(ctx, GroupGate{}, name, true)
	f.instrumentMutation("enable", GateGroups, name, err)
	return err
}

// DisableGroup removes the named group. The group must be registered.
func (f *Feature) DisableGroup(ctx context.Context, name string) error {
	if _, ok := f.registry.Group(name); !ok {
		return GroupNotRegisteredError{Name: name}
	}
	err := f.write(ctx, GroupGate{}, name, false)
	f.instrumentMutation("disable", GateGroups, name, err)
	return err
}

// EnablePercentageOfActors rolls the feature out to a deterministic slice
// of actors.
func (f *Feature) EnablePercentageOfActors(ctx context.Context, percentage int) error {
	if err := PercentageOfActors(percentage).Validate(); err != nil {
		return err
	}
	err := f.write(ctx, PercentageOfActorsGate{}, strconv.Itoa(percentage), true)
	f.instrumentMutation("enable", GatePercentageOfActors, percentage, err)
	return err
}

// DisablePercentageOfActors resets the rollout to zero.
func (f *Feature) DisablePercentageOfActors(ctx context.Context) error {
	err := f.write(ctx, PercentageOfActorsGate{}, "0", false)
	f.instrumentMutation("disable", GatePercentageOfActors, 0, err)
	return err
}

// EnablePercentageOfTime enables the feature for a share of calls.
func (f *Feature) EnablePercentageOfTime(ctx context.Context, percentage int) error {
	if err := PercentageOfTime(percentage).Validate(); err != nil {
		return err
	}
	err := f.write(ctx, PercentageOfTimeGate{}, strconv.Itoa(percentage), true)
	f.instrumentMutation("enable", GatePercentageOfTime, percentage, err)
	return err
}

// DisablePercentageOfTime resets the rollout to zero.
func (f *Feature) DisablePercentageOfTime(ctx context.Context) error {
	err := f.write(ctx, PercentageOfTimeGate{}, "0", false)
	f.instrumentMutation("disable", GatePercentageOfTime, 0, err)
	return err
}

// EnableExpression replaces the stored rule tree.
func (f *Feature) EnableExpression(ctx context.Context, e expression.Expression) error {
	if err := e.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("flipper: serialize expression: %w", err)
	}
	werr := f.write(ctx, ExpressionGate{}, string(raw), true)
	f.instrumentMutation("enable", GateExpression, string(raw), werr)
	return werr
}

// DisableExpression clears the stored rule tree.
func (f *Feature) DisableExpression(ctx context.Context) error {
	err := f.write(ctx, ExpressionGate{}, "", false)
	f.instrumentMutation("disable", GateExpression, nil, err)
	return err
}

// AddExpression ORs a rule into the stored tree: with nothing stored it
// becomes the tree, with a stored Any it is appended, and anything else
// is wrapped into Any(current, e). Adding a rule never narrows the
// enabled set.
func (f *Feature) AddExpression(ctx context.Context, e expression.Expression) error {
	if err := e.Validate(); err != nil {
		return err
	}

	values, err := f.adapter.Get(ctx, f.name)
	if err != nil {
		return fmt.Errorf("flipper: get %q: %w", f.name, err)
	}

	switch {
	case values.Expression == nil:
		return f.EnableExpression(ctx, e)
	case values.Expression.Operator() == expression.OpAny:
		args := values.Expression.Arguments()
		return f.EnableExpression(ctx, expression.Any(append(args, e)...))
	default:
		return f.EnableExpression(ctx, expression.Any(*values.Expression, e))
	}
}

// RemoveExpression removes a rule from the stored tree: the first
// deep-equal argument of a stored Any is dropped; a stored tree equal to
// e becomes the empty Any (always false); any other stored tree is
// wrapped into Any(current). With nothing stored it is a no-op.
func (f *Feature) RemoveExpression(ctx context.Context, e expression.Expression) error {
	values, err := f.adapter.Get(ctx, f.name)
	if err != nil {
		return fmt.Errorf("flipper: get %q: %w", f.name, err)
	}

	current := values.Expression
	switch {
	case current == nil:
		return nil
	case current.Operator() == expression.OpAny:
		args := current.Arguments()
		for i, arg := range args {
			if reflect.DeepEqual(arg, e) {
				args = append(args[:i], args[i+1:]...)
				break
			}
		}
		return f.EnableExpression(ctx, expression.Any(args...))
	case reflect.DeepEqual(*current, e):
		return f.EnableExpression(ctx, expression.Any())
	default:
		return f.EnableExpression(ctx, expression.Any(*current))
	}
}

// Add registers the feature with the adapter.
func (f *Feature) Add(ctx context.Context) error {
	err := f.adapter.Add(ctx, f.name)
	f.instrument("add", err == nil, nil)
	return err
}

// Remove unregisters the feature and wipes its gate values.
func (f *Feature) Remove(ctx context.Context) error {
	err := f.adapter.Remove(ctx, f.name)
	f.instrument("remove", err == nil, nil)
	return err
}

// Clear resets every gate to its default without unregistering the
// feature.
func (f *Feature) Clear(ctx context.Context) error {
	err := f.adapter.Clear(ctx, f.name)
	f.instrument("clear", err == nil, nil)
	return err
}

// Exist reports whether the feature is registered with the adapter.
func (f *Feature) Exist(ctx context.Context) (bool, error) {
	features, err := f.adapter.Features(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range features {
		if name == f.name {
			return true, nil
		}
	}
	return false, nil
}

// GateValues returns the feature's stored state.
func (f *Feature) GateValues(ctx context.Context) (*GateValues, error) {
	return f.adapter.Get(ctx, f.name)
}

// State classifies the feature: on (boolean true or percentage of time
// 100), off (all defaults), or conditional.
func (f *Feature) State(ctx context.Context) (State, error) {
	values, err := f.adapter.Get(ctx, f.name)
	if err != nil {
		return "", err
	}
	return values.State(), nil
}

// IsOn reports whether the feature is unconditionally on.
func (f *Feature) IsOn(ctx context.Context) (bool, error) {
	state, err := f.State(ctx)
	return state == StateOn, err
}

// IsOff reports whether every gate is at its default.
func (f *Feature) IsOff(ctx context.Context) (bool, error) {
	state, err := f.State(ctx)
	return state == StateOff, err
}

// IsConditional reports whether the feature is partially configured.
func (f *Feature) IsConditional(ctx context.Context) (bool, error) {
	state, err := f.State(ctx)
	return state == StateConditional, err
}

// EnabledGates returns the gates whose stored value differs from the
// default.
func (f *Feature) EnabledGates(ctx context.Context) ([]Gate, error) {
	values, err := f.adapter.Get(ctx, f.name)
	if err != nil {
		return nil, err
	}
	var out []Gate
	for _, gate := range f.gates {
		if gate.IsEnabled(values) {
			out = append(out, gate)
		}
	}
	return out, nil
}

// DisabledGates returns the gates still at their default.
func (f *Feature) DisabledGates(ctx context.Context) ([]Gate, error) {
	values, err := f.adapter.Get(ctx, f.name)
	if err != nil {
		return nil, err
	}
	var out []Gate
	for _, gate := range f.gates {
		if !gate.IsEnabled(values) {
			out = append(out, gate)
		}
	}
	return out, nil
}

// EnabledGateNames returns the names of the configured gates.
func (f *Feature) EnabledGateNames(ctx context.Context) ([]GateName, error) {
	gates, err := f.EnabledGates(ctx)
	if err != nil {
		return nil, err
	}
	return gateNames(gates), nil
}

// DisabledGateNames returns the names of the gates at their default.
func (f *Feature) DisabledGateNames(ctx context.Context) ([]GateName, error) {
	gates, err := f.DisabledGates(ctx)
	if err != nil {
		return nil, err
	}
	return gateNames(gates), nil
}

// write registers the feature and applies one gate mutation.
func (f *Feature) write(ctx context.Context, gate Gate, value string, enable bool) error {
	if err := f.adapter.Add(ctx, f.name); err != nil {
		return fmt.Errorf("flipper: add %q: %w", f.name, err)
	}
	var err error
	if enable {
		err = f.adapter.Enable(ctx, f.name, gate, value)
	} else {
		err = f.adapter.Disable(ctx, f.name, gate, value)
	}
	if err != nil {
		return fmt.Errorf("flipper: write %q/%s: %w", f.name, gate.Name(), err)
	}
	return nil
}

func (f *Feature) instrumentMutation(operation string, gate GateName, thing any, err error) {
	if err != nil {
		return
	}
	f.instrument(operation, true, map[string]any{
		PayloadGateName: gate,
		PayloadThing:    thing,
	})
}

// instrument emits one event after an operation completes. Instrumenter
// panics are swallowed; reporting must never break the caller.
func (f *Feature) instrument(operation string, result any, extra map[string]any) {
	if f.instrumenter == nil {
		return
	}
	defer func() { _ = recover() }()

	payload := map[string]any{
		PayloadFeatureName: f.name,
		PayloadOperation:   operation,
		PayloadResult:      result,
	}
	for k, v := range extra {
		payload[k] = v
	}
	f.instrumenter.Instrument(InstrumentationName, payload)
}

func gateNames(gates []Gate) []GateName {
	out := make([]GateName, 0, len(gates))
	for _, gate := range gates {
		out = append(out, gate.Name())
	}
	return out
}

func compactActors(actors []Actor) []Actor {
	out := actors[:0:0]
	for _, actor := range actors {
		if actor != nil {
			out = append(out, actor)
		}
	}
	return out
}

func actorIDs(actors []Actor) []string {
	out := make([]string, 0, len(actors))
	for _, actor := range actors {
		out = append(out, actor.FlipperID())
	}
	return out
}
