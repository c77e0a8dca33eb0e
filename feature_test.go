package flipper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/adapters/memory"
	"github.com/larouxn/flipper/expression"
	memoryins "github.com/larouxn/flipper/instrumenters/memory"
)

func newTestFlipper(t *testing.T) (*flipper.Flipper, *flipper.Registry) {
	t.Helper()
	registry := flipper.NewRegistry()
	return flipper.New(memory.New(), flipper.WithRegistry(registry)), registry
}

func TestBooleanKillSwitch(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")
	actor := flipper.NewActor("User;1")

	require.NoError(t, feature.Enable(ctx))
	enabled, err := feature.Enabled(ctx, actor)
	require.NoError(t, err)
	assert.True(t, enabled)

	// Boolean enable covers the no-actor check too.
	enabled, err = feature.Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, feature.Disable(ctx))
	enabled, err = feature.Enabled(ctx, actor)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestActorGate(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	require.NoError(t, feature.EnableActor(ctx, flipper.NewActor("5")))
	require.NoError(t, feature.EnableActor(ctx, flipper.NewActor("22")))

	enabled, err := feature.Enabled(ctx, flipper.NewActor("5"))
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = feature.Enabled(ctx, flipper.NewActor("7"))
	require.NoError(t, err)
	assert.False(t, enabled)

	values, err := feature.GateValues(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"5", "22"}, values.ActorIDs())

	// Disabling a never-enrolled actor is a no-op success.
	require.NoError(t, feature.DisableActor(ctx, flipper.NewActor("404")))
	require.NoError(t, feature.DisableActor(ctx, flipper.NewActor("5")))

	enabled, err = feature.Enabled(ctx, flipper.NewActor("5"))
	require.NoError(t, err)
	assert.False(t, enabled)
}

// TestPercentageOfActorsMatchesHash pins the end-to-end decision to the
// documented formula: crc32("search"+id)/(2^32-1)*100 < percentage.
// The expected values were computed independently of this codebase.
func TestPercentageOfActorsMatchesHash(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	require.NoError(t, feature.EnablePercentageOfActors(ctx, 10))

	// score("search21") = 5.15, score("search1") = 79.63, score("search7") = 13.56
	for id, want := range map[string]bool{
		"21": true,
		"29": true, // 1.53
		"1":  false,
		"7":  false,
	} {
		enabled, err := feature.Enabled(ctx, flipper.NewActor(id))
		require.NoError(t, err)
		assert.Equal(t, want, enabled, "actor %s at 10%%", id)
	}

	// Raising the percentage across 13.56 flips actor 7 exactly once.
	require.NoError(t, feature.EnablePercentageOfActors(ctx, 13))
	enabled, err := feature.Enabled(ctx, flipper.NewActor("7"))
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, feature.EnablePercentageOfActors(ctx, 14))
	enabled, err = feature.Enabled(ctx, flipper.NewActor("7"))
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestPercentageOfActorsExtremes(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("rollout")

	require.NoError(t, feature.EnablePercentageOfActors(ctx, 100))
	for i := range 100 {
		enabled, err := feature.Enabled(ctx, flipper.NewActor(fmt.Sprintf("u%d", i)))
		require.NoError(t, err)
		require.True(t, enabled, "100%% must enable every actor")
	}

	require.NoError(t, feature.EnablePercentageOfActors(ctx, 0))
	for i := range 100 {
		enabled, err := feature.Enabled(ctx, flipper.NewActor(fmt.Sprintf("u%d", i)))
		require.NoError(t, err)
		require.False(t, enabled, "0%% must enable nobody")
	}
}

func TestPercentageOfTime(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("sampled")

	require.NoError(t, feature.EnablePercentageOfTime(ctx, 100))
	for range 50 {
		enabled, err := feature.Enabled(ctx)
		require.NoError(t, err)
		require.True(t, enabled, "100%% of time is always on, actor or not")
	}

	require.NoError(t, feature.EnablePercentageOfTime(ctx, 50))
	seen := map[bool]int{}
	for range 2000 {
		enabled, err := feature.Enabled(ctx)
		require.NoError(t, err)
		seen[enabled]++
	}
	assert.Greater(t, seen[true], 0, "50%% of time should fire sometimes")
	assert.Greater(t, seen[false], 0, "50%% of time should also not fire sometimes")
}

func TestGroupGate(t *testing.T) {
	t.Parallel()

	fl, registry := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	registry.Register("admins", func(_ context.Context, actor flipper.Actor) bool {
		return actor.FlipperID() == "42"
	})

	require.NoError(t, feature.EnableGroup(ctx, "admins"))

	enabled, err := feature.Enabled(ctx, flipper.NewActor("42"))
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = feature.Enabled(ctx, flipper.NewActor("7"))
	require.NoError(t, err)
	assert.False(t, enabled)

	// Unregistering leaves the name persisted but matching nothing.
	registry.Unregister("admins")
	enabled, err = feature.Enabled(ctx, flipper.NewActor("42"))
	require.NoError(t, err)
	assert.False(t, enabled)

	values, err := feature.GateValues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admins"}, values.GroupNames())
}

func TestEnableGroupRejectsUnregistered(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	err := feature.EnableGroup(ctx, "ghosts")
	var notRegistered flipper.GroupNotRegisteredError
	require.ErrorAs(t, err, &notRegistered)
	assert.Equal(t, "ghosts", notRegistered.Name)

	assert.Error(t, feature.DisableGroup(ctx, "ghosts"))
}

func TestExpressionComposition(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	e1 := expression.Property("plan").Equal("basic")
	e2 := expression.Property("age").GreaterThanOrEqual(21)

	require.NoError(t, feature.EnableExpression(ctx, e1))
	require.NoError(t, feature.AddExpression(ctx, e2))

	values, err := feature.GateValues(ctx)
	require.NoError(t, err)
	require.NotNil(t, values.Expression)
	assert.Equal(t, expression.Any(e1, e2), *values.Expression)

	check := func(props map[string]any) bool {
		enabled, err := feature.Enabled(ctx, flipper.NewActorWithProperties("u", props))
		require.NoError(t, err)
		return enabled
	}

	assert.True(t, check(map[string]any{"plan": "basic", "age": 17}))
	assert.True(t, check(map[string]any{"plan": "pro", "age": 25}))
	assert.False(t, check(map[string]any{"plan": "pro", "age": 17}))
}

func TestRemoveExpression(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	e := expression.Property("plan").Equal("basic")
	other := expression.Property("plan").Equal("premium")

	require.NoError(t, feature.EnableExpression(ctx, e))

	// Removing a non-matching rule wraps the current one instead of
	// dropping it.
	require.NoError(t, feature.RemoveExpression(ctx, other))
	values, err := feature.GateValues(ctx)
	require.NoError(t, err)
	require.NotNil(t, values.Expression)
	assert.Equal(t, expression.Any(e), *values.Expression)

	// Removing the real rule leaves the empty Any, which never matches.
	require.NoError(t, feature.RemoveExpression(ctx, e))
	values, err = feature.GateValues(ctx)
	require.NoError(t, err)
	require.NotNil(t, values.Expression)
	assert.Equal(t, expression.Any(), *values.Expression)

	enabled, err := feature.Enabled(ctx, flipper.NewActorWithProperties("u", map[string]any{"plan": "basic"}))
	require.NoError(t, err)
	assert.False(t, enabled)

	// Removing with nothing stored is a no-op.
	require.NoError(t, feature.DisableExpression(ctx))
	require.NoError(t, feature.RemoveExpression(ctx, e))
	values, err = feature.GateValues(ctx)
	require.NoError(t, err)
	assert.Nil(t, values.Expression)
}

func TestAddExpressionIsMonotonic(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	basic := flipper.NewActorWithProperties("b", map[string]any{"plan": "basic"})

	require.NoError(t, feature.EnableExpression(ctx, expression.Property("plan").Equal("basic")))
	enabled, err := feature.Enabled(ctx, basic)
	require.NoError(t, err)
	require.True(t, enabled)

	// Accreting rules never disables a previously enabled actor.
	for i := range 5 {
		require.NoError(t, feature.AddExpression(ctx,
			expression.Property("tier").Equal(fmt.Sprintf("t%d", i))))
		enabled, err := feature.Enabled(ctx, basic)
		require.NoError(t, err)
		require.True(t, enabled, "rule %d disabled an enabled actor", i)
	}
}

func TestGenericEnableRouting(t *testing.T) {
	t.Parallel()

	fl, registry := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	registry.Register("staff", func(context.Context, flipper.Actor) bool { return false })

	require.NoError(t, feature.Enable(ctx, true))
	require.NoError(t, feature.Enable(ctx, flipper.NewActor("5")))
	require.NoError(t, feature.Enable(ctx, "staff"))
	require.NoError(t, feature.Enable(ctx, flipper.GroupName("staff")))
	require.NoError(t, feature.Enable(ctx, flipper.PercentageOfActors(25)))
	require.NoError(t, feature.Enable(ctx, flipper.PercentageOfTime(10)))
	require.NoError(t, feature.Enable(ctx, expression.Property("plan").Equal("basic")))

	values, err := feature.GateValues(ctx)
	require.NoError(t, err)
	require.NotNil(t, values.Boolean)
	assert.True(t, *values.Boolean)
	assert.Equal(t, []string{"5"}, values.ActorIDs())
	assert.Equal(t, []string{"staff"}, values.GroupNames())
	assert.Equal(t, 25, values.PercentageOfActors)
	assert.Equal(t, 10, values.PercentageOfTime)
	assert.NotNil(t, values.Expression)

	// Unroutable values are rejected.
	var notFound flipper.GateNotFoundError
	require.ErrorAs(t, feature.Enable(ctx, 3.14), &notFound)

	// Enable(false) clears everything, same as a bare Disable.
	require.NoError(t, feature.Enable(ctx, false))
	values, err = feature.GateValues(ctx)
	require.NoError(t, err)
	assert.True(t, values.IsDefault())
}

func TestEnableDisableRestoresState(t *testing.T) {
	t.Parallel()

	fl, registry := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	registry.Register("staff", func(context.Context, flipper.Actor) bool { return false })

	require.NoError(t, feature.EnableActor(ctx, flipper.NewActor("keep")))
	before, err := feature.GateValues(ctx)
	require.NoError(t, err)

	for _, thing := range []any{
		flipper.NewActor("55"),
		flipper.GroupName("staff"),
		expression.Property("x").Equal(1),
	} {
		require.NoError(t, feature.Enable(ctx, thing))
		require.NoError(t, feature.Disable(ctx, thing))

		after, err := feature.GateValues(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after, "enable+disable of %T must restore state", thing)
	}
}

func TestPercentageValidation(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	var invalid flipper.PercentageInvalidError
	require.ErrorAs(t, feature.EnablePercentageOfActors(ctx, 101), &invalid)
	assert.Equal(t, 101, invalid.Value)
	require.ErrorAs(t, feature.EnablePercentageOfActors(ctx, -1), &invalid)
	require.ErrorAs(t, feature.EnablePercentageOfTime(ctx, 150), &invalid)

	values, err := feature.GateValues(ctx)
	require.NoError(t, err)
	assert.True(t, values.IsDefault(), "rejected writes must not persist")
}

func TestStateClassifier(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	state, err := feature.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, flipper.StateOff, state)

	require.NoError(t, feature.EnablePercentageOfTime(ctx, 100))
	state, err = feature.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, flipper.StateOn, state)

	require.NoError(t, feature.Disable(ctx))
	require.NoError(t, feature.EnablePercentageOfActors(ctx, 100))
	state, err = feature.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, flipper.StateConditional, state)

	require.NoError(t, feature.EnablePercentageOfActors(ctx, 50))
	state, err = feature.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, flipper.StateConditional, state)

	require.NoError(t, feature.Disable(ctx))
	off, err := feature.IsOff(ctx)
	require.NoError(t, err)
	assert.True(t, off)

	require.NoError(t, feature.Enable(ctx))
	on, err := feature.IsOn(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestEnabledGatesIntrospection(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	require.NoError(t, feature.EnableActor(ctx, flipper.NewActor("5")))
	require.NoError(t, feature.EnablePercentageOfTime(ctx, 5))

	names, err := feature.EnabledGateNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []flipper.GateName{flipper.GateActors, flipper.GatePercentageOfTime}, names)

	disabled, err := feature.DisabledGateNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []flipper.GateName{
		flipper.GateBoolean, flipper.GateGroups,
		flipper.GatePercentageOfActors, flipper.GateExpression,
	}, disabled)
}

func TestGateFor(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	feature := fl.Feature("search")

	tests := []struct {
		thing any
		want  flipper.GateName
	}{
		{true, flipper.GateBoolean},
		{flipper.Boolean(false), flipper.GateBoolean},
		{flipper.NewActor("5"), flipper.GateActors},
		{"admins", flipper.GateGroups},
		{flipper.GroupName("admins"), flipper.GateGroups},
		{flipper.PercentageOfActors(10), flipper.GatePercentageOfActors},
		{flipper.PercentageOfTime(10), flipper.GatePercentageOfTime},
		{expression.Property("plan").Equal("basic"), flipper.GateExpression},
	}
	for _, tt := range tests {
		gate, err := feature.GateFor(tt.thing)
		require.NoError(t, err)
		assert.Equal(t, tt.want, gate.Name(), "thing %T", tt.thing)
	}

	_, err := feature.GateFor(struct{}{})
	assert.Error(t, err)
}

func TestAnyActorSemantics(t *testing.T) {
	t.Parallel()

	fl, _ := newTestFlipper(t)
	ctx := context.Background()
	feature := fl.Feature("search")

	require.NoError(t, feature.EnableActor(ctx, flipper.NewActor("5")))

	// A mixed list is enabled when any member is.
	enabled, err := feature.Enabled(ctx, flipper.NewActor("7"), flipper.NewActor("5"))
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = feature.Enabled(ctx, flipper.NewActor("7"), flipper.NewActor("8"))
	require.NoError(t, err)
	assert.False(t, enabled)

	// Nil actors are treated as absent.
	enabled, err = feature.Enabled(ctx, nil, flipper.NewActor("5"))
	require.NoError(t, err)
	assert.True(t, enabled)
}

type failingAdapter struct {
	flipper.Adapter
	err error
}

func (f failingAdapter) Get(context.Context, string) (*flipper.GateValues, error) {
	return nil, f.err
}

func TestStorageFailurePropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	fl := flipper.New(failingAdapter{Adapter: memory.New(), err: boom})
	ctx := context.Background()

	_, err := fl.Enabled(ctx, "search", flipper.NewActor("5"))
	require.ErrorIs(t, err, boom, "storage failures surface, never default to a decision")
}

func TestInstrumentation(t *testing.T) {
	t.Parallel()

	ins := memoryins.New()
	registry := flipper.NewRegistry()
	fl := flipper.New(memory.New(),
		flipper.WithInstrumenter(ins),
		flipper.WithRegistry(registry),
	)
	ctx := context.Background()
	feature := fl.Feature("search")

	require.NoError(t, feature.EnableActor(ctx, flipper.NewActor("5")))

	event, ok := ins.Last()
	require.True(t, ok)
	assert.Equal(t, flipper.InstrumentationName, event.Name)
	assert.Equal(t, "search", event.Payload[flipper.PayloadFeatureName])
	assert.Equal(t, "enable", event.Payload[flipper.PayloadOperation])
	assert.Equal(t, flipper.GateActors, event.Payload[flipper.PayloadGateName])
	assert.Equal(t, "5", event.Payload[flipper.PayloadThing])

	_, err := feature.Enabled(ctx, flipper.NewActor("5"))
	require.NoError(t, err)

	event, ok = ins.Last()
	require.True(t, ok)
	assert.Equal(t, "enabled?", event.Payload[flipper.PayloadOperation])
	assert.Equal(t, true, event.Payload[flipper.PayloadResult])
	assert.Equal(t, []string{"5"}, event.Payload[flipper.PayloadActors])
}

type panickyInstrumenter struct{}

func (panickyInstrumenter) Instrument(string, map[string]any) { panic("instrumenter bug") }

func TestInstrumenterPanicIsSwallowed(t *testing.T) {
	t.Parallel()

	fl := flipper.New(memory.New(), flipper.WithInstrumenter(panickyInstrumenter{}))
	ctx := context.Background()

	require.NoError(t, fl.Enable(ctx, "search"))
	enabled, err := fl.Enabled(ctx, "search")
	require.NoError(t, err)
	assert.True(t, enabled, "a broken instrumenter must never break the caller")
}

func TestShortCircuitStopsAtFirstOpenGate(t *testing.T) {
	t.Parallel()

	ins := memoryins.New()
	fl := flipper.New(memory.New(), flipper.WithInstrumenter(ins))
	ctx := context.Background()
	feature := fl.Feature("search")

	// Boolean on plus a percentage: boolean wins, and the result is
	// stable regardless of the percentage draw.
	require.NoError(t, feature.Enable(ctx))
	require.NoError(t, feature.EnablePercentageOfTime(ctx, 1))

	for range 100 {
		enabled, err := feature.Enabled(ctx)
		require.NoError(t, err)
		require.True(t, enabled)
	}
}
