// Package adaptertest exports the shared contract tests every adapter
// must pass. Each adapter package calls Run from its own test file with a
// factory producing a fresh, empty adapter.
package adaptertest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/expression"
)

// Factory returns a fresh, empty adapter for one subtest. Cleanup should
// be registered on t.
type Factory func(t *testing.T) flipper.Adapter

// Run exercises the full adapter contract against the factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("UnknownFeatureReadsAsDefaults", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		values, err := adapter.Get(ctx, "unknown")
		require.NoError(t, err)
		assert.True(t, values.IsDefault())
	})

	t.Run("AddRemoveFeatures", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		require.NoError(t, adapter.Add(ctx, "search"))
		require.NoError(t, adapter.Add(ctx, "search")) // idempotent
		require.NoError(t, adapter.Add(ctx, "billing"))

		features, err := adapter.Features(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"search", "billing"}, features)

		require.NoError(t, adapter.Remove(ctx, "search"))
		features, err = adapter.Features(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"billing"}, features)
	})

	t.Run("RemoveWipesGateValues", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		require.NoError(t, adapter.Add(ctx, "search"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))
		require.NoError(t, adapter.Remove(ctx, "search"))
		require.NoError(t, adapter.Add(ctx, "search"))

		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.True(t, values.IsDefault(), "gate values must not survive remove")
	})

	t.Run("ClearResetsButKeepsMembership", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		require.NoError(t, adapter.Add(ctx, "search"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.BooleanGate{}, "true"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))

		require.NoError(t, adapter.Clear(ctx, "search"))

		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.True(t, values.IsDefault())

		features, err := adapter.Features(ctx)
		require.NoError(t, err)
		assert.Contains(t, features, "search")
	})

	t.Run("BooleanGateRoundTrip", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		require.NoError(t, adapter.Enable(ctx, "search", flipper.BooleanGate{}, "true"))
		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		require.NotNil(t, values.Boolean)
		assert.True(t, *values.Boolean)

		// Disabling the boolean gate clears the whole feature.
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))
		require.NoError(t, adapter.Disable(ctx, "search", flipper.BooleanGate{}, "false"))
		values, err = adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.True(t, values.IsDefault())
	})

	t.Run("SetGatesAreElementIdempotent", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "22"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.GroupGate{}, "admins"))

		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.Equal(t, []string{"22", "5"}, values.ActorIDs())
		assert.Equal(t, []string{"admins"}, values.GroupNames())

		// Disabling an element removes exactly that element; disabling a
		// missing element succeeds.
		require.NoError(t, adapter.Disable(ctx, "search", flipper.ActorGate{}, "5"))
		require.NoError(t, adapter.Disable(ctx, "search", flipper.ActorGate{}, "nope"))

		values, err = adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.Equal(t, []string{"22"}, values.ActorIDs())
	})

	t.Run("IntegerGatesKeepLastWrite", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		require.NoError(t, adapter.Enable(ctx, "search", flipper.PercentageOfActorsGate{}, "25"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.PercentageOfActorsGate{}, "50"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.PercentageOfTimeGate{}, "10"))

		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.Equal(t, 50, values.PercentageOfActors)
		assert.Equal(t, 10, values.PercentageOfTime)

		require.NoError(t, adapter.Disable(ctx, "search", flipper.PercentageOfActorsGate{}, "0"))
		values, err = adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.Equal(t, 0, values.PercentageOfActors)
		assert.Equal(t, 10, values.PercentageOfTime)
	})

	t.Run("ExpressionGateRoundTrip", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		e := expression.Property("plan").Equal("basic")
		raw, err := json.Marshal(e)
		require.NoError(t, err)

		require.NoError(t, adapter.Enable(ctx, "search", flipper.ExpressionGate{}, string(raw)))

		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		require.NotNil(t, values.Expression)
		assert.Equal(t, e, *values.Expression)

		require.NoError(t, adapter.Disable(ctx, "search", flipper.ExpressionGate{}, ""))
		values, err = adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.Nil(t, values.Expression)
	})

	t.Run("GetMultiAndGetAll", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		require.NoError(t, adapter.Add(ctx, "one"))
		require.NoError(t, adapter.Add(ctx, "two"))
		require.NoError(t, adapter.Enable(ctx, "one", flipper.BooleanGate{}, "true"))
		require.NoError(t, adapter.Enable(ctx, "two", flipper.PercentageOfTimeGate{}, "5"))

		multi, err := adapter.GetMulti(ctx, []string{"one", "missing"})
		require.NoError(t, err)
		require.Len(t, multi, 2)
		require.NotNil(t, multi["one"].Boolean)
		assert.True(t, *multi["one"].Boolean)
		assert.True(t, multi["missing"].IsDefault())

		all, err := adapter.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, 5, all["two"].PercentageOfTime)
	})

	t.Run("FullStateRoundTrip", func(t *testing.T) {
		adapter := factory(t)
		ctx := context.Background()

		e := expression.Any(
			expression.Property("plan").Equal("basic"),
			expression.Property("age").GreaterThanOrEqual(21),
		)
		raw, err := json.Marshal(e)
		require.NoError(t, err)

		require.NoError(t, adapter.Add(ctx, "search"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.BooleanGate{}, "false"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "22"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.GroupGate{}, "admins"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.PercentageOfActorsGate{}, "25"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.PercentageOfTimeGate{}, "75"))
		require.NoError(t, adapter.Enable(ctx, "search", flipper.ExpressionGate{}, string(raw)))

		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		require.NotNil(t, values.Boolean)
		assert.False(t, *values.Boolean)
		assert.Equal(t, []string{"22", "5"}, values.ActorIDs())
		assert.Equal(t, []string{"admins"}, values.GroupNames())
		assert.Equal(t, 25, values.PercentageOfActors)
		assert.Equal(t, 75, values.PercentageOfTime)
		require.NotNil(t, values.Expression)
		assert.Equal(t, e, *values.Expression)
	})
}
