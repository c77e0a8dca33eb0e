package flipper

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomID(t *testing.T) string {
	t.Helper()
	b := make([]byte, 16)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

// TestActorScore_KnownVectors pins the scoring function to externally
// computed CRC-32 (IEEE) reference values so the distribution can never
// silently drift across releases.
func TestActorScore_KnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		feature string
		actorID string
		score   float64
	}{
		{"search", "1", 79.629762},
		{"search", "7", 13.564372},
		{"search", "22", 57.900253},
		{"my", "5", 8.985186},
		{"my", "22", 58.812946},
		{"feature", "2", 74.260980},
	}

	for _, tt := range tests {
		t.Run(tt.feature+tt.actorID, func(t *testing.T) {
			assert.InDelta(t, tt.score, actorScore(tt.feature, tt.actorID), 0.0001)
		})
	}
}

func TestPercentageOfActorsGate_Boundaries(t *testing.T) {
	t.Parallel()

	gate := PercentageOfActorsGate{}

	t.Run("0 percent never opens", func(t *testing.T) {
		values := NewGateValues()
		values.PercentageOfActors = 0
		assert.False(t, gate.IsEnabled(values), "0 is the default, the gate is skipped")

		for range 1000 {
			ec := EvalContext{
				FeatureName: "any",
				Values:      values,
				Actors:      []Actor{NewActor(randomID(t))},
			}
			assert.False(t, gate.IsOpen(context.Background(), ec))
		}
	})

	t.Run("100 percent always opens", func(t *testing.T) {
		values := NewGateValues()
		values.PercentageOfActors = 100

		for i := range 1000 {
			ec := EvalContext{
				FeatureName: "any",
				Values:      values,
				Actors:      []Actor{NewActor(randomID(t))},
			}
			if !gate.IsOpen(context.Background(), ec) {
				t.Fatalf("iteration %d: 100%% rollout returned false", i)
			}
		}
	})
}

// TestPercentageOfActorsGate_Deterministic proves stickiness: the same
// feature, percentage, and actor id always produce the same decision,
// which is what makes rollouts stable across processes and backends.
func TestPercentageOfActorsGate_Deterministic(t *testing.T) {
	t.Parallel()

	gate := PercentageOfActorsGate{}
	values := NewGateValues()
	values.PercentageOfActors = 50

	id := randomID(t)
	ec := EvalContext{FeatureName: "sticky", Values: values, Actors: []Actor{NewActor(id)}}

	initial := gate.IsOpen(context.Background(), ec)
	for i := range 1000 {
		got := gate.IsOpen(context.Background(), ec)
		require.Equal(t, initial, got, "decision flipped on iteration %d", i)
	}
}

// TestPercentageOfActorsGate_Monotonic proves that raising the
// percentage never disables an actor that was already enabled.
func TestPercentageOfActorsGate_Monotonic(t *testing.T) {
	t.Parallel()

	gate := PercentageOfActorsGate{}

	for range 200 {
		id := randomID(t)
		enabledAt := -1
		for p := 0; p <= 100; p += 5 {
			values := NewGateValues()
			values.PercentageOfActors = p
			ec := EvalContext{FeatureName: "rollout", Values: values, Actors: []Actor{NewActor(id)}}

			open := gate.IsOpen(context.Background(), ec)
			if open && enabledAt == -1 {
				enabledAt = p
			}
			if enabledAt != -1 {
				require.True(t, open,
					"actor %s enabled at %d%% but disabled at %d%%", id, enabledAt, p)
			}
		}
	}
}

// TestPercentageOfActorsGate_Distribution sanity-checks that the hash
// spreads actors roughly evenly; a badly skewed distribution would make
// "10%" mean something else entirely.
func TestPercentageOfActorsGate_Distribution(t *testing.T) {
	t.Parallel()

	gate := PercentageOfActorsGate{}
	values := NewGateValues()
	values.PercentageOfActors = 25

	const n = 20000
	open := 0
	for i := range n {
		ec := EvalContext{
			FeatureName: "dist",
			Values:      values,
			Actors:      []Actor{NewActor(fmt.Sprintf("user-%d", i))},
		}
		if gate.IsOpen(context.Background(), ec) {
			open++
		}
	}

	share := float64(open) / n * 100
	assert.InDelta(t, 25, share, 2.0, "got %.2f%% enabled at a 25%% rollout", share)
}

func TestPercentageOfActorsGate_SkipsBlankActors(t *testing.T) {
	t.Parallel()

	gate := PercentageOfActorsGate{}
	values := NewGateValues()
	values.PercentageOfActors = 100

	assert.False(t, gate.IsOpen(context.Background(), EvalContext{
		FeatureName: "any",
		Values:      values,
	}), "no actors, nothing to hash")

	assert.False(t, gate.IsOpen(context.Background(), EvalContext{
		FeatureName: "any",
		Values:      values,
		Actors:      []Actor{NewActor("")},
	}), "blank ids cannot be bucketed")
}
