package cached_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/adapters/adaptertest"
	"github.com/larouxn/flipper/adapters/cached"
	"github.com/larouxn/flipper/adapters/memory"
)

// countingAdapter counts reads hitting the backing store.
type countingAdapter struct {
	flipper.Adapter
	gets atomic.Int64
}

func (c *countingAdapter) Get(ctx context.Context, feature string) (*flipper.GateValues, error) {
	c.gets.Add(1)
	return c.Adapter.Get(ctx, feature)
}

func TestAdapterContract(t *testing.T) {
	t.Parallel()

	adaptertest.Run(t, func(t *testing.T) flipper.Adapter {
		adapter, err := cached.New(memory.New())
		require.NoError(t, err)
		t.Cleanup(adapter.Close)
		return adapter
	})
}

func TestReadThroughCachesGets(t *testing.T) {
	t.Parallel()

	backing := &countingAdapter{Adapter: memory.New()}
	adapter, err := cached.NewWithConfig(backing, 128, time.Minute)
	require.NoError(t, err)
	defer adapter.Close()
	ctx := context.Background()

	require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))

	for range 10 {
		values, err := adapter.Get(ctx, "search")
		require.NoError(t, err)
		assert.Equal(t, []string{"5"}, values.ActorIDs())
	}

	assert.Equal(t, int64(1), backing.gets.Load(), "repeat reads must come from the cache")
}

func TestWritesInvalidateLocally(t *testing.T) {
	t.Parallel()

	adapter, err := cached.NewWithConfig(memory.New(), 128, time.Minute)
	require.NoError(t, err)
	defer adapter.Close()
	ctx := context.Background()

	require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))
	_, err = adapter.Get(ctx, "search")
	require.NoError(t, err)

	require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "22"))

	values, err := adapter.Get(ctx, "search")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"5", "22"}, values.ActorIDs(),
		"a local write must be visible immediately")
}

func TestOutOfBandWritesSurfaceAfterTTL(t *testing.T) {
	t.Parallel()

	backing := memory.New()
	adapter, err := cached.NewWithConfig(backing, 128, 50*time.Millisecond)
	require.NoError(t, err)
	defer adapter.Close()
	ctx := context.Background()

	_, err = adapter.Get(ctx, "search") // cache the default state
	require.NoError(t, err)

	// Another process writes to the backing store directly.
	require.NoError(t, backing.Enable(ctx, "search", flipper.BooleanGate{}, "true"))

	require.Eventually(t, func() bool {
		values, err := adapter.Get(ctx, "search")
		return err == nil && values.Boolean != nil && *values.Boolean
	}, 2*time.Second, 20*time.Millisecond, "the TTL bounds staleness")
}

func TestCachedResultsAreCopies(t *testing.T) {
	t.Parallel()

	adapter, err := cached.NewWithConfig(memory.New(), 128, time.Minute)
	require.NoError(t, err)
	defer adapter.Close()
	ctx := context.Background()

	require.NoError(t, adapter.Enable(ctx, "search", flipper.ActorGate{}, "5"))

	values, err := adapter.Get(ctx, "search")
	require.NoError(t, err)
	values.Actors["tampered"] = struct{}{}

	fresh, err := adapter.Get(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, fresh.ActorIDs())
}

func TestName(t *testing.T) {
	t.Parallel()

	adapter, err := cached.New(memory.New())
	require.NoError(t, err)
	defer adapter.Close()
	assert.Equal(t, "cached(memory)", adapter.Name())
}
