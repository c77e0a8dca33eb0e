// Package cached provides a read-through caching composite. It wraps any
// adapter with a local in-memory cache (otter, S3-FIFO eviction) so hot
// Enabled checks skip the backing store, at the price of briefly stale
// reads bounded by the TTL.
package cached

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/larouxn/flipper"
)

var _ flipper.Adapter = (*Adapter)(nil)

const (
	// DefaultCapacity bounds the number of cached features.
	DefaultCapacity = 10_000
	// DefaultTTL bounds staleness after out-of-process writes.
	DefaultTTL = 10 * time.Second
)

// Adapter decorates a backing adapter with a read-through cache. Writes
// go straight through and invalidate locally; writes made by other
// processes surface after at most one TTL.
type Adapter struct {
	backing flipper.Adapter
	cache   otter.Cache[string, *flipper.GateValues]
}

// New wraps backing with the default capacity and TTL.
func New(backing flipper.Adapter) (*Adapter, error) {
	return NewWithConfig(backing, DefaultCapacity, DefaultTTL)
}

// NewWithConfig wraps backing with explicit cache limits.
func NewWithConfig(backing flipper.Adapter, capacity int, ttl time.Duration) (*Adapter, error) {
	if backing == nil {
		panic("cached adapter: backing adapter cannot be nil")
	}

	cache, err := otter.MustBuilder[string, *flipper.GateValues](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &Adapter{backing: backing, cache: cache}, nil
}

// Name implements flipper.Adapter.
func (a *Adapter) Name() string { return "cached(" + a.backing.Name() + ")" }

// Close releases the cache's background resources. The backing adapter
// is left untouched.
func (a *Adapter) Close() {
	a.cache.Close()
}

// Features implements flipper.Adapter. Membership reads always hit the
// backing store; only gate values are cached.
func (a *Adapter) Features(ctx context.Context) ([]string, error) {
	return a.backing.Features(ctx)
}

// Add implements flipper.Adapter.
func (a *Adapter) Add(ctx context.Context, feature string) error {
	return a.backing.Add(ctx, feature)
}

// Remove implements flipper.Adapter.
func (a *Adapter) Remove(ctx context.Context, feature string) error {
	if err := a.backing.Remove(ctx, feature); err != nil {
		return err
	}
	a.cache.Delete(feature)
	return nil
}

// Clear implements flipper.Adapter.
func (a *Adapter) Clear(ctx context.Context, feature string) error {
	if err := a.backing.Clear(ctx, feature); err != nil {
		return err
	}
	a.cache.Delete(feature)
	return nil
}

// Get implements flipper.Adapter.
func (a *Adapter) Get(ctx context.Context, feature string) (*flipper.GateValues, error) {
	if values, ok := a.cache.Get(feature); ok {
		return values.Clone(), nil
	}

	values, err := a.backing.Get(ctx, feature)
	if err != nil {
		return nil, err
	}
	a.cache.Set(feature, values.Clone())
	return values, nil
}

// GetMulti implements flipper.Adapter.
func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]*flipper.GateValues, error) {
	out := make(map[string]*flipper.GateValues, len(features))

	var misses []string
	for _, feature := range features {
		if values, ok := a.cache.Get(feature); ok {
			out[feature] = values.Clone()
		} else {
			misses = append(misses, feature)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := a.backing.GetMulti(ctx, misses)
	if err != nil {
		return nil, err
	}
	for feature, values := range fetched {
		a.cache.Set(feature, values.Clone())
		out[feature] = values
	}
	return out, nil
}

// GetAll implements flipper.Adapter. The full scan bypasses the cache
// and refreshes it.
func (a *Adapter) GetAll(ctx context.Context) (map[string]*flipper.GateValues, error) {
	all, err := a.backing.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for feature, values := range all {
		a.cache.Set(feature, values.Clone())
	}
	return all, nil
}

// Enable implements flipper.Adapter.
func (a *Adapter) Enable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	if err := a.backing.Enable(ctx, feature, gate, value); err != nil {
		return err
	}
	a.cache.Delete(feature)
	return nil
}

// Disable implements flipper.Adapter.
func (a *Adapter) Disable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	if err := a.backing.Disable(ctx, feature, gate, value); err != nil {
		return err
	}
	a.cache.Delete(feature)
	return nil
}
