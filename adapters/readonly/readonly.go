// Package readonly provides a guard adapter that passes reads through
// and rejects every write with flipper.ErrReadOnly. Wrap a production
// adapter with it in processes that must never mutate flag state.
package readonly

import (
	"context"

	"github.com/larouxn/flipper"
)

var _ flipper.Adapter = (*Adapter)(nil)

// Adapter wraps a backing adapter and refuses writes.
type Adapter struct {
	backing flipper.Adapter
}

// New wraps backing.
func New(backing flipper.Adapter) *Adapter {
	if backing == nil {
		panic("readonly adapter: backing adapter cannot be nil")
	}
	return &Adapter{backing: backing}
}

// Name implements flipper.Adapter.
func (a *Adapter) Name() string { return "readonly(" + a.backing.Name() + ")" }

// Features implements flipper.Adapter.
func (a *Adapter) Features(ctx context.Context) ([]string, error) {
	return a.backing.Features(ctx)
}

// Get implements flipper.Adapter.
func (a *Adapter) Get(ctx context.Context, feature string) (*flipper.GateValues, error) {
	return a.backing.Get(ctx, feature)
}

// GetMulti implements flipper.Adapter.
func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]*flipper.GateValues, error) {
	return a.backing.GetMulti(ctx, features)
}

// GetAll implements flipper.Adapter.
func (a *Adapter) GetAll(ctx context.Context) (map[string]*flipper.GateValues, error) {
	return a.backing.GetAll(ctx)
}

// Add implements flipper.Adapter.
func (a *Adapter) Add(context.Context, string) error { return flipper.ErrReadOnly }

// Remove implements flipper.Adapter.
func (a *Adapter) Remove(context.Context, string) error { return flipper.ErrReadOnly }

// Clear implements flipper.Adapter.
func (a *Adapter) Clear(context.Context, string) error { return flipper.ErrReadOnly }

// Enable implements flipper.Adapter.
func (a *Adapter) Enable(context.Context, string, flipper.Gate, string) error {
	return flipper.ErrReadOnly
}

// Disable implements flipper.Adapter.
func (a *Adapter) Disable(context.Context, string, flipper.Gate, string) error {
	return flipper.ErrReadOnly
}
