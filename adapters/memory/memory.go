// Package memory provides the in-process adapter. It is the reference
// implementation of the adapter contract and the default backend for
// tests and development.
package memory

import (
	"context"
	"sync"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/expression"
)

var _ flipper.Adapter = (*Adapter)(nil)

// Adapter keeps all gate state in a mutex-guarded map. Reads hand out
// deep copies so callers can never mutate the store behind the lock.
type Adapter struct {
	mu       sync.RWMutex
	features map[string]*flipper.GateValues
}

// New returns an empty in-memory adapter.
func New() *Adapter {
	return &Adapter{features: map[string]*flipper.GateValues{}}
}

// Name implements flipper.Adapter.
func (a *Adapter) Name() string { return "memory" }

// Features implements flipper.Adapter.
func (a *Adapter) Features(_ context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.features))
	for name := range a.features {
		out = append(out, name)
	}
	return out, nil
}

// Add implements flipper.Adapter.
func (a *Adapter) Add(_ context.Context, feature string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.features[feature]; !ok {
		a.features[feature] = flipper.NewGateValues()
	}
	return nil
}

// Remove implements flipper.Adapter.
func (a *Adapter) Remove(_ context.Context, feature string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.features, feature)
	return nil
}

// Clear implements flipper.Adapter.
func (a *Adapter) Clear(_ context.Context, feature string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.features[feature]; ok {
		a.features[feature] = flipper.NewGateValues()
	}
	return nil
}

// Get implements flipper.Adapter.
func (a *Adapter) Get(_ context.Context, feature string) (*flipper.GateValues, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if values, ok := a.features[feature]; ok {
		return values.Clone(), nil
	}
	return flipper.NewGateValues(), nil
}

// GetMulti implements flipper.Adapter.
func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]*flipper.GateValues, error) {
	out := make(map[string]*flipper.GateValues, len(features))
	for _, feature := range features {
		values, err := a.Get(ctx, feature)
		if err != nil {
			return nil, err
		}
		out[feature] = values
	}
	return out, nil
}

// GetAll implements flipper.Adapter.
func (a *Adapter) GetAll(_ context.Context) (map[string]*flipper.GateValues, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]*flipper.GateValues, len(a.features))
	for name, values := range a.features {
		out[name] = values.Clone()
	}
	return out, nil
}

// Enable implements flipper.Adapter.
func (a *Adapter) Enable(_ context.Context, feature string, gate flipper.Gate, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	values := a.values(feature)
	switch gate.Name() {
	case flipper.GateBoolean:
		b := value == "true"
		values.Boolean = &b
	case flipper.GateActors:
		values.Actors[value] = struct{}{}
	case flipper.GateGroups:
		values.Groups[value] = struct{}{}
	case flipper.GatePercentageOfActors:
		values.PercentageOfActors = flipper.ParsePercentage(value)
	case flipper.GatePercentageOfTime:
		values.PercentageOfTime = flipper.ParsePercentage(value)
	case flipper.GateExpression:
		e, err := expression.FromJSON([]byte(value))
		if err != nil {
			return err
		}
		values.Expression = &e
	}
	return nil
}

// Disable implements flipper.Adapter.
func (a *Adapter) Disable(_ context.Context, feature string, gate flipper.Gate, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	values := a.values(feature)
	switch gate.Name() {
	case flipper.GateBoolean:
		// Disabling the boolean gate turns the whole feature off.
		a.features[feature] = flipper.NewGateValues()
	case flipper.GateActors:
		delete(values.Actors, value)
	case flipper.GateGroups:
		delete(values.Groups, value)
	case flipper.GatePercentageOfActors:
		values.PercentageOfActors = flipper.ParsePercentage(value)
	case flipper.GatePercentageOfTime:
		values.PercentageOfTime = flipper.ParsePercentage(value)
	case flipper.GateExpression:
		values.Expression = nil
	}
	return nil
}

// values returns the stored state for a feature, creating it on demand.
// Callers must hold the write lock.
func (a *Adapter) values(feature string) *flipper.GateValues {
	values, ok := a.features[feature]
	if !ok {
		values = flipper.NewGateValues()
		a.features[feature] = values
	}
	return values
}
