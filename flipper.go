package flipper

import (
	"context"
	"sort"
	"sync"
)

type options struct {
	instrumenter Instrumenter
	registry     *Registry
}

func defaultOptions() *options {
	return &options{
		instrumenter: NoopInstrumenter{},
		registry:     DefaultRegistry,
	}
}

// Option configures a Flipper or a directly-constructed Feature.
type Option func(*options)

// WithInstrumenter routes feature operation events to the given sink.
func WithInstrumenter(instrumenter Instrumenter) Option {
	return func(o *options) {
		if instrumenter != nil {
			o.instrumenter = instrumenter
		}
	}
}

// WithRegistry uses the given group registry instead of the
// process-global default.
func WithRegistry(registry *Registry) Option {
	return func(o *options) {
		if registry != nil {
			o.registry = registry
		}
	}
}

// Flipper is the application-facing handle: an adapter, an instrumenter,
// and a registry shared by every Feature it hands out. Safe for
// concurrent use.
type Flipper struct {
	adapter      Adapter
	instrumenter Instrumenter
	registry     *Registry

	mu       sync.Mutex
	features map[string]*Feature
}

// New builds a Flipper on the given adapter.
func New(adapter Adapter, opts ...Option) *Flipper {
	if adapter == nil {
		panic("flipper: adapter cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Flipper{
		adapter:      adapter,
		instrumenter: o.instrumenter,
		registry:     o.registry,
		features:     map[string]*Feature{},
	}
}

// Feature returns the named feature. Features are memoized; asking twice
// returns the same handle.
func (fl *Flipper) Feature(name string) *Feature {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if f, ok := fl.features[name]; ok {
		return f
	}
	f := NewFeature(name, fl.adapter,
		WithInstrumenter(fl.instrumenter),
		WithRegistry(fl.registry),
	)
	fl.features[name] = f
	return f
}

// Enabled reports whether the named feature is enabled for the actors.
func (fl *Flipper) Enabled(ctx context.Context, name string, actors ...Actor) (bool, error) {
	return fl.Feature(name).Enabled(ctx, actors...)
}

// Enable routes each value to its gate on the named feature.
func (fl *Flipper) Enable(ctx context.Context, name string, things ...any) error {
	return fl.Feature(name).Enable(ctx, things...)
}

// Disable routes each value to its gate on the named feature.
func (fl *Flipper) Disable(ctx context.Context, name string, things ...any) error {
	return fl.Feature(name).Disable(ctx, things...)
}

// Add registers the named feature.
func (fl *Flipper) Add(ctx context.Context, name string) error {
	return fl.Feature(name).Add(ctx)
}

// Remove unregisters the named feature and wipes its state.
func (fl *Flipper) Remove(ctx context.Context, name string) error {
	return fl.Feature(name).Remove(ctx)
}

// Exist reports whether the named feature is registered.
func (fl *Flipper) Exist(ctx context.Context, name string) (bool, error) {
	return fl.Feature(name).Exist(ctx)
}

// Features returns a handle for every registered feature, sorted by name.
func (fl *Flipper) Features(ctx context.Context) ([]*Feature, error) {
	names, err := fl.adapter.Features(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]*Feature, 0, len(names))
	for _, name := range names {
		out = append(out, fl.Feature(name))
	}
	return out, nil
}

// Adapter returns the storage backend.
func (fl *Flipper) Adapter() Adapter { return fl.adapter }

// Instrumenter returns the event sink.
func (fl *Flipper) Instrumenter() Instrumenter { return fl.instrumenter }

// Registry returns the group registry in effect.
func (fl *Flipper) Registry() *Registry { return fl.registry }
