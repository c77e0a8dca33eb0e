package flipper

import "context"

// Adapter is the persistence seam. One implementation per backend keeps
// storage details out of evaluation; Feature makes exactly one Get per
// Enabled call. Its gate mutation verbs call Add to register the feature
// before their one gate write; disabling the boolean gate skips the Add.
//
// Values cross this interface in the string wire encoding: "true"/"false"
// for the boolean gate, one element per call for the set gates, a decimal
// integer for the percentage gates, and serialized JSON for the
// expression gate.
//
// Implementations must uphold: Get after Clear equals the default state;
// Enable/Disable are idempotent per element on the set gates; the integer
// gates keep the most recent write; Features never contains duplicates.
// Adapters may be eventually consistent across processes but must be
// linearizable within a single process reference.
type Adapter interface {
	// Name identifies the backend in logs and instrumentation.
	Name() string

	// Features returns the registered feature names.
	Features(ctx context.Context) ([]string, error)

	// Add registers a feature name. Adding a known name is a no-op.
	Add(ctx context.Context, feature string) error

	// Remove unregisters a feature and wipes its gate values.
	Remove(ctx context.Context, feature string) error

	// Clear resets every gate to its default but keeps the feature
	// registered.
	Clear(ctx context.Context, feature string) error

	// Get returns the feature's state, default-shaped when nothing is
	// stored.
	Get(ctx context.Context, feature string) (*GateValues, error)

	// GetMulti returns state for each requested feature.
	GetMulti(ctx context.Context, features []string) (map[string]*GateValues, error)

	// GetAll returns state for every registered feature.
	GetAll(ctx context.Context) (map[string]*GateValues, error)

	// Enable writes one gate value: set gates add the element, scalar
	// gates overwrite.
	Enable(ctx context.Context, feature string, gate Gate, value string) error

	// Disable removes one gate value: set gates delete the element,
	// integer gates overwrite, the boolean gate clears the feature,
	// the expression gate deletes the tree.
	Disable(ctx context.Context, feature string, gate Gate, value string) error
}

// Pinger is implemented by adapters with a backing service worth health
// checking.
type Pinger interface {
	Ping(ctx context.Context) error
}
