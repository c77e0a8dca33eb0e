package observability

import "context"

// Checker is one dependency verified by the readiness probe.
type Checker interface {
	// CheckName identifies the dependency in probe responses.
	CheckName() string

	// Check reports whether the dependency is reachable.
	Check(ctx context.Context) error
}

// PingChecker adapts anything with a Ping method (storage adapters,
// connection pools) into a Checker.
type PingChecker struct {
	Name string
	Ping func(ctx context.Context) error
}

// CheckName implements Checker.
func (c PingChecker) CheckName() string { return c.Name }

// Check implements Checker.
func (c PingChecker) Check(ctx context.Context) error { return c.Ping(ctx) }
