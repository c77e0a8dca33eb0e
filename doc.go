// Package flipper is a feature-flag evaluation engine. A named feature is
// enabled for an actor when any of its six gates (boolean, group, actor,
// percentage of actors, percentage of time, expression) opens for it.
// Gate state lives behind the Adapter interface so the same engine runs
// against memory, Redis, PostgreSQL, Badger, HTTP, or composite backends,
// and every operation is reported through the Instrumenter interface.
//
// The hot path is a single call:
//
//	fl := flipper.New(memory.New())
//	enabled, err := fl.Feature("search").Enabled(ctx, actor)
//
// Operators flip features at runtime through the mutation verbs on
// Feature or over the HTTP API.
package flipper
