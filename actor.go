package flipper

// Actor is anything with a stable string identifier. Per-actor gates
// (actor list, percentage of actors, groups, expressions) key off
// FlipperID, so it must not change across requests or processes.
type Actor interface {
	FlipperID() string
}

// PropertyProvider is implemented by actors that expose attributes for
// expression rules. Values should be strings, numbers, or bools.
type PropertyProvider interface {
	FlipperProperties() map[string]any
}

// StaticActor is a ready-made Actor for callers that don't have a domain
// type to hang FlipperID on.
type StaticActor struct {
	ID         string
	Properties map[string]any
}

// NewActor wraps a bare identifier in an Actor.
func NewActor(id string) StaticActor {
	return StaticActor{ID: id}
}

// NewActorWithProperties wraps an identifier together with the attributes
// expression rules may read.
func NewActorWithProperties(id string, properties map[string]any) StaticActor {
	return StaticActor{ID: id, Properties: properties}
}

// FlipperID implements Actor.
func (a StaticActor) FlipperID() string { return a.ID }

// FlipperProperties implements PropertyProvider.
func (a StaticActor) FlipperProperties() map[string]any { return a.Properties }

// actorProperties harvests the property map used by the expression gate.
// Actors without declared properties still expose their identifier.
func actorProperties(actor Actor) map[string]any {
	if actor == nil {
		return nil
	}
	if p, ok := actor.(PropertyProvider); ok {
		if props := p.FlipperProperties(); props != nil {
			return props
		}
	}
	return map[string]any{"flipper_id": actor.FlipperID()}
}
