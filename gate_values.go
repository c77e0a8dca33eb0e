package flipper

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/larouxn/flipper/expression"
)

// GateValues is the merged view of one feature's stored state, one field
// per gate kind. Adapters return it from Get; a nil Boolean, empty sets,
// zero percentages, and a nil Expression are the defaults.
type GateValues struct {
	Boolean            *bool
	Actors             map[string]struct{}
	Groups             map[string]struct{}
	PercentageOfActors int
	PercentageOfTime   int
	Expression         *expression.Expression
}

// NewGateValues returns the default-shaped state: everything off.
func NewGateValues() *GateValues {
	return &GateValues{
		Actors: map[string]struct{}{},
		Groups: map[string]struct{}{},
	}
}

// IsDefault reports whether every gate is at its default value, which is
// the definition of the "off" feature state.
func (gv *GateValues) IsDefault() bool {
	return gv.Boolean == nil &&
		len(gv.Actors) == 0 &&
		len(gv.Groups) == 0 &&
		gv.PercentageOfActors == 0 &&
		gv.PercentageOfTime == 0 &&
		gv.Expression == nil
}

// State classifies the stored values: on (boolean true or percentage of
// time at 100), off (all defaults), conditional otherwise.
func (gv *GateValues) State() State {
	switch {
	case (gv.Boolean != nil && *gv.Boolean) || gv.PercentageOfTime == 100:
		return StateOn
	case gv.IsDefault():
		return StateOff
	default:
		return StateConditional
	}
}

// ActorIDs returns the actor set as a sorted slice.
func (gv *GateValues) ActorIDs() []string { return sortedKeys(gv.Actors) }

// GroupNames returns the group set as a sorted slice.
func (gv *GateValues) GroupNames() []string { return sortedKeys(gv.Groups) }

// Clone returns a deep copy. Adapters that keep state in memory hand out
// clones so callers cannot mutate the store behind its lock.
func (gv *GateValues) Clone() *GateValues {
	out := NewGateValues()
	if gv.Boolean != nil {
		b := *gv.Boolean
		out.Boolean = &b
	}
	for id := range gv.Actors {
		out.Actors[id] = struct{}{}
	}
	for name := range gv.Groups {
		out.Groups[name] = struct{}{}
	}
	out.PercentageOfActors = gv.PercentageOfActors
	out.PercentageOfTime = gv.PercentageOfTime
	if gv.Expression != nil {
		e := *gv.Expression
		out.Expression = &e
	}
	return out
}

// StoredValue is one persisted gate entry in the string wire encoding.
// Set-valued gates contribute one entry per element; scalar gates one
// entry each.
type StoredValue struct {
	Gate  GateName
	Value string
}

// GateValuesFromStored folds wire entries into a normalized GateValues.
// Unknown gates and malformed values are dropped: a corrupt row must
// never take evaluation down. Percentages clamp to [0, 100].
func GateValuesFromStored(entries []StoredValue) *GateValues {
	gv := NewGateValues()
	for _, entry := range entries {
		switch entry.Gate {
		case GateBoolean:
			b := entry.Value == "true"
			if entry.Value == "true" || entry.Value == "false" {
				gv.Boolean = &b
			}
		case GateActors:
			if entry.Value != "" {
				gv.Actors[entry.Value] = struct{}{}
			}
		case GateGroups:
			if entry.Value != "" {
				gv.Groups[entry.Value] = struct{}{}
			}
		case GatePercentageOfActors:
			gv.PercentageOfActors = ParsePercentage(entry.Value)
		case GatePercentageOfTime:
			gv.PercentageOfTime = ParsePercentage(entry.Value)
		case GateExpression:
			if e, err := expression.FromJSON([]byte(entry.Value)); err == nil {
				gv.Expression = &e
			}
		}
	}
	return gv
}

// ToStored flattens the state back into wire entries, the inverse of
// GateValuesFromStored. Defaults produce no entries.
func (gv *GateValues) ToStored() []StoredValue {
	var entries []StoredValue
	if gv.Boolean != nil {
		entries = append(entries, StoredValue{GateBoolean, strconv.FormatBool(*gv.Boolean)})
	}
	for _, id := range gv.ActorIDs() {
		entries = append(entries, StoredValue{GateActors, id})
	}
	for _, name := range gv.GroupNames() {
		entries = append(entries, StoredValue{GateGroups, name})
	}
	if gv.PercentageOfActors != 0 {
		entries = append(entries, StoredValue{GatePercentageOfActors, strconv.Itoa(gv.PercentageOfActors)})
	}
	if gv.PercentageOfTime != 0 {
		entries = append(entries, StoredValue{GatePercentageOfTime, strconv.Itoa(gv.PercentageOfTime)})
	}
	if gv.Expression != nil {
		if raw, err := json.Marshal(gv.Expression); err == nil {
			entries = append(entries, StoredValue{GateExpression, string(raw)})
		}
	}
	return entries
}

// ParsePercentage decodes a wire-encoded percentage, clamping to
// [0, 100]. Unparseable input reads as zero.
func ParsePercentage(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
