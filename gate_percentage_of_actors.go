package flipper

import (
	"context"
	"hash/crc32"
	"math"
)

// PercentageOfActorsGate deterministically enables a stable slice of the
// actor population. An actor's score is derived from CRC-32 (IEEE) over
// the feature name concatenated with the actor id, so decisions agree
// across processes, restarts, and storage backends, and raising the
// percentage never turns off an actor that was already on.
type PercentageOfActorsGate struct{}

func (PercentageOfActorsGate) Name() GateName     { return GatePercentageOfActors }
func (PercentageOfActorsGate) DataType() DataType { return DataTypeInteger }

func (PercentageOfActorsGate) IsEnabled(values *GateValues) bool {
	return values.PercentageOfActors > 0
}

func (PercentageOfActorsGate) IsOpen(_ context.Context, ec EvalContext) bool {
	percentage := float64(ec.Values.PercentageOfActors)
	for _, actor := range ec.Actors {
		if actor == nil {
			continue
		}
		id := actor.FlipperID()
		if id == "" {
			continue
		}
		if actorScore(ec.FeatureName, id) < percentage {
			return true
		}
	}
	return false
}

func (PercentageOfActorsGate) Protects(thing any) bool {
	_, ok := thing.(PercentageOfActors)
	return ok
}

// actorScore maps (feature, actor) onto [0, 100]. The input is exactly
// the feature name concatenated with the actor id; no delimiter, no
// normalization.
func actorScore(featureName, actorID string) float64 {
	sum := crc32.ChecksumIEEE([]byte(featureName + actorID))
	return float64(sum) / float64(math.MaxUint32) * 100
}
