package httpapi

import (
	"encoding/json"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/expression"
)

// GatesDocument is the JSON shape of one feature's gate values. It is
// shared by the server and by the HTTP adapter client, so both sides
// round-trip the same encoding.
type GatesDocument struct {
	Boolean            *string         `json:"boolean"`
	Actors             []string        `json:"actors"`
	Groups             []string        `json:"groups"`
	PercentageOfActors int             `json:"percentage_of_actors"`
	PercentageOfTime   int             `json:"percentage_of_time"`
	Expression         json.RawMessage `json:"expression,omitempty"`
}

// FeatureResponse is the representation of one feature.
type FeatureResponse struct {
	Key   string        `json:"key"`
	State string        `json:"state"`
	Gates GatesDocument `json:"gates"`
}

// FeaturesResponse lists every registered feature.
type FeaturesResponse struct {
	Features []FeatureResponse `json:"features"`
}

// CreateFeatureRequest registers a feature.
type CreateFeatureRequest struct {
	Name string `json:"name"`
}

// GateRequest carries one gate write in the string wire encoding.
type GateRequest struct {
	Value string `json:"value"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GatesDocumentFromValues flattens gate values into the wire document.
func GatesDocumentFromValues(values *flipper.GateValues) GatesDocument {
	doc := GatesDocument{
		Actors:             values.ActorIDs(),
		Groups:             values.GroupNames(),
		PercentageOfActors: values.PercentageOfActors,
		PercentageOfTime:   values.PercentageOfTime,
	}
	if values.Boolean != nil {
		s := "false"
		if *values.Boolean {
			s = "true"
		}
		doc.Boolean = &s
	}
	if values.Expression != nil {
		if raw, err := json.Marshal(values.Expression); err == nil {
			doc.Expression = raw
		}
	}
	return doc
}

// Values rebuilds normalized gate values from the wire document,
// dropping anything malformed.
func (d GatesDocument) Values() *flipper.GateValues {
	values := flipper.NewGateValues()
	if d.Boolean != nil && (*d.Boolean == "true" || *d.Boolean == "false") {
		b := *d.Boolean == "true"
		values.Boolean = &b
	}
	for _, id := range d.Actors {
		if id != "" {
			values.Actors[id] = struct{}{}
		}
	}
	for _, name := range d.Groups {
		if name != "" {
			values.Groups[name] = struct{}{}
		}
	}
	values.PercentageOfActors = clamp(d.PercentageOfActors)
	values.PercentageOfTime = clamp(d.PercentageOfTime)
	if len(d.Expression) > 0 {
		if e, err := expression.FromJSON(d.Expression); err == nil {
			values.Expression = &e
		}
	}
	return values
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
