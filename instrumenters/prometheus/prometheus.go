// Package prometheus provides an instrumenter that counts feature
// operations, labelled by feature, operation, and result.
package prometheus

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/larouxn/flipper"
)

var _ flipper.Instrumenter = (*Instrumenter)(nil)

// Instrumenter exports one counter:
// flipper_feature_operations_total{feature,operation,result}.
type Instrumenter struct {
	operations *prom.CounterVec
}

// New registers the metrics with the given registerer. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(registerer prom.Registerer) *Instrumenter {
	return &Instrumenter{
		operations: promauto.With(registerer).NewCounterVec(prom.CounterOpts{
			Namespace: "flipper",
			Name:      "feature_operations_total",
			Help:      "Total feature operations by feature, operation, and result",
		}, []string{"feature", "operation", "result"}),
	}
}

// Instrument implements flipper.Instrumenter.
func (i *Instrumenter) Instrument(name string, payload map[string]any) {
	if name != flipper.InstrumentationName {
		return
	}

	feature, _ := payload[flipper.PayloadFeatureName].(string)
	operation, _ := payload[flipper.PayloadOperation].(string)

	result := ""
	if v, ok := payload[flipper.PayloadResult]; ok {
		result = fmt.Sprintf("%v", v)
	}

	i.operations.WithLabelValues(feature, operation, result).Inc()
}
