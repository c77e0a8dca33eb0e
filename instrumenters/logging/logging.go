// Package logging provides an instrumenter that writes one structured
// slog line per feature operation.
package logging

import (
	"log/slog"

	"github.com/larouxn/flipper"
)

var _ flipper.Instrumenter = (*Instrumenter)(nil)

// Instrumenter logs events at debug level; flag checks are far too
// frequent for anything louder.
type Instrumenter struct {
	logger *slog.Logger
}

// New wraps a logger. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Instrumenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumenter{logger: logger}
}

// Instrument implements flipper.Instrumenter.
func (i *Instrumenter) Instrument(name string, payload map[string]any) {
	attrs := make([]any, 0, 2*len(payload)+2)
	attrs = append(attrs, slog.String("event", name))
	for k, v := range payload {
		attrs = append(attrs, slog.Any(k, v))
	}
	i.logger.Debug("feature operation", attrs...)
}
