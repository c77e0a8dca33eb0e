package memory_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larouxn/flipper"
	"github.com/larouxn/flipper/instrumenters/memory"
)

func TestRecordsEventsInOrder(t *testing.T) {
	t.Parallel()

	ins := memory.New()
	for i := range 5 {
		ins.Instrument(flipper.InstrumentationName, map[string]any{"i": i})
	}

	events := ins.Events()
	require.Len(t, events, 5)
	for i, event := range events {
		assert.Equal(t, flipper.InstrumentationName, event.Name)
		assert.Equal(t, i, event.Payload["i"])
	}

	last, ok := ins.Last()
	require.True(t, ok)
	assert.Equal(t, 4, last.Payload["i"])

	ins.Reset()
	assert.Empty(t, ins.Events())
	_, ok = ins.Last()
	assert.False(t, ok)
}

func TestPayloadsAreCopied(t *testing.T) {
	t.Parallel()

	ins := memory.New()
	payload := map[string]any{"k": "original"}
	ins.Instrument("event", payload)
	payload["k"] = "mutated"

	events := ins.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "original", events[0].Payload["k"])
}

func TestConcurrentInstrument(t *testing.T) {
	t.Parallel()

	ins := memory.New()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				ins.Instrument("event", map[string]any{"id": fmt.Sprintf("%d-%d", i, j)})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ins.Events(), 800)
}
