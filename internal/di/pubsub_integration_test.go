package di

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptfit/promptfit/pkg/events"
)

func TestProvideEventBus_SingletonSharedAcrossAccessors(t *testing.T) {
	bus := ProvideEventBus()
	require.NotNil(t, bus)

	// All three accessors must hand out the same underlying bus, or
	// publishers and subscribers would never meet.
	assert.Same(t, bus, ProvideEventBus())

	received := make(chan events.PlanReadyEvent, 1)
	ProvideSubscriber().Subscribe(events.PlanReadyEvent{}.Topic(), func(e interface{}) {
		if event, ok := e.(events.PlanReadyEvent); ok && event.RunID == "singleton-test" {
			received <- event
		}
	})

	sent := events.PlanReadyEvent{RunID: "singleton-test", Source: "fallback", Feasible: true, TotalTokens: 900, Rounds: 2}
	ProvidePublisher().Publish(sent.Topic(), sent)

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber via ProvideSubscriber never saw the publish via ProvidePublisher")
	}
}

func TestProvidePromptfit_WiresTheSharedBus(t *testing.T) {
	// Construction must not need credentials: LLM providers initialize
	// lazily on first generate call.
	instance, err := ProvidePromptfit()
	require.NoError(t, err)
	require.NotNil(t, instance)

	assert.Same(t, ProvideEventBus(), instance.GetEventBus())

	received := make(chan events.PackStartedEvent, 1)
	instance.GetEventBus().Subscribe(events.PackStartedEvent{}.Topic(), func(e interface{}) {
		if event, ok := e.(events.PackStartedEvent); ok && event.RunID == "wiring-test" {
			received <- event
		}
	})

	ProvidePublisher().Publish(events.PackStartedEvent{}.Topic(), events.PackStartedEvent{RunID: "wiring-test", WorkingDir: "."})

	select {
	case got := <-received:
		assert.Equal(t, "wiring-test", got.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("instance bus is not the shared bus")
	}
}
