package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_Subscribe_Publish(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	var receivedEvents []interface{}
	var secondReceived []interface{}

	bus.Subscribe("test.event", func(event interface{}) {
		mu.Lock()
		defer mu.Unlock()
		receivedEvents = append(receivedEvents, event)
	})

	bus.Subscribe("test.event", func(event interface{}) {
		mu.Lock()
		defer mu.Unlock()
		secondReceived = append(secondReceived, event)
	})

	testEvent := FileRenderedEvent{
		RunID: "test-run",
		Path:  "pkg/planner/planner.go",
		Level: "medium",
	}

	bus.Publish("test.event", testEvent)
	bus.(*InMemoryBus).Shutdown()

	// Both handlers should have received the event
	assert.Len(t, receivedEvents, 1)
	assert.Len(t, secondReceived, 1)
	assert.Equal(t, testEvent, receivedEvents[0])
	assert.Equal(t, testEvent, secondReceived[0])
}

func TestEventBus_MultipleTopics(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	var typeAEvents []interface{}
	var typeBEvents []interface{}

	bus.Subscribe("type.a", func(event interface{}) {
		mu.Lock()
		defer mu.Unlock()
		typeAEvents = append(typeAEvents, event)
	})

	bus.Subscribe("type.b", func(event interface{}) {
		mu.Lock()
		defer mu.Unlock()
		typeBEvents = append(typeBEvents, event)
	})

	bus.Publish("type.a", "event-a")
	bus.Publish("type.b", "event-b")
	bus.(*InMemoryBus).Shutdown()

	// Only appropriate handlers should receive events
	assert.Len(t, typeAEvents, 1)
	assert.Equal(t, "event-a", typeAEvents[0])

	assert.Len(t, typeBEvents, 1)
	assert.Equal(t, "event-b", typeBEvents[0])
}

func TestEventBus_NoSubscribers(t *testing.T) {
	bus := NewEventBus()

	// Publishing to an unknown topic should not panic
	assert.NotPanics(t, func() {
		bus.Publish("non.existent", "test")
	})
}

func TestEventBus_OrderPreservedPerTopic(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	var got []interface{}
	bus.Subscribe("ordered", func(event interface{}) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event)
	})

	for i := 0; i < 50; i++ {
		bus.Publish("ordered", i)
	}
	bus.(*InMemoryBus).Shutdown()

	assert.Len(t, got, 50)
	for i, event := range got {
		assert.Equal(t, i, event)
	}
}

func TestEventBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	var delivered int
	bus.Subscribe("risky", func(event interface{}) {
		panic("handler exploded")
	})
	bus.Subscribe("risky", func(event interface{}) {
		mu.Lock()
		defer mu.Unlock()
		delivered++
	})

	bus.Publish("risky", "one")
	bus.Publish("risky", "two")
	bus.(*InMemoryBus).Shutdown()

	assert.Equal(t, 2, delivered)
}
