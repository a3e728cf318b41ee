package events

import (
	"sync"
	"sync/atomic"

	"github.com/promptfit/promptfit/pkg/logging"
)

const defaultQueueSize = 256

// EventHandler is a function that handles an event
type EventHandler func(event interface{})

// Publisher allows publishing events
type Publisher interface {
	Publish(topic string, event interface{})
}

// Subscriber allows subscribing to events
type Subscriber interface {
	Subscribe(topic string, handler EventHandler)
}

// EventBus provides both publishing and subscribing
type EventBus interface {
	Publisher
	Subscriber
}

// InMemoryBus implements EventBus. Each topic gets a dedicated delivery
// goroutine so handlers observe events in publish order; publishing never
// blocks the pipeline (full queues drop).
type InMemoryBus struct {
	mu        sync.RWMutex
	topics    map[string]*topic
	queueSize int
	dropped   atomic.Int64
}

type topic struct {
	mu       sync.RWMutex
	handlers []EventHandler
	queue    chan interface{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewEventBus creates a new event bus with the default queue size.
func NewEventBus() EventBus {
	return NewEventBusWithQueueSize(defaultQueueSize)
}

// NewEventBusWithQueueSize allows configuring the per-topic queue size.
// A size of at least 1 is enforced to avoid unbuffered sends.
func NewEventBusWithQueueSize(size int) EventBus {
	if size < 1 {
		size = 1
	}
	return &InMemoryBus{
		topics:    make(map[string]*topic),
		queueSize: size,
	}
}

// Subscribe adds a handler for a topic.
func (b *InMemoryBus) Subscribe(name string, handler EventHandler) {
	t := b.ensureTopic(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// Publish sends an event to all subscribers of the topic. Delivery is
// in-order per topic; if the topic queue is full the event is dropped
// rather than blocking the publisher.
func (b *InMemoryBus) Publish(name string, event interface{}) {
	b.mu.RLock()
	t, ok := b.topics[name]
	b.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case t.queue <- event:
	default:
		b.dropped.Add(1)
		logging.Warn("event queue full, dropping event", "topic", name)
	}
}

// DroppedCount returns the number of events dropped due to full queues.
func (b *InMemoryBus) DroppedCount() int64 {
	return b.dropped.Load()
}

// Shutdown stops all topic workers after draining their queues.
func (b *InMemoryBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.topics {
		t.stop()
	}
}

func (b *InMemoryBus) ensureTopic(name string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[name]; ok {
		return t
	}

	t := &topic{queue: make(chan interface{}, b.queueSize)}
	t.wg.Add(1)
	go t.deliver()
	b.topics[name] = t
	return t
}

func (t *topic) deliver() {
	defer t.wg.Done()
	for event := range t.queue {
		t.mu.RLock()
		handlers := make([]EventHandler, len(t.handlers))
		copy(handlers, t.handlers)
		t.mu.RUnlock()

		for _, handler := range handlers {
			t.dispatch(handler, event)
		}
	}
}

// dispatch isolates handler panics so one bad subscriber cannot take down
// the delivery goroutine for the topic.
func (t *topic) dispatch(handler EventHandler, event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("event handler panicked", "panic", r)
		}
	}()
	handler(event)
}

func (t *topic) stop() {
	t.stopOnce.Do(func() {
		close(t.queue)
		t.wg.Wait()
	})
}
