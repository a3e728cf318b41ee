package di

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/promptfit/promptfit/pkg/events"
)

// A single channel distributes events across readers instead of
// broadcasting them. This is why the bus keeps one channel per topic and
// fans handler calls out itself; the test pins the assumption down.
func TestChannelDistributesAcrossReaders(t *testing.T) {
	ch := make(chan events.FileRenderedEvent, 10)

	var mu sync.Mutex
	reader1 := 0
	reader2 := 0

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range ch {
			mu.Lock()
			reader1++
			mu.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		for range ch {
			mu.Lock()
			reader2++
			mu.Unlock()
		}
	}()

	for i := 0; i < 10; i++ {
		ch <- events.FileRenderedEvent{RunID: "run", Path: "main.go", Tokens: i}
	}
	close(ch)
	wg.Wait()

	assert.Equal(t, 10, reader1+reader2, "every event goes to exactly one reader")
}

// The shared bus must broadcast: every subscriber on a topic sees every
// event, unlike the raw channel above.
func TestSharedBusBroadcastsToAllSubscribers(t *testing.T) {
	first := make(chan events.FileRenderedEvent, 1)
	second := make(chan events.FileRenderedEvent, 1)

	ProvideSubscriber().Subscribe(events.FileRenderedEvent{}.Topic(), func(e interface{}) {
		if event, ok := e.(events.FileRenderedEvent); ok && event.RunID == "broadcast-test" {
			first <- event
		}
	})
	ProvideSubscriber().Subscribe(events.FileRenderedEvent{}.Topic(), func(e interface{}) {
		if event, ok := e.(events.FileRenderedEvent); ok && event.RunID == "broadcast-test" {
			second <- event
		}
	})

	sent := events.FileRenderedEvent{RunID: "broadcast-test", Path: "pkg/server.go", Level: "medium", Tokens: 412}
	ProvidePublisher().Publish(sent.Topic(), sent)

	for name, ch := range map[string]chan events.FileRenderedEvent{"first": first, "second": second} {
		select {
		case got := <-ch:
			assert.Equal(t, sent, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("%s subscriber never received the event", name)
		}
	}
}
