package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/events"
)

type lenCounter struct{}

func (lenCounter) Count(text string) int { return len(text) }
func (lenCounter) Name() string          { return "len" }

type capturePublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *capturePublisher) Publish(topic string, event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) rendered() []events.FileRenderedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.FileRenderedEvent
	for _, e := range p.events {
		if ev, ok := e.(events.FileRenderedEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (p *capturePublisher) failures() []events.RenderFailedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.RenderFailedEvent
	for _, e := range p.events {
		if ev, ok := e.(events.RenderFailedEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func upperRenderer() Renderer {
	return RenderFunc(func(ctx context.Context, path, content string, level compress.Level) (string, error) {
		return strings.ToUpper(content), nil
	})
}

func record(path string, baseline int, level compress.Level) *compress.FileRecord {
	return &compress.FileRecord{Path: path, BaselineTokens: baseline, Level: level}
}

func TestAggregator_RendersAllPending(t *testing.T) {
	records := []*compress.FileRecord{
		record("a.go", 500, compress.LevelMedium),
		record("b.go", 400, compress.LevelHeavy),
	}
	contents := map[string]string{"a.go": "alpha", "b.go": "beta"}

	agg := NewAggregator(upperRenderer(), lenCounter{}, WithWorkers(2))
	texts, err := agg.RenderAll(context.Background(), records, contents)
	require.NoError(t, err)

	assert.Equal(t, "ALPHA", texts["a.go"])
	assert.Equal(t, "BETA", texts["b.go"])
	assert.Equal(t, len("ALPHA"), records[0].RenderedTokens)
	assert.Equal(t, len("BETA"), records[1].RenderedTokens)
	assert.False(t, records[0].RenderFailed)
}

func TestAggregator_SkipsAlreadyRenderedRecords(t *testing.T) {
	done := record("done.go", 500, compress.LevelMedium)
	done.RenderedTokens = 42
	pending := record("todo.go", 500, compress.LevelMedium)

	var calls int
	renderer := RenderFunc(func(ctx context.Context, path, content string, level compress.Level) (string, error) {
		calls++
		return content, nil
	})

	agg := NewAggregator(renderer, lenCounter{}, WithWorkers(1))
	texts, err := agg.RenderAll(context.Background(), []*compress.FileRecord{done, pending},
		map[string]string{"done.go": "x", "todo.go": "y"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 42, done.RenderedTokens)
	_, reRendered := texts["done.go"]
	assert.False(t, reRendered)
	assert.Contains(t, texts, "todo.go")
}

func TestAggregator_SubstitutesBaselineOnFailure(t *testing.T) {
	records := []*compress.FileRecord{
		record("ok.go", 300, compress.LevelMedium),
		record("bad.go", 700, compress.LevelMedium),
	}
	contents := map[string]string{"ok.go": "fine", "bad.go": "original body"}

	renderer := RenderFunc(func(ctx context.Context, path, content string, level compress.Level) (string, error) {
		if path == "bad.go" {
			return "", &RenderError{Path: path, Level: level, Err: errors.New("upstream timeout")}
		}
		return strings.ToUpper(content), nil
	})

	publisher := &capturePublisher{}
	agg := NewAggregator(renderer, lenCounter{},
		WithWorkers(2), WithPublisher("run-1", publisher))

	texts, err := agg.RenderAll(context.Background(), records, contents)
	require.NoError(t, err, "a per-file failure must not abort the run")

	assert.Equal(t, "original body", texts["bad.go"])
	assert.True(t, records[1].RenderFailed)
	assert.Equal(t, 700, records[1].RenderedTokens, "failed files count at baseline")

	assert.Equal(t, "FINE", texts["ok.go"])
	assert.False(t, records[0].RenderFailed)

	require.Len(t, publisher.failures(), 1)
	assert.Equal(t, "bad.go", publisher.failures()[0].Path)
	require.Len(t, publisher.rendered(), 1)
	assert.Equal(t, "ok.go", publisher.rendered()[0].Path)
}

func TestAggregator_SmallFilesSkipTheModel(t *testing.T) {
	small := record("tiny.go", 80, compress.LevelMax)
	contents := map[string]string{"tiny.go": "short file"}

	renderer := RenderFunc(func(ctx context.Context, path, content string, level compress.Level) (string, error) {
		t.Fatalf("renderer must not run for %s", path)
		return "", nil
	})

	agg := NewAggregator(renderer, lenCounter{}, WithWorkers(1))
	texts, err := agg.RenderAll(context.Background(), []*compress.FileRecord{small}, contents)
	require.NoError(t, err)

	assert.Equal(t, "short file", texts["tiny.go"])
	assert.Equal(t, 80, small.RenderedTokens)
}

func TestAggregator_UsesCache(t *testing.T) {
	cache := NewCache()
	cache.Put("package main", compress.LevelHeavy, "cached skeleton")

	rec := record("main.go", 900, compress.LevelHeavy)
	renderer := RenderFunc(func(ctx context.Context, path, content string, level compress.Level) (string, error) {
		t.Fatal("renderer must not run on a cache hit")
		return "", nil
	})

	publisher := &capturePublisher{}
	agg := NewAggregator(renderer, lenCounter{},
		WithCache(cache), WithPublisher("run-1", publisher))

	texts, err := agg.RenderAll(context.Background(), []*compress.FileRecord{rec},
		map[string]string{"main.go": "package main"})
	require.NoError(t, err)

	assert.Equal(t, "cached skeleton", texts["main.go"])
	require.Len(t, publisher.rendered(), 1)
	assert.True(t, publisher.rendered()[0].FromCache)
}

func TestAggregator_PopulatesCacheAfterRender(t *testing.T) {
	cache := NewCache()
	rec := record("main.go", 900, compress.LevelMedium)

	agg := NewAggregator(upperRenderer(), lenCounter{}, WithCache(cache))
	_, err := agg.RenderAll(context.Background(), []*compress.FileRecord{rec},
		map[string]string{"main.go": "package main"})
	require.NoError(t, err)

	got, ok := cache.Get("package main", compress.LevelMedium)
	require.True(t, ok)
	assert.Equal(t, "PACKAGE MAIN", got)
}

func TestAggregator_IdentityLevelsBypassCache(t *testing.T) {
	cache := NewCache()
	recs := []*compress.FileRecord{
		record("a.go", 900, compress.LevelNone),
		record("b.go", 900, compress.LevelTrim),
	}

	agg := NewAggregator(upperRenderer(), lenCounter{}, WithCache(cache))
	_, err := agg.RenderAll(context.Background(), recs,
		map[string]string{"a.go": "aaa", "b.go": "bbb"})
	require.NoError(t, err)

	assert.Equal(t, 0, cache.Size(), "cheap levels are not worth caching")
}

func TestAggregator_CancellationDiscardsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []*compress.FileRecord{
		record("a.go", 500, compress.LevelMedium),
		record("b.go", 400, compress.LevelMedium),
	}

	agg := NewAggregator(upperRenderer(), lenCounter{}, WithWorkers(2))
	_, err := agg.RenderAll(ctx, records, map[string]string{"a.go": "x", "b.go": "y"})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, records[0].RenderedTokens, "cancelled runs must not leave results behind")
	assert.Zero(t, records[1].RenderedTokens)
}

func TestAggregator_RenderErrorDuringCancellationReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	renderer := RenderFunc(func(ctx context.Context, path, content string, level compress.Level) (string, error) {
		cancel()
		return "", fmt.Errorf("connection reset")
	})

	rec := record("a.go", 500, compress.LevelMedium)
	agg := NewAggregator(renderer, lenCounter{}, WithWorkers(1))
	_, err := agg.RenderAll(ctx, []*compress.FileRecord{rec}, map[string]string{"a.go": "x"})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, rec.RenderFailed)
}
