package render

import (
	"context"
	"sync"

	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/logging"
	"github.com/promptfit/promptfit/pkg/tokens"
)

// DefaultWorkers bounds render parallelism unless configured otherwise.
const DefaultWorkers = 8

// Aggregator renders every file that still needs it and fills in actual
// token counts. Files render independently on a bounded worker pool;
// results are applied to the records only after all workers join, so a
// cancelled run never leaves half-applied state behind.
type Aggregator struct {
	renderer  Renderer
	counter   tokens.Counter
	cache     *Cache
	workers   int
	runID     string
	publisher events.Publisher
	logger    logging.Logger
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithWorkers sets the worker pool size
func WithWorkers(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithCache attaches a render cache
func WithCache(cache *Cache) AggregatorOption {
	return func(a *Aggregator) {
		a.cache = cache
	}
}

// WithPublisher attaches an event publisher for per-file render events
func WithPublisher(runID string, publisher events.Publisher) AggregatorOption {
	return func(a *Aggregator) {
		a.runID = runID
		a.publisher = publisher
	}
}

// WithLogger overrides the default logger
func WithLogger(logger logging.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// NewAggregator creates an Aggregator
func NewAggregator(renderer Renderer, counter tokens.Counter, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		renderer:  renderer,
		counter:   counter,
		workers:   DefaultWorkers,
		publisher: &events.NoOpPublisher{},
		logger:    logging.NewComponentLogger("render"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type renderResult struct {
	record  *compress.FileRecord
	text    string
	tokens  int
	cached  bool
	failed  bool
	failure error
	err     error
}

// RenderAll renders every record whose level changed since its last
// render and returns the new text per path. Records that already carry a
// rendered count are left alone, which is what makes refinement rounds
// and the cache cheap. A render failure substitutes the file's original
// content and marks the record; cancellation discards everything.
func (a *Aggregator) RenderAll(ctx context.Context, records []*compress.FileRecord, contents map[string]string) (map[string]string, error) {
	pending := make([]*compress.FileRecord, 0, len(records))
	for _, rec := range records {
		if rec.RenderedTokens == 0 {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return map[string]string{}, nil
	}

	jobs := make(chan *compress.FileRecord)
	results := make(chan renderResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- a.renderOne(ctx, rec, contents[rec.Path])
			}
		}()
	}

	for _, rec := range pending {
		jobs <- rec
	}
	close(jobs)
	wg.Wait()
	close(results)

	byPath := make(map[string]renderResult, len(pending))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		byPath[res.record.Path] = res
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// All workers joined cleanly; apply results in record order.
	texts := make(map[string]string, len(pending))
	for _, rec := range pending {
		res := byPath[rec.Path]
		rec.RenderedTokens = res.tokens
		rec.RenderFailed = res.failed
		texts[rec.Path] = res.text

		if res.failed {
			a.logger.Warn("render failed, keeping original content",
				"path", rec.Path, "level", rec.Level, "error", res.failure)
			a.publisher.Publish(events.RenderFailedEvent{}.Topic(), events.RenderFailedEvent{
				RunID: a.runID,
				Path:  rec.Path,
				Error: res.failure.Error(),
			})
			continue
		}
		a.publisher.Publish(events.FileRenderedEvent{}.Topic(), events.FileRenderedEvent{
			RunID:     a.runID,
			Path:      rec.Path,
			Level:     rec.Level.String(),
			Tokens:    res.tokens,
			FromCache: res.cached,
		})
	}

	return texts, nil
}

func (a *Aggregator) renderOne(ctx context.Context, rec *compress.FileRecord, content string) renderResult {
	if err := ctx.Err(); err != nil {
		return renderResult{record: rec, err: err}
	}

	// Files already at the minimum size keep their content at any level.
	if rec.Level != compress.LevelNone && rec.BaselineTokens <= compress.MinRenderedTokens {
		return renderResult{record: rec, text: content, tokens: rec.BaselineTokens}
	}

	cacheable := a.cache != nil && rec.Level > compress.LevelTrim
	if cacheable {
		if text, ok := a.cache.Get(content, rec.Level); ok {
			return renderResult{record: rec, text: text, tokens: a.counter.Count(text), cached: true}
		}
	}

	text, err := a.renderer.Render(ctx, rec.Path, content, rec.Level)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return renderResult{record: rec, err: ctxErr}
		}
		return renderResult{record: rec, text: content, tokens: rec.BaselineTokens, failed: true, failure: err}
	}

	if cacheable {
		a.cache.Put(content, rec.Level, text)
	}
	return renderResult{record: rec, text: text, tokens: a.counter.Count(text)}
}
