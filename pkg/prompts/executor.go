package prompts

import (
	"context"
	"fmt"
	"sync"

	"github.com/promptfit/promptfit/pkg/ai"
)

// Executor generates a response for a named prompt with the given data
type Executor interface {
	Execute(ctx context.Context, promptName string, debug bool, promptData ...ai.Attr) (string, error)
	CacheSize() int // For testing purposes
}

// DefaultExecutor runs prompts through a Gen backend, caching loaded prompts
type DefaultExecutor struct {
	Gen         ai.Gen
	Loader      Loader
	Model       string               // Model used when a prompt does not pin one
	promptCache map[string]ai.Prompt // Cache to store loaded prompts
	cacheMutex  sync.RWMutex         // Mutex to protect the cache map
}

// NewExecutor creates a DefaultExecutor bound to a model. The model applies
// to any prompt whose YAML leaves model_name empty.
func NewExecutor(gen ai.Gen, loader Loader, model string) Executor {
	return &DefaultExecutor{
		Gen:         gen,
		Loader:      loader,
		Model:       model,
		promptCache: make(map[string]ai.Prompt),
	}
}

// CacheSize returns the number of prompts in the cache (for testing purposes)
func (s *DefaultExecutor) CacheSize() int {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()
	return len(s.promptCache)
}

// getPrompt loads a prompt from cache or uses the loader if not cached
func (s *DefaultExecutor) getPrompt(promptName string) (ai.Prompt, error) {
	// First, check if the prompt is in the cache
	s.cacheMutex.RLock()
	prompt, exists := s.promptCache[promptName]
	s.cacheMutex.RUnlock()

	if exists {
		return prompt, nil
	}

	// Not in cache, use the prompt loader
	newPrompt, err := s.Loader.LoadPrompt(promptName)
	if err != nil {
		return ai.Prompt{}, err
	}

	// Store in cache
	s.cacheMutex.Lock()
	s.promptCache[promptName] = newPrompt
	s.cacheMutex.Unlock()

	return newPrompt, nil
}

// Execute renders the named prompt with the given data and generates a response
func (s *DefaultExecutor) Execute(ctx context.Context, promptName string, debug bool, promptData ...ai.Attr) (string, error) {
	prompt, err := s.getPrompt(promptName)
	if err != nil {
		return "", err
	}

	if prompt.ModelName == "" {
		prompt.ModelName = s.Model
	}

	result, err := s.Gen.GenerateContentAttr(ctx, prompt, debug, promptData)
	if err != nil {
		return "", fmt.Errorf("error generating content: %w", err)
	}
	result = ai.StripMarkdownFence(result)

	return result, nil
}
