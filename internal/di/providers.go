package di

import (
	"time"

	"github.com/promptfit/promptfit/pkg/advisory"
	"github.com/promptfit/promptfit/pkg/ai"
	"github.com/promptfit/promptfit/pkg/config"
	"github.com/promptfit/promptfit/pkg/discover"
	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/fileops"
	"github.com/promptfit/promptfit/pkg/llm/anthropic"
	"github.com/promptfit/promptfit/pkg/llm/gemini"
	"github.com/promptfit/promptfit/pkg/llm/multiplexer"
	"github.com/promptfit/promptfit/pkg/llm/openai"
	"github.com/promptfit/promptfit/pkg/logging"
	"github.com/promptfit/promptfit/pkg/prompts"
	"github.com/promptfit/promptfit/pkg/render"
	"github.com/promptfit/promptfit/pkg/tokens"
)

// Shared event bus instance
var eventBus = events.NewEventBus()

// Wire providers for the event bus system

func ProvideEventBus() events.EventBus {
	return eventBus
}

func ProvidePublisher() events.Publisher {
	return eventBus
}

func ProvideSubscriber() events.Subscriber {
	return eventBus
}

// ProvideConfigManager provides a configuration manager
func ProvideConfigManager() config.Manager {
	return config.NewConfigManager()
}

// ProvideFileManager provides the filesystem manager
func ProvideFileManager() fileops.Manager {
	return fileops.NewFileOpsManager()
}

// ProvideFinder provides the file discovery walker
func ProvideFinder() discover.Finder {
	return discover.NewFinder()
}

// ProvideCounter provides the token counter for the configured encoding,
// estimating from byte length when the encoding tables cannot load
func ProvideCounter(manager config.Manager) tokens.Counter {
	encoding := manager.GetStringWithDefault("PROMPTFIT_TOKEN_ENCODING", tokens.DefaultEncoding)
	counter, err := tokens.NewEncodingCounter(encoding)
	if err != nil {
		logging.NewComponentLogger("di").Warn("tiktoken unavailable, estimating token counts", "encoding", encoding, "error", err)
		return tokens.NewEstimatingCounter()
	}
	return counter
}

// ProvideRenderCache provides the cross-run render cache, in-memory only
// when the disk location is unusable
func ProvideRenderCache() *render.Cache {
	dir, err := render.DefaultCacheDir()
	if err == nil {
		if cache, cacheErr := render.NewDiskCache(dir); cacheErr == nil {
			return cache
		} else {
			err = cacheErr
		}
	}
	logging.NewComponentLogger("di").Warn("render cache will not persist", "error", err)
	return render.NewCache()
}

// ProvideGen provides the multiplexed LLM client. Providers initialize
// lazily on first use, so constructing the client needs no credentials.
func ProvideGen(manager config.Manager, bus events.EventBus) (ai.Gen, error) {
	factories := map[string]multiplexer.Factory{
		"openai": func() (ai.Gen, error) {
			return openai.NewClient(bus, openai.WithConfigManager(manager))
		},
		"anthropic": func() (ai.Gen, error) {
			return anthropic.NewClient(bus, anthropic.WithConfigManager(manager))
		},
		"gemini": func() (ai.Gen, error) {
			return gemini.NewClient(bus, gemini.WithConfigManager(manager))
		},
	}
	aliases := map[string]string{
		"claude": "anthropic",
		"google": "gemini",
		"gpt":    "openai",
	}

	defaultProvider := manager.GetStringWithDefault("PROMPTFIT_PROVIDER", "openai")
	client, err := multiplexer.NewClient(defaultProvider, factories, aliases)
	if err != nil {
		return nil, err
	}

	// Wrap with retry middleware unless disabled
	retryConfig := ai.GetRetryConfigFromEnv(manager)
	if retryConfig.Enabled {
		return ai.NewRetryMiddleware(client, retryConfig), nil
	}

	return client, nil
}

// ProvidePromptLoader provides the embedded prompt loader
func ProvidePromptLoader() prompts.Loader {
	return prompts.NewPromptLoader()
}

// PlannerExecutor runs the planning prompt against the planner model.
type PlannerExecutor prompts.Executor

// SummarizerExecutor runs the shrink prompts against the summarizer model.
type SummarizerExecutor prompts.Executor

// ProvidePlannerExecutor provides the executor the advisory service plans with
func ProvidePlannerExecutor(gen ai.Gen, loader prompts.Loader, manager config.Manager) PlannerExecutor {
	model := manager.GetPlannerModel()
	return prompts.NewExecutor(gen, loader, model.ModelName)
}

// ProvideSummarizerExecutor provides the executor files are compressed through
func ProvideSummarizerExecutor(gen ai.Gen, loader prompts.Loader, manager config.Manager) SummarizerExecutor {
	model := manager.GetSummarizerModel()
	return prompts.NewExecutor(gen, loader, model.ModelName)
}

// ProvideAdvisor provides the advisory planning service
func ProvideAdvisor(executor PlannerExecutor, manager config.Manager) advisory.Service {
	timeout := manager.GetDurationWithDefault("PROMPTFIT_PLANNER_TIMEOUT", 120*time.Second)
	return advisory.NewLLMService(executor, advisory.WithTimeout(timeout))
}

// ProvideRenderer provides the per-file compression renderer
func ProvideRenderer(executor SummarizerExecutor) render.Renderer {
	return render.NewPromptRenderer(executor, nil)
}
