//go:build wireinject

package di

import (
	"github.com/google/wire"
	"github.com/promptfit/promptfit/pkg/promptfit"
)

// ProvidePromptfit provides a complete Promptfit instance using Wire
func ProvidePromptfit() (promptfit.Promptfit, error) {
	wire.Build(
		// Event bus dependency
		ProvideEventBus,

		// Configuration dependency
		ProvideConfigManager,

		// Filesystem dependency
		ProvideFileManager,

		// Pipeline stage dependencies
		ProvideFinder,
		ProvideCounter,
		ProvideRenderCache,

		// LLM dependencies
		ProvideGen,
		ProvidePromptLoader,
		ProvidePlannerExecutor,
		ProvideSummarizerExecutor,
		ProvideAdvisor,
		ProvideRenderer,

		// Promptfit factory function
		promptfit.New,
	)
	return nil, nil
}
