package pkg

import (
	internalDI "github.com/promptfit/promptfit/internal/di"
	"github.com/promptfit/promptfit/pkg/promptfit"
)

// Shared promptfit instance (singleton)
var (
	promptfitInstance    promptfit.Promptfit
	promptfitError       error
	promptfitInitialized bool
)

// ProvidePromptfit provides a shared Promptfit singleton instance
func ProvidePromptfit() (promptfit.Promptfit, error) {
	if !promptfitInitialized {
		promptfitInstance, promptfitError = internalDI.ProvidePromptfit()
		promptfitInitialized = true
	}
	return promptfitInstance, promptfitError
}
