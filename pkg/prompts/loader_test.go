package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoader_LoadsEmbeddedShrinkPrompts(t *testing.T) {
	loader := NewPromptLoader()

	names := []string{
		"shrink_code_light",
		"shrink_code_medium",
		"shrink_code_heavy",
		"shrink_code_max",
		"shrink_doc_light",
		"shrink_doc_medium",
		"shrink_doc_heavy",
		"shrink_doc_max",
	}

	for _, name := range names {
		prompt, err := loader.LoadPrompt(name)
		require.NoError(t, err, "prompt %s should load", name)
		assert.Equal(t, name, prompt.Name)
		assert.Contains(t, prompt.Text, "{{.code}}", "prompt %s must take the file content", name)
		assert.NotEmpty(t, prompt.Instruction)
		assert.Greater(t, prompt.MaxTokens, int32(0))
	}
}

func TestDefaultLoader_LoadsPlannerPrompt(t *testing.T) {
	loader := NewPromptLoader()

	prompt, err := loader.LoadPrompt("planner")
	require.NoError(t, err)

	assert.Equal(t, "planner", prompt.Name)
	assert.Contains(t, prompt.Text, "{{.files}}")
	assert.Contains(t, prompt.Text, "{{.budget}}")
	assert.Contains(t, prompt.Instruction, "compression strategist")
}

func TestDefaultLoader_UnknownPrompt(t *testing.T) {
	loader := NewPromptLoader()

	_, err := loader.LoadPrompt("does-not-exist")
	assert.Error(t, err)
}

func TestFileLoader_LoadsFromDisk(t *testing.T) {
	tempDir := t.TempDir()
	promptContent := `name: "custom"
instruction: "Custom instruction"
text: "Custom: {{.code}}"
max_tokens: 512
temperature: 0.5`

	err := os.WriteFile(filepath.Join(tempDir, "custom.yaml"), []byte(promptContent), 0644)
	require.NoError(t, err)

	loader := &FileLoader{PromptsPath: tempDir}
	prompt, err := loader.LoadPrompt("custom")
	require.NoError(t, err)

	assert.Equal(t, "custom", prompt.Name)
	assert.Equal(t, "Custom instruction", prompt.Instruction)
	assert.Equal(t, int32(512), prompt.MaxTokens)
	assert.InDelta(t, 0.5, float64(prompt.Temperature), 1e-6)
}

func TestFileLoader_MissingFile(t *testing.T) {
	loader := &FileLoader{PromptsPath: t.TempDir()}

	_, err := loader.LoadPrompt("absent")
	assert.Error(t, err)
}
