package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RenderString(t *testing.T) {
	engine := NewEngine()

	result, err := engine.RenderString("Hello {{.name}}", map[string]any{
		"name": "World",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello World", result)
}

func TestEngine_RenderString_IntData(t *testing.T) {
	engine := NewEngine()

	result, err := engine.RenderString("Keep about {{.retain}}% of the content", map[string]any{
		"retain": 85,
	})

	require.NoError(t, err)
	assert.Equal(t, "Keep about 85% of the content", result)
}

func TestEngine_RenderString_WithIndentFunction(t *testing.T) {
	engine := NewEngine()

	result, err := engine.RenderString("Code:\n{{indent 2 .code}}", map[string]any{
		"code": "func main() {\n  println(\"hello\")\n}",
	})

	require.NoError(t, err)
	expected := "Code:\n  func main() {\n    println(\"hello\")\n  }"
	assert.Equal(t, expected, result)
}

func TestEngine_RenderString_WithFenceFunction(t *testing.T) {
	engine := NewEngine()

	result, err := engine.RenderString("{{fence .content}}", map[string]any{
		"content": "plain text",
	})

	require.NoError(t, err)
	assert.Equal(t, "```\nplain text\n```", result)
}

func TestEngine_RenderString_FenceGrowsPastBackticks(t *testing.T) {
	engine := NewEngine()

	result, err := engine.RenderString("{{fence .content}}", map[string]any{
		"content": "has a ```go fence inside",
	})

	require.NoError(t, err)
	assert.Equal(t, "````\nhas a ```go fence inside\n````", result)
}

func TestEngine_RenderString_Error(t *testing.T) {
	engine := NewEngine()

	// Test with invalid template syntax
	_, err := engine.RenderString("Hello {{.name", map[string]any{
		"name": "World",
	})

	assert.Error(t, err)
}
