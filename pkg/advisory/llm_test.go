package advisory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptfit/promptfit/pkg/ai"
	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/prompts"
)

func newTestService(gen ai.Gen) *LLMService {
	executor := prompts.NewExecutor(gen, prompts.NewPromptLoader(), "o3-mini")
	return NewLLMService(executor)
}

func TestLLMService_ParsesProposal(t *testing.T) {
	gen := ai.NewMockGen()
	gen.QueueResponse(`files:
  - path: core/engine.go
    level: medium
  - path: docs/guide.md
    level: max
`)

	service := newTestService(gen)
	proposal, err := service.Propose(context.Background(), planningProblem())
	require.NoError(t, err)

	assert.Equal(t, compress.LevelMedium, proposal["core/engine.go"])
	assert.Equal(t, compress.LevelMax, proposal["docs/guide.md"])
}

func TestLLMService_AcceptsFencedReply(t *testing.T) {
	gen := ai.NewMockGen()
	gen.QueueResponse("```yaml\nfiles:\n  - path: a.go\n    level: heavy\n```")

	service := newTestService(gen)
	proposal, err := service.Propose(context.Background(), planningProblem())
	require.NoError(t, err)

	assert.Equal(t, compress.LevelHeavy, proposal["a.go"])
}

func TestLLMService_DescribesProblemToModel(t *testing.T) {
	gen := ai.NewMockGen()
	gen.QueueResponse("files:\n  - path: a.go\n    level: trim\n")

	service := newTestService(gen)
	_, err := service.Propose(context.Background(), planningProblem())
	require.NoError(t, err)

	require.Len(t, gen.UsedPrompts, 1)
	assert.Equal(t, "planner", gen.UsedPrompts[0].Name)

	attrs := ai.AttrsToMap(gen.LastAttrs)
	assert.Equal(t, "900", attrs["budget"])
	assert.Equal(t, "3", attrs["count"])
	assert.Equal(t, "1700", attrs["total"])
	assert.Contains(t, attrs["files"], "core/engine.go - 1000 tokens (currently none)")
	assert.Contains(t, attrs["files"], "core/engine_test.go - 500 tokens (currently trim)")
	assert.Contains(t, attrs["fixed"], "main.go - 300 tokens at none compression")
	assert.Contains(t, attrs["fixed"], "DO NOT include in your plan")
}

func TestLLMService_RejectsUnknownLevelName(t *testing.T) {
	gen := ai.NewMockGen()
	gen.QueueResponse("files:\n  - path: a.go\n    level: extreme\n")

	service := newTestService(gen)
	_, err := service.Propose(context.Background(), planningProblem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable")
}

func TestLLMService_RejectsDuplicatePath(t *testing.T) {
	gen := ai.NewMockGen()
	gen.QueueResponse(`files:
  - path: a.go
    level: trim
  - path: a.go
    level: max
`)

	service := newTestService(gen)
	_, err := service.Propose(context.Background(), planningProblem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
}

func TestLLMService_RejectsProseReply(t *testing.T) {
	gen := ai.NewMockGen()
	gen.QueueResponse("I think you should compress the tests heavily.")

	service := newTestService(gen)
	_, err := service.Propose(context.Background(), planningProblem())
	require.Error(t, err)
}

func TestLLMService_PropagatesModelErrors(t *testing.T) {
	gen := ai.NewMockGen()
	gen.QueueError("overloaded")

	service := newTestService(gen)
	_, err := service.Propose(context.Background(), planningProblem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advisory proposal failed")
}
