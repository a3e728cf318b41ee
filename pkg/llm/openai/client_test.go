package openai

import (
	"context"
	"sync"
	"testing"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptfit/promptfit/pkg/ai"
	"github.com/promptfit/promptfit/pkg/events"
)

type mockChatCompletions struct {
	t         *testing.T
	mu        sync.Mutex
	requests  []openai.ChatCompletionNewParams
	responses []*openai.ChatCompletion
	err       error
}

func (m *mockChatCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, params)

	if m.err != nil {
		return nil, m.err
	}

	if len(m.responses) == 0 {
		require.FailNow(m.t, "mock chat completions received more calls than configured responses")
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func newChatCompletion(id string, model shared.ChatModel, content string, usage openai.CompletionUsage) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		ID:      id,
		Object:  constant.ChatCompletion(""),
		Created: 0,
		Model:   string(model),
		Choices: []openai.ChatCompletionChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message: openai.ChatCompletionMessage{
					Role:    constant.Assistant(""),
					Content: content,
				},
			},
		},
		Usage: usage,
	}
}

func TestClient_GenerateContent_SimpleResponse(t *testing.T) {
	mockAPI := &mockChatCompletions{
		t: t,
		responses: []*openai.ChatCompletion{
			newChatCompletion(
				"test",
				shared.ChatModelGPT4oMini,
				"Hello there!",
				openai.CompletionUsage{},
			),
		},
	}

	rawClient, err := NewClient(&events.NoOpEventBus{}, WithChatClient(mockAPI))
	require.NoError(t, err)
	client := rawClient.(*Client)

	prompt := ai.Prompt{
		Name:        "greeting",
		Instruction: "You are a helpful assistant.",
		Text:        "Say hello.",
		ModelName:   string(shared.ChatModelGPT4oMini),
	}

	resp, err := client.GenerateContent(context.Background(), prompt, false)
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", resp)

	mockAPI.mu.Lock()
	defer mockAPI.mu.Unlock()
	require.Len(t, mockAPI.requests, 1)
	request := mockAPI.requests[0]
	assert.Equal(t, shared.ChatModelGPT4oMini, request.Model)
	require.Len(t, request.Messages, 2)
	require.NotNil(t, request.Messages[0].OfSystem)
	require.True(t, request.Messages[0].OfSystem.Content.OfString.Valid())
	assert.Equal(t, "You are a helpful assistant.", request.Messages[0].OfSystem.Content.OfString.Value)
	require.NotNil(t, request.Messages[1].OfUser)
	require.True(t, request.Messages[1].OfUser.Content.OfString.Valid())
	assert.Equal(t, "Say hello.", request.Messages[1].OfUser.Content.OfString.Value)
}

func TestClient_GenerateContent_RendersTemplateAttrs(t *testing.T) {
	mockAPI := &mockChatCompletions{
		t: t,
		responses: []*openai.ChatCompletion{
			newChatCompletion(
				"render",
				shared.ChatModelGPT4oMini,
				"done",
				openai.CompletionUsage{},
			),
		},
	}

	rawClient, err := NewClient(&events.NoOpEventBus{}, WithChatClient(mockAPI))
	require.NoError(t, err)
	client := rawClient.(*Client)

	prompt := ai.Prompt{
		Name:      "summarize",
		Text:      "Summarize {{.path}} in {{.tokens}} tokens.",
		ModelName: string(shared.ChatModelGPT4oMini),
	}

	_, err = client.GenerateContent(context.Background(), prompt, false, "path", "main.go", "tokens", "150")
	require.NoError(t, err)

	mockAPI.mu.Lock()
	defer mockAPI.mu.Unlock()
	require.Len(t, mockAPI.requests, 1)
	user := mockAPI.requests[0].Messages[0].OfUser
	require.NotNil(t, user)
	assert.Equal(t, "Summarize main.go in 150 tokens.", user.Content.OfString.Value)
}

func TestClient_GenerateContent_ReasoningModelSkipsTemperature(t *testing.T) {
	mockAPI := &mockChatCompletions{
		t: t,
		responses: []*openai.ChatCompletion{
			newChatCompletion(
				"reasoning",
				shared.ChatModel("o3-mini"),
				"plan",
				openai.CompletionUsage{},
			),
		},
	}

	rawClient, err := NewClient(&events.NoOpEventBus{}, WithChatClient(mockAPI))
	require.NoError(t, err)
	client := rawClient.(*Client)

	prompt := ai.Prompt{
		Name:        "plan",
		Text:        "Assign levels.",
		ModelName:   "o3-mini",
		MaxTokens:   4096,
		Temperature: 0.7,
	}

	_, err = client.GenerateContent(context.Background(), prompt, false)
	require.NoError(t, err)

	mockAPI.mu.Lock()
	defer mockAPI.mu.Unlock()
	require.Len(t, mockAPI.requests, 1)
	request := mockAPI.requests[0]
	assert.False(t, request.Temperature.Valid(), "reasoning models must not receive a temperature")
	require.True(t, request.MaxCompletionTokens.Valid())
	assert.Equal(t, int64(4096), request.MaxCompletionTokens.Value)
}

func TestClient_GenerateContent_PublishesUsage(t *testing.T) {
	mockAPI := &mockChatCompletions{
		t: t,
		responses: []*openai.ChatCompletion{
			newChatCompletion(
				"usage",
				shared.ChatModelGPT4oMini,
				"ok",
				openai.CompletionUsage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16},
			),
		},
	}

	bus := events.NewEventBus()
	var mu sync.Mutex
	var captured []events.TokenUsageEvent
	bus.Subscribe(events.TokenUsageEvent{}.Topic(), func(event interface{}) {
		if usage, ok := event.(events.TokenUsageEvent); ok {
			mu.Lock()
			captured = append(captured, usage)
			mu.Unlock()
		}
	})

	rawClient, err := NewClient(bus, WithChatClient(mockAPI))
	require.NoError(t, err)
	client := rawClient.(*Client)

	prompt := ai.Prompt{
		Name:      "usage",
		Text:      "Hello.",
		ModelName: string(shared.ChatModelGPT4oMini),
	}

	_, err = client.GenerateContent(context.Background(), prompt, false)
	require.NoError(t, err)

	bus.(*events.InMemoryBus).Shutdown()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, captured, 1)
	assert.Equal(t, "openai", captured[0].Backend)
	assert.Equal(t, int32(16), captured[0].TotalTokens)
}

func TestClient_GenerateContent_EmptyResponse(t *testing.T) {
	mockAPI := &mockChatCompletions{
		t: t,
		responses: []*openai.ChatCompletion{
			newChatCompletion(
				"empty",
				shared.ChatModelGPT4oMini,
				"   ",
				openai.CompletionUsage{},
			),
		},
	}

	rawClient, err := NewClient(&events.NoOpEventBus{}, WithChatClient(mockAPI))
	require.NoError(t, err)
	client := rawClient.(*Client)

	prompt := ai.Prompt{
		Name:      "empty",
		Text:      "Hello?",
		ModelName: string(shared.ChatModelGPT4oMini),
	}

	_, err = client.GenerateContent(context.Background(), prompt, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestClient_GenerateContent_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	rawClient, err := NewClient(&events.NoOpEventBus{})
	require.NoError(t, err)
	client := rawClient.(*Client)

	prompt := ai.Prompt{
		Name:      "missing-key",
		Text:      "Hello?",
		ModelName: string(shared.ChatModelGPT4oMini),
	}

	_, err = client.GenerateContent(context.Background(), prompt, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
