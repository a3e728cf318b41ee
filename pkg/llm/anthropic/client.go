package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	anthropic_sdk "github.com/anthropics/anthropic-sdk-go"
	anthropic_option "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/promptfit/promptfit/pkg/ai"
	"github.com/promptfit/promptfit/pkg/config"
	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/logging"
)

const defaultClaudeModel = "claude-3-5-haiku-20241022"

var (
	errMissingAPIKey        = errors.New("anthropic backend not configured")
	_                ai.Gen = (*Client)(nil)
)

type messageClient interface {
	New(ctx context.Context, body anthropic_sdk.MessageNewParams, opts ...anthropic_option.RequestOption) (*anthropic_sdk.Message, error)
}

// Option configures the Anthropic client.
type Option func(*Client)

// WithConfigManager injects a custom configuration manager (useful for tests).
func WithConfigManager(manager config.Manager) Option {
	return func(c *Client) {
		if manager != nil {
			c.config = manager
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMessageClient injects a pre-built message client (primarily for tests).
func WithMessageClient(client messageClient) Option {
	return func(c *Client) {
		if client != nil {
			c.messages = client
		}
	}
}

// Client provides an ai.Gen implementation backed by the Anthropic Messages API.
type Client struct {
	mu sync.Mutex

	config   config.Manager
	eventBus events.EventBus
	logger   logging.Logger

	apiClient *anthropic_sdk.Client
	messages  messageClient

	initialized bool
	initErr     error
}

// NewClient builds a new Anthropic-backed ai.Gen implementation.
func NewClient(eventBus events.EventBus, opts ...Option) (ai.Gen, error) {
	client := &Client{
		config:   config.NewConfigManager(),
		eventBus: eventBus,
		logger:   logging.NewComponentLogger("anthropic"),
	}

	if client.eventBus == nil {
		client.eventBus = &events.NoOpEventBus{}
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// GenerateContent renders the prompt using string attributes and executes it.
func (c *Client) GenerateContent(ctx context.Context, prompt ai.Prompt, debug bool, args ...string) (string, error) {
	attrs := ai.StringsToAttr(args)
	return c.GenerateContentAttr(ctx, prompt, debug, attrs)
}

// GenerateContentAttr renders the prompt using structured attributes and executes it.
func (c *Client) GenerateContentAttr(ctx context.Context, prompt ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}

	rendered, err := ai.RenderPrompt(prompt, ai.AttrsToMap(attrs))
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	if debug {
		c.logger.Debug("rendered prompt", "name", rendered.Name, "model", rendered.ModelName, "chars", len(rendered.Text))
	}

	return c.generateWithPrompt(ctx, rendered)
}

// GetStatus reports whether mandatory configuration is available and which models are configured.
func (c *Client) GetStatus() *ai.Status {
	modelStr := fmt.Sprintf("planner: %s, summarizer: %s",
		c.config.GetPlannerModel().ModelName, c.config.GetSummarizerModel().ModelName)

	apiKey := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_API_KEY", ""))
	if apiKey == "" {
		return &ai.Status{
			Model:     modelStr,
			Backend:   "anthropic",
			Connected: false,
			Message:   "ANTHROPIC_API_KEY not configured",
		}
	}

	message := "Anthropic configured"
	if baseURL := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_BASE_URL", "")); baseURL != "" {
		message = fmt.Sprintf("Anthropic configured (custom endpoint: %s)", baseURL)
	}

	return &ai.Status{
		Model:     modelStr,
		Backend:   "anthropic",
		Connected: true,
		Message:   message,
	}
}

func (c *Client) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}

	if c.messages != nil {
		c.initialized = true
		c.initErr = nil
		return nil
	}

	apiKey := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_API_KEY", ""))
	if apiKey == "" {
		c.initErr = fmt.Errorf("%w: please export ANTHROPIC_API_KEY (and optionally ANTHROPIC_BASE_URL or ANTHROPIC_AUTH_TOKEN)", errMissingAPIKey)
		return c.initErr
	}

	opts := []anthropic_option.RequestOption{
		anthropic_option.WithAPIKey(apiKey),
	}
	if baseURL := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_BASE_URL", "")); baseURL != "" {
		opts = append(opts, anthropic_option.WithBaseURL(baseURL))
	}
	if authToken := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_AUTH_TOKEN", "")); authToken != "" {
		opts = append(opts, anthropic_option.WithAuthToken(authToken))
	}

	client := anthropic_sdk.NewClient(opts...)
	service := client.Messages

	c.apiClient = &client
	c.messages = &service
	c.initialized = true
	c.initErr = nil
	return nil
}

func (c *Client) generateWithPrompt(ctx context.Context, prompt ai.Prompt) (string, error) {
	modelName := c.resolveModelName(prompt.ModelName)

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.GetSummarizerModel().MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic_sdk.MessageNewParams{
		Model:     anthropic_sdk.Model(modelName),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic_sdk.MessageParam{
			anthropic_sdk.NewUserMessage(anthropic_sdk.NewTextBlock(strings.TrimSpace(prompt.Text))),
		},
	}
	if instruction := strings.TrimSpace(prompt.Instruction); instruction != "" {
		params.System = []anthropic_sdk.TextBlockParam{{Text: instruction}}
	}
	if prompt.Temperature > 0 {
		params.Temperature = anthropic_sdk.Float(float64(prompt.Temperature))
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	c.publishUsage(modelName, resp.Usage)

	var textBuilder strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n")
		}
		textBuilder.WriteString(block.Text)
	}

	response := strings.TrimSpace(textBuilder.String())
	if response == "" {
		return "", errors.New("anthropic returned an empty response")
	}
	return response, nil
}

func (c *Client) resolveModelName(promptModel string) string {
	if strings.TrimSpace(promptModel) != "" {
		return promptModel
	}

	if model := c.config.GetSummarizerModel(); strings.TrimSpace(model.ModelName) != "" {
		return model.ModelName
	}

	return defaultClaudeModel
}

func (c *Client) publishUsage(model string, usage anthropic_sdk.Usage) {
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return
	}

	event := events.TokenUsageEvent{
		Backend:      "anthropic",
		Model:        model,
		InputTokens:  int32(usage.InputTokens),
		OutputTokens: int32(usage.OutputTokens),
		TotalTokens:  int32(usage.InputTokens + usage.OutputTokens),
	}
	c.eventBus.Publish(event.Topic(), event)
}
