package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/promptfit/promptfit/pkg/ai"
	"github.com/promptfit/promptfit/pkg/config"
	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/logging"
)

// Backend selects how the unified GenAI SDK authenticates.
type Backend string

const (
	BackendVertexAI  Backend = "vertex"
	BackendGeminiAPI Backend = "gemini"

	defaultGeminiModel = "gemini-2.0-flash"
)

var (
	errNotConfigured        = errors.New("gemini backend not configured")
	_                ai.Gen = (*Client)(nil)
)

type generateFn func(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Option configures the Gemini client.
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

// WithGenerateFn intercepts generate calls (primarily for tests).
func WithGenerateFn(fn generateFn) Option {
	return func(c *Client) {
		if fn != nil {
			c.generate = fn
		}
	}
}

// Client provides an ai.Gen implementation backed by Google's unified GenAI
// SDK. It talks to the Gemini API by default and falls back to Vertex AI when
// only a Google Cloud project is configured.
type Client struct {
	mu sync.Mutex

	config   config.Manager
	eventBus events.EventBus
	logger   logging.Logger
	backend  Backend

	apiClient *genai.Client
	generate  generateFn

	initialized bool
	initErr     error
}

// NewClient builds a new Gemini-backed ai.Gen implementation.
func NewClient(eventBus events.EventBus, opts ...Option) (ai.Gen, error) {
	client := &Client{
		config:   config.NewConfigManager(),
		eventBus: eventBus,
		logger:   logging.NewComponentLogger("gemini"),
	}

	if client.eventBus == nil {
		client.eventBus = &events.NoOpEventBus{}
	}

	for _, opt := range opts {
		opt(client)
	}

	client.backend = Backend(client.config.GetStringWithDefault("GENAI_BACKEND", string(BackendGeminiAPI)))

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

// GetStatus reports whether mandatory configuration is available for the
// selected backend.
func (c *Client) GetStatus() *ai.Status {
	modelStr := fmt.Sprintf("planner: %s, summarizer: %s",
		c.config.GetPlannerModel().ModelName, c.config.GetSummarizerModel().ModelName)

	switch c.backend {
	case BackendVertexAI:
		projectID := strings.TrimSpace(c.config.GetStringWithDefault("GOOGLE_CLOUD_PROJECT", ""))
		if projectID == "" {
			return &ai.Status{Model: modelStr, Connected: false, Backend: "vertex", Message: "GOOGLE_CLOUD_PROJECT not configured"}
		}
		location := c.config.GetStringWithDefault("GOOGLE_CLOUD_LOCATION", "us-central1")
		return &ai.Status{Model: modelStr, Connected: true, Backend: "vertex", Message: fmt.Sprintf("Vertex AI configured (project: %s, location: %s)", projectID, location)}

	default:
		apiKey := strings.TrimSpace(c.config.GetStringWithDefault("GEMINI_API_KEY", ""))
		if apiKey == "" {
			return &ai.Status{Model: modelStr, Connected: false, Backend: "gemini", Message: "GEMINI_API_KEY not configured"}
		}
		return &ai.Status{Model: modelStr, Connected: true, Backend: "gemini", Message: "Gemini API configured"}
	}
}

func (c *Client) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}

	if c.generate != nil {
		c.initialized = true
		return nil
	}

	client, backend, err := c.createClient(ctx, c.backend)
	if err != nil {
		fallback := BackendVertexAI
		if c.backend == BackendVertexAI {
			fallback = BackendGeminiAPI
		}
		client, backend, err = c.createClient(ctx, fallback)
	}
	if err != nil {
		c.initialized = true
		c.initErr = fmt.Errorf("%w: please export GEMINI_API_KEY, or GOOGLE_CLOUD_PROJECT for Vertex AI", errNotConfigured)
		return c.initErr
	}

	c.apiClient = client
	c.backend = backend
	c.generate = client.Models.GenerateContent
	c.initialized = true
	c.initErr = nil
	return nil
}

func (c *Client) createClient(ctx context.Context, backend Backend) (*genai.Client, Backend, error) {
	switch backend {
	case BackendGeminiAPI:
		apiKey := strings.TrimSpace(c.config.GetStringWithDefault("GEMINI_API_KEY", ""))
		if apiKey == "" {
			return nil, "", fmt.Errorf("GEMINI_API_KEY not configured")
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, "", fmt.Errorf("creating Gemini API client: %w", err)
		}
		return client, BackendGeminiAPI, nil

	case BackendVertexAI:
		projectID := strings.TrimSpace(c.config.GetStringWithDefault("GOOGLE_CLOUD_PROJECT", ""))
		if projectID == "" {
			return nil, "", fmt.Errorf("GOOGLE_CLOUD_PROJECT not configured")
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  projectID,
			Location: c.config.GetStringWithDefault("GOOGLE_CLOUD_LOCATION", "us-central1"),
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return nil, "", fmt.Errorf("creating Vertex AI client: %w", err)
		}
		return client, BackendVertexAI, nil

	default:
		return nil, "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

func (c *Client) generateWithPrompt(ctx context.Context, prompt ai.Prompt) (string, error) {
	modelName := c.resolveModelName(prompt.ModelName)

	parts := []*genai.Part{genai.NewPartFromText(strings.TrimSpace(prompt.Text))}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if instruction := strings.TrimSpace(prompt.Instruction); instruction != "" {
		systemParts := []*genai.Part{genai.NewPartFromText(instruction)}
		cfg.SystemInstruction = genai.NewContentFromParts(systemParts, genai.RoleUser)
	}
	if prompt.MaxTokens > 0 {
		cfg.MaxOutputTokens = prompt.MaxTokens
	}
	if prompt.Temperature > 0 {
		temp := prompt.Temperature
		cfg.Temperature = &temp
	}

	result, err := c.generate(ctx, modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	c.publishUsage(modelName, result.UsageMetadata)

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var textParts []string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			textParts = append(textParts, part.Text)
		}
	}

	response := strings.TrimSpace(strings.Join(textParts, ""))
	if response == "" {
		return "", errors.New("gemini returned an empty response")
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

	return defaultGeminiModel
}

func (c *Client) publishUsage(model string, usage *genai.GenerateContentResponseUsageMetadata) {
	if usage == nil {
		return
	}

	event := events.TokenUsageEvent{
		Backend:      "gemini",
		Model:        model,
		InputTokens:  usage.PromptTokenCount,
		OutputTokens: usage.CandidatesTokenCount,
		TotalTokens:  usage.TotalTokenCount,
	}
	c.eventBus.Publish(event.Topic(), event)
}
