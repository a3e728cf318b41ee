package multiplexer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/promptfit/promptfit/pkg/ai"
)

// Factory creates an ai.Gen implementation for a specific provider.
type Factory func() (ai.Gen, error)

// Client routes prompt execution to multiple LLM providers based on the
// prompt's model name. Models may be qualified as "provider/model"; bare
// names are routed by well-known prefixes (claude-*, gemini-*, gpt-*, o*).
type Client struct {
	mu sync.RWMutex

	factories       map[string]Factory
	aliases         map[string]string
	clients         map[string]ai.Gen
	defaultProvider string
	lastProvider    string
}

var _ ai.Gen = (*Client)(nil)

// NewClient creates a new multiplexer with lazy provider initialization.
func NewClient(defaultProvider string, factories map[string]Factory, aliases map[string]string) (*Client, error) {
	if len(factories) == 0 {
		return nil, fmt.Errorf("multiplexer: no LLM factories registered")
	}

	factoriesLC := make(map[string]Factory, len(factories))
	for name, factory := range factories {
		if factory == nil {
			return nil, fmt.Errorf("multiplexer: factory for provider %q is nil", name)
		}
		factoriesLC[strings.ToLower(name)] = factory
	}

	aliasesLC := make(map[string]string, len(aliases))
	for from, to := range aliases {
		if from == "" || to == "" {
			continue
		}
		aliasesLC[strings.ToLower(from)] = strings.ToLower(to)
	}

	canonicalDefault := strings.ToLower(defaultProvider)
	if canonicalDefault == "" {
		canonicalDefault = "openai"
	}

	if _, ok := factoriesLC[canonicalDefault]; !ok {
		if alias, ok := aliasesLC[canonicalDefault]; ok {
			canonicalDefault = alias
		}
	}
	if _, ok := factoriesLC[canonicalDefault]; !ok {
		return nil, fmt.Errorf("multiplexer: unsupported default provider %q", defaultProvider)
	}

	return &Client{
		factories:       factoriesLC,
		aliases:         aliasesLC,
		clients:         make(map[string]ai.Gen),
		defaultProvider: canonicalDefault,
	}, nil
}

// WarmUp eagerly initializes the requested provider.
func (c *Client) WarmUp(provider string) error {
	_, _, err := c.clientFor(provider)
	return err
}

// DefaultProvider returns the canonical default provider name.
func (c *Client) DefaultProvider() string {
	return c.defaultProvider
}

// ProviderForModel reports which provider a model name would route to.
func (c *Client) ProviderForModel(model string) string {
	provider, _ := c.resolveRoute(model)
	return provider
}

// GenerateContent implements ai.Gen by delegating to the provider selected
// from the prompt's model name.
func (c *Client) GenerateContent(ctx context.Context, p ai.Prompt, debug bool, args ...string) (string, error) {
	client, routed, err := c.routePrompt(p)
	if err != nil {
		return "", err
	}
	return client.GenerateContent(ctx, routed, debug, args...)
}

// GenerateContentAttr implements ai.Gen by delegating to the provider selected
// from the prompt's model name.
func (c *Client) GenerateContentAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	client, routed, err := c.routePrompt(p)
	if err != nil {
		return "", err
	}
	return client.GenerateContentAttr(ctx, routed, debug, attrs)
}

// GetStatus returns the status of the most recently used provider, falling
// back to the default provider.
func (c *Client) GetStatus() *ai.Status {
	provider := c.getStatusProvider()
	client, _, err := c.clientFor(provider)
	if err != nil {
		return &ai.Status{
			Connected: false,
			Backend:   provider,
			Message:   err.Error(),
		}
	}
	return client.GetStatus()
}

func (c *Client) routePrompt(p ai.Prompt) (ai.Gen, ai.Prompt, error) {
	provider, model := c.resolveRoute(p.ModelName)

	client, canonical, err := c.clientFor(provider)
	if err != nil {
		return nil, ai.Prompt{}, err
	}
	c.setLastProvider(canonical)

	routed := p
	routed.ModelName = model
	return client, routed, nil
}

// resolveRoute splits an optional "provider/" qualifier off the model name
// and otherwise infers the provider from the model's prefix.
func (c *Client) resolveRoute(model string) (string, string) {
	name := strings.TrimSpace(model)

	if idx := strings.Index(name, "/"); idx > 0 {
		if canonical, err := c.canonicalizeProvider(name[:idx]); err == nil {
			return canonical, name[idx+1:]
		}
	}

	if inferred := inferProvider(name); inferred != "" {
		if canonical, err := c.canonicalizeProvider(inferred); err == nil {
			return canonical, name
		}
	}

	return c.defaultProvider, name
}

func (c *Client) clientFor(provider string) (ai.Gen, string, error) {
	canonical, err := c.canonicalizeProvider(provider)
	if err != nil {
		return nil, "", err
	}

	c.mu.RLock()
	if existing := c.clients[canonical]; existing != nil {
		c.mu.RUnlock()
		return existing, canonical, nil
	}
	c.mu.RUnlock()

	factory := c.factories[canonical]
	client, err := factory()
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.clients[canonical]; existing != nil {
		return existing, canonical, nil
	}
	c.clients[canonical] = client
	return client, canonical, nil
}

func (c *Client) canonicalizeProvider(provider string) (string, error) {
	name := strings.TrimSpace(provider)
	if name == "" {
		name = c.defaultProvider
	}
	key := strings.ToLower(name)

	if _, ok := c.factories[key]; ok {
		return key, nil
	}

	if alias, ok := c.aliases[key]; ok {
		if _, ok := c.factories[alias]; ok {
			return alias, nil
		}
	}

	return "", fmt.Errorf("multiplexer: unsupported LLM provider %q", provider)
}

func inferProvider(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "claude"):
		return "anthropic"
	case strings.HasPrefix(m, "gemini"), strings.HasPrefix(m, "models/gemini"):
		return "gemini"
	case strings.HasPrefix(m, "gpt"),
		strings.HasPrefix(m, "chatgpt"),
		strings.HasPrefix(m, "o1"),
		strings.HasPrefix(m, "o3"),
		strings.HasPrefix(m, "o4"):
		return "openai"
	default:
		return ""
	}
}

func (c *Client) setLastProvider(provider string) {
	c.mu.Lock()
	c.lastProvider = provider
	c.mu.Unlock()
}

func (c *Client) getStatusProvider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastProvider != "" {
		return c.lastProvider
	}
	return c.defaultProvider
}
