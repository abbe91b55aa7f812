package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/internal/provider/anthropic"
	"github.com/spetersoncode/concierge/internal/provider/google"
	"github.com/spetersoncode/concierge/internal/provider/openai"
	"github.com/spetersoncode/concierge/retry"
)

// Feature represents a capability that a provider may support.
type Feature string

const (
	FeatureGenerate  Feature = "generate"
	FeatureEmbedding Feature = "embedding"
)

// providerCapabilities defines which features each provider supports.
var providerCapabilities = map[concierge.Provider]map[Feature]bool{
	concierge.ProviderAnthropic: {
		FeatureGenerate:  true,
		FeatureEmbedding: false,
	},
	concierge.ProviderOpenAI: {
		FeatureGenerate:  true,
		FeatureEmbedding: true,
	},
	concierge.ProviderGoogle: {
		FeatureGenerate:  true,
		FeatureEmbedding: true,
	},
	concierge.ProviderVertex: {
		FeatureGenerate:  true,
		FeatureEmbedding: true,
	},
}

// Supports reports whether provider offers feature.
func Supports(provider concierge.Provider, feature Feature) bool {
	return providerCapabilities[provider][feature]
}

// APIKeys holds API keys for different providers.
// Only configure keys for providers you intend to use.
type APIKeys struct {
	Anthropic string
	OpenAI    string
	Google    string
}

// Vertex locates a Google Cloud project for the vertex provider.
type Vertex struct {
	Project  string
	Location string
}

// Config holds configuration for creating a client.
type Config struct {
	// Provider generates text. Defaults to anthropic.
	Provider concierge.Provider

	// EmbeddingProvider embeds product documents. Defaults to openai.
	EmbeddingProvider concierge.Provider

	APIKeys APIKeys
	Vertex  Vertex

	// Model and EmbeddingModel override the provider defaults when set.
	Model          string
	EmbeddingModel string

	// RetryConfig configures retry behavior for transient errors.
	// If nil, uses retry.DefaultConfig.
	RetryConfig *retry.Config

	// Events is an optional channel for receiving client operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event
}

// ErrFeatureNotSupported is returned when a feature is unavailable for the provider.
type ErrFeatureNotSupported struct {
	Provider string
	Feature  string
}

func (e *ErrFeatureNotSupported) Error() string {
	return fmt.Sprintf("%s provider does not support %s", e.Provider, e.Feature)
}

// ErrMissingAPIKey is returned when a provider is used but no API key
// or project is configured for it.
type ErrMissingAPIKey struct {
	Provider string
}

func (e *ErrMissingAPIKey) Error() string {
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ErrUnknownProvider is returned for a provider name the client cannot build.
type ErrUnknownProvider struct {
	Provider string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unsupported provider: %q", e.Provider)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDefaultTemperature sets the default temperature for generation requests.
// Per-request options override this default.
func WithDefaultTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.defaultOpts = append(c.defaultOpts, concierge.WithTemperature(t))
	}
}

// WithDefaultMaxTokens sets the default max tokens for generation requests.
// Per-request options override this default.
func WithDefaultMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.defaultOpts = append(c.defaultOpts, concierge.WithMaxTokens(n))
	}
}

// WithDefaultOptions sets default options for all generation requests.
// Per-request options override these defaults.
func WithDefaultOptions(opts ...concierge.Option) ClientOption {
	return func(c *Client) {
		c.defaultOpts = append(c.defaultOpts, opts...)
	}
}

// Client is a Generator and Embedder backed by the configured providers.
// Provider clients are lazily initialized when first needed.
type Client struct {
	cfg         Config
	retryConfig retry.Config
	defaultOpts []concierge.Option

	mu         sync.Mutex
	generators map[concierge.Provider]concierge.Generator
	embedders  map[concierge.Provider]concierge.Embedder
	initErrs   map[concierge.Provider]error
}

var (
	_ concierge.Generator = (*Client)(nil)
	_ concierge.Embedder  = (*Client)(nil)
)

// New creates a client with the given configuration.
func New(cfg Config, opts ...ClientOption) *Client {
	if cfg.Provider == "" {
		cfg.Provider = concierge.ProviderAnthropic
	}
	if cfg.EmbeddingProvider == "" {
		cfg.EmbeddingProvider = concierge.ProviderOpenAI
	}
	retryConfig := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}

	c := &Client{
		cfg:         cfg,
		retryConfig: retryConfig,
		generators:  make(map[concierge.Provider]concierge.Generator),
		embedders:   make(map[concierge.Provider]concierge.Embedder),
		initErrs:    make(map[concierge.Provider]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the text-generation provider.
func (c *Client) Provider() concierge.Provider { return c.cfg.Provider }

// Generate produces text with the configured provider. Default options are
// applied first so per-request options override them.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...concierge.Option) (string, error) {
	provider := c.cfg.Provider
	gen, err := c.generator(ctx, provider)
	if err != nil {
		return "", concierge.Wrap(concierge.ErrGeneration, "resolve generator", err)
	}

	opts = append(append([]concierge.Option{}, c.defaultOpts...), opts...)

	start := time.Now()
	emit(c.cfg.Events, Event{Type: EventRequestStart, Operation: OperationGenerate, Provider: provider})
	text, err := gen.Generate(ctx, prompt, opts...)
	if err != nil {
		emit(c.cfg.Events, Event{Type: EventRequestError, Operation: OperationGenerate, Provider: provider, Duration: time.Since(start), Error: err})
		return "", err
	}
	emit(c.cfg.Events, Event{Type: EventRequestComplete, Operation: OperationGenerate, Provider: provider, Duration: time.Since(start)})
	return text, nil
}

// Embed produces vectors with the configured embedding provider.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	provider := c.cfg.EmbeddingProvider
	if !Supports(provider, FeatureEmbedding) {
		return nil, concierge.Wrap(concierge.ErrRetrieval, "resolve embedder",
			&ErrFeatureNotSupported{Provider: provider.String(), Feature: string(FeatureEmbedding)})
	}
	emb, err := c.embedder(ctx, provider)
	if err != nil {
		return nil, concierge.Wrap(concierge.ErrRetrieval, "resolve embedder", err)
	}

	start := time.Now()
	emit(c.cfg.Events, Event{Type: EventRequestStart, Operation: OperationEmbed, Provider: provider})
	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		emit(c.cfg.Events, Event{Type: EventRequestError, Operation: OperationEmbed, Provider: provider, Duration: time.Since(start), Error: err})
		return nil, err
	}
	emit(c.cfg.Events, Event{Type: EventRequestComplete, Operation: OperationEmbed, Provider: provider, Duration: time.Since(start)})
	return vectors, nil
}

func (c *Client) generator(ctx context.Context, provider concierge.Provider) (concierge.Generator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.generators[provider]; ok {
		return g, nil
	}
	if err := c.initErrs[provider]; err != nil {
		return nil, err
	}

	var g concierge.Generator
	switch provider {
	case concierge.ProviderAnthropic:
		if c.cfg.APIKeys.Anthropic == "" {
			return nil, &ErrMissingAPIKey{Provider: provider.String()}
		}
		opts := []anthropic.ClientOption{anthropic.WithRetry(c.retryConfig)}
		if c.cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(c.cfg.Model))
		}
		g = anthropic.New(c.cfg.APIKeys.Anthropic, opts...)
	case concierge.ProviderOpenAI:
		client, err := c.openaiLocked()
		if err != nil {
			return nil, err
		}
		g = client
	case concierge.ProviderGoogle, concierge.ProviderVertex:
		client, err := c.googleLocked(ctx, provider)
		if err != nil {
			return nil, err
		}
		g = client
	default:
		return nil, &ErrUnknownProvider{Provider: provider.String()}
	}
	c.generators[provider] = g
	return g, nil
}

func (c *Client) embedder(ctx context.Context, provider concierge.Provider) (concierge.Embedder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.embedders[provider]; ok {
		return e, nil
	}
	if err := c.initErrs[provider]; err != nil {
		return nil, err
	}

	var e concierge.Embedder
	switch provider {
	case concierge.ProviderOpenAI:
		client, err := c.openaiLocked()
		if err != nil {
			return nil, err
		}
		e = client
	case concierge.ProviderGoogle, concierge.ProviderVertex:
		client, err := c.googleLocked(ctx, provider)
		if err != nil {
			return nil, err
		}
		e = client
	default:
		return nil, &ErrUnknownProvider{Provider: provider.String()}
	}
	c.embedders[provider] = e
	return e, nil
}

func (c *Client) openaiLocked() (*openai.Client, error) {
	if c.cfg.APIKeys.OpenAI == "" {
		return nil, &ErrMissingAPIKey{Provider: concierge.ProviderOpenAI.String()}
	}
	opts := []openai.ClientOption{openai.WithRetry(c.retryConfig)}
	if c.cfg.Provider == concierge.ProviderOpenAI && c.cfg.Model != "" {
		opts = append(opts, openai.WithModel(c.cfg.Model))
	}
	if c.cfg.EmbeddingProvider == concierge.ProviderOpenAI && c.cfg.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(c.cfg.EmbeddingModel))
	}
	return openai.New(c.cfg.APIKeys.OpenAI, opts...), nil
}

func (c *Client) googleLocked(ctx context.Context, provider concierge.Provider) (*google.Client, error) {
	opts := []google.ClientOption{google.WithRetry(c.retryConfig)}
	if c.cfg.Provider == provider && c.cfg.Model != "" {
		opts = append(opts, google.WithModel(c.cfg.Model))
	}
	if c.cfg.EmbeddingProvider == provider && c.cfg.EmbeddingModel != "" {
		opts = append(opts, google.WithEmbeddingModel(c.cfg.EmbeddingModel))
	}

	var (
		client *google.Client
		err    error
	)
	if provider == concierge.ProviderVertex {
		if c.cfg.Vertex.Project == "" {
			return nil, &ErrMissingAPIKey{Provider: provider.String()}
		}
		client, err = google.NewVertex(ctx, c.cfg.Vertex.Project, c.cfg.Vertex.Location, opts...)
	} else {
		if c.cfg.APIKeys.Google == "" {
			return nil, &ErrMissingAPIKey{Provider: provider.String()}
		}
		client, err = google.New(ctx, c.cfg.APIKeys.Google, opts...)
	}
	if err != nil {
		c.initErrs[provider] = fmt.Errorf("failed to initialize %s client: %w", provider, err)
		return nil, c.initErrs[provider]
	}
	return client, nil
}
