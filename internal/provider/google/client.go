// Package google implements [concierge.Generator] and [concierge.Embedder]
// on Gemini, through either the Gemini API or Vertex AI.
package google

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/internal/provider/apierr"
	"github.com/spetersoncode/concierge/retry"
)

// Model identifiers.
const (
	Gemini25Flash     = "gemini-2.5-flash"
	Gemini25FlashLite = "gemini-2.5-flash-lite"
	Gemini25Pro       = "gemini-2.5-pro"

	GeminiEmbedding001 = "gemini-embedding-001"

	DefaultModel          = Gemini25Flash
	DefaultEmbeddingModel = GeminiEmbedding001
)

// Client wraps the Google GenAI SDK.
type Client struct {
	client         *genai.Client
	model          string
	embeddingModel string
	retry          retry.Config
}

var (
	_ concierge.Generator = (*Client)(nil)
	_ concierge.Embedder  = (*Client)(nil)
)

// ClientOption configures the Google client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithEmbeddingModel sets the model used by Embed.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) {
		c.embeddingModel = model
	}
}

// WithRetry sets the retry policy applied around each request.
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// New creates a client for the Gemini API with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	return newClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, opts)
}

// NewVertex creates a client for Gemini on Vertex AI. Credentials come
// from Application Default Credentials.
func NewVertex(ctx context.Context, project, location string, opts ...ClientOption) (*Client, error) {
	return newClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}, opts)
}

func newClient(ctx context.Context, cfg *genai.ClientConfig, opts []ClientOption) (*Client, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, concierge.NewPermanentError(concierge.ErrGeneration, "create genai client", 0, err)
	}
	c := &Client{
		client:         client,
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		retry:          retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends prompt as a single user turn and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...concierge.Option) (string, error) {
	options := concierge.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}
	config := buildConfig(options)

	text, err := retry.Do(ctx, c.retry, func() (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return "", wrapError(err)
		}
		return responseText(resp), nil
	})
	if err != nil {
		return "", concierge.Wrap(concierge.ErrGeneration, "google generate", err)
	}
	return text, nil
}

func buildConfig(options *concierge.Options) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if options.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: options.System}},
		}
	}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if options.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// genai.APIError carries no headers, so Retry-After is unavailable.
func wrapError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return apierr.New(concierge.ErrGeneration, apiErr.Code, 0, "genai api error", err)
}
