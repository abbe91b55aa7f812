package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/internal/provider/apierr"
	"github.com/spetersoncode/concierge/retry"
)

// Model identifiers.
const (
	ClaudeSonnet45 = "claude-sonnet-4-5"
	ClaudeHaiku45  = "claude-haiku-4-5"
	ClaudeOpus45   = "claude-opus-4-5"

	// DefaultModel balances quality and latency for consultations.
	DefaultModel = ClaudeSonnet45
)

const (
	defaultMaxTokens = 4096

	jsonInstruction = "Respond with a single JSON object and nothing else."
)

// Client generates text with Claude models.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int
	retry     retry.Config
	sdkOpts   []option.RequestOption
}

var _ concierge.Generator = (*Client)(nil)

// ClientOption configures the Anthropic client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens sets the default output token limit.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithRetry sets the retry policy applied around each request.
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.sdkOpts = append(c.sdkOpts, option.WithBaseURL(url))
	}
}

// New creates a new Anthropic client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		model:     DefaultModel,
		maxTokens: defaultMaxTokens,
		retry:     retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	sdkOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, c.sdkOpts...)
	c.client = anthropic.NewClient(sdkOpts...)
	return c
}

// Generate sends prompt as a single user turn and returns the joined text blocks.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...concierge.Option) (string, error) {
	options := concierge.ApplyOptions(opts...)
	params := c.buildParams(prompt, options)

	text, err := retry.Do(ctx, c.retry, func() (string, error) {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", wrapError(err)
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	})
	if err != nil {
		return "", concierge.Wrap(concierge.ErrGeneration, "anthropic generate", err)
	}
	return text, nil
}

func (c *Client) buildParams(prompt string, options *concierge.Options) anthropic.MessageNewParams {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}
	maxTokens := c.maxTokens
	if options.MaxTokens > 0 {
		maxTokens = options.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var system []anthropic.TextBlockParam
	if options.System != "" {
		system = append(system, anthropic.TextBlockParam{Text: options.System})
	}
	if options.JSON {
		system = append(system, anthropic.TextBlockParam{Text: jsonInstruction})
	}
	if len(system) > 0 {
		params.System = system
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(*options.Temperature)
	}
	return params
}

func wrapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return apierr.New(concierge.ErrGeneration, apiErr.StatusCode, apierr.RetryAfter(apiErr.Response), "anthropic api error", err)
}
