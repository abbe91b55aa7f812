// Package openai implements [concierge.Generator] and [concierge.Embedder]
// on the OpenAI Chat Completions and Embeddings APIs.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/internal/provider/apierr"
	"github.com/spetersoncode/concierge/retry"
)

// Model identifiers.
const (
	GPT5     = "gpt-5"
	GPT5Mini = "gpt-5-mini"
	GPT41    = "gpt-4.1"

	TextEmbedding3Small = "text-embedding-3-small"
	TextEmbedding3Large = "text-embedding-3-large"

	DefaultModel          = GPT5Mini
	DefaultEmbeddingModel = TextEmbedding3Small
)

// Client wraps the OpenAI SDK.
type Client struct {
	client         openai.Client
	model          string
	embeddingModel string
	retry          retry.Config
	sdkOpts        []option.RequestOption
}

var (
	_ concierge.Generator = (*Client)(nil)
	_ concierge.Embedder  = (*Client)(nil)
)

// ClientOption configures the OpenAI client.
type ClientOption func(*Client)

// WithModel sets the default chat model.
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

// WithBaseURL points the client at a different API endpoint, such as a
// compatible gateway.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.sdkOpts = append(c.sdkOpts, option.WithBaseURL(url))
	}
}

// New creates a new OpenAI client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		retry:          retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	sdkOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, c.sdkOpts...)
	c.client = openai.NewClient(sdkOpts...)
	return c
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...concierge.Option) (string, error) {
	options := concierge.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if options.System != "" {
		messages = append(messages, openai.SystemMessage(options.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if options.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		}
	}

	text, err := retry.Do(ctx, c.retry, func() (string, error) {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", wrapError(err)
		}
		if len(resp.Choices) == 0 {
			return "", concierge.NewPermanentError(concierge.ErrGeneration, "openai returned no choices", 0, nil)
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", concierge.Wrap(concierge.ErrGeneration, "openai generate", err)
	}
	return text, nil
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return apierr.New(concierge.ErrGeneration, apiErr.StatusCode, apierr.RetryAfter(apiErr.Response), "openai api error", err)
}
