package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/retry"
)

// Embed generates one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: at least one text is required for embedding", concierge.ErrEmptyInput)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	vectors, err := retry.Do(ctx, c.retry, func() ([][]float64, error) {
		resp, err := c.client.Embeddings.New(ctx, params)
		if err != nil {
			return nil, wrapError(err)
		}
		out := make([][]float64, len(texts))
		for i, data := range resp.Data {
			idx := int(data.Index)
			if idx < 0 || idx >= len(out) {
				idx = i
			}
			out[idx] = data.Embedding
		}
		return out, nil
	})
	if err != nil {
		return nil, concierge.Wrap(concierge.ErrGeneration, "openai embed", err)
	}
	return vectors, nil
}
