package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/retry"
)

// Embed generates one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: at least one text is required for embedding", concierge.ErrEmptyInput)
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		}
	}
	config := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}

	vectors, err := retry.Do(ctx, c.retry, func() ([][]float64, error) {
		resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, config)
		if err != nil {
			return nil, wrapError(err)
		}
		return toFloat64(resp.Embeddings), nil
	})
	if err != nil {
		return nil, concierge.Wrap(concierge.ErrGeneration, "google embed", err)
	}
	return vectors, nil
}

func toFloat64(embeddings []*genai.ContentEmbedding) [][]float64 {
	out := make([][]float64, len(embeddings))
	for i, emb := range embeddings {
		if emb == nil {
			continue
		}
		out[i] = make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			out[i][j] = float64(v)
		}
	}
	return out
}
