package concierge

import "context"

// Provider identifies a text-generation backend.
type Provider string

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }

// Supported providers.
const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderVertex    Provider = "vertex"
)

// Generator produces natural-language text from a prompt.
//
// Implementations return the complete text in one piece. Failures carry
// ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, opts ...Option) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return f(ctx, prompt, opts...)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Retriever returns products ranked by relevance to a query.
//
// An empty result is valid. Failures carry ErrRetrieval.
type Retriever interface {
	Search(ctx context.Context, query string, limit int, opts ...SearchOption) ([]Product, error)
}

// Repository is durable keyed storage for JSON documents.
//
// Get reports ok=false for an absent key. Failures carry ErrStorage.
type Repository interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
