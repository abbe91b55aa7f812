// Package retrieval ranks catalog products against a query by embedding
// similarity.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/spetersoncode/concierge"
)

// DefaultBatchSize is the number of product documents embedded per call.
const DefaultBatchSize = 64

type entry struct {
	product concierge.Product
	vector  []float64
}

// Index is an in-memory product index using brute-force cosine similarity.
// It is safe for concurrent use.
type Index struct {
	embedder  concierge.Embedder
	batchSize int
	logger    *slog.Logger

	mu      sync.RWMutex
	entries []entry
	byID    map[string]int
}

var _ concierge.Retriever = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithBatchSize sets how many documents are embedded per request.
func WithBatchSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		ix.logger = l
	}
}

// NewIndex creates an empty index that embeds with embedder.
func NewIndex(embedder concierge.Embedder, opts ...Option) *Index {
	ix := &Index{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		byID:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Add embeds and indexes products. A product whose ID is already indexed
// replaces the earlier entry.
func (ix *Index) Add(ctx context.Context, products ...concierge.Product) error {
	for start := 0; start < len(products); start += ix.batchSize {
		batch := products[start:min(start+ix.batchSize, len(products))]
		docs := make([]string, len(batch))
		for i, p := range batch {
			docs[i] = p.Document()
		}
		vectors, err := ix.embedder.Embed(ctx, docs)
		if err != nil {
			return concierge.Wrap(concierge.ErrRetrieval, "embed products", err)
		}
		if len(vectors) != len(batch) {
			return concierge.NewPermanentError(concierge.ErrRetrieval,
				fmt.Sprintf("embedder returned %d vectors for %d products", len(vectors), len(batch)), 0, nil)
		}

		ix.mu.Lock()
		for i, p := range batch {
			p.Score = 0
			e := entry{product: p, vector: vectors[i]}
			if at, ok := ix.byID[p.ID]; ok && p.ID != "" {
				ix.entries[at] = e
				continue
			}
			ix.byID[p.ID] = len(ix.entries)
			ix.entries = append(ix.entries, e)
		}
		ix.mu.Unlock()
	}
	ix.logger.Debug("indexed products", "count", len(products), "total", ix.Len())
	return nil
}

// Len returns the number of indexed products.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns up to limit products ranked by similarity to query,
// after applying the search filters. An empty index or a blank query
// returns no products.
func (ix *Index) Search(ctx context.Context, query string, limit int, opts ...concierge.SearchOption) ([]concierge.Product, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 || ix.Len() == 0 {
		return []concierge.Product{}, nil
	}
	options := concierge.ApplySearchOptions(opts...)

	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, concierge.Wrap(concierge.ErrRetrieval, "embed query", err)
	}
	if len(vectors) == 0 {
		return nil, concierge.NewPermanentError(concierge.ErrRetrieval, "embedder returned no query vector", 0, nil)
	}
	q := vectors[0]

	ix.mu.RLock()
	results := make([]concierge.Product, 0, len(ix.entries))
	for _, e := range ix.entries {
		if !Matches(e.product, options) {
			continue
		}
		score := Cosine(q, e.vector)
		if score < options.MinScore {
			continue
		}
		p := e.product
		p.Score = score
		results = append(results, p)
	}
	ix.mu.RUnlock()

	slices.SortStableFunc(results, func(a, b concierge.Product) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Matches reports whether p passes the category, material and price filters.
// Comparisons ignore case.
func Matches(p concierge.Product, o *concierge.SearchOptions) bool {
	if o.Category != "" && !strings.EqualFold(p.Category, o.Category) {
		return false
	}
	if len(o.Materials) > 0 && !slices.ContainsFunc(o.Materials, func(m string) bool {
		return strings.EqualFold(m, p.Material)
	}) {
		return false
	}
	if o.MinPrice > 0 && p.Price < o.MinPrice {
		return false
	}
	if o.MaxPrice > 0 && p.Price > o.MaxPrice {
		return false
	}
	return true
}

// Cosine computes the cosine similarity of two vectors. Vectors of
// different length or zero norm score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LoadCatalog decodes a JSON array of products.
func LoadCatalog(r io.Reader) ([]concierge.Product, error) {
	var products []concierge.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return products, nil
}
