package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/spetersoncode/concierge"
)

// DefaultCollection is the Qdrant collection holding the catalog.
const DefaultCollection = "jewelry_products"

// Payload keys. Category and material are also stored lower-cased so the
// keyword filters ignore case like Matches does.
const (
	payloadProduct     = "product_id"
	payloadName        = "name"
	payloadDescription = "description"
	payloadCategory    = "category"
	payloadMaterial    = "material"
	payloadCategoryKey = "category_key"
	payloadMaterialKey = "material_key"
	payloadWeight      = "weight"
	payloadPrice       = "price"
	payloadStock       = "stock_count"
	payloadImages      = "images"
	payloadDesign      = "design_details"
)

// productNamespace derives stable point ids from product ids.
var productNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("concierge/products"))

// PointStore is the part of the Qdrant client the index uses.
// *qdrant.Client satisfies it.
type PointStore interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// QdrantIndex is a product index stored in a Qdrant collection. Search
// applies the same filters as Index, pushed down as a Qdrant filter.
type QdrantIndex struct {
	points     PointStore
	embedder   concierge.Embedder
	collection string
	batchSize  int
	logger     *slog.Logger

	mu    sync.Mutex
	ready bool
}

var _ concierge.Retriever = (*QdrantIndex)(nil)

// QdrantOption configures a QdrantIndex.
type QdrantOption func(*QdrantIndex)

// WithCollection sets the collection name.
func WithCollection(name string) QdrantOption {
	return func(ix *QdrantIndex) {
		if name != "" {
			ix.collection = name
		}
	}
}

// WithQdrantBatchSize sets how many documents are embedded and upserted per call.
func WithQdrantBatchSize(n int) QdrantOption {
	return func(ix *QdrantIndex) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithQdrantLogger sets the logger.
func WithQdrantLogger(l *slog.Logger) QdrantOption {
	return func(ix *QdrantIndex) {
		ix.logger = l
	}
}

// NewQdrantIndex creates an index over points that embeds with embedder.
// The collection is created on the first Add if it does not exist.
func NewQdrantIndex(points PointStore, embedder concierge.Embedder, opts ...QdrantOption) *QdrantIndex {
	ix := &QdrantIndex{
		points:     points,
		embedder:   embedder,
		collection: DefaultCollection,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// DialQdrant connects to a Qdrant server over gRPC.
func DialQdrant(host string, port int, apiKey string) (*qdrant.Client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port, APIKey: apiKey})
	if err != nil {
		return nil, concierge.NewTransientError(concierge.ErrRetrieval, "connect qdrant", 0, err)
	}
	return c, nil
}

// Add embeds and upserts products. Re-adding a product ID overwrites its point.
func (ix *QdrantIndex) Add(ctx context.Context, products ...concierge.Product) error {
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
		if err := ix.ensureCollection(ctx, len(vectors[0])); err != nil {
			return err
		}

		points := make([]*qdrant.PointStruct, len(batch))
		for i, p := range batch {
			payload, err := productPayload(p)
			if err != nil {
				return concierge.NewPermanentError(concierge.ErrRetrieval,
					fmt.Sprintf("product %s payload", p.ID), 0, err)
			}
			points[i] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(PointID(p.ID)),
				Vectors: qdrant.NewVectors(float32s(vectors[i])...),
				Payload: payload,
			}
		}
		wait := true
		if _, err := ix.points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: ix.collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return concierge.NewTransientError(concierge.ErrRetrieval, "upsert products", 0, err)
		}
	}
	ix.logger.Debug("indexed products", "count", len(products), "collection", ix.collection)
	return nil
}

func (ix *QdrantIndex) ensureCollection(ctx context.Context, dim int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ready {
		return nil
	}
	exists, err := ix.points.CollectionExists(ctx, ix.collection)
	if err != nil {
		return concierge.NewTransientError(concierge.ErrRetrieval, "check collection", 0, err)
	}
	if !exists {
		err := ix.points.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: ix.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return concierge.NewTransientError(concierge.ErrRetrieval, "create collection", 0, err)
		}
		ix.logger.Info("created qdrant collection", "collection", ix.collection, "dim", dim)
	}
	ix.ready = true
	return nil
}

// Search returns up to limit products ranked by cosine similarity. A
// missing collection or a blank query returns no products.
func (ix *QdrantIndex) Search(ctx context.Context, query string, limit int, opts ...concierge.SearchOption) ([]concierge.Product, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []concierge.Product{}, nil
	}
	ok, err := ix.hasCollection(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
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

	points, err := ix.points.Query(ctx, queryRequest(ix.collection, vectors[0], limit, options))
	if err != nil {
		return nil, concierge.NewTransientError(concierge.ErrRetrieval, "query qdrant", 0, err)
	}

	results := make([]concierge.Product, 0, len(points))
	for _, pt := range points {
		p := productFromPayload(pt.GetPayload())
		p.Score = float64(pt.GetScore())
		results = append(results, p)
	}
	return results, nil
}

func (ix *QdrantIndex) hasCollection(ctx context.Context) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ready {
		return true, nil
	}
	exists, err := ix.points.CollectionExists(ctx, ix.collection)
	if err != nil {
		return false, concierge.NewTransientError(concierge.ErrRetrieval, "check collection", 0, err)
	}
	ix.ready = exists
	return exists, nil
}

func queryRequest(collection string, vector []float64, limit int, o *concierge.SearchOptions) *qdrant.QueryPoints {
	lim := uint64(limit)
	req := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(float32s(vector)...),
		Filter:         searchFilter(o),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if o.MinScore > 0 {
		threshold := float32(o.MinScore)
		req.ScoreThreshold = &threshold
	}
	return req
}

// searchFilter translates the search options into a Qdrant filter, or nil
// when no option narrows the search.
func searchFilter(o *concierge.SearchOptions) *qdrant.Filter {
	var must []*qdrant.Condition
	if o.Category != "" {
		must = append(must, qdrant.NewMatch(payloadCategoryKey, strings.ToLower(o.Category)))
	}
	if len(o.Materials) > 0 {
		keys := make([]string, len(o.Materials))
		for i, m := range o.Materials {
			keys[i] = strings.ToLower(m)
		}
		must = append(must, qdrant.NewMatchKeywords(payloadMaterialKey, keys...))
	}
	if o.MinPrice > 0 || o.MaxPrice > 0 {
		r := &qdrant.Range{}
		if o.MinPrice > 0 {
			gte := o.MinPrice
			r.Gte = &gte
		}
		if o.MaxPrice > 0 {
			lte := o.MaxPrice
			r.Lte = &lte
		}
		must = append(must, qdrant.NewRange(payloadPrice, r))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// PointID maps a product ID to its Qdrant point UUID.
func PointID(productID string) string {
	return uuid.NewSHA1(productNamespace, []byte(productID)).String()
}

func productPayload(p concierge.Product) (map[string]*qdrant.Value, error) {
	images := make([]any, len(p.Images))
	for i, img := range p.Images {
		images[i] = img
	}
	fields := map[string]any{
		payloadProduct:     p.ID,
		payloadName:        p.Name,
		payloadDescription: p.Description,
		payloadCategory:    p.Category,
		payloadMaterial:    p.Material,
		payloadCategoryKey: strings.ToLower(p.Category),
		payloadMaterialKey: strings.ToLower(p.Material),
		payloadWeight:      p.Weight,
		payloadPrice:       p.Price,
		payloadStock:       int64(p.StockCount),
		payloadImages:      images,
		payloadDesign:      p.DesignDetails,
	}
	return qdrant.TryValueMap(fields)
}

func productFromPayload(payload map[string]*qdrant.Value) concierge.Product {
	p := concierge.Product{
		ID:            payload[payloadProduct].GetStringValue(),
		Name:          payload[payloadName].GetStringValue(),
		Description:   payload[payloadDescription].GetStringValue(),
		Category:      payload[payloadCategory].GetStringValue(),
		Material:      payload[payloadMaterial].GetStringValue(),
		Weight:        number(payload[payloadWeight]),
		Price:         number(payload[payloadPrice]),
		StockCount:    int(payload[payloadStock].GetIntegerValue()),
		DesignDetails: payload[payloadDesign].GetStringValue(),
	}
	for _, v := range payload[payloadImages].GetListValue().GetValues() {
		p.Images = append(p.Images, v.GetStringValue())
	}
	return p
}

// number reads a payload number stored as either double or integer.
func number(v *qdrant.Value) float64 {
	if _, ok := v.GetKind().(*qdrant.Value_IntegerValue); ok {
		return float64(v.GetIntegerValue())
	}
	return v.GetDoubleValue()
}

func float32s(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
