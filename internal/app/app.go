// Package app assembles the concierge from a Config: provider client,
// repository, catalog retriever, specialist workflows, orchestrator and metrics.
// Both binaries under cmd/ build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/client"
	"github.com/spetersoncode/concierge/emitter"
	"github.com/spetersoncode/concierge/horoscope"
	"github.com/spetersoncode/concierge/metrics"
	"github.com/spetersoncode/concierge/orchestrator"
	"github.com/spetersoncode/concierge/retrieval"
	"github.com/spetersoncode/concierge/specialist"
	"github.com/spetersoncode/concierge/store"
)

// App is an assembled concierge.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Metrics
	Repository   concierge.Repository
	Catalog      Catalog

	closers []func() error
	cancel  context.CancelFunc
}

// Catalog is a product retriever that can be seeded.
type Catalog interface {
	concierge.Retriever
	Add(ctx context.Context, products ...concierge.Product) error
}

// Option configures New.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	generator concierge.Generator
	embedder  concierge.Embedder
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithModels replaces the provider client built from the config.
func WithModels(gen concierge.Generator, emb concierge.Embedder) Option {
	return func(o *options) {
		o.generator = gen
		o.embedder = emb
	}
}

// New builds the concierge described by cfg. The caller must Close the
// returned App.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger

	a := &App{Metrics: metrics.New()}
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	gen, emb := o.generator, o.embedder
	if gen == nil || emb == nil {
		clientEvents := make(chan client.Event, 256)
		c := client.New(client.Config{
			Provider:          concierge.Provider(cfg.Provider),
			EmbeddingProvider: concierge.Provider(cfg.EmbeddingProvider),
			APIKeys: client.APIKeys{
				Anthropic: cfg.AnthropicKey,
				OpenAI:    cfg.OpenAIKey,
				Google:    cfg.GoogleKey,
			},
			Vertex: client.Vertex{
				Project:  cfg.VertexProject,
				Location: cfg.VertexLocation,
			},
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			Events:         clientEvents,
		})
		go a.Metrics.ObserveClient(runCtx, clientEvents)
		if gen == nil {
			gen = c
		}
		if emb == nil {
			emb = c
		}
	}

	repo, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Repository = repo
	log.Info("repository ready", "store", cfg.Store)

	a.Catalog, err = a.openCatalog(cfg, emb, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.CatalogPath != "" {
		n, err := seedCatalog(ctx, a.Catalog, cfg.CatalogPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info("catalog indexed", "path", cfg.CatalogPath, "products", n, "retriever", cfg.Retriever)
	}

	setOpts := []specialist.Option{
		specialist.WithLogger(log),
		specialist.WithStepTimeout(cfg.StepTimeout),
		specialist.WithSearchLimit(cfg.SearchLimit),
	}
	if cfg.HoroscopeURL != "" {
		setOpts = append(setOpts, specialist.WithHoroscope(horoscope.New(
			horoscope.WithBaseURL(cfg.HoroscopeURL),
			horoscope.WithLogger(log),
		)))
	}
	set := specialist.New(gen, a.Catalog, repo, setOpts...)

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithObserver(a.Metrics),
		orchestrator.WithEmitter(emitter.New(
			emitter.WithChunkSize(cfg.ChunkSize),
			emitter.WithTypingDelay(cfg.TypingDelay),
		)),
	}
	if cfg.RoutingTablePath != "" {
		table, err := orchestrator.LoadRoutingTable(cfg.RoutingTablePath)
		if err != nil {
			a.Close()
			return nil, err
		}
		orchOpts = append(orchOpts, orchestrator.WithClassifier(orchestrator.NewClassifier(table)))
	}

	a.Orchestrator, err = orchestrator.New(set.Registry(), orchOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *Config) (concierge.Repository, error) {
	switch cfg.Store {
	case StoreSQLite:
		db, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	case StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, concierge.Wrap(concierge.ErrStorage, "connect redis", err)
		}
		var opts []store.RedisOption
		if cfg.RedisTTL > 0 {
			opts = append(opts, store.WithTTL(cfg.RedisTTL))
		}
		return store.NewRedisAdapter(rdb, opts...), nil
	default:
		return store.NewMemoryAdapter(), nil
	}
}

func (a *App) openCatalog(cfg *Config, emb concierge.Embedder, log *slog.Logger) (Catalog, error) {
	if cfg.Retriever != RetrieverQdrant {
		return retrieval.NewIndex(emb, retrieval.WithLogger(log)), nil
	}
	qc, err := retrieval.DialQdrant(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantAPIKey)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, qc.Close)
	return retrieval.NewQdrantIndex(qc, emb,
		retrieval.WithCollection(cfg.QdrantCollection),
		retrieval.WithQdrantLogger(log),
	), nil
}

func seedCatalog(ctx context.Context, c Catalog, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	products, err := retrieval.LoadCatalog(f)
	if err != nil {
		return 0, err
	}
	return len(products), c.Add(ctx, products...)
}

// Close releases the repository and stops metric collection.
func (a *App) Close() error {
	a.cancel()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
