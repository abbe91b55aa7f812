package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/orchestrator"
	"github.com/spetersoncode/concierge/retrieval"
	"github.com/spetersoncode/concierge/specialist"
	"github.com/spetersoncode/concierge/store"
)

type flatEmbedder struct{}

func (flatEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{1, float64(len(t) % 7)}
	}
	return out, nil
}

var echo = concierge.GeneratorFunc(func(context.Context, string, ...concierge.Option) (string, error) {
	return "Lovely to see you again!", nil
})

func testConfig() *Config {
	return &Config{
		LogLevel:          "info",
		Provider:          "anthropic",
		EmbeddingProvider: "openai",
		AnthropicKey:      "test",
		OpenAIKey:         "test",
		Store:             StoreMemory,
		SearchLimit:       5,
		ChunkSize:         3,
	}
}

func newApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, WithModels(echo, flatEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_Memory(t *testing.T) {
	cfg := testConfig()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(cfg.CatalogPath, []byte(`[
		{"id": "p1", "name": "Rose gold hoops", "category": "earrings", "material": "rose gold", "price": 12000},
		{"id": "p2", "name": "Silver cuff", "category": "bracelets", "material": "silver", "price": 8000}
	]`), 0o644))

	a := newApp(t, cfg)
	ix, ok := a.Catalog.(*retrieval.Index)
	require.True(t, ok)
	assert.Equal(t, 2, ix.Len())
	assert.ElementsMatch(t, []string{"analytics", "companion", "consultation", "taste", "trend"}, a.Orchestrator.Workflows())

	resp, err := a.Orchestrator.Invoke(context.Background(), orchestrator.Request{
		UserID: "u1", Message: "hey there", Workflow: "companion",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lovely to see you again!", resp.Text)
}

func TestNew_SQLitePersistsSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Store = StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "concierge.db")

	a := newApp(t, cfg)
	_, err := a.Orchestrator.Invoke(context.Background(), orchestrator.Request{
		UserID: "u1", Message: "start the style quiz", Workflow: "taste",
	})
	require.NoError(t, err)

	sess, err := store.LoadTasteSession(context.Background(), a.Repository, "u1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, sess.QuestionIndex)
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Store = StoreRedis
	cfg.RedisAddr = mr.Addr()

	a := newApp(t, cfg)
	require.NoError(t, store.SaveProfile(context.Background(), a.Repository, concierge.Profile{UserID: "u1"}))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.Contains(keys[0], "u1"), "key %q", keys[0])
}

func TestNew_Errors(t *testing.T) {
	t.Run("missing catalog", func(t *testing.T) {
		cfg := testConfig()
		cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.json")
		_, err := New(context.Background(), cfg, WithModels(echo, flatEmbedder{}))
		assert.Error(t, err)
	})

	t.Run("invalid routing table", func(t *testing.T) {
		cfg := testConfig()
		cfg.RoutingTablePath = filepath.Join(t.TempDir(), "routes.yaml")
		require.NoError(t, os.WriteFile(cfg.RoutingTablePath, []byte("default: nowhere\n"), 0o644))
		_, err := New(context.Background(), cfg, WithModels(echo, flatEmbedder{}))
		assert.Error(t, err)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := testConfig()
		cfg.Store = StoreRedis
		cfg.RedisAddr = addr
		_, err := New(context.Background(), cfg, WithModels(echo, flatEmbedder{}))
		assert.ErrorIs(t, err, concierge.ErrStorage)
	})
}

func TestNew_RoutingTableFromFile(t *testing.T) {
	cfg := testConfig()
	cfg.RoutingTablePath = filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(cfg.RoutingTablePath, []byte(`
default: consultation
rules:
  - category: consultation
    keywords: [ring, necklace]
  - category: companion
    keywords: [hello]
  - category: analytics
    keywords: [dashboard]
  - category: trend
    keywords: [trending]
  - category: taste
    keywords: [quiz]
`), 0o644))

	a := newApp(t, cfg)
	assert.Equal(t, "analytics", a.Orchestrator.Route(orchestrator.Request{Message: "open the dashboard"}))
	assert.Equal(t, "consultation", a.Orchestrator.Route(orchestrator.Request{Message: "earrings please"}))
}

func TestNew_QdrantRetriever(t *testing.T) {
	cfg := testConfig()
	cfg.Retriever = RetrieverQdrant
	cfg.QdrantHost = "127.0.0.1"
	cfg.QdrantPort = 6334
	cfg.QdrantCollection = "test_products"

	a := newApp(t, cfg)
	_, ok := a.Catalog.(*retrieval.QdrantIndex)
	assert.True(t, ok)
}

func TestNew_Horoscope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leo/", r.URL.Path)
		w.Write([]byte(`{"sign":"leo","date":"2026-10-17","horoscope":"Wear something golden."}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HoroscopeURL = srv.URL
	a := newApp(t, cfg)

	resp, err := a.Orchestrator.Invoke(context.Background(), orchestrator.Request{
		UserID: "u1", Message: "born 07/25, any horoscope for me?", Workflow: "companion",
	})
	require.NoError(t, err)
	persona, ok := resp.Metadata["persona"].(specialist.Persona)
	require.True(t, ok)
	assert.Equal(t, "Wear something golden.", persona.Horoscope)
}

func TestNew_ProviderClient(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.Orchestrator)
}
