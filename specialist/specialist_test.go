package specialist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/store"
	"github.com/spetersoncode/concierge/workflow"
)

// fakeGenerator records prompts and answers with respond.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	opts    []*concierge.Options
	respond func(prompt string) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts ...concierge.Option) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, concierge.ApplyOptions(opts...))
	f.mu.Unlock()
	if f.respond == nil {
		return "ok", nil
	}
	return f.respond(prompt)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) prompt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[i]
}

type fakeRetriever struct {
	mu       sync.Mutex
	products []concierge.Product
	err      error
	queries  []string
	opts     []*concierge.SearchOptions
}

func (f *fakeRetriever) Search(_ context.Context, query string, limit int, opts ...concierge.SearchOption) ([]concierge.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.opts = append(f.opts, concierge.ApplySearchOptions(opts...))
	if f.err != nil {
		return nil, f.err
	}
	return f.products[:min(limit, len(f.products))], nil
}

func (f *fakeRetriever) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func catalog(n int) []concierge.Product {
	out := make([]concierge.Product, n)
	for i := range out {
		out[i] = concierge.Product{
			ID:       fmt.Sprintf("p%d", i+1),
			Name:     fmt.Sprintf("Ring %d", i+1),
			Category: "rings",
			Material: "gold",
			Price:    float64(1000 * (i + 1)),
		}
	}
	return out
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSet(gen concierge.Generator, ret concierge.Retriever, repo concierge.Repository) *Set {
	n := 0
	return New(gen, ret, repo,
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("rec-%d", n) }),
	)
}

// runAll drains a run and returns every observation.
func runAll(t *testing.T, r workflow.Runner, userID, message string) []workflow.Observation {
	t.Helper()
	var out []workflow.Observation
	for o := range r.Run(context.Background(), workflow.Input{UserID: userID, Message: message}) {
		out = append(out, o)
	}
	require.NotEmpty(t, out)
	return out
}

func stepNames(obs []workflow.Observation) []string {
	names := make([]string, len(obs))
	for i, o := range obs {
		names[i] = o.Step
	}
	return names
}

func statuses(obs []workflow.Observation) []string {
	var out []string
	for _, o := range obs {
		if o.Status != "" {
			out = append(out, o.Status)
		}
	}
	return out
}

func result(t *testing.T, obs []workflow.Observation) *workflow.Result {
	t.Helper()
	last := obs[len(obs)-1]
	require.NoError(t, last.Err)
	require.NotNil(t, last.Result)
	return last.Result
}

func TestSet_Registry(t *testing.T) {
	s := New(&fakeGenerator{}, &fakeRetriever{}, store.NewMemoryAdapter())
	reg := s.Registry()

	assert.Equal(t, 5, reg.Len())
	for _, name := range Names() {
		assert.True(t, reg.Has(name), name)
	}

	require.NoError(t, s.ConsultationGraph().Validate())
	require.NoError(t, s.AnalyticsGraph().Validate())
	require.NoError(t, s.TrendGraph().Validate())
	require.NoError(t, s.CompanionGraph().Validate())
	require.NoError(t, s.TasteGraph().Validate())
}

func TestStepStatus(t *testing.T) {
	msg, ok := ConsultRetrieveProducts.Status()
	assert.True(t, ok)
	assert.Equal(t, "Searching the catalog...", msg)

	_, ok = ConsultPersistRecord.Status()
	assert.False(t, ok)
	_, ok = TrendGenerateRecommendations.Status()
	assert.False(t, ok)

	assert.Equal(t, "use-existing-preferences", ConsultUseExistingPreferences.String())
	assert.Equal(t, "select-next-question-or-finalize", TasteNextOrFinalize.String())
}

func TestCleanResponse(t *testing.T) {
	in := "[THINK]internal\nnotes[/THINK]Hello!\n\n\n\nHere are a few ideas.  "
	assert.Equal(t, "Hello!\n\nHere are a few ideas.", cleanResponse(in))
}

func TestDecodeObject(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, decodeObject("```json\n{\"a\": 1}\n```", &v))
	assert.Equal(t, 1, v.A)

	require.NoError(t, decodeObject(`Sure! {"a": 2} hope that helps`, &v))
	assert.Equal(t, 2, v.A)

	assert.Error(t, decodeObject("no json here", &v))
	assert.Error(t, decodeObject("{broken", &v))
}

func TestCountValues(t *testing.T) {
	got := countValues([]string{"b", "a", "", "a", "c", "b", "a"}, 2)
	assert.Equal(t, []Count{{"a", 3}, {"b", 2}}, got)

	assert.Equal(t, []Count{}, countValues(nil, 5))
	assert.Equal(t, []string{"a", "b"}, topValues(got, 5))
}

func TestMentions(t *testing.T) {
	assert.True(t, mentions("rubies and pearls", "rub"))
	assert.False(t, mentions("earrings", "ring"))
	assert.True(t, mentions("rings, earrings", "ring"))
	assert.True(t, containsWord("art deco revival", "art deco"))
	assert.False(t, containsWord("golden", "gold"))
	assert.True(t, strings.Contains(Questions[0].Text, "metal"))
}
