package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge"
)

type fakeGenerator struct {
	got *concierge.Options
	err error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts ...concierge.Option) (string, error) {
	f.got = concierge.ApplyOptions(opts...)
	if f.err != nil {
		return "", f.err
	}
	return "echo: " + prompt, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{float64(i)}
	}
	return out, nil
}

func TestErrors(t *testing.T) {
	assert.Equal(t, "anthropic provider does not support embedding",
		(&ErrFeatureNotSupported{Provider: "anthropic", Feature: "embedding"}).Error())
	assert.Equal(t, "no API key configured for openai",
		(&ErrMissingAPIKey{Provider: "openai"}).Error())
	assert.Equal(t, `unsupported provider: "cohere"`,
		(&ErrUnknownProvider{Provider: "cohere"}).Error())
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(concierge.ProviderAnthropic, FeatureGenerate))
	assert.False(t, Supports(concierge.ProviderAnthropic, FeatureEmbedding))
	assert.True(t, Supports(concierge.ProviderOpenAI, FeatureEmbedding))
	assert.True(t, Supports(concierge.ProviderVertex, FeatureEmbedding))
	assert.False(t, Supports("cohere", FeatureGenerate))
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, concierge.ProviderAnthropic, c.Provider())
	assert.Equal(t, concierge.ProviderOpenAI, c.cfg.EmbeddingProvider)
}

func TestGenerate_MissingKey(t *testing.T) {
	c := New(Config{Provider: concierge.ProviderOpenAI})
	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, concierge.ErrGeneration)
	var missing *ErrMissingAPIKey
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "openai", missing.Provider)
}

func TestGenerate_UnknownProvider(t *testing.T) {
	c := New(Config{Provider: "cohere"})
	_, err := c.Generate(context.Background(), "hi")
	var unknown *ErrUnknownProvider
	assert.ErrorAs(t, err, &unknown)
}

func TestGenerate_DefaultOptionsAreOverridable(t *testing.T) {
	events := make(chan Event, 4)
	c := New(Config{Events: events}, WithDefaultTemperature(0.9), WithDefaultMaxTokens(100))
	fake := &fakeGenerator{}
	c.generators[concierge.ProviderAnthropic] = fake

	text, err := c.Generate(context.Background(), "hi", concierge.WithMaxTokens(50))
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", text)
	require.NotNil(t, fake.got.Temperature)
	assert.Equal(t, 0.9, *fake.got.Temperature)
	assert.Equal(t, 50, fake.got.MaxTokens)

	require.Len(t, events, 2)
	assert.Equal(t, EventRequestStart, (<-events).Type)
	done := <-events
	assert.Equal(t, EventRequestComplete, done.Type)
	assert.Equal(t, OperationGenerate, done.Operation)
	assert.False(t, done.Timestamp.IsZero())
}

func TestGenerate_ErrorEvent(t *testing.T) {
	events := make(chan Event, 4)
	c := New(Config{Events: events})
	boom := concierge.NewTransientError(concierge.ErrGeneration, "overloaded", 503, nil)
	c.generators[concierge.ProviderAnthropic] = &fakeGenerator{err: boom}

	_, err := c.Generate(context.Background(), "hi")
	assert.True(t, errors.Is(err, concierge.ErrGeneration))

	<-events
	failed := <-events
	assert.Equal(t, EventRequestError, failed.Type)
	assert.Equal(t, boom, failed.Error)
}

func TestEmbed(t *testing.T) {
	c := New(Config{})
	c.embedders[concierge.ProviderOpenAI] = fakeEmbedder{}

	vectors, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0}, {1}}, vectors)
}

func TestEmbed_AnthropicUnsupported(t *testing.T) {
	c := New(Config{EmbeddingProvider: concierge.ProviderAnthropic})
	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, concierge.ErrRetrieval)
	var unsupported *ErrFeatureNotSupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestEmit_DropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	emit(ch, Event{Type: EventRequestStart})
	emit(ch, Event{Type: EventRequestComplete})
	assert.Len(t, ch, 1)
	emit(nil, Event{})
}
