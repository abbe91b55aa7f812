// Package client builds the text-generation and embedding collaborators
// from configuration.
//
// A Client picks one provider for generation and one for embeddings,
// creates the provider SDK clients on first use, and reports each request
// on an optional event channel:
//
//	events := make(chan client.Event, 64)
//	c := client.New(client.Config{
//	    Provider:          concierge.ProviderAnthropic,
//	    EmbeddingProvider: concierge.ProviderOpenAI,
//	    APIKeys: client.APIKeys{
//	        Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
//	        OpenAI:    os.Getenv("OPENAI_API_KEY"),
//	    },
//	    Events: events,
//	}, client.WithDefaultTemperature(0.7))
//
// The client satisfies both concierge.Generator and concierge.Embedder.
// Anthropic has no embeddings endpoint; asking it to embed returns
// ErrFeatureNotSupported.
package client
