// Package concierge routes customer messages to jewelry consultation
// workflows and delivers their output as a result or as an event stream.
//
// This package holds the pieces every other package shares: the domain
// types, the collaborator contracts and the categorized error model.
//
// # Collaborators
//
// The workflows never talk to a provider directly. They depend on four
// narrow interfaces:
//
//   - [Generator]: prompt in, complete text out
//   - [Embedder]: texts in, vectors out
//   - [Retriever]: ranked product search
//   - [Repository]: keyed JSON document storage
//
// Implementations live in internal/provider (Anthropic, OpenAI, Gemini),
// retrieval (embedding index) and store (memory, SQLite, Redis).
//
// # Errors
//
// Collaborator failures are [*Error] values tagged with one of
// [ErrGeneration], [ErrRetrieval] or [ErrStorage]:
//
//	if errors.Is(err, concierge.ErrRetrieval) {
//	    // search failed
//	}
//
// The category (transient, permanent, user_input) drives the retry
// package; the workflows themselves never retry.
//
// # Entry points
//
// Use the orchestrator package to classify and run a message, and the
// emitter package for the chunked event sequence.
package concierge
