// Package anthropic implements [concierge.Generator] on the Anthropic
// Messages API.
//
// Each Generate call is a single user turn. A system prompt set with
// [concierge.WithSystem] is sent as a system block, and
// [concierge.WithJSON] adds an instruction asking for a bare JSON object.
//
// The SDK's own retries are disabled; requests go through retry.Do so
// rate limits and server errors back off the same way for every provider.
//
//	gen := anthropic.New(os.Getenv("ANTHROPIC_API_KEY"), anthropic.WithModel(anthropic.ClaudeHaiku45))
//	text, err := gen.Generate(ctx, "Suggest a gift for a June birthday.")
//
// Anthropic offers no embeddings endpoint, so product indexing needs
// another provider.
package anthropic
