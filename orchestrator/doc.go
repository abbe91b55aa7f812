// Package orchestrator routes a customer message to one workflow and turns
// the run into an event sequence.
//
// Routing is a keyword vote over an ordered routing table. An explicit
// workflow name on the request skips classification entirely. Ties and
// messages that match nothing go to the table's default category.
//
// While the selected workflow runs, each completed step with a progress
// message becomes a status event. The terminal step's text and metadata
// are handed to an [emitter.Emitter]. A failed step ends the sequence with
// a single error event whose code names the failed collaborator:
//
//	o, err := orchestrator.New(set.Registry())
//	for ev := range o.InvokeStream(ctx, orchestrator.Request{UserID: "u1", Message: msg}) {
//	    // status* token* metadata? (done | error)
//	}
package orchestrator
