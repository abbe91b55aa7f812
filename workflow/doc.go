// Package workflow runs fixed, single-pass graphs of steps over a typed state.
//
// A workflow is a Graph of steps identified by a closed enumeration K. Each
// step receives the state struct S by value and returns the updated value.
// The graph advances the state's step cursor after every successful step
// and yields a Snapshot per step, so consumers can react before the run
// finishes.
//
// # Single pass
//
// Edges are declared with their targets, so Validate rejects any graph in
// which a step can reach itself. The runtime additionally refuses to enter
// a step twice. Each step therefore performs its side effects at most once
// per run.
//
// # Defining a graph
//
//	type Step int
//
//	const (
//	    LoadProfile Step = iota
//	    Greet
//	    Respond
//	)
//
//	type State struct {
//	    UserID   string
//	    Profile  *concierge.Profile
//	    Response string
//	    Step     Step
//	}
//
//	func (s State) Advance(k Step) State { s.Step = k; return s }
//
//	g := workflow.New[State](LoadProfile).
//	    AddStep(LoadProfile, loadProfile).
//	    AddStep(Greet, greet).
//	    AddStep(Respond, respond).
//	    AddBranch(LoadProfile, func(s State) bool { return s.Profile == nil }, Greet, Respond).
//	    AddEdge(Greet, Respond)
//
// # Failure
//
// A failing step ends the run. The last snapshot carries a *StepError and
// the state as it was before the failed step. Runners wrap it in an
// *AbortedError naming the workflow and the last completed step. Nothing
// in this package retries.
//
// # Dispatch by name
//
// Bind erases the state and step types behind the Runner interface, and a
// Registry dispatches runners by name.
package workflow
