package workflow

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Input is the caller-supplied start of a run.
type Input struct {
	UserID  string
	Message string
}

// Result is what a run hands back: the final text and the metadata fields.
type Result struct {
	Text     string
	Metadata map[string]any
}

// Observation is one completed step as seen through a Runner.
type Observation struct {
	Step string
	// Status is the progress message for the step, empty when the step has
	// none.
	Status  string
	Elapsed time.Duration
	// Result is set on the terminal observation.
	Result *Result
	// Err is set on the last observation of a failed run.
	Err error
}

// Runner is a type-erased workflow. It allows workflows with different
// state and step types to be stored and dispatched uniformly by name.
type Runner interface {
	// Name returns the workflow's unique identifier.
	Name() string

	// Run starts a fresh single pass and returns its observations. The
	// channel is closed after the terminal or failed observation, or when
	// ctx is done.
	Run(ctx context.Context, in Input) <-chan Observation
}

// Binding declares how a typed graph is exposed as a Runner.
type Binding[S Advancer[S, K], K comparable] struct {
	Name  string
	Graph *Graph[S, K]

	// Init creates the initial state for a run.
	Init func(Input) S

	// Status maps a completed step to its progress message. Steps for which
	// it reports false produce no status.
	Status func(K) (string, bool)

	// Output extracts the final text and metadata from the terminal state.
	Output func(S) Result
}

type boundRunner[S Advancer[S, K], K comparable] struct {
	b Binding[S, K]
}

// Bind creates a Runner from a Binding.
//
// Example:
//
//	runner := workflow.Bind(workflow.Binding[State, Step]{
//	    Name:   "companion",
//	    Graph:  graph,
//	    Init:   func(in workflow.Input) State { return State{UserID: in.UserID} },
//	    Status: Step.Status,
//	    Output: func(s State) workflow.Result { return workflow.Result{Text: s.Response} },
//	})
func Bind[S Advancer[S, K], K comparable](b Binding[S, K]) Runner {
	return &boundRunner[S, K]{b: b}
}

func (r *boundRunner[S, K]) Name() string { return r.b.Name }

func (r *boundRunner[S, K]) Run(ctx context.Context, in Input) <-chan Observation {
	ch := make(chan Observation)

	go func() {
		defer close(ch)
		send := func(o Observation) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case ch <- o:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var last string
		for snap := range r.b.Graph.RunStream(ctx, r.b.Init(in)) {
			name := fmt.Sprint(snap.Step)
			if snap.Err != nil {
				send(Observation{Step: name, Elapsed: snap.Elapsed, Err: &AbortedError{
					Workflow:      r.b.Name,
					LastCompleted: last,
					Err:           snap.Err,
				}})
				return
			}
			last = name

			obs := Observation{Step: name, Elapsed: snap.Elapsed}
			if r.b.Status != nil {
				if msg, ok := r.b.Status(snap.Step); ok {
					obs.Status = msg
				}
			}
			if snap.Terminal {
				res := r.b.Output(snap.State)
				obs.Result = &res
			}
			if !send(obs) {
				return
			}
		}
	}()

	return ch
}

// Registry stores and retrieves Runners by name.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

// NewRegistry creates a registry holding runners.
func NewRegistry(runners ...Runner) *Registry {
	r := &Registry{runners: make(map[string]Runner)}
	for _, runner := range runners {
		r.Register(runner)
	}
	return r
}

// Register adds a Runner to the registry.
// If a runner with the same name already exists, it is replaced.
func (r *Registry) Register(runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[runner.Name()] = runner
}

// Get retrieves a Runner by name.
// Returns nil if no runner with the given name exists.
func (r *Registry) Get(name string) Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runners[name]
}

// Has returns true if a runner with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.runners[name]
	return ok
}

// Names returns all registered workflow names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered runners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runners)
}

// Run executes the named workflow. An unknown name yields a single
// observation carrying ErrWorkflowNotFound.
func (r *Registry) Run(ctx context.Context, name string, in Input) <-chan Observation {
	runner := r.Get(name)
	if runner == nil {
		ch := make(chan Observation, 1)
		ch <- Observation{Err: fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)}
		close(ch)
		return ch
	}
	return runner.Run(ctx, in)
}

// Collect drains a run and returns its result.
func Collect(ctx context.Context, obs <-chan Observation) (*Result, error) {
	for o := range obs {
		if o.Err != nil {
			return nil, o.Err
		}
		if o.Result != nil {
			return o.Result, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errIncomplete
}
