package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Advancer is implemented by workflow state structs. Advance returns a copy
// of the state with its completed-step cursor set to step.
type Advancer[S any, K comparable] interface {
	Advance(step K) S
}

// StepFunc is one unit of work. It receives the state by value and returns
// the updated state. A returned error discards the returned state.
type StepFunc[S any] func(ctx context.Context, state S) (S, error)

// Snapshot is the state observed right after a step completes. The last
// snapshot of a failed run has Err set and carries the state as it was
// before the failed step.
type Snapshot[S any, K comparable] struct {
	Step     K
	State    S
	Elapsed  time.Duration
	Terminal bool
	Err      error
}

type edge[S any, K comparable] struct {
	targets []K
	next    func(S) K
}

type node[S any, K comparable] struct {
	fn   StepFunc[S]
	edge *edge[S, K]
}

// Graph is a fixed, acyclic arrangement of steps with one entry point.
// Steps without an outgoing edge are terminal. A Graph is safe for
// concurrent runs once built; each run gets its own state.
type Graph[S Advancer[S, K], K comparable] struct {
	entry K
	nodes map[K]*node[S, K]
	order []K
	errs  []error
	opts  *Options
}

// New creates an empty graph that starts at entry.
func New[S Advancer[S, K], K comparable](entry K, opts ...Option) *Graph[S, K] {
	return &Graph[S, K]{
		entry: entry,
		nodes: make(map[K]*node[S, K]),
		opts:  ApplyOptions(opts...),
	}
}

// AddStep registers fn under step. Registering a step twice is reported
// by Validate.
func (g *Graph[S, K]) AddStep(step K, fn StepFunc[S]) *Graph[S, K] {
	if _, ok := g.nodes[step]; ok {
		g.errs = append(g.errs, fmt.Errorf("duplicate step %v", step))
		return g
	}
	g.nodes[step] = &node[S, K]{fn: fn}
	g.order = append(g.order, step)
	return g
}

// AddEdge routes from to to unconditionally.
func (g *Graph[S, K]) AddEdge(from, to K) *Graph[S, K] {
	return g.setEdge(from, &edge[S, K]{
		targets: []K{to},
		next:    func(S) K { return to },
	})
}

// AddBranch routes from to ifTrue when cond holds for the state produced
// by from, otherwise to ifFalse. cond is evaluated once per run.
func (g *Graph[S, K]) AddBranch(from K, cond func(S) bool, ifTrue, ifFalse K) *Graph[S, K] {
	return g.setEdge(from, &edge[S, K]{
		targets: []K{ifTrue, ifFalse},
		next: func(s S) K {
			if cond(s) {
				return ifTrue
			}
			return ifFalse
		},
	})
}

func (g *Graph[S, K]) setEdge(from K, e *edge[S, K]) *Graph[S, K] {
	n, ok := g.nodes[from]
	switch {
	case !ok:
		g.errs = append(g.errs, fmt.Errorf("edge from unknown step %v", from))
	case n.edge != nil:
		g.errs = append(g.errs, fmt.Errorf("step %v already has an outgoing edge", from))
	default:
		n.edge = e
	}
	return g
}

// Entry returns the entry step.
func (g *Graph[S, K]) Entry() K { return g.entry }

// Steps returns the registered steps in registration order.
func (g *Graph[S, K]) Steps() []K {
	return append([]K(nil), g.order...)
}

// Terminals returns the steps without an outgoing edge.
func (g *Graph[S, K]) Terminals() []K {
	var out []K
	for _, k := range g.order {
		if g.nodes[k].edge == nil {
			out = append(out, k)
		}
	}
	return out
}

// Validate checks that the entry and every edge target exist, that at
// least one terminal exists and that no step can reach itself.
func (g *Graph[S, K]) Validate() error {
	if len(g.errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, g.errs[0])
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("%w: entry step %v not registered", ErrInvalidGraph, g.entry)
	}
	for _, k := range g.order {
		if e := g.nodes[k].edge; e != nil {
			for _, t := range e.targets {
				if _, ok := g.nodes[t]; !ok {
					return fmt.Errorf("%w: step %v routes to unknown step %v", ErrInvalidGraph, k, t)
				}
			}
		}
	}
	if len(g.Terminals()) == 0 {
		return fmt.Errorf("%w: no terminal step", ErrInvalidGraph)
	}

	const (
		unvisited = iota
		active
		finished
	)
	color := make(map[K]int, len(g.nodes))
	var visit func(K) error
	visit = func(k K) error {
		color[k] = active
		if e := g.nodes[k].edge; e != nil {
			for _, t := range e.targets {
				switch color[t] {
				case active:
					return fmt.Errorf("%w: cycle through %v", ErrInvalidGraph, t)
				case unvisited:
					if err := visit(t); err != nil {
						return err
					}
				}
			}
		}
		color[k] = finished
		return nil
	}
	for _, k := range g.order {
		if color[k] == unvisited {
			if err := visit(k); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunStream executes one single pass from the entry step and returns the
// snapshots as each step completes. The channel is closed after the
// terminal snapshot, after a failure snapshot, or when ctx is done. No step
// is started once ctx is done.
func (g *Graph[S, K]) RunStream(ctx context.Context, initial S) <-chan Snapshot[S, K] {
	ch := make(chan Snapshot[S, K])

	go func() {
		defer close(ch)
		send := func(s Snapshot[S, K]) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case ch <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := g.Validate(); err != nil {
			send(Snapshot[S, K]{Step: g.entry, State: initial, Err: err})
			return
		}

		state := initial
		visited := make(map[K]bool, len(g.nodes))
		for cur := g.entry; ; {
			if ctx.Err() != nil {
				return
			}
			if visited[cur] {
				send(Snapshot[S, K]{Step: cur, State: state, Err: &StepError{
					StepName: fmt.Sprint(cur),
					Err:      ErrReentry,
				}})
				return
			}
			visited[cur] = true

			n := g.nodes[cur]
			start := time.Now()
			next, err := g.runStep(ctx, n.fn, state)
			elapsed := time.Since(start)
			if err != nil {
				g.opts.Logger.Debug("workflow step failed", "step", fmt.Sprint(cur), "error", err)
				send(Snapshot[S, K]{Step: cur, State: state, Elapsed: elapsed, Err: &StepError{
					StepName: fmt.Sprint(cur),
					Err:      err,
				}})
				return
			}
			state = next.Advance(cur)
			g.opts.Logger.Debug("workflow step completed", "step", fmt.Sprint(cur), "duration_ms", elapsed.Milliseconds())

			if n.edge == nil {
				send(Snapshot[S, K]{Step: cur, State: state, Elapsed: elapsed, Terminal: true})
				return
			}
			if !send(Snapshot[S, K]{Step: cur, State: state, Elapsed: elapsed}) {
				return
			}
			cur = n.edge.next(state)
		}
	}()

	return ch
}

func (g *Graph[S, K]) runStep(ctx context.Context, fn StepFunc[S], state S) (S, error) {
	if g.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.StepTimeout)
		defer cancel()
	}
	return fn(ctx, state)
}

var errIncomplete = errors.New("workflow: run ended before a terminal step")

// Run executes the graph and returns the terminal state.
func (g *Graph[S, K]) Run(ctx context.Context, initial S) (S, error) {
	var last Snapshot[S, K]
	for snap := range g.RunStream(ctx, initial) {
		last = snap
	}
	switch {
	case last.Err != nil:
		return last.State, last.Err
	case last.Terminal:
		return last.State, nil
	case ctx.Err() != nil:
		return last.State, ctx.Err()
	default:
		return last.State, errIncomplete
	}
}
