package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/emitter"
	"github.com/spetersoncode/concierge/event"
	"github.com/spetersoncode/concierge/workflow"
)

// DefaultErrorMessage is the user-visible message of every error event.
const DefaultErrorMessage = "Sorry, something went wrong while preparing your answer. Please try again."

// Request is one incoming customer message.
type Request struct {
	UserID  string
	Message string
	// Workflow selects a workflow by name and skips classification.
	Workflow string
}

// Response is the blocking-mode result of a request.
type Response struct {
	Workflow string
	Text     string
	Metadata map[string]any
	Statuses []string
}

// Observer receives run lifecycle notifications. Calls are made from the
// goroutine driving the run and must not block.
type Observer interface {
	Routed(workflow string, cls Classification, override bool)
	StepCompleted(workflow, step string, elapsed time.Duration)
	// Finished reports the run outcome: an event error code, or "" on
	// success.
	Finished(workflow, code string, elapsed time.Duration)
}

// Orchestrator routes requests to workflows and republishes their
// progress as events.
type Orchestrator struct {
	registry   *workflow.Registry
	classifier *Classifier
	emitter    *emitter.Emitter
	observer   Observer
	logger     *slog.Logger
	errMessage string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier replaces the built-in routing table.
func WithClassifier(c *Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

// WithEmitter sets the emitter used for the output half of each sequence.
func WithEmitter(e *emitter.Emitter) Option {
	return func(o *Orchestrator) {
		o.emitter = e
	}
}

// WithObserver registers a run observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithErrorMessage sets the user-visible message of error events.
func WithErrorMessage(msg string) Option {
	return func(o *Orchestrator) {
		o.errMessage = msg
	}
}

// New creates an Orchestrator over registry. Every category of the
// classifier's routing table must name a registered workflow.
func New(registry *workflow.Registry, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		registry:   registry,
		emitter:    emitter.New(),
		logger:     slog.Default(),
		errMessage: DefaultErrorMessage,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.classifier == nil {
		o.classifier = NewClassifier(DefaultRoutingTable())
	}
	for _, name := range o.classifier.Table().Categories() {
		if !registry.Has(name) {
			return nil, fmt.Errorf("%w: category %q has no workflow", workflow.ErrWorkflowNotFound, name)
		}
	}
	return o, nil
}

// Workflows returns the registered workflow names.
func (o *Orchestrator) Workflows() []string {
	return o.registry.Names()
}

// Has reports whether a workflow is registered under name.
func (o *Orchestrator) Has(name string) bool {
	return o.registry.Has(name)
}

// Route selects the workflow for req. An explicit selector always wins.
func (o *Orchestrator) Route(req Request) string {
	name, _, _ := o.route(req)
	return name
}

func (o *Orchestrator) route(req Request) (string, Classification, bool) {
	if req.Workflow != "" {
		return req.Workflow, Classification{Category: req.Workflow}, true
	}
	cls := o.classifier.Classify(req.Message)
	return cls.Category, cls, false
}

// Invoke runs req to completion and returns the collected result. A failed
// run returns *emitter.Failure carrying the stable code and user-safe
// message.
func (o *Orchestrator) Invoke(ctx context.Context, req Request) (*Response, error) {
	name, cls, override := o.route(req)
	res, err := emitter.Collect(ctx, o.stream(ctx, name, cls, override, req))
	if err != nil {
		return nil, err
	}
	return &Response{
		Workflow: name,
		Text:     res.Text,
		Metadata: res.Metadata,
		Statuses: res.Statuses,
	}, nil
}

// InvokeStream runs req and returns its event sequence. The channel is
// closed after the terminal event, or when ctx is done. Cancelling ctx
// stops the workflow before its next step.
func (o *Orchestrator) InvokeStream(ctx context.Context, req Request) <-chan event.Event {
	name, cls, override := o.route(req)
	return o.stream(ctx, name, cls, override, req)
}

func (o *Orchestrator) stream(ctx context.Context, name string, cls Classification, override bool, req Request) <-chan event.Event {
	out := make(chan event.Event)
	go func() {
		defer close(out)
		o.drive(ctx, name, cls, override, req, out)
	}()
	return out
}

func (o *Orchestrator) drive(ctx context.Context, name string, cls Classification, override bool, req Request, out chan<- event.Event) {
	start := time.Now()
	log := o.logger.With("user_id", req.UserID, "workflow", name)
	if cls.Ambiguous {
		log.Info("ambiguous classification, using default", "scores", cls.Scores)
	}
	log.Debug("workflow selected", "override", override)
	if o.observer != nil {
		o.observer.Routed(name, cls, override)
	}

	finish := func(code string) {
		if o.observer != nil {
			o.observer.Finished(name, code, time.Since(start))
		}
	}

	// The run must not outlive this goroutine.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var steps int
	for obs := range o.registry.Run(ctx, name, workflow.Input{UserID: req.UserID, Message: req.Message}) {
		if obs.Err != nil {
			code := codeFor(obs.Err)
			logFailure(log, obs.Err, code, time.Since(start))
			event.Send(ctx, out, event.NewError(code, o.errMessage, obs.Err))
			finish(code)
			return
		}

		steps++
		log.Debug("step completed", "step", obs.Step, "elapsed_ms", obs.Elapsed.Milliseconds())
		if o.observer != nil {
			o.observer.StepCompleted(name, obs.Step, obs.Elapsed)
		}
		if obs.Status != "" && !event.Send(ctx, out, event.NewStatus(obs.Status)) {
			break
		}
		if obs.Result != nil {
			if !o.emitter.Emit(ctx, out, obs.Result.Text, obs.Result.Metadata) {
				break
			}
			log.Info("workflow completed",
				"duration_ms", time.Since(start).Milliseconds(),
				"steps", steps,
			)
			finish("")
			return
		}
	}

	log.Info("workflow cancelled",
		"duration_ms", time.Since(start).Milliseconds(),
		"steps", steps,
	)
	finish(event.CodeCancelled)
}

func logFailure(log *slog.Logger, err error, code string, elapsed time.Duration) {
	attrs := []any{"error", err, "code", code, "duration_ms", elapsed.Milliseconds()}
	var stepErr *workflow.StepError
	if errors.As(err, &stepErr) {
		attrs = append(attrs, "step", stepErr.StepName)
	}
	var aborted *workflow.AbortedError
	if errors.As(err, &aborted) {
		attrs = append(attrs, "last_completed", aborted.LastCompleted)
	}
	log.Error("workflow failed", attrs...)
}

// codeFor maps a run failure to its stable event code.
func codeFor(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return event.CodeCancelled
	case errors.Is(err, workflow.ErrWorkflowNotFound):
		return event.CodeUnknownWorkflow
	case errors.Is(err, concierge.ErrGeneration):
		return event.CodeGeneration
	case errors.Is(err, concierge.ErrRetrieval):
		return event.CodeRetrieval
	case errors.Is(err, concierge.ErrStorage):
		return event.CodeStorage
	default:
		return event.CodeInternal
	}
}
