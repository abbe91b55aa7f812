package specialist

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/workflow"
)

// Workflow names, also used as routing categories.
const (
	Consultation = "consultation"
	Companion    = "companion"
	Analytics    = "analytics"
	Trend        = "trend"
	Taste        = "taste"
)

// Names lists the workflows in routing order.
func Names() []string {
	return []string{Consultation, Companion, Analytics, Trend, Taste}
}

// Defaults for the consultation retrieval.
const (
	DefaultSearchLimit     = 8
	DefaultMinScore        = 0.45
	DefaultHistoryLimit    = 5
	DefaultRecommendations = 5
)

// Set builds the workflows over one set of collaborators.
type Set struct {
	gen  concierge.Generator
	ret  concierge.Retriever
	repo concierge.Repository

	horoscope Horoscope

	logger      *slog.Logger
	stepTimeout time.Duration
	searchLimit int
	minScore    float64
	now         func() time.Time
	newID       func() string
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the logger used by the steps and the graphs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Set) {
		s.logger = l
	}
}

// WithStepTimeout bounds every step of every workflow.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Set) {
		s.stepTimeout = d
	}
}

// WithSearchLimit sets how many products the consultation retrieves.
func WithSearchLimit(n int) Option {
	return func(s *Set) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithMinScore sets the retrieval similarity threshold.
func WithMinScore(score float64) Option {
	return func(s *Set) {
		s.minScore = score
	}
}

// WithHoroscope enables horoscope lookups in the companion workflow.
func WithHoroscope(h Horoscope) Option {
	return func(s *Set) {
		s.horoscope = h
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Set) {
		s.now = now
	}
}

// WithIDGenerator replaces the uuid generator for record ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Set) {
		s.newID = fn
	}
}

// New creates a Set. ret may be nil when the consultation workflow is not
// used.
func New(gen concierge.Generator, ret concierge.Retriever, repo concierge.Repository, opts ...Option) *Set {
	s := &Set{
		gen:         gen,
		ret:         ret,
		repo:        repo,
		logger:      slog.Default(),
		searchLimit: DefaultSearchLimit,
		minScore:    DefaultMinScore,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Set) graphOptions() []workflow.Option {
	return []workflow.Option{
		workflow.WithLogger(s.logger),
		workflow.WithStepTimeout(s.stepTimeout),
	}
}

// Runners returns every workflow in routing order.
func (s *Set) Runners() []workflow.Runner {
	return []workflow.Runner{
		s.Consultation(),
		s.Companion(),
		s.Analytics(),
		s.Trend(),
		s.Taste(),
	}
}

// Registry returns a registry holding every workflow.
func (s *Set) Registry() *workflow.Registry {
	return workflow.NewRegistry(s.Runners()...)
}
