// Package emitter turns a completed text and its metadata into the ordered
// tail of an event sequence: token* metadata? done.
package emitter

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spetersoncode/concierge/event"
)

// DefaultChunkSize is the number of characters per token event.
const DefaultChunkSize = 3

// DefaultDoneMessage is the payload of the done event.
const DefaultDoneMessage = "Response complete"

// Chunk splits text into fragments of n characters, preserving order. The
// last fragment may be shorter. Empty text yields no fragments. Characters
// are runes, so a fragment never holds a partial UTF-8 sequence, but
// combining marks may be separated from their base.
func Chunk(text string, n int) []string {
	if n <= 0 {
		n = DefaultChunkSize
	}
	if text == "" {
		return nil
	}
	chunks := make([]string, 0, utf8.RuneCountInString(text)/n+1)
	start, count := 0, 0
	for i := range text {
		if count == n {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, text[start:])
}

// Emitter produces the output half of the event sequence.
type Emitter struct {
	chunkSize   int
	delay       time.Duration
	doneMessage string
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithChunkSize sets the characters per token event.
func WithChunkSize(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithTypingDelay pauses between token events to simulate typing.
func WithTypingDelay(d time.Duration) Option {
	return func(e *Emitter) {
		e.delay = d
	}
}

// WithDoneMessage sets the done event payload.
func WithDoneMessage(msg string) Option {
	return func(e *Emitter) {
		e.doneMessage = msg
	}
}

// New creates an Emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		chunkSize:   DefaultChunkSize,
		doneMessage: DefaultDoneMessage,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkSize returns the configured fragment length.
func (e *Emitter) ChunkSize() int { return e.chunkSize }

// Emit sends token events for text, one metadata event when metadata is
// non-nil, then a done event. Each send blocks until the receiver takes
// the event. Emit stops and returns false as soon as ctx is done.
func (e *Emitter) Emit(ctx context.Context, out chan<- event.Event, text string, metadata map[string]any) bool {
	for i, c := range Chunk(text, e.chunkSize) {
		if i > 0 && e.delay > 0 {
			if !sleep(ctx, e.delay) {
				return false
			}
		}
		if !event.Send(ctx, out, event.NewToken(c)) {
			return false
		}
	}
	if metadata != nil {
		if !event.Send(ctx, out, event.NewMetadata(metadata)) {
			return false
		}
	}
	return event.Send(ctx, out, event.NewDone(e.doneMessage))
}

// Stream runs Emit in its own goroutine and returns the event channel,
// closed after the done event or on cancellation.
func (e *Emitter) Stream(ctx context.Context, text string, metadata map[string]any) <-chan event.Event {
	out := make(chan event.Event)
	go func() {
		defer close(out)
		e.Emit(ctx, out, text, metadata)
	}()
	return out
}

// Result is the blocking-mode view of a sequence.
type Result struct {
	Text     string
	Metadata map[string]any
	Statuses []string
}

// Collect drains a sequence and returns the concatenated tokens and the
// metadata. An error event is returned as *Failure. A sequence that ends
// without a terminal event returns ctx.Err(), or ErrIncomplete when the
// context is still live.
func Collect(ctx context.Context, events <-chan event.Event) (*Result, error) {
	var (
		sb  strings.Builder
		res Result
	)
	for ev := range events {
		switch ev.Kind {
		case event.Status:
			res.Statuses = append(res.Statuses, ev.Message)
		case event.Token:
			sb.WriteString(ev.Content)
		case event.Metadata:
			res.Metadata = ev.Data
		case event.Done:
			res.Text = sb.String()
			return &res, nil
		case event.Error:
			return nil, &Failure{Code: ev.Code, Message: ev.Message, Cause: ev.Cause}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrIncomplete
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
