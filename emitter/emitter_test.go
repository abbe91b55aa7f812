package emitter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge/event"
)

func drain(ch <-chan event.Event) []event.Event {
	var out []event.Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		text string
		n    int
		want []string
	}{
		{"", 3, nil},
		{"a", 3, []string{"a"}},
		{"abc", 3, []string{"abc"}},
		{"abcdefg", 3, []string{"abc", "def", "g"}},
		{"abcd", 1, []string{"a", "b", "c", "d"}},
		{"héllo wörld", 4, []string{"héll", "o wö", "rld"}},
		{"💍💎✨", 2, []string{"💍💎", "✨"}},
		{"abcd", 0, []string{"abc", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.text, tt.n))
		})
	}
}

func TestChunk_ConcatenationIsLossless(t *testing.T) {
	texts := []string{
		"",
		" ",
		"I need a gold ring for engagement",
		"Trends:\n- rose gold\n- minimalist\n",
		"日本語のテキストとemoji 💍 mixed in",
		strings.Repeat("ab ", 101),
	}
	for _, text := range texts {
		for n := 1; n <= 7; n++ {
			chunks := Chunk(text, n)
			assert.Equal(t, text, strings.Join(chunks, ""), "n=%d", n)
			for i, c := range chunks {
				count := utf8.RuneCountInString(c)
				if i < len(chunks)-1 {
					assert.Equal(t, n, count)
				} else {
					assert.LessOrEqual(t, count, n)
					assert.Positive(t, count)
				}
			}
		}
	}
}

func TestEmitter_Stream(t *testing.T) {
	t.Run("tokens then metadata then done", func(t *testing.T) {
		md := map[string]any{"recommendations": []string{"p1"}}
		events := drain(New().Stream(context.Background(), "abcdefg", md))

		require.NoError(t, event.Validate(events))
		require.Len(t, events, 5)
		assert.Equal(t, "abc", events[0].Content)
		assert.Equal(t, "def", events[1].Content)
		assert.Equal(t, "g", events[2].Content)
		assert.Equal(t, event.Metadata, events[3].Kind)
		assert.Equal(t, md, events[3].Data)
		assert.Equal(t, event.Done, events[4].Kind)
		assert.Equal(t, DefaultDoneMessage, events[4].Message)
	})

	t.Run("empty text yields no tokens", func(t *testing.T) {
		events := drain(New().Stream(context.Background(), "", map[string]any{"trends": map[string]any{}}))
		require.Len(t, events, 2)
		assert.Equal(t, event.Metadata, events[0].Kind)
		assert.Equal(t, event.Done, events[1].Kind)
	})

	t.Run("nil metadata is omitted", func(t *testing.T) {
		events := drain(New().Stream(context.Background(), "hi", nil))
		require.Len(t, events, 2)
		assert.Equal(t, event.Token, events[0].Kind)
		assert.Equal(t, event.Done, events[1].Kind)
	})

	t.Run("empty metadata map is still emitted", func(t *testing.T) {
		events := drain(New().Stream(context.Background(), "hi", map[string]any{}))
		require.Len(t, events, 3)
		assert.Equal(t, event.Metadata, events[1].Kind)
	})

	t.Run("custom chunk size and done message", func(t *testing.T) {
		e := New(WithChunkSize(5), WithDoneMessage("finished"))
		events := drain(e.Stream(context.Background(), "abcdefghij", nil))
		require.Len(t, events, 3)
		assert.Equal(t, "abcde", events[0].Content)
		assert.Equal(t, "finished", events[2].Message)
		assert.Equal(t, 5, e.ChunkSize())
	})

	t.Run("invalid chunk size keeps default", func(t *testing.T) {
		assert.Equal(t, DefaultChunkSize, New(WithChunkSize(0)).ChunkSize())
	})
}

func TestEmitter_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := New().Stream(ctx, strings.Repeat("x", 300), map[string]any{"k": 1})

	first := <-ch
	assert.Equal(t, event.Token, first.Kind)
	cancel()

	// The producer stops without a terminal event and closes the channel.
	var rest []event.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		rest = drain(ch)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancellation")
	}
	for _, e := range rest {
		assert.NotEqual(t, event.Done, e.Kind)
	}
	assert.LessOrEqual(t, len(rest), 1)
}

func TestEmitter_TypingDelay(t *testing.T) {
	e := New(WithChunkSize(1), WithTypingDelay(5*time.Millisecond))
	start := time.Now()
	events := drain(e.Stream(context.Background(), "abcd", nil))
	assert.Len(t, events, 5)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestCollect(t *testing.T) {
	t.Run("returns text and metadata", func(t *testing.T) {
		ch := make(chan event.Event, 8)
		ch <- event.NewStatus("Loading profile...")
		ch <- event.NewToken("hel")
		ch <- event.NewToken("lo")
		ch <- event.NewMetadata(map[string]any{"a": 1})
		ch <- event.NewDone("ok")
		close(ch)

		res, err := Collect(context.Background(), ch)
		require.NoError(t, err)
		assert.Equal(t, "hello", res.Text)
		assert.Equal(t, map[string]any{"a": 1}, res.Metadata)
		assert.Equal(t, []string{"Loading profile..."}, res.Statuses)
	})

	t.Run("round trips an emitted stream", func(t *testing.T) {
		text := "Here are three rings you may like."
		res, err := Collect(context.Background(), New().Stream(context.Background(), text, nil))
		require.NoError(t, err)
		assert.Equal(t, text, res.Text)
		assert.Nil(t, res.Metadata)
	})

	t.Run("error event becomes Failure", func(t *testing.T) {
		cause := errors.New("search backend down")
		ch := make(chan event.Event, 2)
		ch <- event.NewError(event.CodeRetrieval, "Sorry", cause)
		close(ch)

		_, err := Collect(context.Background(), ch)
		var f *Failure
		require.ErrorAs(t, err, &f)
		assert.Equal(t, event.CodeRetrieval, f.Code)
		assert.Equal(t, "Sorry", f.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("unterminated sequence", func(t *testing.T) {
		ch := make(chan event.Event, 1)
		ch <- event.NewToken("x")
		close(ch)
		_, err := Collect(context.Background(), ch)
		assert.ErrorIs(t, err, ErrIncomplete)
	})

	t.Run("unterminated sequence after cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ch := make(chan event.Event)
		close(ch)
		_, err := Collect(ctx, ch)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
