package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/retry"
)

const messageBody = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-5",
	"content": [{"type": "text", "text": "Rose gold "}, {"type": "text", "text": "suits you."}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 4}
}`

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 1}
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageBody)
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	text, err := c.Generate(context.Background(), "What suits me?",
		concierge.WithSystem("You are a jeweler."),
		concierge.WithJSON(),
		concierge.WithMaxTokens(256),
	)
	require.NoError(t, err)
	assert.Equal(t, "Rose gold suits you.", text)

	assert.Equal(t, DefaultModel, body["model"])
	assert.EqualValues(t, 256, body["max_tokens"])
	system, ok := body["system"].([]any)
	require.True(t, ok)
	assert.Len(t, system, 2)
}

func TestGenerate_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
			return
		}
		_, _ = io.WriteString(w, messageBody)
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	text, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Rose gold suits you.", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_Unauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`)
	}))
	defer srv.Close()

	c := New("bad-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, concierge.ErrGeneration)
	assert.True(t, concierge.IsPermanent(err))
	assert.Equal(t, http.StatusUnauthorized, concierge.StatusCodeOf(err))
	assert.Equal(t, int32(1), calls.Load())
}
