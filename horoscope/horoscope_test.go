package horoscope

import (
	"context"
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

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestDaily(t *testing.T) {
	var path, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, accept = r.URL.Path, r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sign":"leo","date":"2026-10-17","horoscope":"  A bold day for gold.  "}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL+"/"), WithRetry(fastRetry()))
	r, err := c.Daily(context.Background(), " Leo ")
	require.NoError(t, err)
	assert.Equal(t, "/leo/", path)
	assert.Equal(t, "application/json", accept)
	assert.Equal(t, Reading{Sign: "leo", Date: "2026-10-17", Text: "A bold day for gold."}, r)
}

func TestDaily_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
		transient bool
	}{
		{"server error is retried", http.StatusServiceUnavailable, "", 2, true},
		{"not found is not retried", http.StatusNotFound, "", 1, false},
		{"empty reading", http.StatusOK, `{"sign":"leo","horoscope":"   "}`, 1, false},
		{"malformed body", http.StatusOK, `{"sign":`, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(WithBaseURL(srv.URL), WithRetry(fastRetry()))
			r, err := c.Daily(context.Background(), "leo")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLookup)
			assert.Empty(t, r.Text)
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Equal(t, tt.transient, retry.IsTransient(err))
		})
	}
}

func TestDaily_UnknownSign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).Daily(context.Background(), "unknown")
	require.Error(t, err)

	var ce concierge.CategorizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, concierge.ErrorUserInput, ce.Category())
}

func TestDaily_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(WithBaseURL(addr), WithRetry(retry.Disabled())).Daily(context.Background(), "pisces")
	assert.ErrorIs(t, err, ErrLookup)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("capricorn"))
	assert.False(t, Valid("Capricorn"))
	assert.False(t, Valid("ophiuchus"))
}
