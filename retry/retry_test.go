package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spetersoncode/concierge"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// flaky fails with err for the first n calls.
type flaky struct {
	n     int
	err   error
	calls int
}

func (f *flaky) generate() (string, error) {
	f.calls++
	if f.calls <= f.n {
		return "", f.err
	}
	return "A rose gold pendant would suit you.", nil
}

var overloaded = concierge.NewTransientError(concierge.ErrGeneration, "overloaded", 529, nil)

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		fails     int
		err       error
		wantErr   error
		wantCalls int
	}{
		{"first call succeeds", DefaultConfig(), 0, nil, nil, 1},
		{"recovers from transient failures", fastConfig(3), 2, overloaded, nil, 3},
		{"exhausts attempts", fastConfig(3), 5, overloaded, overloaded, 3},
		{"permanent error is not retried", DefaultConfig(), 5, concierge.NewPermanentError(concierge.ErrGeneration, "bad key", 401, nil), concierge.ErrGeneration, 1},
		{"uncategorized error is not retried", DefaultConfig(), 5, errors.New("malformed prompt"), nil, 1},
		{"disabled config makes one attempt", Disabled(), 5, overloaded, overloaded, 1},
		{"zero attempts still calls once", Config{}, 5, overloaded, overloaded, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &flaky{n: tt.fails, err: tt.err}
			result, err := Do(context.Background(), tt.cfg, f.generate)

			assert.Equal(t, tt.wantCalls, f.calls)
			if tt.fails < tt.wantCalls {
				assert.NoError(t, err)
				assert.NotEmpty(t, result)
				return
			}
			assert.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDoStopsWhenContextDone(t *testing.T) {
	cfg := Config{MaxAttempts: 10, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	f := &flaky{n: 10, err: overloaded}
	_, err := Do(ctx, cfg, f.generate)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.calls)
}

func TestDoHonorsRetryAfter(t *testing.T) {
	cfg := Config{
		MaxAttempts:  2,
		InitialDelay: time.Hour,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   1.0,
	}

	f := &flaky{n: 1, err: concierge.NewTransientErrorWithRetry(concierge.ErrGeneration, "rate limited", 429, time.Hour, nil)}
	start := time.Now()
	_, err := Do(context.Background(), cfg, f.generate)

	assert.NoError(t, err)
	assert.Equal(t, 2, f.calls)
	assert.Less(t, time.Since(start), time.Second, "retry-after is capped by MaxDelay")
}

func TestDelay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, cfg.Delay(0))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, time.Second, cfg.Delay(10))
	assert.Equal(t, 100*time.Millisecond, cfg.Delay(-1))

	jittered := Config{InitialDelay: 100 * time.Millisecond, Multiplier: 1, Jitter: 0.1}
	for range 20 {
		d := jittered.Delay(0)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}
