package specialist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/horoscope"
	"github.com/spetersoncode/concierge/retry"
	"github.com/spetersoncode/concierge/store"
)

func TestZodiacSign(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"03/21", "aries"},
		{"04/19", "aries"},
		{"1990-04-20", "taurus"},
		{"06/21", "cancer"},
		{"07/25", "leo"},
		{"1985-12-21", "sagittarius"},
		{"12/22", "capricorn"},
		{"01/19", "capricorn"},
		{"01/20", "aquarius"},
		{"02/18", "aquarius"},
		{"02/19", "pisces"},
		{"03/20", "pisces"},
		{"13/01", ZodiacUnknown},
		{"not a date", ZodiacUnknown},
		{"", ZodiacUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ZodiacSign(tt.date), tt.date)
	}
}

func TestDetectTone(t *testing.T) {
	assert.Equal(t, "supportive", detectTone("I had a bad day and feel so tired"))
	assert.Equal(t, "playful", detectTone("haha that's great"))
	assert.Equal(t, "playful", detectTone("Guess what!"))
	assert.Equal(t, "warm", detectTone("how are you"))
}

func TestCompanion_BirthdateInMessage(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) (string, error) { return "Happy early birthday, Leo!", nil }}

	obs := runAll(t, newTestSet(gen, nil, store.NewMemoryAdapter()).Companion(), "u1", "My birthday is 1992-07-25, what does that say about me?")

	assert.Equal(t, []string{"load-profile", "derive-persona-attributes", "generate-response"}, stepNames(obs))
	assert.Equal(t, []string{"Getting to know you...", "Thinking of a reply..."}, statuses(obs))

	res := result(t, obs)
	assert.Equal(t, "Happy early birthday, Leo!", res.Text)
	persona := res.Metadata["persona"].(Persona)
	assert.Equal(t, Persona{ZodiacSign: "leo", Birthdate: "1992-07-25", Tone: "warm"}, persona)

	require.Equal(t, 1, gen.calls())
	assert.Contains(t, gen.prompt(0), "zodiac sign: leo")
}

func TestCompanion_ProfileFallback(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryAdapter()
	require.NoError(t, store.SaveProfile(ctx, repo, concierge.Profile{UserID: "u2", ZodiacSign: "virgo", StylePreference: "minimalist"}))
	require.NoError(t, store.SaveRecord(ctx, repo, concierge.ConsultationRecord{
		ID: "r1", UserID: "u2", Message: "hi", Response: "hello!", CreatedAt: fixedTime,
	}))
	gen := &fakeGenerator{}

	obs := runAll(t, newTestSet(gen, nil, repo).Companion(), "u2", "I feel lonely tonight")
	res := result(t, obs)

	persona := res.Metadata["persona"].(Persona)
	assert.Equal(t, "virgo", persona.ZodiacSign)
	assert.Equal(t, "supportive", persona.Tone)
	assert.Empty(t, persona.Birthdate)

	prompt := gen.prompt(0)
	assert.Contains(t, prompt, "minimalist jewelry")
	assert.Contains(t, prompt, "User: hi\nYou: hello!")
}

func TestCompanion_UnknownSign(t *testing.T) {
	gen := &fakeGenerator{}
	obs := runAll(t, newTestSet(gen, nil, store.NewMemoryAdapter()).Companion(), "u3", "hey")

	persona := result(t, obs).Metadata["persona"].(Persona)
	assert.Equal(t, ZodiacUnknown, persona.ZodiacSign)
	assert.NotContains(t, gen.prompt(0), "zodiac sign")
}

func horoscopeServer(t *testing.T, status int, body string) *horoscope.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return horoscope.New(horoscope.WithBaseURL(srv.URL), horoscope.WithRetry(retry.Disabled()))
}

func TestCompanion_Horoscope(t *testing.T) {
	t.Run("reading goes into the prompt", func(t *testing.T) {
		gen := &fakeGenerator{}
		set := newTestSet(gen, nil, store.NewMemoryAdapter())
		WithHoroscope(horoscopeServer(t, http.StatusOK, `{"sign":"leo","date":"2026-10-17","horoscope":"Gold suits your mood today."}`))(set)

		obs := runAll(t, set.Companion(), "u1", "I was born 07/25, what's my horoscope?")
		persona := result(t, obs).Metadata["persona"].(Persona)
		assert.Equal(t, "leo", persona.ZodiacSign)
		assert.Equal(t, "Gold suits your mood today.", persona.Horoscope)
		assert.Contains(t, gen.prompt(0), "Gold suits your mood today.")
	})

	t.Run("failed lookup leaves no reading", func(t *testing.T) {
		gen := &fakeGenerator{}
		set := newTestSet(gen, nil, store.NewMemoryAdapter())
		WithHoroscope(horoscopeServer(t, http.StatusBadGateway, ""))(set)

		obs := runAll(t, set.Companion(), "u1", "I was born 07/25, what's my horoscope?")
		persona := result(t, obs).Metadata["persona"].(Persona)
		assert.Equal(t, "leo", persona.ZodiacSign)
		assert.Empty(t, persona.Horoscope)
		assert.Contains(t, gen.prompt(0), "do not make up a reading")
	})

	t.Run("not asked means no lookup", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
		t.Cleanup(srv.Close)

		set := newTestSet(&fakeGenerator{}, nil, store.NewMemoryAdapter())
		WithHoroscope(horoscope.New(horoscope.WithBaseURL(srv.URL)))(set)

		obs := runAll(t, set.Companion(), "u1", "My birthday is 07/25")
		assert.Empty(t, result(t, obs).Metadata["persona"].(Persona).Horoscope)
		assert.Zero(t, calls.Load())
	})

	t.Run("unknown sign asks for a birthdate", func(t *testing.T) {
		gen := &fakeGenerator{}
		set := newTestSet(gen, nil, store.NewMemoryAdapter())
		WithHoroscope(horoscopeServer(t, http.StatusOK, `{"horoscope":"unused"}`))(set)

		obs := runAll(t, set.Companion(), "u1", "read my horoscope please")
		assert.Empty(t, result(t, obs).Metadata["persona"].(Persona).Horoscope)
		assert.Contains(t, gen.prompt(0), "Ask for their birthdate")
	})
}
