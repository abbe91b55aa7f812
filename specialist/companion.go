package specialist

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/horoscope"
	"github.com/spetersoncode/concierge/store"
	"github.com/spetersoncode/concierge/workflow"
)

// CompanionStep enumerates the companion chat steps.
type CompanionStep int

const (
	CompanionStart CompanionStep = iota
	CompanionLoadProfile
	CompanionDerivePersona
	CompanionGenerateResponse
)

var companionSteps = [...]struct {
	name   string
	status string
}{
	CompanionStart:            {"start", ""},
	CompanionLoadProfile:      {"load-profile", "Getting to know you..."},
	CompanionDerivePersona:    {"derive-persona-attributes", ""},
	CompanionGenerateResponse: {"generate-response", "Thinking of a reply..."},
}

func (s CompanionStep) String() string { return companionSteps[s].name }

// Status returns the progress message for the step.
func (s CompanionStep) Status() (string, bool) {
	msg := companionSteps[s].status
	return msg, msg != ""
}

// Persona is what the companion knows about the user for one reply.
type Persona struct {
	ZodiacSign string `json:"zodiac_sign"`
	Birthdate  string `json:"birthdate,omitempty"`
	Tone       string `json:"tone"`
	// Horoscope is today's reading from the horoscope service. It is empty
	// unless the user asked and the lookup succeeded.
	Horoscope string `json:"horoscope,omitempty"`
}

// Horoscope looks up today's reading for a zodiac sign.
type Horoscope interface {
	Daily(ctx context.Context, sign string) (horoscope.Reading, error)
}

// CompanionState is the state of one companion chat run.
type CompanionState struct {
	UserID       string
	InputMessage string

	Profile *concierge.Profile
	History []concierge.ConsultationRecord
	Persona Persona
	// HoroscopeAsked is set when the message asks for a horoscope.
	HoroscopeAsked bool

	Response string
	Step     CompanionStep
}

// Advance sets the step cursor.
func (s CompanionState) Advance(k CompanionStep) CompanionState {
	s.Step = k
	return s
}

const companionSystemPrompt = `You are a warm, friendly and supportive companion who talks like a close friend.

How you talk:
- With empathy and care, never preachy
- Naturally, without formal language
- You ask follow-up questions and remember details
- You can talk about relationships, everyday life, feelings, plans, dreams and jewelry

Rules:
- Keep replies short (usually 2-6 sentences) but warm
- Match the user's tone
- Never invent a horoscope; you may mention the user's zodiac sign when it is known
- Respond in the same language as the user's message`

// Companion returns the companion chat workflow.
func (s *Set) Companion() workflow.Runner {
	return workflow.Bind(workflow.Binding[CompanionState, CompanionStep]{
		Name:  Companion,
		Graph: s.CompanionGraph(),
		Init: func(in workflow.Input) CompanionState {
			return CompanionState{UserID: in.UserID, InputMessage: in.Message}
		},
		Status: CompanionStep.Status,
		Output: func(st CompanionState) workflow.Result {
			return workflow.Result{
				Text:     st.Response,
				Metadata: map[string]any{"persona": st.Persona},
			}
		},
	})
}

// CompanionGraph builds the companion chat graph.
func (s *Set) CompanionGraph() *workflow.Graph[CompanionState, CompanionStep] {
	return workflow.New[CompanionState](CompanionLoadProfile, s.graphOptions()...).
		AddStep(CompanionLoadProfile, s.companionLoadProfile).
		AddStep(CompanionDerivePersona, s.companionDerivePersona).
		AddStep(CompanionGenerateResponse, s.companionRespond).
		AddEdge(CompanionLoadProfile, CompanionDerivePersona).
		AddEdge(CompanionDerivePersona, CompanionGenerateResponse)
}

func (s *Set) companionLoadProfile(ctx context.Context, st CompanionState) (CompanionState, error) {
	var (
		profile *concierge.Profile
		history []concierge.ConsultationRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = store.LoadProfile(gctx, s.repo, st.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = store.History(gctx, s.repo, st.UserID, DefaultHistoryLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return st, err
	}
	st.Profile = profile
	st.History = history
	return st, nil
}

func (s *Set) companionDerivePersona(ctx context.Context, st CompanionState) (CompanionState, error) {
	p := Persona{ZodiacSign: ZodiacUnknown, Tone: detectTone(st.InputMessage)}

	if date := findBirthdate(st.InputMessage); date != "" {
		p.Birthdate = date
	} else if st.Profile != nil {
		p.Birthdate = st.Profile.Birthdate
	}
	if p.Birthdate != "" {
		p.ZodiacSign = ZodiacSign(p.Birthdate)
	}
	if p.ZodiacSign == ZodiacUnknown && st.Profile != nil && st.Profile.ZodiacSign != "" {
		p.ZodiacSign = st.Profile.ZodiacSign
	}

	st.HoroscopeAsked = asksForHoroscope(st.InputMessage)
	if st.HoroscopeAsked && p.ZodiacSign != ZodiacUnknown && s.horoscope != nil {
		reading, err := s.horoscope.Daily(ctx, p.ZodiacSign)
		if err != nil {
			s.logger.Warn("horoscope unavailable", "user_id", st.UserID, "sign", p.ZodiacSign, "error", err)
		} else {
			p.Horoscope = reading.Text
		}
	}

	st.Persona = p
	return st, nil
}

func asksForHoroscope(message string) bool {
	return mentions(strings.ToLower(message), "horoscope", "astrolog", "zodiac")
}

func (s *Set) companionRespond(ctx context.Context, st CompanionState) (CompanionState, error) {
	out, err := s.gen.Generate(ctx, companionPrompt(st),
		concierge.WithSystem(companionSystemPrompt), concierge.WithTemperature(0.8))
	if err != nil {
		return st, err
	}
	st.Response = cleanResponse(out)
	return st, nil
}

func companionPrompt(st CompanionState) string {
	var b strings.Builder
	if st.Persona.ZodiacSign != ZodiacUnknown {
		fmt.Fprintf(&b, "The user's zodiac sign: %s\n", st.Persona.ZodiacSign)
	}
	switch {
	case st.Persona.Horoscope != "":
		fmt.Fprintf(&b, "Today's horoscope from the horoscope service (share it, do not rewrite its meaning):\n%s\n", st.Persona.Horoscope)
	case st.HoroscopeAsked && st.Persona.ZodiacSign == ZodiacUnknown:
		b.WriteString("The user wants a horoscope but their sign is unknown. Ask for their birthdate.\n")
	case st.HoroscopeAsked:
		b.WriteString("The horoscope service is unavailable right now. Say so kindly and do not make up a reading.\n")
	}
	fmt.Fprintf(&b, "The user's mood seems %s. Answer in a matching tone.\n", st.Persona.Tone)
	if st.Profile != nil && st.Profile.StylePreference != "" {
		fmt.Fprintf(&b, "The user likes %s jewelry.\n", st.Profile.StylePreference)
	}
	if len(st.History) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, r := range st.History {
			fmt.Fprintf(&b, "User: %s\nYou: %s\n", r.Message, r.Response)
		}
	}
	fmt.Fprintf(&b, "\nUser: %s\nYou:", st.InputMessage)
	return b.String()
}

// ZodiacUnknown is the sign reported for an unparseable birthdate.
const ZodiacUnknown = "unknown"

var zodiacBounds = []struct {
	month, day int // first day of the sign
	sign       string
}{
	{1, 20, "aquarius"},
	{2, 19, "pisces"},
	{3, 21, "aries"},
	{4, 20, "taurus"},
	{5, 21, "gemini"},
	{6, 21, "cancer"},
	{7, 23, "leo"},
	{8, 23, "virgo"},
	{9, 23, "libra"},
	{10, 23, "scorpio"},
	{11, 22, "sagittarius"},
	{12, 22, "capricorn"},
}

// ZodiacSign returns the western zodiac sign for a birthdate in MM/DD or
// YYYY-MM-DD form, or ZodiacUnknown.
func ZodiacSign(birthdate string) string {
	month, day, ok := parseMonthDay(birthdate)
	if !ok {
		return ZodiacUnknown
	}
	sign := "capricorn"
	for _, b := range zodiacBounds {
		if month > b.month || (month == b.month && day >= b.day) {
			sign = b.sign
		}
	}
	return sign
}

func parseMonthDay(s string) (month, day int, ok bool) {
	s = strings.TrimSpace(s)
	var parts []string
	switch {
	case strings.Contains(s, "-"):
		parts = strings.Split(s, "-")
		if len(parts) == 3 {
			parts = parts[1:]
		}
	case strings.Contains(s, "/"):
		parts = strings.Split(s, "/")
	}
	if len(parts) != 2 {
		return 0, 0, false
	}
	m, err1 := strconv.Atoi(parts[0])
	d, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, 0, false
	}
	return m, d, true
}

var birthdatePattern = regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}/\d{1,2})\b`)

func findBirthdate(message string) string {
	m := birthdatePattern.FindString(message)
	if m == "" || ZodiacSign(m) == ZodiacUnknown {
		return ""
	}
	return m
}

var toneWords = []struct {
	tone  string
	words []string
}{
	{"supportive", []string{"sad", "tired", "stressed", "upset", "lonely", "anxious", "worried", "bad day"}},
	{"playful", []string{"haha", "lol", "fun", "excited", "yay", "awesome"}},
}

// detectTone picks a reply tone from the user's message.
func detectTone(message string) string {
	text := strings.ToLower(message)
	for _, t := range toneWords {
		for _, w := range t.words {
			if containsWord(text, w) {
				return t.tone
			}
		}
	}
	if strings.Contains(message, "!") {
		return "playful"
	}
	return "warm"
}
