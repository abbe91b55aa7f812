package specialist

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/store"
	"github.com/spetersoncode/concierge/workflow"
)

var sampleAnswers = []string{
	"Rose gold mostly",
	"Rings and earrings",
	"Pearls",
	"Romantic",
	"Everyday and evening",
	"Openwork details",
	"Handmade pieces",
	"Somewhat",
	"15-50k",
	"Subtle and delicate",
}

func TestTaste_FullQuestionnaire(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryAdapter()
	gen := &fakeGenerator{respond: func(string) (string, error) { return "You love romantic, refined pieces.", nil }}
	runner := newTestSet(gen, nil, repo).Taste()

	obs := runAll(t, runner, "u1", "I want to find my style")
	assert.Equal(t, []string{"load-or-create-session", "select-next-question-or-finalize"}, stepNames(obs))
	assert.Equal(t, []string{"Loading your questionnaire..."}, statuses(obs))
	res := result(t, obs)
	assert.True(t, strings.HasPrefix(res.Text, "Let's discover your jewelry taste!"))
	assert.Contains(t, res.Text, "Question 1 of 10: "+Questions[0].Text)
	assert.Equal(t, map[string]any{"answered": 0, "total": 10, "completed": false}, res.Metadata["progress"])

	for i, answer := range sampleAnswers {
		res = result(t, runAll(t, runner, "u1", answer))
		if i < len(Questions)-1 {
			assert.Equal(t, "Question "+strconv.Itoa(i+2)+" of 10: "+Questions[i+1].Text, res.Text)
			assert.NotContains(t, res.Metadata, "taste_profile")
		}
	}

	assert.Equal(t, "You love romantic, refined pieces.", res.Text)
	assert.Equal(t, map[string]any{"answered": 10, "total": 10, "completed": true}, res.Metadata["progress"])
	tp := res.Metadata["taste_profile"].(*TasteProfile)
	assert.Equal(t, "Romantic", tp.StyleCategory)
	assert.Equal(t, "Metal: Rose gold mostly | Style: Romantic | Presence: Delicate, refined", tp.Summary)
	assert.Equal(t, 1, gen.calls())

	sess, err := store.LoadTasteSession(ctx, repo, "u1")
	require.NoError(t, err)
	assert.True(t, sess.Completed)
	assert.Equal(t, "Pearls", sess.Answers["stone_preference"])
	assert.Equal(t, tp.PersonalityTraits, sess.Traits)

	profile, err := store.LoadProfile(ctx, repo, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "romantic", profile.StylePreference)
	assert.Equal(t, []string{"rose_gold"}, profile.PreferredMaterials)
	assert.Equal(t, []string{"everyday", "formal"}, profile.OccasionTypes)

	res = result(t, runAll(t, runner, "u1", "again please"))
	assert.Contains(t, res.Text, "Question 1 of 10", "completed questionnaire restarts")
}

func TestTaste_EmptyAnswerRepeatsQuestion(t *testing.T) {
	repo := store.NewMemoryAdapter()
	runner := newTestSet(&fakeGenerator{}, nil, repo).Taste()

	result(t, runAll(t, runner, "u2", "start"))
	res := result(t, runAll(t, runner, "u2", "   "))
	assert.Equal(t, "Question 1 of 10: "+Questions[0].Text, res.Text)

	sess, err := store.LoadTasteSession(context.Background(), repo, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.QuestionIndex)
	assert.Empty(t, sess.Answers)
}

func TestTaste_GenerationFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryAdapter()
	answers := map[string]string{}
	for i, q := range Questions {
		answers[q.ID] = sampleAnswers[i]
	}
	require.NoError(t, store.SaveTasteSession(ctx, repo, concierge.TasteSession{
		UserID: "u3", QuestionIndex: len(Questions), Answers: answers,
	}))
	gen := &fakeGenerator{respond: func(string) (string, error) {
		return "", concierge.NewTransientError(concierge.ErrGeneration, "overloaded", 529, nil)
	}}

	obs := runAll(t, newTestSet(gen, nil, repo).Taste(), "u3", "Subtle")
	last := obs[len(obs)-1]
	assert.ErrorIs(t, last.Err, concierge.ErrGeneration)
	var aborted *workflow.AbortedError
	require.ErrorAs(t, last.Err, &aborted)
	assert.Equal(t, "load-or-create-session", aborted.LastCompleted)

	sess, err := store.LoadTasteSession(ctx, repo, "u3")
	require.NoError(t, err)
	assert.False(t, sess.Completed)
}

func TestAnalyzeTaste(t *testing.T) {
	tp := AnalyzeTaste(map[string]string{
		"favorite_metal":      "Yellow gold",
		"jewelry_type":        "Necklaces and rings",
		"stone_preference":    "Diamonds",
		"style_preference":    "Classic",
		"brand_attitude":      "Famous luxury brands",
		"budget_range":        "100k+",
		"statement_vs_subtle": "Statement pieces",
	})

	assert.Equal(t, "Classic", tp.StyleCategory)
	assert.Equal(t, []string{
		"Classic, traditional",
		"Elegant, luxurious",
		"Conservative, proven",
		"Affluent, luxurious",
		"Confident, extroverted",
	}, tp.PersonalityTraits)
	assert.Equal(t, []string{"Focus on hand jewelry", "Focus on the neckline"}, tp.DesignPreferences)
	assert.Equal(t, "Luxury houses (Cartier, Van Cleef & Arpels, Harry Winston)", tp.BrandRecommendation)
	assert.Equal(t, "Statement, attention-grabbing", tp.OverallStyle)
	assert.Equal(t, []string{"Classic diamond rings", "Pearl necklaces", "Classic hoops", "Sleek chains"}, tp.RecommendedPieces)
	assert.Equal(t, "Metal: Yellow gold | Style: Classic | Presence: Statement, attention-grabbing", tp.Summary)

	empty := AnalyzeTaste(nil)
	assert.Empty(t, empty.PersonalityTraits)
	assert.Empty(t, empty.Summary)
}
