package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/store"
	"github.com/spetersoncode/concierge/workflow"
)

// TasteStep enumerates the taste profiling steps.
type TasteStep int

const (
	TasteStart TasteStep = iota
	TasteLoadSession
	TasteNextOrFinalize
)

var tasteSteps = [...]struct {
	name   string
	status string
}{
	TasteStart:          {"start", ""},
	TasteLoadSession:    {"load-or-create-session", "Loading your questionnaire..."},
	TasteNextOrFinalize: {"select-next-question-or-finalize", ""},
}

func (s TasteStep) String() string { return tasteSteps[s].name }

// Status returns the progress message for the step.
func (s TasteStep) Status() (string, bool) {
	msg := tasteSteps[s].status
	return msg, msg != ""
}

// Question is one questionnaire item.
type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Questions is the fixed taste questionnaire, asked in order.
var Questions = []Question{
	{"favorite_metal", "Which metal do you prefer for jewelry? (gold: yellow, white, rose; silver; platinum; copper)", "material"},
	{"jewelry_type", "Which types of jewelry do you like? (rings, earrings, bracelets, necklaces or chains, pendants, brooches)", "type"},
	{"stone_preference", "Which stones do you love? (diamonds, emeralds, rubies, sapphires, pearls, natural gemstones, cubic zirconia, no stones)", "stones"},
	{"style_preference", "Which jewelry style do you like? (classic, minimalism, vintage, modern or avant-garde, ethnic, romantic, sporty)", "style"},
	{"occasions", "What occasions do you choose jewelry for? (everyday, evening, wedding, business meetings, holidays)", "occasions"},
	{"design_features", "Which design elements attract you? (simple geometric shapes, openwork or carved, 3D volume, enamel, inlaid)", "design"},
	{"brand_attitude", "How do you feel about jewelry brands? (famous luxury brands, little-known designers, handmade, the brand does not matter)", "brand"},
	{"symbolic_meaning", "Does the symbolic meaning of jewelry matter to you? (yes, a lot; somewhat; not much; not at all)", "meaning"},
	{"budget_range", "What budget do you usually set for jewelry? (up to 5k, 5-15k, 15-50k, 50-100k, 100k+)", "budget"},
	{"statement_vs_subtle", "Do you prefer bold statement pieces or delicate, subtle ones? (statement, mixed, subtle)", "presence"},
}

const tasteIntro = "Let's discover your jewelry taste! I'll ask you %d short questions.\n\n"

// TasteProfile is the analysis of a completed questionnaire.
type TasteProfile struct {
	MetalPreferences    []string `json:"metal_preferences"`
	StonePreferences    []string `json:"stone_preferences"`
	StyleCategory       string   `json:"style_category"`
	DesignPreferences   []string `json:"design_preferences"`
	OccasionsFit        []string `json:"occasions_fit"`
	JewelryTypes        []string `json:"jewelry_types"`
	OverallStyle        string   `json:"overall_style"`
	PersonalityTraits   []string `json:"personality_traits"`
	RecommendedPieces   []string `json:"recommended_pieces"`
	BrandRecommendation string   `json:"brand_recommendation"`
	Summary             string   `json:"summary"`
}

// TasteState is the state of one taste profiling run.
type TasteState struct {
	UserID       string
	InputMessage string

	Session concierge.TasteSession
	// Fresh is set when this run started a new questionnaire.
	Fresh bool
	// Answered is set when the message answered the pending question.
	Answered bool

	Profile  *TasteProfile
	Response string
	Step     TasteStep
}

// Advance sets the step cursor.
func (s TasteState) Advance(k TasteStep) TasteState {
	s.Step = k
	return s
}

// Taste returns the taste profiling workflow.
func (s *Set) Taste() workflow.Runner {
	return workflow.Bind(workflow.Binding[TasteState, TasteStep]{
		Name:  Taste,
		Graph: s.TasteGraph(),
		Init: func(in workflow.Input) TasteState {
			return TasteState{UserID: in.UserID, InputMessage: in.Message}
		},
		Status: TasteStep.Status,
		Output: func(st TasteState) workflow.Result {
			md := map[string]any{
				"progress": map[string]any{
					"answered":  len(st.Session.Answers),
					"total":     len(Questions),
					"completed": st.Session.Completed,
				},
			}
			if st.Profile != nil {
				md["taste_profile"] = st.Profile
			}
			return workflow.Result{Text: st.Response, Metadata: md}
		},
	})
}

// TasteGraph builds the taste profiling graph.
func (s *Set) TasteGraph() *workflow.Graph[TasteState, TasteStep] {
	return workflow.New[TasteState](TasteLoadSession, s.graphOptions()...).
		AddStep(TasteLoadSession, s.tasteLoadSession).
		AddStep(TasteNextOrFinalize, s.tasteNextOrFinalize).
		AddEdge(TasteLoadSession, TasteNextOrFinalize)
}

func (s *Set) tasteLoadSession(ctx context.Context, st TasteState) (TasteState, error) {
	sess, err := store.LoadTasteSession(ctx, s.repo, st.UserID)
	if err != nil {
		return st, err
	}
	if sess == nil || sess.Completed {
		st.Session = concierge.TasteSession{UserID: st.UserID, Answers: map[string]string{}}
		st.Fresh = true
		return st, nil
	}

	st.Session = *sess
	st.Session.Answers = maps.Clone(sess.Answers)
	if st.Session.Answers == nil {
		st.Session.Answers = map[string]string{}
	}
	answer := strings.TrimSpace(st.InputMessage)
	if pending := st.Session.QuestionIndex - 1; pending >= 0 && pending < len(Questions) && answer != "" {
		st.Session.Answers[Questions[pending].ID] = answer
		st.Answered = true
	}
	return st, nil
}

func (s *Set) tasteNextOrFinalize(ctx context.Context, st TasteState) (TasteState, error) {
	sess := st.Session
	switch {
	case !st.Fresh && !st.Answered && sess.QuestionIndex > 0:
		q := Questions[min(sess.QuestionIndex, len(Questions))-1]
		st.Response = fmt.Sprintf("Question %d of %d: %s", sess.QuestionIndex, len(Questions), q.Text)
		return st, nil

	case sess.QuestionIndex < len(Questions):
		q := Questions[sess.QuestionIndex]
		sess.QuestionIndex++
		if err := store.SaveTasteSession(ctx, s.repo, sess); err != nil {
			return st, err
		}
		st.Session = sess
		st.Response = fmt.Sprintf("Question %d of %d: %s", sess.QuestionIndex, len(Questions), q.Text)
		if st.Fresh {
			st.Response = fmt.Sprintf(tasteIntro, len(Questions)) + st.Response
		}
		return st, nil
	}

	profile := AnalyzeTaste(sess.Answers)
	out, err := s.gen.Generate(ctx, tasteSummaryPrompt(profile), concierge.WithTemperature(0.7))
	if err != nil {
		return st, err
	}

	sess.Completed = true
	sess.Traits = profile.PersonalityTraits
	if err := store.SaveTasteSession(ctx, s.repo, sess); err != nil {
		return st, err
	}
	if err := s.saveTasteProfile(ctx, st.UserID, sess.Answers, profile); err != nil {
		return st, err
	}

	st.Session = sess
	st.Profile = &profile
	st.Response = cleanResponse(out)
	return st, nil
}

// saveTasteProfile folds the questionnaire answers into the stored
// customer profile.
func (s *Set) saveTasteProfile(ctx context.Context, userID string, answers map[string]string, tp TasteProfile) error {
	p, err := store.LoadProfile(ctx, s.repo, userID)
	if err != nil {
		return err
	}
	if p == nil {
		p = &concierge.Profile{UserID: userID}
	}
	prefs := matchPreferences(strings.Join([]string{
		answers["favorite_metal"], answers["occasions"], answers["budget_range"],
	}, ". "))
	prefs.Category = nil
	if tp.StyleCategory != "" {
		style := strings.ToLower(tp.StyleCategory)
		prefs.StylePreference = &style
	}
	return store.SaveProfile(ctx, s.repo, p.Merge(prefs))
}

type traitRule struct {
	stems []string
	trait string
}

// firstMatch returns the first rule whose stems appear in text.
func firstMatch(text string, rules []traitRule) (traitRule, bool) {
	for _, r := range rules {
		if mentions(text, r.stems...) {
			return r, true
		}
	}
	return traitRule{}, false
}

var (
	metalTraits = []traitRule{
		{[]string{"yellow"}, "Classic, traditional"},
		{[]string{"white", "silver", "platinum"}, "Modern, fresh"},
		{[]string{"rose", "pink"}, "Romantic, feminine"},
		{[]string{"copper"}, "Original, alternative"},
	}
	typeDesigns = []traitRule{
		{[]string{"ring"}, "Focus on hand jewelry"},
		{[]string{"earring"}, "Attention to the face"},
		{[]string{"bracelet"}, "Dynamic style"},
		{[]string{"necklace", "chain"}, "Focus on the neckline"},
	}
	stoneTraits = []traitRule{
		{[]string{"diamond"}, "Elegant, luxurious"},
		{[]string{"pearl"}, "Refined, aristocratic"},
		{[]string{"emerald", "rub", "sapphire"}, "Bold, vivid character"},
		{[]string{"natural", "gemstone"}, "Eco-conscious, natural"},
		{[]string{"no stone", "without", "none", "plain"}, "Minimalist, simple"},
	}
	styleTraits = []struct {
		traitRule
		category string
	}{
		{traitRule{[]string{"classic"}, "Conservative, proven"}, "Classic"},
		{traitRule{[]string{"minimal"}, "Laconic, functional"}, "Minimalism"},
		{traitRule{[]string{"vintage"}, "Nostalgic, historical"}, "Vintage"},
		{traitRule{[]string{"modern", "avant"}, "Progressive, innovative"}, "Modern"},
		{traitRule{[]string{"ethnic"}, "Cultured, multifaceted"}, "Ethnic"},
		{traitRule{[]string{"romantic"}, "Sensual, tender"}, "Romantic"},
	}
	occasionTraits = []traitRule{
		{[]string{"everyday", "daily"}, "Practical"},
		{[]string{"evening", "holiday"}, "Loves luxury"},
	}
	designTraits = []traitRule{
		{[]string{"openwork", "carved"}, "Meticulous, attentive to detail"},
		{[]string{"3d", "volume"}, "Bold in expression"},
		{[]string{"enamel"}, "Loves color, youthful"},
	}
	brandAdvice = []traitRule{
		{[]string{"expensive", "famous", "luxury"}, "Luxury houses (Cartier, Van Cleef & Arpels, Harry Winston)"},
		{[]string{"designer", "little-known", "independent"}, "Independent designers and boutique brands"},
		{[]string{"handmade", "hand"}, "Handmade artisans and signature pieces"},
	}
	budgetTraits = []traitRule{
		{[]string{"up to 5k", "under 5k", "5k"}, "Economical, careful"},
		{[]string{"50k", "100k"}, "Affluent, luxurious"},
	}
	presenceStyles = []struct {
		traitRule
		overall string
	}{
		{traitRule{[]string{"statement", "bold", "bright", "noticeable"}, "Confident, extroverted"}, "Statement, attention-grabbing"},
		{traitRule{[]string{"mix", "both"}, "Flexible, adaptive"}, "Hybrid, adaptive"},
	}
	pieceRules = []struct {
		stems  []string
		pieces []string
	}{
		{[]string{"luxur", "elegan"}, []string{"Classic diamond rings", "Pearl necklaces"}},
		{[]string{"minimalis", "laconic"}, []string{"Geometric pieces", "Minimalist stud earrings"}},
		{[]string{"romantic", "tender"}, []string{"Delicate heart pendants", "Openwork bracelets"}},
		{[]string{"alternative", "original"}, []string{"Signature pieces from independent designers", "Jewelry in unusual materials"}},
		{[]string{"traditional", "classic"}, []string{"Classic hoops", "Sleek chains"}},
	}
)

// AnalyzeTaste derives a taste profile from questionnaire answers keyed
// by question ID. Unanswered questions are skipped.
func AnalyzeTaste(answers map[string]string) TasteProfile {
	tp := TasteProfile{
		MetalPreferences:  []string{},
		StonePreferences:  []string{},
		DesignPreferences: []string{},
		OccasionsFit:      []string{},
		JewelryTypes:      []string{},
		PersonalityTraits: []string{},
		RecommendedPieces: []string{},
	}
	answer := func(id string) (string, bool) {
		v, ok := answers[id]
		return strings.ToLower(v), ok && v != ""
	}
	addTrait := func(t string) {
		if !slices.Contains(tp.PersonalityTraits, t) {
			tp.PersonalityTraits = append(tp.PersonalityTraits, t)
		}
	}

	if a, ok := answer("favorite_metal"); ok {
		tp.MetalPreferences = append(tp.MetalPreferences, answers["favorite_metal"])
		if r, ok := firstMatch(a, metalTraits); ok {
			addTrait(r.trait)
		}
	}
	if a, ok := answer("jewelry_type"); ok {
		tp.JewelryTypes = append(tp.JewelryTypes, answers["jewelry_type"])
		for _, r := range typeDesigns {
			if mentions(a, r.stems...) {
				tp.DesignPreferences = append(tp.DesignPreferences, r.trait)
			}
		}
	}
	if a, ok := answer("stone_preference"); ok {
		tp.StonePreferences = append(tp.StonePreferences, answers["stone_preference"])
		if r, ok := firstMatch(a, stoneTraits); ok {
			addTrait(r.trait)
		}
	}
	if a, ok := answer("style_preference"); ok {
		for _, r := range styleTraits {
			if mentions(a, r.stems...) {
				tp.StyleCategory = r.category
				addTrait(r.trait)
				break
			}
		}
	}
	if a, ok := answer("occasions"); ok {
		tp.OccasionsFit = append(tp.OccasionsFit, answers["occasions"])
		for _, r := range occasionTraits {
			if mentions(a, r.stems...) {
				addTrait(r.trait)
			}
		}
	}
	if a, ok := answer("design_features"); ok {
		tp.DesignPreferences = append(tp.DesignPreferences, answers["design_features"])
		if r, ok := firstMatch(a, designTraits); ok {
			addTrait(r.trait)
		}
	}
	if a, ok := answer("brand_attitude"); ok {
		tp.BrandRecommendation = "Any makers with interesting work"
		if r, ok := firstMatch(a, brandAdvice); ok {
			tp.BrandRecommendation = r.trait
		}
	}
	if a, ok := answer("budget_range"); ok {
		if r, ok := firstMatch(a, budgetTraits); ok {
			addTrait(r.trait)
		}
	}
	if a, ok := answer("statement_vs_subtle"); ok {
		tp.OverallStyle = "Delicate, refined"
		trait := "Modest, subtle taste"
		for _, r := range presenceStyles {
			if mentions(a, r.stems...) {
				tp.OverallStyle = r.overall
				trait = r.trait
				break
			}
		}
		addTrait(trait)
	}

	traits := strings.ToLower(strings.Join(tp.PersonalityTraits, ", "))
	for _, r := range pieceRules {
		if !mentions(traits, r.stems...) {
			continue
		}
		for _, p := range r.pieces {
			if !slices.Contains(tp.RecommendedPieces, p) {
				tp.RecommendedPieces = append(tp.RecommendedPieces, p)
			}
		}
	}

	var summary []string
	if len(tp.MetalPreferences) > 0 {
		summary = append(summary, "Metal: "+tp.MetalPreferences[0])
	}
	if tp.StyleCategory != "" {
		summary = append(summary, "Style: "+tp.StyleCategory)
	}
	if tp.OverallStyle != "" {
		summary = append(summary, "Presence: "+tp.OverallStyle)
	}
	tp.Summary = strings.Join(summary, " | ")
	return tp
}

func tasteSummaryPrompt(tp TasteProfile) string {
	raw, _ := json.MarshalIndent(tp, "", "  ")
	return fmt.Sprintf(`You are a friendly jewelry stylist. The customer just finished a taste questionnaire.
Here is the analysis of their answers:

%s

Write a short, warm summary of their jewelry taste (3-5 sentences), name their key personality traits
and suggest the recommended pieces. Respond in the same language as the questionnaire answers.`, raw)
}
