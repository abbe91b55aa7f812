package specialist

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/store"
	"github.com/spetersoncode/concierge/workflow"
)

// ConsultationStep enumerates the consultation steps.
type ConsultationStep int

const (
	ConsultationStart ConsultationStep = iota
	ConsultLoadProfile
	ConsultGatherPreferences
	ConsultUseExistingPreferences
	ConsultRetrieveProducts
	ConsultGenerateResponse
	ConsultPersistRecord
)

var consultationSteps = [...]struct {
	name   string
	status string
}{
	ConsultationStart:             {"start", ""},
	ConsultLoadProfile:            {"load-profile", "Loading your profile..."},
	ConsultGatherPreferences:      {"gather-preferences", "Understanding your preferences..."},
	ConsultUseExistingPreferences: {"use-existing-preferences", "Reviewing your saved preferences..."},
	ConsultRetrieveProducts:       {"retrieve-products", "Searching the catalog..."},
	ConsultGenerateResponse:       {"generate-response", "Preparing your recommendations..."},
	ConsultPersistRecord:          {"persist-record", ""},
}

func (s ConsultationStep) String() string { return consultationSteps[s].name }

// Status returns the progress message for the step.
func (s ConsultationStep) Status() (string, bool) {
	msg := consultationSteps[s].status
	return msg, msg != ""
}

// ConsultationState is the state of one consultation run.
type ConsultationState struct {
	UserID       string
	InputMessage string

	// HasProfile reports whether a profile was stored before this run.
	HasProfile bool
	// Profile is the stored profile merged with the extracted preferences.
	Profile     concierge.Profile
	Preferences concierge.Preferences

	Products []concierge.Product
	History  []concierge.ConsultationRecord

	Response        string
	Recommendations []concierge.Product
	RecordID        string

	Step ConsultationStep
}

// Advance sets the step cursor.
func (s ConsultationState) Advance(k ConsultationStep) ConsultationState {
	s.Step = k
	return s
}

const consultantSystemPrompt = `You are an expert jewelry consultant with deep knowledge of precious metals, gemstones and fashion trends.
Help the customer find the right jewelry by understanding their style, budget and occasion.

Respond only with your customer-facing message. Do not include internal reasoning or [THINK] blocks.

Guidelines:
1. Be warm, friendly and professional
2. Ask clarifying questions when preferences are unclear
3. Recommend 3-5 specific products from the catalog matches and explain why each fits
4. Respect the budget
5. Suggest complementary pieces when appropriate
6. Share care and material advice

If the customer has not shared preferences yet, gently ask about the type of jewelry, the occasion,
their style, their budget, preferred metals and skin tone.`

const extractionPrompt = `Extract jewelry preferences from the following customer message.
Return ONLY valid JSON with these fields (use null for missing info):
{
    "style_preference": "classic|modern|vintage|minimalist|luxury|null",
    "budget_min": number or null,
    "budget_max": number or null,
    "preferred_materials": ["gold", "silver", "platinum", "white_gold"] or [],
    "skin_tone": "warm|cool|neutral|null",
    "occasion_types": ["everyday", "formal", "wedding", "gift"] or [],
    "category": "rings|necklaces|bracelets|earrings|pendants|null"
}

Customer message: %q

JSON:`

// Consultation returns the consultation workflow.
func (s *Set) Consultation() workflow.Runner {
	return workflow.Bind(workflow.Binding[ConsultationState, ConsultationStep]{
		Name:  Consultation,
		Graph: s.ConsultationGraph(),
		Init: func(in workflow.Input) ConsultationState {
			return ConsultationState{UserID: in.UserID, InputMessage: in.Message}
		},
		Status: ConsultationStep.Status,
		Output: func(st ConsultationState) workflow.Result {
			return workflow.Result{
				Text: st.Response,
				Metadata: map[string]any{
					"recommendations":       st.Recommendations,
					"extracted_preferences": st.Preferences,
					"has_profile":           st.HasProfile,
				},
			}
		},
	})
}

// ConsultationGraph builds the consultation graph.
func (s *Set) ConsultationGraph() *workflow.Graph[ConsultationState, ConsultationStep] {
	return workflow.New[ConsultationState](ConsultLoadProfile, s.graphOptions()...).
		AddStep(ConsultLoadProfile, s.consultLoadProfile).
		AddStep(ConsultGatherPreferences, s.consultGatherPreferences).
		AddStep(ConsultUseExistingPreferences, s.consultUseExistingPreferences).
		AddStep(ConsultRetrieveProducts, s.consultRetrieveProducts).
		AddStep(ConsultGenerateResponse, s.consultGenerateResponse).
		AddStep(ConsultPersistRecord, s.consultPersistRecord).
		AddBranch(ConsultLoadProfile,
			func(st ConsultationState) bool { return !st.HasProfile },
			ConsultGatherPreferences, ConsultUseExistingPreferences).
		AddEdge(ConsultGatherPreferences, ConsultRetrieveProducts).
		AddEdge(ConsultUseExistingPreferences, ConsultRetrieveProducts).
		AddEdge(ConsultRetrieveProducts, ConsultGenerateResponse).
		AddEdge(ConsultGenerateResponse, ConsultPersistRecord)
}

func (s *Set) consultLoadProfile(ctx context.Context, st ConsultationState) (ConsultationState, error) {
	p, err := store.LoadProfile(ctx, s.repo, st.UserID)
	if err != nil {
		return st, err
	}
	if p == nil {
		st.Profile = concierge.Profile{UserID: st.UserID}
		return st, nil
	}
	st.HasProfile = true
	st.Profile = *p
	return st, nil
}

func (s *Set) consultGatherPreferences(ctx context.Context, st ConsultationState) (ConsultationState, error) {
	out, err := s.gen.Generate(ctx, fmt.Sprintf(extractionPrompt, st.InputMessage),
		concierge.WithTemperature(0.3), concierge.WithJSON())
	if err != nil {
		return st, err
	}
	var prefs concierge.Preferences
	if err := decodeObject(out, &prefs); err != nil {
		s.logger.Warn("unparseable preference extraction", "user_id", st.UserID, "error", err)
		prefs = concierge.Preferences{}
	}
	st.Preferences = normalizePreferences(prefs)
	st.Profile = st.Profile.Merge(st.Preferences)
	return st, nil
}

func (s *Set) consultUseExistingPreferences(_ context.Context, st ConsultationState) (ConsultationState, error) {
	st.Preferences = matchPreferences(st.InputMessage)
	st.Profile = st.Profile.Merge(st.Preferences)
	return st, nil
}

func (s *Set) consultRetrieveProducts(ctx context.Context, st ConsultationState) (ConsultationState, error) {
	query := searchQuery(st.InputMessage, st.Profile)
	opts := searchFilters(st.Profile, s.minScore)

	var (
		products []concierge.Product
		history  []concierge.ConsultationRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.ret.Search(gctx, query, s.searchLimit, opts...)
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

	st.Products = products
	st.History = history
	return st, nil
}

func (s *Set) consultGenerateResponse(ctx context.Context, st ConsultationState) (ConsultationState, error) {
	out, err := s.gen.Generate(ctx, consultationPrompt(st),
		concierge.WithSystem(consultantSystemPrompt), concierge.WithTemperature(0.7))
	if err != nil {
		return st, err
	}
	st.Response = cleanResponse(out)

	n := min(len(st.Products), DefaultRecommendations)
	st.Recommendations = append([]concierge.Product{}, st.Products[:n]...)
	return st, nil
}

func (s *Set) consultPersistRecord(ctx context.Context, st ConsultationState) (ConsultationState, error) {
	rec := concierge.ConsultationRecord{
		ID:        s.newID(),
		UserID:    st.UserID,
		Workflow:  Consultation,
		Message:   st.InputMessage,
		Response:  st.Response,
		CreatedAt: s.now().UTC(),
	}
	for _, p := range st.Recommendations {
		rec.Recommendations = append(rec.Recommendations, p.ID)
	}
	if !st.Preferences.IsEmpty() {
		prefs := st.Preferences
		rec.PreferenceUpdates = &prefs
	}
	if err := store.SaveRecord(ctx, s.repo, rec); err != nil {
		return st, err
	}
	if !st.Preferences.IsEmpty() {
		if err := store.SaveProfile(ctx, s.repo, st.Profile); err != nil {
			return st, err
		}
	}
	st.RecordID = rec.ID
	return st, nil
}

func consultationPrompt(st ConsultationState) string {
	var b strings.Builder
	b.WriteString("Customer profile:\n")
	b.WriteString(describeProfile(st.Profile))

	b.WriteString("\nCatalog matches:\n")
	if len(st.Products) == 0 {
		b.WriteString("No matching products were found.\n")
	}
	for i, p := range st.Products {
		fmt.Fprintf(&b, "%d. %s (%s, %s) - %.0f", i+1, p.Name, p.Category, p.Material, p.Price)
		if p.Description != "" {
			fmt.Fprintf(&b, ": %s", p.Description)
		}
		b.WriteString("\n")
	}

	if len(st.History) > 0 {
		b.WriteString("\nPrevious conversation:\n")
		for _, r := range st.History {
			fmt.Fprintf(&b, "Customer: %s\nConsultant: %s\n", r.Message, r.Response)
		}
	}

	fmt.Fprintf(&b, "\nCustomer: %s\n\nConsultant:", st.InputMessage)
	return b.String()
}

func describeProfile(p concierge.Profile) string {
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, "- "+label+": "+v)
		}
	}
	add("Style", p.StylePreference)
	add("Category", p.Category)
	add("Materials", strings.Join(p.PreferredMaterials, ", "))
	add("Skin tone", p.SkinTone)
	add("Occasions", strings.Join(p.OccasionTypes, ", "))
	if p.BudgetMin > 0 || p.BudgetMax > 0 {
		add("Budget", fmt.Sprintf("%.0f - %.0f", p.BudgetMin, p.BudgetMax))
	}
	if len(lines) == 0 {
		return "- No preferences shared yet\n"
	}
	return strings.Join(lines, "\n") + "\n"
}

func searchQuery(message string, p concierge.Profile) string {
	parts := []string{message}
	if p.StylePreference != "" {
		parts = append(parts, p.StylePreference)
	}
	if p.Category != "" {
		parts = append(parts, p.Category)
	}
	parts = append(parts, p.PreferredMaterials...)
	return strings.Join(parts, " ")
}

func searchFilters(p concierge.Profile, minScore float64) []concierge.SearchOption {
	opts := []concierge.SearchOption{concierge.WithMinScore(minScore)}
	if len(p.PreferredMaterials) > 0 {
		opts = append(opts, concierge.WithMaterials(p.PreferredMaterials...))
	}
	if p.BudgetMax > 0 {
		opts = append(opts, concierge.WithPriceRange(p.BudgetMin, p.BudgetMax))
	}
	return opts
}

// normalizePreferences drops placeholder values models emit for
// missing fields.
func normalizePreferences(p concierge.Preferences) concierge.Preferences {
	blank := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		if v == "" || strings.EqualFold(v, "null") {
			return nil
		}
		return &v
	}
	positive := func(f *float64) *float64 {
		if f == nil || *f <= 0 {
			return nil
		}
		return f
	}
	p.StylePreference = blank(p.StylePreference)
	p.SkinTone = blank(p.SkinTone)
	p.Category = blank(p.Category)
	p.BudgetMin = positive(p.BudgetMin)
	p.BudgetMax = positive(p.BudgetMax)
	return p
}

var (
	styleTerms    = []string{"classic", "modern", "vintage", "minimalist", "luxury"}
	skinToneTerms = []string{"warm", "cool", "neutral"}
	materialTerms = []struct{ word, value string }{
		{"white gold", "white_gold"},
		{"rose gold", "rose_gold"},
		{"gold", "gold"},
		{"silver", "silver"},
		{"platinum", "platinum"},
		{"titanium", "titanium"},
	}
	categoryTerms = []struct{ word, value string }{
		{"rings?", "rings"},
		{"necklaces?", "necklaces"},
		{"bracelets?", "bracelets"},
		{"earrings?", "earrings"},
		{"pendants?", "pendants"},
	}
	occasionTerms = []struct{ word, value string }{
		{"everyday", "everyday"},
		{"daily", "everyday"},
		{"formal", "formal"},
		{"evening", "formal"},
		{"wedding", "wedding"},
		{"engagement", "wedding"},
		{"gift", "gift"},
		{"present", "gift"},
	}
	budgetMaxPattern = regexp.MustCompile(`(?:under|below|up to|less than|max(?:imum)?|within)\s*\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?\b`)
	budgetMinPattern = regexp.MustCompile(`(?:over|above|more than|at least|from)\s*\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?\b`)
)

// matchPreferences extracts preferences from a message with fixed
// keyword tables.
func matchPreferences(message string) concierge.Preferences {
	text := strings.ToLower(message)
	var p concierge.Preferences

	for _, s := range styleTerms {
		if containsWord(text, s) {
			v := s
			p.StylePreference = &v
			break
		}
	}
	for _, s := range skinToneTerms {
		if containsWord(text, s+" skin") || containsWord(text, s+" undertone") {
			v := s
			p.SkinTone = &v
			break
		}
	}
	matched := text
	for _, m := range materialTerms {
		if containsWord(matched, m.word) {
			p.PreferredMaterials = append(p.PreferredMaterials, m.value)
			matched = wordPattern(m.word).ReplaceAllString(matched, " ")
		}
	}
	for _, c := range categoryTerms {
		if compiled(`\b` + c.word + `\b`).MatchString(text) {
			v := c.value
			p.Category = &v
			break
		}
	}
	for _, o := range occasionTerms {
		if containsWord(text, o.word) && !slices.Contains(p.OccasionTypes, o.value) {
			p.OccasionTypes = append(p.OccasionTypes, o.value)
		}
	}
	if v, ok := parseAmount(budgetMaxPattern, text); ok {
		p.BudgetMax = &v
	}
	if v, ok := parseAmount(budgetMinPattern, text); ok {
		p.BudgetMin = &v
	}
	return p
}

func parseAmount(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if m[2] == "k" {
		v *= 1000
	}
	return v, true
}
