package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/workflow"
)

// TrendStep enumerates the trend analysis steps.
type TrendStep int

const (
	TrendStart TrendStep = iota
	TrendExtractKeywords
	TrendAnalyzeTrends
	TrendScoreTrends
	TrendIdentifyEmerging
	TrendGenerateRecommendations
	TrendComposeReport
)

var trendSteps = [...]struct {
	name   string
	status string
}{
	TrendStart:                   {"start", ""},
	TrendExtractKeywords:         {"extract-keywords", "Extracting jewelry keywords..."},
	TrendAnalyzeTrends:           {"analyze-trends", "Analyzing trends..."},
	TrendScoreTrends:             {"score-trends", "Scoring categories..."},
	TrendIdentifyEmerging:        {"identify-emerging", "Identifying emerging trends..."},
	TrendGenerateRecommendations: {"generate-recommendations", ""},
	TrendComposeReport:           {"compose-report", "Writing the trend report..."},
}

func (s TrendStep) String() string { return trendSteps[s].name }

// Status returns the progress message for the step.
func (s TrendStep) Status() (string, bool) {
	msg := trendSteps[s].status
	return msg, msg != ""
}

// trendVocabulary is the fixed keyword list per group, in report order.
var trendVocabulary = []struct {
	group string
	words []string
}{
	{"styles", []string{"classic", "modern", "vintage", "minimalist", "luxury", "bohemian", "art deco", "geometric"}},
	{"materials", []string{"gold", "silver", "platinum", "white_gold", "rose_gold", "titanium", "stainless_steel"}},
	{"gemstones", []string{"diamond", "ruby", "sapphire", "emerald", "pearl", "topaz", "amethyst", "opal"}},
	{"categories", []string{"rings", "necklaces", "bracelets", "earrings", "pendants", "brooches", "anklets"}},
	{"colors", []string{"gold", "silver", "rose", "yellow", "white", "black", "blue", "red", "green"}},
	{"descriptors", []string{"elegant", "bold", "delicate", "statement", "layered", "stackable", "chunky", "dainty"}},
}

// Trends is the structured trend analysis of one text.
type Trends struct {
	TrendingStyles     []string `json:"trending_styles"`
	PopularMaterials   []string `json:"popular_materials"`
	TrendingColors     []string `json:"trending_colors"`
	MentionedDesigners []string `json:"mentioned_designers"`
	SeasonalForecast   string   `json:"seasonal_forecast"`
	// Source is "keywords" when the model output could not be used.
	Source string `json:"source,omitempty"`
}

// IsEmpty reports whether no trend was identified.
func (t Trends) IsEmpty() bool {
	return len(t.TrendingStyles) == 0 && len(t.PopularMaterials) == 0 &&
		len(t.TrendingColors) == 0 && len(t.MentionedDesigners) == 0
}

// TrendRecommendation is one suggested business action.
type TrendRecommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Action   string `json:"action"`
}

// TrendState is the state of one trend analysis run.
type TrendState struct {
	UserID       string
	InputMessage string

	Keywords        map[string][]Count
	Trends          Trends
	Scores          map[string]float64
	Emerging        []string
	Recommendations []TrendRecommendation

	Report string
	Step   TrendStep
}

// Advance sets the step cursor.
func (s TrendState) Advance(k TrendStep) TrendState {
	s.Step = k
	return s
}

const trendSystemPrompt = `You are a fashion trend analyst specializing in jewelry and accessories.
You analyze fashion journals, identify emerging trends and give insights for product development.

Focus on designers and brands, styles and silhouettes, materials and finishes, colors and gemstones,
cultural influences, celebrity moments and seasonal forecasts.`

// Trend returns the trend analysis workflow.
func (s *Set) Trend() workflow.Runner {
	return workflow.Bind(workflow.Binding[TrendState, TrendStep]{
		Name:  Trend,
		Graph: s.TrendGraph(),
		Init: func(in workflow.Input) TrendState {
			return TrendState{UserID: in.UserID, InputMessage: in.Message}
		},
		Status: TrendStep.Status,
		Output: func(st TrendState) workflow.Result {
			return workflow.Result{
				Text: st.Report,
				Metadata: map[string]any{
					"trends":          st.Trends,
					"keywords":        st.Keywords,
					"trend_scores":    st.Scores,
					"emerging_trends": st.Emerging,
					"recommendations": st.Recommendations,
				},
			}
		},
	})
}

// TrendGraph builds the trend analysis graph.
func (s *Set) TrendGraph() *workflow.Graph[TrendState, TrendStep] {
	return workflow.New[TrendState](TrendExtractKeywords, s.graphOptions()...).
		AddStep(TrendExtractKeywords, s.trendExtractKeywords).
		AddStep(TrendAnalyzeTrends, s.trendAnalyze).
		AddStep(TrendScoreTrends, s.trendScore).
		AddStep(TrendIdentifyEmerging, s.trendEmerging).
		AddStep(TrendGenerateRecommendations, s.trendRecommend).
		AddStep(TrendComposeReport, s.trendReport).
		AddEdge(TrendExtractKeywords, TrendAnalyzeTrends).
		AddEdge(TrendAnalyzeTrends, TrendScoreTrends).
		AddEdge(TrendScoreTrends, TrendIdentifyEmerging).
		AddEdge(TrendIdentifyEmerging, TrendGenerateRecommendations).
		AddEdge(TrendGenerateRecommendations, TrendComposeReport)
}

func (s *Set) trendExtractKeywords(_ context.Context, st TrendState) (TrendState, error) {
	st.Keywords = extractKeywords(st.InputMessage)
	return st, nil
}

func (s *Set) trendAnalyze(ctx context.Context, st TrendState) (TrendState, error) {
	st.Trends = Trends{}
	if len(st.Keywords) == 0 {
		return st, nil
	}

	out, err := s.gen.Generate(ctx, trendAnalysisPrompt(st.InputMessage, st.Keywords),
		concierge.WithTemperature(0.4), concierge.WithJSON())
	if err != nil {
		return st, err
	}
	var t Trends
	if err := decodeObject(out, &t); err != nil || t.IsEmpty() {
		s.logger.Warn("unusable trend analysis, using keywords", "error", err)
		st.Trends = keywordTrends(st.Keywords)
		return st, nil
	}
	st.Trends = t
	return st, nil
}

func (s *Set) trendScore(_ context.Context, st TrendState) (TrendState, error) {
	st.Scores = scoreTrends(st.Trends)
	return st, nil
}

func (s *Set) trendEmerging(_ context.Context, st TrendState) (TrendState, error) {
	st.Emerging = emergingTrends(st.Trends)
	return st, nil
}

func (s *Set) trendRecommend(_ context.Context, st TrendState) (TrendState, error) {
	st.Recommendations = trendRecommendations(st.Trends, st.Emerging)
	return st, nil
}

func (s *Set) trendReport(ctx context.Context, st TrendState) (TrendState, error) {
	if st.Trends.IsEmpty() {
		st.Report = ""
		return st, nil
	}
	out, err := s.gen.Generate(ctx, trendReportPrompt(st),
		concierge.WithSystem(trendSystemPrompt), concierge.WithTemperature(0.6))
	if err != nil {
		return st, err
	}
	st.Report = cleanResponse(out)
	return st, nil
}

// extractKeywords counts whole-word vocabulary matches per group. Groups
// without matches are omitted.
func extractKeywords(content string) map[string][]Count {
	text := strings.ToLower(content)
	out := make(map[string][]Count)
	for _, v := range trendVocabulary {
		var found []Count
		for _, w := range v.words {
			if n := len(wordPattern(w).FindAllStringIndex(text, -1)); n > 0 {
				found = append(found, Count{Value: w, Count: n})
			}
		}
		if len(found) == 0 {
			continue
		}
		slices.SortStableFunc(found, func(a, b Count) int { return b.Count - a.Count })
		out[v.group] = found
	}
	return out
}

func keywordTrends(kw map[string][]Count) Trends {
	return Trends{
		TrendingStyles:     topValues(kw["styles"], 5),
		PopularMaterials:   topValues(kw["materials"], 5),
		TrendingColors:     topValues(kw["colors"], 3),
		MentionedDesigners: []string{},
		SeasonalForecast:   "Unable to determine",
		Source:             "keywords",
	}
}

// scoreTrends scores each forecast category at 0.5 plus 0.05 per trending
// style and material, capped at 1.
func scoreTrends(t Trends) map[string]float64 {
	scores := make(map[string]float64)
	if t.IsEmpty() {
		return scores
	}
	score := min(0.5+0.05*float64(len(t.TrendingStyles))+0.05*float64(len(t.PopularMaterials)), 1.0)
	for _, c := range ForecastCategories {
		scores[c] = round2(score)
	}
	return scores
}

func emergingTrends(t Trends) []string {
	out := []string{}
	styles := t.TrendingStyles[:min(len(t.TrendingStyles), 3)]
	materials := t.PopularMaterials[:min(len(t.PopularMaterials), 2)]
	for _, style := range styles {
		for _, material := range materials {
			if len(out) == 5 {
				return out
			}
			out = append(out, fmt.Sprintf("%s %s jewelry", material, style))
		}
	}
	return out
}

func trendRecommendations(t Trends, emerging []string) []TrendRecommendation {
	first := func(s []string, n int) string {
		return strings.Join(s[:min(len(s), n)], ", ")
	}

	out := []TrendRecommendation{}
	if len(t.TrendingStyles) > 0 {
		out = append(out, TrendRecommendation{"product", "high",
			fmt.Sprintf("Increase inventory of %s style products", first(t.TrendingStyles, 3))})
	}
	if len(t.PopularMaterials) > 0 {
		out = append(out, TrendRecommendation{"product", "high",
			fmt.Sprintf("Focus on %s materials for new collections", first(t.PopularMaterials, 3))})
	}
	if len(emerging) > 0 {
		out = append(out, TrendRecommendation{"innovation", "medium",
			"Explore new designs: " + first(emerging, 2)})
	}
	if len(t.MentionedDesigners) > 0 {
		out = append(out, TrendRecommendation{"marketing", "medium",
			"Highlight designer inspiration: " + first(t.MentionedDesigners, 2)})
	}
	return out
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func trendAnalysisPrompt(content string, kw map[string][]Count) string {
	raw, _ := json.MarshalIndent(kw, "", "  ")
	return fmt.Sprintf(`Analyze the following fashion content and extract jewelry trends.

Extracted keywords:
%s

Content excerpt:
%s

Identify the top 5 trending styles, popular materials and metals, trending colors,
key designers or brands mentioned, and seasonal predictions.

Return as JSON:
{
    "trending_styles": ["style1", "style2"],
    "popular_materials": ["material1", "material2"],
    "trending_colors": ["color1", "color2"],
    "mentioned_designers": ["designer1", "designer2"],
    "seasonal_forecast": "spring/summer/fall/winter insights"
}

JSON:`, raw, excerpt(content, 2000))
}

func trendReportPrompt(st TrendState) string {
	dump := func(v any) string {
		raw, _ := json.MarshalIndent(v, "", "  ")
		return string(raw)
	}
	return fmt.Sprintf(`Based on the fashion journal analysis below, write a trend report.

=== Extracted Keywords ===
%s

=== Identified Trends ===
%s

=== Emerging Trends ===
%s

=== Recommendations ===
%s

Content excerpt:
%s

Cover an executive summary, key trend findings, emerging opportunities,
product development recommendations and marketing strategy suggestions.

Report:`, dump(st.Keywords), dump(st.Trends), dump(st.Emerging), dump(st.Recommendations), excerpt(st.InputMessage, 1000))
}
