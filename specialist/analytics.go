package specialist

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/store"
	"github.com/spetersoncode/concierge/workflow"
)

// AnalyticsStep enumerates the analytics steps.
type AnalyticsStep int

const (
	AnalyticsStart AnalyticsStep = iota
	AnalyticsLoadAllProfiles
	AnalyticsComputePatterns
	AnalyticsForecastDemand
	AnalyticsComposeReport
)

var analyticsSteps = [...]struct {
	name   string
	status string
}{
	AnalyticsStart:           {"start", ""},
	AnalyticsLoadAllProfiles: {"load-all-profiles", "Loading customer data..."},
	AnalyticsComputePatterns: {"compute-patterns", "Analyzing preference patterns..."},
	AnalyticsForecastDemand:  {"forecast-demand", "Forecasting demand..."},
	AnalyticsComposeReport:   {"compose-report", "Writing the report..."},
}

func (s AnalyticsStep) String() string { return analyticsSteps[s].name }

// Status returns the progress message for the step.
func (s AnalyticsStep) Status() (string, bool) {
	msg := analyticsSteps[s].status
	return msg, msg != ""
}

// NoDataReport is the analytics report when no profile is stored.
const NoDataReport = "No customer data available for analysis"

// Budget bucket thresholds on a profile's maximum budget.
const (
	budgetMidRange = 20000
	budgetUpper    = 50000
	budgetLuxury   = 100000
)

// ForecastCategories are the product categories demand is forecast for.
var ForecastCategories = []string{"rings", "necklaces", "bracelets", "earrings", "pendants"}

// Patterns summarizes stored customer preferences.
type Patterns struct {
	PopularStyles        []Count        `json:"popular_styles"`
	PopularMaterials     []Count        `json:"popular_materials"`
	AverageBudget        float64        `json:"average_budget"`
	BudgetDistribution   map[string]int `json:"budget_distribution"`
	SkinToneDistribution map[string]int `json:"skin_tone_distribution"`
	PopularOccasions     []Count        `json:"popular_occasions"`
	TotalAnalyzed        int            `json:"total_analyzed"`
}

// ConsultationStats summarizes stored consultation records.
type ConsultationStats struct {
	TotalConsultations     int            `json:"total_consultations"`
	WorkflowDistribution   map[string]int `json:"agent_type_distribution"`
	AverageRecommendations float64        `json:"average_recommendations_per_consultation"`
}

// Forecast is the expected demand for one category.
type Forecast struct {
	DemandScore      float64 `json:"demand_score"`
	RecommendedStock string  `json:"recommended_stock"`
	Priority         string  `json:"priority"`
}

// Segment is a group of customers by budget.
type Segment struct {
	Name          string  `json:"name"`
	Size          int     `json:"size"`
	AverageBudget float64 `json:"avg_budget"`
	PopularStyles []Count `json:"popular_styles"`
}

// AnalyticsState is the state of one analytics run.
type AnalyticsState struct {
	UserID       string
	InputMessage string

	Profiles []concierge.Profile
	Records  []concierge.ConsultationRecord

	Patterns *Patterns
	Stats    ConsultationStats
	Segments []Segment
	Forecast map[string]Forecast

	Report string
	Step   AnalyticsStep
}

// Advance sets the step cursor.
func (s AnalyticsState) Advance(k AnalyticsStep) AnalyticsState {
	s.Step = k
	return s
}

// Analytics returns the analytics workflow.
func (s *Set) Analytics() workflow.Runner {
	return workflow.Bind(workflow.Binding[AnalyticsState, AnalyticsStep]{
		Name:  Analytics,
		Graph: s.AnalyticsGraph(),
		Init: func(in workflow.Input) AnalyticsState {
			return AnalyticsState{UserID: in.UserID, InputMessage: in.Message}
		},
		Status: AnalyticsStep.Status,
		Output: func(st AnalyticsState) workflow.Result {
			return workflow.Result{
				Text: st.Report,
				Metadata: map[string]any{
					"patterns":           st.Patterns,
					"demand_forecast":    st.Forecast,
					"consultation_stats": st.Stats,
					"customer_segments":  st.Segments,
					"total_customers":    len(st.Profiles),
				},
			}
		},
	})
}

// AnalyticsGraph builds the analytics graph.
func (s *Set) AnalyticsGraph() *workflow.Graph[AnalyticsState, AnalyticsStep] {
	return workflow.New[AnalyticsState](AnalyticsLoadAllProfiles, s.graphOptions()...).
		AddStep(AnalyticsLoadAllProfiles, s.analyticsLoad).
		AddStep(AnalyticsComputePatterns, s.analyticsPatterns).
		AddStep(AnalyticsForecastDemand, s.analyticsForecast).
		AddStep(AnalyticsComposeReport, s.analyticsReport).
		AddEdge(AnalyticsLoadAllProfiles, AnalyticsComputePatterns).
		AddEdge(AnalyticsComputePatterns, AnalyticsForecastDemand).
		AddEdge(AnalyticsForecastDemand, AnalyticsComposeReport)
}

func (s *Set) analyticsLoad(ctx context.Context, st AnalyticsState) (AnalyticsState, error) {
	var (
		profiles []concierge.Profile
		records  []concierge.ConsultationRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = store.AllProfiles(gctx, s.repo)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = store.AllRecords(gctx, s.repo)
		return err
	})
	if err := g.Wait(); err != nil {
		return st, err
	}
	st.Profiles = profiles
	st.Records = records
	return st, nil
}

func (s *Set) analyticsPatterns(_ context.Context, st AnalyticsState) (AnalyticsState, error) {
	st.Stats = consultationStats(st.Records)
	if len(st.Profiles) == 0 {
		return st, nil
	}
	p := computePatterns(st.Profiles)
	st.Patterns = &p
	st.Segments = segmentCustomers(st.Profiles)
	return st, nil
}

func (s *Set) analyticsForecast(_ context.Context, st AnalyticsState) (AnalyticsState, error) {
	if st.Patterns == nil {
		st.Forecast = map[string]Forecast{}
		return st, nil
	}
	st.Forecast = forecastDemand(*st.Patterns)
	return st, nil
}

func (s *Set) analyticsReport(ctx context.Context, st AnalyticsState) (AnalyticsState, error) {
	if len(st.Profiles) == 0 {
		st.Report = NoDataReport
		return st, nil
	}
	out, err := s.gen.Generate(ctx, analyticsPrompt(st), concierge.WithTemperature(0.3))
	if err != nil {
		return st, err
	}
	st.Report = cleanResponse(out)
	return st, nil
}

func computePatterns(profiles []concierge.Profile) Patterns {
	var styles, materials, occasions, tones []string
	var budgets []float64
	for _, p := range profiles {
		styles = append(styles, p.StylePreference)
		materials = append(materials, p.PreferredMaterials...)
		occasions = append(occasions, p.OccasionTypes...)
		tones = append(tones, p.SkinTone)
		if p.BudgetMax > 0 {
			budgets = append(budgets, p.BudgetMax)
		}
	}

	dist := map[string]int{"under_20k": 0, "20k_50k": 0, "50k_100k": 0, "over_100k": 0}
	var sum float64
	for _, b := range budgets {
		sum += b
		switch {
		case b < budgetMidRange:
			dist["under_20k"]++
		case b < budgetUpper:
			dist["20k_50k"]++
		case b < budgetLuxury:
			dist["50k_100k"]++
		default:
			dist["over_100k"]++
		}
	}
	var avg float64
	if len(budgets) > 0 {
		avg = round2(sum / float64(len(budgets)))
	}

	return Patterns{
		PopularStyles:        countValues(styles, 5),
		PopularMaterials:     countValues(materials, 5),
		AverageBudget:        avg,
		BudgetDistribution:   dist,
		SkinToneDistribution: countMap(countValues(tones, 0)),
		PopularOccasions:     countValues(occasions, 0),
		TotalAnalyzed:        len(profiles),
	}
}

func consultationStats(records []concierge.ConsultationRecord) ConsultationStats {
	stats := ConsultationStats{
		TotalConsultations:   len(records),
		WorkflowDistribution: map[string]int{},
	}
	if len(records) == 0 {
		return stats
	}
	total := 0
	for _, r := range records {
		stats.WorkflowDistribution[r.Workflow]++
		total += len(r.Recommendations)
	}
	stats.AverageRecommendations = round2(float64(total) / float64(len(records)))
	return stats
}

// forecastDemand scores every category at 50 plus a tenth of all occasion
// mentions, capped at 100.
func forecastDemand(p Patterns) map[string]Forecast {
	mentions := 0
	for _, c := range p.PopularOccasions {
		mentions += c.Count
	}
	if mentions == 0 {
		mentions = 1
	}
	score := round2(50 + float64(mentions)/10)

	out := make(map[string]Forecast, len(ForecastCategories))
	for _, c := range ForecastCategories {
		f := Forecast{
			DemandScore:      min(score, 100),
			RecommendedStock: "medium",
			Priority:         "medium",
		}
		if score > 60 {
			f.RecommendedStock = "high"
		}
		if score > 70 {
			f.Priority = "high"
		}
		out[c] = f
	}
	return out
}

func segmentCustomers(profiles []concierge.Profile) []Segment {
	groups := []struct {
		name string
		in   func(b float64) bool
	}{
		{"Luxury Buyers", func(b float64) bool { return b >= budgetLuxury }},
		{"Mid-Range Buyers", func(b float64) bool { return b >= budgetMidRange && b < budgetLuxury }},
		{"Budget Conscious", func(b float64) bool { return b < budgetMidRange }},
	}

	segments := []Segment{}
	for _, g := range groups {
		var sum float64
		var styles []string
		n := 0
		for _, p := range profiles {
			if p.BudgetMax <= 0 || !g.in(p.BudgetMax) {
				continue
			}
			n++
			sum += p.BudgetMax
			styles = append(styles, p.StylePreference)
		}
		if n == 0 {
			continue
		}
		segments = append(segments, Segment{
			Name:          g.name,
			Size:          n,
			AverageBudget: round2(sum / float64(n)),
			PopularStyles: countValues(styles, 3),
		})
	}
	return segments
}

func analyticsPrompt(st AnalyticsState) string {
	section := func(title string, v any) string {
		raw, _ := json.MarshalIndent(v, "", "  ")
		return title + ":\n" + string(raw) + "\n\n"
	}

	var b strings.Builder
	b.WriteString("You are a market analyst specializing in jewelry retail. Analyze the following data and write a business report.\n\n")
	b.WriteString(section("CUSTOMER PATTERNS", st.Patterns))
	b.WriteString(section("CONSULTATION STATISTICS", st.Stats))
	b.WriteString(section("DEMAND FORECAST", st.Forecast))
	b.WriteString(section("CUSTOMER SEGMENTS", st.Segments))
	if st.InputMessage != "" {
		b.WriteString("REQUEST:\n" + st.InputMessage + "\n\n")
	}
	b.WriteString(`TASK:
Write a business analysis report that includes:
1. Key market insights
2. Actionable recommendations for inventory, marketing, product development and pricing
3. Top performing customer segments
4. Risk areas and opportunities

Use clear, professional business language.`)
	return b.String()
}
