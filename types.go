package concierge

import (
	"slices"
	"strings"
	"time"
)

// Product is a catalog item.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Material      string   `json:"material"`
	Weight        float64  `json:"weight,omitempty"`
	Price         float64  `json:"price"`
	StockCount    int      `json:"stock_count"`
	DesignDetails string   `json:"design_details,omitempty"`
	Images        []string `json:"images,omitempty"`
	// Score is the retrieval similarity, set by search.
	Score float64 `json:"score,omitempty"`
}

// Document is the text a product is indexed and matched by.
func (p Product) Document() string {
	parts := []string{p.Name, p.Description, p.Category, p.Material, p.DesignDetails}
	return strings.Join(slices.DeleteFunc(parts, func(s string) bool { return s == "" }), " ")
}

// Profile holds a customer's stored preferences.
type Profile struct {
	UserID             string    `json:"user_id"`
	StylePreference    string    `json:"style_preference,omitempty"`
	BudgetMin          float64   `json:"budget_min,omitempty"`
	BudgetMax          float64   `json:"budget_max,omitempty"`
	PreferredMaterials []string  `json:"preferred_materials,omitempty"`
	SkinTone           string    `json:"skin_tone,omitempty"`
	OccasionTypes      []string  `json:"occasion_types,omitempty"`
	Category           string    `json:"category,omitempty"`
	Birthdate          string    `json:"birthdate,omitempty"`
	ZodiacSign         string    `json:"zodiac_sign,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Preferences is a partial profile update extracted from a message.
// Nil fields were not mentioned.
type Preferences struct {
	StylePreference    *string  `json:"style_preference,omitempty"`
	BudgetMin          *float64 `json:"budget_min,omitempty"`
	BudgetMax          *float64 `json:"budget_max,omitempty"`
	PreferredMaterials []string `json:"preferred_materials,omitempty"`
	SkinTone           *string  `json:"skin_tone,omitempty"`
	OccasionTypes      []string `json:"occasion_types,omitempty"`
	Category           *string  `json:"category,omitempty"`
}

// IsEmpty reports whether no preference was extracted.
func (p Preferences) IsEmpty() bool {
	return p.StylePreference == nil && p.BudgetMin == nil && p.BudgetMax == nil &&
		len(p.PreferredMaterials) == 0 && p.SkinTone == nil &&
		len(p.OccasionTypes) == 0 && p.Category == nil
}

// Merge applies prefs to a copy of the profile. List fields are unioned,
// scalar fields are overwritten when set.
func (p Profile) Merge(prefs Preferences) Profile {
	if prefs.StylePreference != nil {
		p.StylePreference = *prefs.StylePreference
	}
	if prefs.BudgetMin != nil {
		p.BudgetMin = *prefs.BudgetMin
	}
	if prefs.BudgetMax != nil {
		p.BudgetMax = *prefs.BudgetMax
	}
	if prefs.SkinTone != nil {
		p.SkinTone = *prefs.SkinTone
	}
	if prefs.Category != nil {
		p.Category = *prefs.Category
	}
	p.PreferredMaterials = union(p.PreferredMaterials, prefs.PreferredMaterials)
	p.OccasionTypes = union(p.OccasionTypes, prefs.OccasionTypes)
	return p
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, v := range b {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// ConsultationRecord is one stored exchange.
type ConsultationRecord struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	Workflow          string         `json:"workflow"`
	Message           string         `json:"message"`
	Response          string         `json:"response"`
	Recommendations   []string       `json:"recommendations,omitempty"`
	PreferenceUpdates *Preferences   `json:"preference_updates,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// TasteSession tracks a user's progress through the taste questionnaire.
type TasteSession struct {
	UserID        string            `json:"user_id"`
	QuestionIndex int               `json:"question_index"`
	Answers       map[string]string `json:"answers"`
	Completed     bool              `json:"completed"`
	Traits        []string          `json:"traits,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
