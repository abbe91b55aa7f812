package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/event"
	"github.com/spetersoncode/concierge/orchestrator"
	"github.com/spetersoncode/concierge/specialist"
	"github.com/spetersoncode/concierge/store"
)

// profileUpdate is the body of a profile PUT. Absent fields keep their
// stored value; list fields replace the stored list.
type profileUpdate struct {
	concierge.Preferences
	Birthdate *string `json:"birthdate,omitempty"`
}

type profileUpdateResponse struct {
	Profile       concierge.Profile `json:"profile"`
	UpdatedFields []string          `json:"updated_fields"`
}

// ProfileHandler reads and updates customer profiles.
type ProfileHandler struct {
	repo concierge.Repository
	now  func() time.Time
}

// NewProfileHandler creates a new handler over repo.
func NewProfileHandler(repo concierge.Repository) *ProfileHandler {
	return &ProfileHandler{repo: repo, now: time.Now}
}

// ServeHTTP handles GET and PUT /api/customer/{user_id}/profile.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	log := slog.With("user_id", userID)

	switch r.Method {
	case http.MethodGet:
		profile, err := store.LoadProfile(r.Context(), h.repo, userID)
		if err != nil {
			log.Error("failed to load profile", "error", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: event.CodeStorage, Message: orchestrator.DefaultErrorMessage})
			return
		}
		if profile == nil {
			// Unknown users get an empty profile, not a 404.
			profile = &concierge.Profile{UserID: userID}
		}
		writeJSON(w, http.StatusOK, profile)

	case http.MethodPut:
		var body profileUpdate
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			log.Warn("invalid request body", "error", err)
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if msg := body.validate(); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		existing, err := store.LoadProfile(r.Context(), h.repo, userID)
		if err != nil {
			log.Error("failed to load profile", "error", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: event.CodeStorage, Message: orchestrator.DefaultErrorMessage})
			return
		}
		profile := concierge.Profile{UserID: userID}
		if existing != nil {
			profile = *existing
		}
		profile, fields := body.apply(profile)
		profile.UpdatedAt = h.now().UTC()

		if err := store.SaveProfile(r.Context(), h.repo, profile); err != nil {
			log.Error("failed to save profile", "error", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: event.CodeStorage, Message: orchestrator.DefaultErrorMessage})
			return
		}
		log.Info("profile updated", "fields", fields)
		writeJSON(w, http.StatusOK, profileUpdateResponse{Profile: profile, UpdatedFields: fields})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (u profileUpdate) validate() string {
	if (u.BudgetMin != nil && *u.BudgetMin < 0) || (u.BudgetMax != nil && *u.BudgetMax < 0) {
		return "budget must not be negative"
	}
	if u.BudgetMin != nil && u.BudgetMax != nil && *u.BudgetMax > 0 && *u.BudgetMin > *u.BudgetMax {
		return "budget_min must not exceed budget_max"
	}
	if u.Birthdate != nil && strings.TrimSpace(*u.Birthdate) != "" &&
		specialist.ZodiacSign(*u.Birthdate) == specialist.ZodiacUnknown {
		return "birthdate must be MM/DD or YYYY-MM-DD"
	}
	return ""
}

// apply writes the set fields onto p and names them.
func (u profileUpdate) apply(p concierge.Profile) (concierge.Profile, []string) {
	fields := []string{}
	scalars := u.Preferences
	scalars.PreferredMaterials, scalars.OccasionTypes = nil, nil
	p = p.Merge(scalars)

	set := func(name string, ok bool) {
		if ok {
			fields = append(fields, name)
		}
	}
	set("style_preference", u.StylePreference != nil)
	set("budget_min", u.BudgetMin != nil)
	set("budget_max", u.BudgetMax != nil)
	set("skin_tone", u.SkinTone != nil)
	set("category", u.Category != nil)
	if u.PreferredMaterials != nil {
		p.PreferredMaterials = u.PreferredMaterials
		fields = append(fields, "preferred_materials")
	}
	if u.OccasionTypes != nil {
		p.OccasionTypes = u.OccasionTypes
		fields = append(fields, "occasion_types")
	}
	if u.Birthdate != nil {
		p.Birthdate = strings.TrimSpace(*u.Birthdate)
		p.ZodiacSign = ""
		if p.Birthdate != "" {
			p.ZodiacSign = specialist.ZodiacSign(p.Birthdate)
		}
		fields = append(fields, "birthdate")
	}
	return p, fields
}

// Search limits.
const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

type searchRequest struct {
	Query   string        `json:"query"`
	Limit   int           `json:"limit,omitempty"`
	Filters searchFilters `json:"filters"`
}

type searchFilters struct {
	Category  string   `json:"category,omitempty"`
	Material  string   `json:"material,omitempty"`
	Materials []string `json:"materials,omitempty"`
	PriceMin  float64  `json:"price_min,omitempty"`
	PriceMax  float64  `json:"price_max,omitempty"`
	MinScore  float64  `json:"min_score,omitempty"`
}

type searchResponse struct {
	Query      string              `json:"query"`
	Products   []concierge.Product `json:"products"`
	TotalFound int                 `json:"total_found"`
}

// SearchHandler runs semantic product searches.
type SearchHandler struct {
	ret concierge.Retriever
}

// NewSearchHandler creates a new handler over ret.
func NewSearchHandler(ret concierge.Retriever) *SearchHandler {
	return &SearchHandler{ret: ret}
}

// ServeHTTP handles POST /api/products/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	body.Query = strings.TrimSpace(body.Query)
	if body.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if body.Limit == 0 {
		body.Limit = defaultSearchLimit
	}
	if body.Limit < 1 || body.Limit > maxSearchLimit {
		http.Error(w, "limit must be between 1 and 20", http.StatusBadRequest)
		return
	}

	start := time.Now()
	products, err := h.ret.Search(r.Context(), body.Query, body.Limit, body.Filters.options()...)
	if err != nil {
		slog.Error("product search failed", "query", body.Query, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: event.CodeRetrieval, Message: orchestrator.DefaultErrorMessage})
		return
	}
	slog.Info("product search", "query", body.Query, "found", len(products), "duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, searchResponse{Query: body.Query, Products: products, TotalFound: len(products)})
}

func (f searchFilters) options() []concierge.SearchOption {
	var opts []concierge.SearchOption
	if f.Category != "" {
		opts = append(opts, concierge.WithCategory(f.Category))
	}
	materials := f.Materials
	if f.Material != "" {
		materials = append(materials, f.Material)
	}
	if len(materials) > 0 {
		opts = append(opts, concierge.WithMaterials(materials...))
	}
	if f.PriceMin > 0 || f.PriceMax > 0 {
		opts = append(opts, concierge.WithPriceRange(f.PriceMin, f.PriceMax))
	}
	if f.MinScore > 0 {
		opts = append(opts, concierge.WithMinScore(f.MinScore))
	}
	return opts
}
