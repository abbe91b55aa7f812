package concierge

// Options contains configuration for a generation request.
type Options struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature *float64
	// JSON asks the provider for a single JSON object in the response.
	JSON bool
}

// Option is a functional option for configuring generation requests.
type Option func(*Options)

// WithModel overrides the client's default model for the request.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithSystem sets the system prompt.
func WithSystem(prompt string) Option {
	return func(o *Options) {
		o.System = prompt
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = &t
	}
}

// WithJSON requests a JSON object response.
func WithJSON() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

// ApplyOptions applies functional options to an Options struct.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SearchOptions narrows a product search.
type SearchOptions struct {
	Category  string
	Materials []string
	MinPrice  float64
	MaxPrice  float64
	// MinScore drops results whose similarity is below the threshold.
	MinScore float64
}

// SearchOption is a functional option for configuring searches.
type SearchOption func(*SearchOptions)

// WithCategory restricts results to one product category.
func WithCategory(category string) SearchOption {
	return func(o *SearchOptions) {
		o.Category = category
	}
}

// WithMaterials restricts results to products made of any of the materials.
func WithMaterials(materials ...string) SearchOption {
	return func(o *SearchOptions) {
		o.Materials = append(o.Materials, materials...)
	}
}

// WithPriceRange restricts results to [min, max]. A zero max means no upper bound.
func WithPriceRange(min, max float64) SearchOption {
	return func(o *SearchOptions) {
		o.MinPrice = min
		o.MaxPrice = max
	}
}

// WithMinScore sets the similarity threshold.
func WithMinScore(score float64) SearchOption {
	return func(o *SearchOptions) {
		o.MinScore = score
	}
}

// ApplySearchOptions applies search options to a SearchOptions struct.
func ApplySearchOptions(opts ...SearchOption) *SearchOptions {
	o := &SearchOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
