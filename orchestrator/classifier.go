package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spetersoncode/concierge/specialist"
)

// ErrInvalidRoutingTable indicates a routing table failed validation.
var ErrInvalidRoutingTable = errors.New("orchestrator: invalid routing table")

// Rule lists the keywords that vote for one category. A keyword matches
// at the start of a word, so "ring" also matches "rings".
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// RoutingTable is the classifier configuration. Rule order is the category
// order used when reporting scores.
type RoutingTable struct {
	Default string `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// DefaultRoutingTable returns the built-in routing table.
func DefaultRoutingTable() RoutingTable {
	return RoutingTable{
		Default: specialist.Consultation,
		Rules: []Rule{
			{specialist.Consultation, []string{
				"ring", "necklace", "bracelet", "earring", "pendant", "jewel",
				"engagement", "wedding", "gift", "recommend", "buy", "budget",
				"price", "gold", "silver", "platinum", "diamond",
			}},
			{specialist.Companion, []string{
				"feel", "lonely", "mood", "birthday", "zodiac", "horoscope",
				"chat", "talk", "sad", "happy", "tired", "my day",
			}},
			{specialist.Analytics, []string{
				"analytic", "analysis", "report", "customers", "segment",
				"forecast", "demand", "statistic", "stats", "inventory",
			}},
			{specialist.Trend, []string{
				"trend", "fashion", "season", "runway", "designer",
				"collection", "editorial", "magazine", "article",
			}},
			{specialist.Taste, []string{
				"taste", "questionnaire", "quiz", "style profile", "discover",
				"personality", "survey",
			}},
		},
	}
}

// LoadRoutingTable reads a YAML routing table from path.
//
// Example file:
//
//	default: consultation
//	rules:
//	  - category: trend
//	    keywords: [trend, runway]
func LoadRoutingTable(path string) (RoutingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoutingTable{}, fmt.Errorf("orchestrator: read routing table: %w", err)
	}
	return ParseRoutingTable(data)
}

// ParseRoutingTable decodes and validates a YAML routing table.
func ParseRoutingTable(data []byte) (RoutingTable, error) {
	var t RoutingTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return RoutingTable{}, fmt.Errorf("%w: %v", ErrInvalidRoutingTable, err)
	}
	if err := t.Validate(); err != nil {
		return RoutingTable{}, err
	}
	return t, nil
}

// Validate checks that categories are unique and the default is one of them.
func (t RoutingTable) Validate() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRoutingTable)
	}
	seen := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		if r.Category == "" {
			return fmt.Errorf("%w: rule without category", ErrInvalidRoutingTable)
		}
		if seen[r.Category] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidRoutingTable, r.Category)
		}
		seen[r.Category] = true
	}
	if !seen[t.Default] {
		return fmt.Errorf("%w: default %q is not a category", ErrInvalidRoutingTable, t.Default)
	}
	return nil
}

// Categories returns the category names in rule order.
func (t RoutingTable) Categories() []string {
	names := make([]string, len(t.Rules))
	for i, r := range t.Rules {
		names[i] = r.Category
	}
	return names
}

// Classification is the outcome of classifying one message.
type Classification struct {
	Category string
	Scores   map[string]int
	// Ambiguous is set when no category scored or the best score was tied.
	// The category is then the table default.
	Ambiguous bool
}

// Classifier scores messages against a routing table. It never calls a
// model and is safe for concurrent use.
type Classifier struct {
	table    RoutingTable
	patterns [][]*regexp.Regexp
}

// NewClassifier compiles a routing table. It panics if the table is
// invalid; use RoutingTable.Validate first for tables read from files.
func NewClassifier(t RoutingTable) *Classifier {
	if err := t.Validate(); err != nil {
		panic(err)
	}
	c := &Classifier{table: t, patterns: make([][]*regexp.Regexp, len(t.Rules))}
	for i, r := range t.Rules {
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			c.patterns[i] = append(c.patterns[i], regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)))
		}
	}
	return c
}

// Table returns the classifier's routing table.
func (c *Classifier) Table() RoutingTable { return c.table }

// Classify scores message against every category. Each keyword counts
// once. The highest unique score wins.
func (c *Classifier) Classify(message string) Classification {
	text := strings.ToLower(message)
	res := Classification{Scores: make(map[string]int, len(c.table.Rules))}

	best, tied := -1, false
	for i, r := range c.table.Rules {
		score := 0
		for _, p := range c.patterns[i] {
			if p.MatchString(text) {
				score++
			}
		}
		res.Scores[r.Category] = score
		switch {
		case score > best:
			best, tied = score, false
			res.Category = r.Category
		case score == best:
			tied = true
		}
	}

	if best <= 0 || tied {
		res.Category = c.table.Default
		res.Ambiguous = true
	}
	return res
}
