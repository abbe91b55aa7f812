package specialist

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
)

var (
	thinkBlock     = regexp.MustCompile(`(?s)\[THINK\].*?\[/THINK\]`)
	extraNewlines  = regexp.MustCompile(`\n{3,}`)
	errNoJSONValue = errors.New("no JSON object in model output")
)

// cleanResponse removes reasoning blocks and excess blank lines from
// model output.
func cleanResponse(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = extraNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// decodeObject decodes the first JSON object in raw, ignoring code fences
// and surrounding prose.
func decodeObject(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return errNoJSONValue
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v)
}

// Count is a value and how often it occurred.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// countValues tallies values, most frequent first. Ties keep first
// occurrence order. n <= 0 keeps all.
func countValues(values []string, n int) []Count {
	var out []Count
	index := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		if i, ok := index[v]; ok {
			out[i].Count++
			continue
		}
		index[v] = len(out)
		out = append(out, Count{Value: v, Count: 1})
	}
	slices.SortStableFunc(out, func(a, b Count) int { return b.Count - a.Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []Count{}
	}
	return out
}

func countMap(counts []Count) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Value] = c.Count
	}
	return m
}

func topValues(counts []Count, n int) []string {
	out := make([]string, 0, n)
	for _, c := range counts {
		if len(out) == n {
			break
		}
		out = append(out, c.Value)
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// containsWord reports whether text contains word on word boundaries.
// text must already be lower case.
func containsWord(text, word string) bool {
	return wordPattern(word).MatchString(text)
}

// mentions reports whether any stem starts a word in text. text must
// already be lower case.
func mentions(text string, stems ...string) bool {
	for _, s := range stems {
		if compiled(`\b` + regexp.QuoteMeta(s)).MatchString(text) {
			return true
		}
	}
	return false
}

func wordPattern(word string) *regexp.Regexp {
	return compiled(`\b` + regexp.QuoteMeta(word) + `\b`)
}

var patterns sync.Map

func compiled(expr string) *regexp.Regexp {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := patterns.LoadOrStore(expr, regexp.MustCompile(expr))
	return re.(*regexp.Regexp)
}
