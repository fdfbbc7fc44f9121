package chart

import (
	"strings"

	"github.com/itzana/itzanago/config"
)

// IntentDetector decides whether a question asks for a chart.
type IntentDetector struct {
	keywords []string
}

// NewIntentDetector lower-cases keywords once. An empty list falls back to
// the default Spanish terms.
func NewIntentDetector(keywords []string) *IntentDetector {
	if len(keywords) == 0 {
		keywords = config.DefaultChartKeywords
	}
	d := &IntentDetector{}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			d.keywords = append(d.keywords, k)
		}
	}
	return d
}

// Wants reports whether any keyword occurs as a case-insensitive substring
// of the question.
func (d *IntentDetector) Wants(question string) bool {
	q := strings.ToLower(question)
	for _, k := range d.keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

func (d *IntentDetector) Keywords() []string {
	return append([]string(nil), d.keywords...)
}
