package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itzana/itzanago/models"
)

// ValidationError reports agent output that does not match its schema.
type ValidationError struct {
	Agent   string
	Missing []string
	Cause   error
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s output is missing required fields: %s", e.Agent, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s output is invalid: %v", e.Agent, e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

var analyticalFields = []string{
	"title", "returned_json", "key_findings", "methodology",
	"results_interpretation", "recommendations", "conclusion",
}

var chartFields = []string{"chart_type", "x", "y"}

// extractJSON returns the JSON object inside a model reply, dropping
// markdown fences and any prose around it.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func decodeObject(agent, content string, required []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return nil, &ValidationError{Agent: agent, Cause: err}
	}
	var missing []string
	for _, k := range required {
		v, ok := raw[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Agent: agent, Missing: missing}
	}
	return raw, nil
}

// textField accepts a JSON string, or a list of strings rendered as bullets.
func textField(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		lines := make([]string, 0, len(list))
		for _, item := range list {
			lines = append(lines, "- "+fmt.Sprint(item))
		}
		return strings.Join(lines, "\n"), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch v.(type) {
	case map[string]any:
		return "", fmt.Errorf("expected text, got object")
	}
	return string(bytes.TrimSpace(raw)), nil
}

// DecodeAnalyticalResult parses the analytical agent's final reply.
func DecodeAnalyticalResult(content string) (*models.AnalyticalResult, error) {
	const agent = "analytical agent"
	raw, err := decodeObject(agent, content, analyticalFields)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	if err := json.Unmarshal(raw["returned_json"], &records); err != nil {
		return nil, &ValidationError{Agent: agent, Cause: fmt.Errorf("returned_json: %w", err)}
	}

	texts := make(map[string]string, len(analyticalFields))
	for _, k := range analyticalFields {
		if k == "returned_json" {
			continue
		}
		s, err := textField(raw[k])
		if err != nil {
			return nil, &ValidationError{Agent: agent, Cause: fmt.Errorf("%s: %w", k, err)}
		}
		texts[k] = s
	}

	return &models.AnalyticalResult{
		Title:                 texts["title"],
		ReturnedJSON:          records,
		KeyFindings:           texts["key_findings"],
		Methodology:           texts["methodology"],
		ResultsInterpretation: texts["results_interpretation"],
		Recommendations:       texts["recommendations"],
		Conclusion:            texts["conclusion"],
	}, nil
}

// DecodeChartSpec parses the chart decider's reply.
func DecodeChartSpec(content string) (*models.ChartSpec, error) {
	const agent = "chart decider"
	raw, err := decodeObject(agent, content, chartFields)
	if err != nil {
		return nil, err
	}
	var spec models.ChartSpec
	for _, k := range chartFields {
		var s string
		if err := json.Unmarshal(raw[k], &s); err != nil {
			return nil, &ValidationError{Agent: agent, Cause: fmt.Errorf("%s: %w", k, err)}
		}
		if strings.TrimSpace(s) == "" {
			return nil, &ValidationError{Agent: agent, Missing: []string{k}}
		}
		switch k {
		case "chart_type":
			spec.ChartType = strings.TrimSpace(s)
		case "x":
			spec.X = s
		case "y":
			spec.Y = s
		}
	}
	return &spec, nil
}
