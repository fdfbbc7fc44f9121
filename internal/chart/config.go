package chart

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/itzana/itzanago/models"
)

const (
	TypeBar           = "bar"
	TypeHorizontalBar = "horizontal_bar"
	TypeLine          = "line"
	TypeArea          = "area"
	TypePie           = "pie"
	TypeDoughnut      = "doughnut"
	TypeScatter       = "scatter"
)

// SupportedTypes lists the chart types the renderer can draw.
var SupportedTypes = []string{
	TypeBar, TypeHorizontalBar, TypeLine, TypeArea, TypePie, TypeDoughnut, TypeScatter,
}

var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildConfig turns a payload into a Chart.js (v2) configuration.
func BuildConfig(p models.ChartPayload) (map[string]any, error) {
	if len(p.Records) == 0 {
		return nil, fmt.Errorf("no data to chart")
	}
	cols := make(map[string]bool)
	for _, c := range models.Columns(p.Records) {
		cols[c] = true
	}
	for _, f := range []string{p.Spec.X, p.Spec.Y} {
		if !cols[f] {
			return nil, fmt.Errorf("field %q not present in data", f)
		}
	}

	labels := make([]string, len(p.Records))
	values := make([]float64, len(p.Records))
	for i, rec := range p.Records {
		xv, _ := rec.Get(p.Spec.X)
		labels[i] = label(xv)
		yv, _ := rec.Get(p.Spec.Y)
		n, err := number(yv)
		if err != nil {
			return nil, fmt.Errorf("row %d field %s: %w", i+1, p.Spec.Y, err)
		}
		values[i] = n
	}

	dataset := map[string]any{"label": p.Spec.Y}
	cfgType := p.Spec.ChartType
	options := map[string]any{
		"title":  map[string]any{"display": p.Title != "", "text": p.Title},
		"legend": map[string]any{"display": false},
	}

	switch p.Spec.ChartType {
	case TypeBar, TypeLine:
		dataset["data"] = values
		dataset["backgroundColor"] = defaultColors[0]
		dataset["borderColor"] = defaultColors[0]
		if p.Spec.ChartType == TypeLine {
			dataset["fill"] = false
		}
	case TypeHorizontalBar:
		cfgType = "horizontalBar"
		dataset["data"] = values
		dataset["backgroundColor"] = defaultColors[0]
	case TypeArea:
		cfgType = "line"
		dataset["data"] = values
		dataset["fill"] = true
		dataset["backgroundColor"] = defaultColors[0] + "66"
		dataset["borderColor"] = defaultColors[0]
	case TypePie, TypeDoughnut:
		dataset["data"] = values
		dataset["backgroundColor"] = palette(len(values))
		options["legend"] = map[string]any{"display": true, "position": "right"}
	case TypeScatter:
		points := make([]map[string]float64, len(p.Records))
		for i, rec := range p.Records {
			xv, _ := rec.Get(p.Spec.X)
			x, err := number(xv)
			if err != nil {
				return nil, fmt.Errorf("row %d field %s: %w", i+1, p.Spec.X, err)
			}
			points[i] = map[string]float64{"x": x, "y": values[i]}
		}
		dataset["data"] = points
		dataset["backgroundColor"] = defaultColors[0]
		labels = nil
	default:
		return nil, fmt.Errorf("unsupported chart type %q", p.Spec.ChartType)
	}

	data := map[string]any{"datasets": []any{dataset}}
	if labels != nil {
		data["labels"] = labels
	}
	return map[string]any{"type": cfgType, "data": data, "options": options}, nil
}

func palette(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

func label(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// number coerces agent-supplied values, which may be JSON numbers or
// numeric strings, into float64.
func number(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("value is null")
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", t)
		}
		return d.InexactFloat64(), nil
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", t)
		}
		return d.InexactFloat64(), nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", t)
	}
}
