package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/itzana/itzanago/models"
)

const (
	HeadingData            = "Datos"
	HeadingKeyFindings     = "Hallazgos clave"
	HeadingMethodology     = "Metodología"
	HeadingInterpretation  = "Interpretación de resultados"
	HeadingRecommendations = "Recomendaciones"
	HeadingConclusion      = "Conclusión"
	HeadingChart           = "Gráfica"

	emptyData = "_Sin datos_"
)

// Assemble renders an analytical result as a markdown report. The chart
// section is appended last and only when the result carries an image.
func Assemble(r *models.AnalyticalResult) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nothing to assemble: result is nil")
	}

	var b strings.Builder
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Resultado"
	}
	b.WriteString("# " + title + "\n\n")

	section(&b, HeadingData, Table(r.ReturnedJSON))
	section(&b, HeadingKeyFindings, r.KeyFindings)
	section(&b, HeadingMethodology, r.Methodology)
	section(&b, HeadingInterpretation, r.ResultsInterpretation)
	section(&b, HeadingRecommendations, r.Recommendations)
	section(&b, HeadingConclusion, r.Conclusion)

	if r.HasImage() {
		section(&b, HeadingChart, fmt.Sprintf("![%s](%s)", title, *r.URLImg))
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func section(b *strings.Builder, heading, body string) {
	b.WriteString("## " + heading + "\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n")
}

// Table renders records as a markdown table with columns in first-seen order.
func Table(records []models.Record) string {
	cols := models.Columns(records)
	if len(records) == 0 || len(cols) == 0 {
		return emptyData
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeAll(cols), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, rec := range records {
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, _ := rec.Get(c)
			cells[i] = escape(cell(v))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func escapeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = escape(s)
	}
	return out
}
