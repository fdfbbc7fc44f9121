package models

// AnalyticalResult is the structured answer of the analytical agent.
type AnalyticalResult struct {
	Title                 string   `json:"title"`
	ReturnedJSON          []Record `json:"returned_json"`
	KeyFindings           string   `json:"key_findings"`
	Methodology           string   `json:"methodology"`
	ResultsInterpretation string   `json:"results_interpretation"`
	Recommendations       string   `json:"recommendations"`
	Conclusion            string   `json:"conclusion"`
	URLImg                *string  `json:"url_img,omitempty"`
}

// HasImage reports whether the chart path attached an image reference.
func (r *AnalyticalResult) HasImage() bool {
	return r.URLImg != nil && *r.URLImg != ""
}

// ChartSpec is the chart-decision agent's choice of chart type and axes.
type ChartSpec struct {
	ChartType string `json:"chart_type"`
	X         string `json:"x"`
	Y         string `json:"y"`
}

// ChartPayload is what the renderer draws.
type ChartPayload struct {
	Records []Record  `json:"records"`
	Spec    ChartSpec `json:"spec"`
	Title   string    `json:"title,omitempty"`
}

// ChartDecisionInput is the string-encoded payload sent to the chart-decision agent.
type ChartDecisionInput struct {
	DataJSON  string `json:"data_json"`
	UserQuery string `json:"userQuery"`
}
