package consts

// Agent names. They double as prompt file names and callback log tags.
const (
	AnalystAgent      = "analyst"
	ChartDeciderAgent = "chart_decider"
)
