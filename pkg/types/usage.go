package types

// ToolUsage aggregates the recorded invocations of one tool in one mode.
type ToolUsage struct {
	Tool     string  `json:"tool"`
	Mode     string  `json:"mode"`
	Calls    int64   `json:"calls"`
	Failures int64   `json:"failures"`
	Credits  float64 `json:"credits"`
}

// UsageSummary is returned by the usage endpoint.
type UsageSummary struct {
	Tools        []ToolUsage `json:"tools"`
	TotalCalls   int64       `json:"total_calls"`
	TotalCredits float64     `json:"total_credits"`
}
