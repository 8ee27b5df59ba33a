package models

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ToolReport is one tool result as exposed over HTTP
type ToolReport struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
	Error     string         `json:"error,omitempty"`
}

// AskResponse is returned by POST /api/v1/ask
type AskResponse struct {
	Answer string       `json:"answer"`
	Tools  []ToolReport `json:"tools"`
}
