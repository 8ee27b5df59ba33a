package models

import "strings"

// AskRequest for POST /api/v1/ask
type AskRequest struct {
	Query string `json:"query"`
}

// Normalize trims surrounding whitespace from the question
func (r *AskRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
}
