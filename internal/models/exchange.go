package models

import "time"

// Outcome is the terminal result of one AI call.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeAPIError          Outcome = "api_error"
	OutcomeTransportError    Outcome = "transport_error"
	OutcomeMalformedResponse Outcome = "malformed_response"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeClientError       Outcome = "client_error" // request never sent: no key, bad endpoint or body
)

// Route names which AI call a run was dispatched to.
type Route string

const (
	RouteGeneral Route = "general"
	RouteExplain Route = "explain"
)

// Exchange records a single request/response round trip for a cell run.
type Exchange struct {
	ID               string        `json:"id"`
	CellID           string        `json:"cell_id"`
	DocumentID       string        `json:"document_id"`
	Route            Route         `json:"route"`
	Prompt           string        `json:"prompt"`
	Model            string        `json:"model,omitempty"`
	Content          string        `json:"content,omitempty"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	Latency          time.Duration `json:"latency"`
	Outcome          Outcome       `json:"outcome"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}
