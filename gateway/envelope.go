package gateway

import (
	"encoding/json"
)

// Envelope is the API's uniform response wrapper: {success, message, data,
// meta?}. Error responses carry the reason in Message or, on some routes,
// in the legacy "error" field.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
	ErrMsg  string          `json:"error,omitempty"`
}

// Reason returns the server-provided failure message, preferring the
// message field over the legacy error field.
func (e *Envelope) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrMsg
}

// Meta carries list metadata attached to collection responses.
type Meta struct {
	Pagination *Pagination    `json:"pagination,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
	Sort       *Sort          `json:"sort,omitempty"`
}

// Pagination describes the page window of a collection response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Sort describes the ordering applied to a collection response.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}
