package dtos

import "encoding/json"

// Response is the server envelope: {"data": T}. Every pull-channel payload is
// wrapped this way.
type Response[T any] struct {
	Message   string         `json:"message,omitempty"`
	Data      T              `json:"data"`
	RequestID string         `json:"request_id,omitempty"`
	Errors    *ErrorResponse `json:"errors,omitempty"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Page is the inner shape of paged list responses:
// {"data": {"data": [...], "meta": {...}}}.
type Page[T any] struct {
	Data []T       `json:"data"`
	Meta *PageMeta `json:"meta,omitempty"`
}

type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
}

// UnwrapList handles both list encodings the server is known to emit: a bare
// array under "data", or a nested page object. Callers get a flat slice either
// way.
func UnwrapList[T any](data json.RawMessage) ([]T, error) {
	var flat []T
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var page Page[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}
