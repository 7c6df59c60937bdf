// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"consigna/internal/core/apperror"
	"consigna/internal/core/id"
	"consigna/internal/core/types"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Parsing helpers ---

// ParseMoney parses a decimal string field.
func ParseMoney(field, value string) (types.Money, error) {
	if value == "" {
		return types.Zero(), nil
	}
	m, err := types.NewMoneyFromString(value)
	if err != nil {
		return types.Zero(), apperror.NewValidation("invalid decimal value").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return m, nil
}

// ParseID parses a UUID field.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id format").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseOptionalID parses an optional UUID field.
func ParseOptionalID(field string, value *string) (*id.ID, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
