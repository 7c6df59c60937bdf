// Package domain provides types shared across the domain services.
package domain

// --- Payment ---

// PaymentMethod identifies how a sale was paid. Cash feeds the open till
// session's drawer balance; card and digital only accumulate method totals.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "CASH"
	PaymentCard    PaymentMethod = "CARD"
	PaymentDigital PaymentMethod = "DIGITAL"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentDigital:
		return true
	}
	return false
}

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search performs a substring match on searchable fields
	Search string

	// OrderBy specifies sorting (e.g., "created_at", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-created_at",
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
