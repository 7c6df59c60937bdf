// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Operator contains the authenticated staff member acting on a request.
// Tokens are issued by the storefront's identity service; this engine only
// consumes them.
type Operator struct {
	UserID string
	Name   string
	Roles  []string
}

type operatorKey struct{}

// WithOperator adds Operator to context.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// GetOperator returns Operator from context.
func GetOperator(ctx context.Context) *Operator {
	if v, ok := ctx.Value(operatorKey{}).(*Operator); ok {
		return v
	}
	return nil
}

// GetOperatorID returns the acting user id from context or empty string.
func GetOperatorID(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil {
		return op.UserID
	}
	return ""
}

// HasRole checks if the operator has a specific role.
func HasRole(ctx context.Context, role string) bool {
	op := GetOperator(ctx)
	if op == nil {
		return false
	}
	for _, r := range op.Roles {
		if r == role {
			return true
		}
	}
	return false
}
