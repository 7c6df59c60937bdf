package till

import (
	"context"

	"consigna/internal/core/id"
	"consigna/internal/domain"
)

// Repository defines persistence operations for till sessions.
type Repository interface {
	// CreateSession inserts a new OPEN session. Implementations must enforce
	// the at-most-one-OPEN invariant (partial unique index) and return a
	// TILL_ALREADY_OPEN conflict when it is violated.
	CreateSession(ctx context.Context, s *Session) error

	// GetOpen returns the single OPEN session, or a not-found error.
	GetOpen(ctx context.Context) (*Session, error)

	GetByID(ctx context.Context, sessionID id.ID) (*Session, error)
	GetForUpdate(ctx context.Context, sessionID id.ID) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error

	CreateMovement(ctx context.Context, m *Movement) error
	ListMovements(ctx context.Context, sessionID id.ID) ([]*Movement, error)

	ListSessions(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Session], error)
}
