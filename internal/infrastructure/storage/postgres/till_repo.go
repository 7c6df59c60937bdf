package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"consigna/internal/core/apperror"
	"consigna/internal/core/id"
	"consigna/internal/domain"
	"consigna/internal/domain/till"
)

const (
	tillSessionTable  = "till_sessions"
	tillMovementTable = "till_movements"
)

// TillRepo implements till.Repository.
type TillRepo struct {
	baseRepo[*till.Session]
}

var _ till.Repository = (*TillRepo)(nil)

// NewTillRepo creates a new till repository.
func NewTillRepo(tm *TxManager) *TillRepo {
	return &TillRepo{
		baseRepo: newBaseRepo(
			tm,
			tillSessionTable,
			ExtractDBColumns[till.Session](),
			func() *till.Session { return &till.Session{} },
		),
	}
}

// CreateSession implements till.Repository. The at-most-one-OPEN invariant
// is a partial unique index on (status) WHERE status = 'OPEN'; with two
// racing opens, exactly one insert wins and the loser maps to
// TILL_ALREADY_OPEN here.
func (r *TillRepo) CreateSession(ctx context.Context, s *till.Session) error {
	err := r.create(ctx, s)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict(apperror.CodeTillAlreadyOpen, "a till session is already open").
				WithCause(err)
		}
		return err
	}
	return nil
}

// GetOpen implements till.Repository.
func (r *TillRepo) GetOpen(ctx context.Context) (*till.Session, error) {
	session := &till.Session{}

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"status": till.StatusOpen}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.tm.GetQuerier(ctx), session, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(tillSessionTable, "open")
		}
		return nil, fmt.Errorf("get open session: %w", err)
	}
	return session, nil
}

// GetByID implements till.Repository.
func (r *TillRepo) GetByID(ctx context.Context, sessionID id.ID) (*till.Session, error) {
	return r.getByID(ctx, sessionID)
}

// GetForUpdate implements till.Repository.
func (r *TillRepo) GetForUpdate(ctx context.Context, sessionID id.ID) (*till.Session, error) {
	return r.getForUpdate(ctx, sessionID)
}

// UpdateSession implements till.Repository.
func (r *TillRepo) UpdateSession(ctx context.Context, s *till.Session) error {
	return r.update(ctx, s)
}

// CreateMovement implements till.Repository.
func (r *TillRepo) CreateMovement(ctx context.Context, m *till.Movement) error {
	data := StructToMap(m)

	sql, args, err := r.builder().
		Insert(tillMovementTable).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements implements till.Repository.
func (r *TillRepo) ListMovements(ctx context.Context, sessionID id.ID) ([]*till.Movement, error) {
	sql, args, err := r.builder().
		Select(ExtractDBColumns[till.Movement]()...).
		From(tillMovementTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*till.Movement
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return items, nil
}

// ListSessions implements till.Repository.
func (r *TillRepo) ListSessions(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*till.Session], error) {
	result := domain.ListResult[*till.Session]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	total, err := r.count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	orderBy, err := r.parseOrderBy(filter.OrderBy, "opened_at DESC")
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list sessions: %w", err)
	}
	return result, nil
}
