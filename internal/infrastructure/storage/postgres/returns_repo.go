package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"consigna/internal/core/id"
	"consigna/internal/domain"
	"consigna/internal/domain/returns"
	"consigna/internal/domain/sale"
)

const returnTable = "ret_requests"

// ReturnRepo implements returns.Repository and sale.ReturnChecker.
type ReturnRepo struct {
	baseRepo[*returns.ReturnRequest]
}

var (
	_ returns.Repository = (*ReturnRepo)(nil)
	_ sale.ReturnChecker = (*ReturnRepo)(nil)
)

// NewReturnRepo creates a new return-request repository.
func NewReturnRepo(tm *TxManager) *ReturnRepo {
	return &ReturnRepo{
		baseRepo: newBaseRepo(
			tm,
			returnTable,
			ExtractDBColumns[returns.ReturnRequest](),
			func() *returns.ReturnRequest { return &returns.ReturnRequest{} },
		),
	}
}

// Create implements returns.Repository.
func (r *ReturnRepo) Create(ctx context.Context, req *returns.ReturnRequest) error {
	return r.create(ctx, req)
}

// Update implements returns.Repository.
func (r *ReturnRepo) Update(ctx context.Context, req *returns.ReturnRequest) error {
	return r.update(ctx, req)
}

// GetByID implements returns.Repository.
func (r *ReturnRepo) GetByID(ctx context.Context, requestID id.ID) (*returns.ReturnRequest, error) {
	return r.getByID(ctx, requestID)
}

// GetForUpdate implements returns.Repository.
func (r *ReturnRepo) GetForUpdate(ctx context.Context, requestID id.ID) (*returns.ReturnRequest, error) {
	return r.getForUpdate(ctx, requestID)
}

// HasDecision implements sale.ReturnChecker.
func (r *ReturnRepo) HasDecision(ctx context.Context, saleID id.ID) (bool, error) {
	sql, args, err := r.builder().
		Select("1").
		From(returnTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		Where(squirrel.Eq{"status": []returns.Status{returns.StatusApproved, returns.StatusDeclined}}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.tm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has decision: %w", err)
	}
	return true, nil
}

// List implements returns.Repository.
func (r *ReturnRepo) List(ctx context.Context, filter returns.ListFilter) (domain.ListResult[*returns.ReturnRequest], error) {
	result := domain.ListResult[*returns.ReturnRequest]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.SaleID != nil {
		q = q.Where(squirrel.Eq{"sale_id": *filter.SaleID})
	}

	total, err := r.count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	orderBy, err := r.parseOrderBy(filter.OrderBy, "created_at DESC")
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
		return result, fmt.Errorf("list return requests: %w", err)
	}
	return result, nil
}
