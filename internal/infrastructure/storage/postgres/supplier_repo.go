package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"consigna/internal/core/id"
	"consigna/internal/domain"
	"consigna/internal/domain/supplier"
)

const supplierTable = "cat_suppliers"

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	baseRepo[*supplier.Supplier]
}

var _ supplier.Repository = (*SupplierRepo)(nil)

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(tm *TxManager) *SupplierRepo {
	return &SupplierRepo{
		baseRepo: newBaseRepo(
			tm,
			supplierTable,
			ExtractDBColumns[supplier.Supplier](),
			func() *supplier.Supplier { return &supplier.Supplier{} },
		),
	}
}

// Create implements supplier.Repository.
func (r *SupplierRepo) Create(ctx context.Context, s *supplier.Supplier) error {
	return r.create(ctx, s)
}

// Update implements supplier.Repository.
func (r *SupplierRepo) Update(ctx context.Context, s *supplier.Supplier) error {
	return r.update(ctx, s)
}

// GetByID implements supplier.Repository.
func (r *SupplierRepo) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	return r.getByID(ctx, supplierID)
}

// List implements supplier.Repository.
func (r *SupplierRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*supplier.Supplier], error) {
	result := domain.ListResult[*supplier.Supplier]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	total, err := r.count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	orderBy, err := r.parseOrderBy(filter.OrderBy, "name ASC")
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
		return result, fmt.Errorf("list suppliers: %w", err)
	}
	return result, nil
}
