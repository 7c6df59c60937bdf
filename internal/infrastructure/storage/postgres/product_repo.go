package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"consigna/internal/core/id"
	"consigna/internal/domain"
	"consigna/internal/domain/inventory"
)

const productTable = "inv_products"

// ProductRepo implements inventory.Repository.
type ProductRepo struct {
	baseRepo[*inventory.Product]
}

var _ inventory.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(tm *TxManager) *ProductRepo {
	return &ProductRepo{
		baseRepo: newBaseRepo(
			tm,
			productTable,
			ExtractDBColumns[inventory.Product](),
			func() *inventory.Product { return &inventory.Product{} },
		),
	}
}

// Create implements inventory.Repository.
func (r *ProductRepo) Create(ctx context.Context, p *inventory.Product) error {
	return r.create(ctx, p)
}

// GetByID implements inventory.Repository.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*inventory.Product, error) {
	return r.getByID(ctx, productID)
}

// GetManyForUpdate implements inventory.Repository: loads the requested
// products with row locks. Rows are locked in a stable id order to avoid
// lock-order deadlocks between concurrent multi-item sales, then returned
// in input order; missing ids are simply absent.
func (r *ProductRepo) GetManyForUpdate(ctx context.Context, productIDs []id.ID) ([]*inventory.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": productIDs}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*inventory.Product
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	byID := make(map[id.ID]*inventory.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	ordered := make([]*inventory.Product, 0, len(rows))
	for _, pid := range productIDs {
		if p, ok := byID[pid]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// UpdateStatus implements inventory.Repository: the conditional bulk
// transition underpinning reserve-then-mark-sold. The WHERE on the current
// status makes the write a compare-and-set; the returned count tells the
// caller whether every row actually moved.
func (r *ProductRepo) UpdateStatus(ctx context.Context, productIDs []id.ID, from, to inventory.Status, soldAt *time.Time) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	q := r.builder().
		Update(productTable).
		Set("status", to).
		Set("sold_at", soldAt).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": productIDs}).
		Where(squirrel.Eq{"status": from})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	result, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update product status: %w", err)
	}
	return result.RowsAffected(), nil
}

// List implements inventory.Repository.
func (r *ProductRepo) List(ctx context.Context, filter inventory.ListFilter) (domain.ListResult[*inventory.Product], error) {
	result := domain.ListResult[*inventory.Product]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
		})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Ownership != "" {
		q = q.Where(squirrel.Eq{"ownership": filter.Ownership})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
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
		return result, fmt.Errorf("list products: %w", err)
	}
	return result, nil
}
