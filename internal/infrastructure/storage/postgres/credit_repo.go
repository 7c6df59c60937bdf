package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"consigna/internal/core/id"
	"consigna/internal/core/types"
	"consigna/internal/domain"
	"consigna/internal/domain/credit"
)

const creditTable = "led_credits"

// CreditRepo implements credit.Repository.
type CreditRepo struct {
	baseRepo[*credit.Credit]
}

var _ credit.Repository = (*CreditRepo)(nil)

// NewCreditRepo creates a new credit repository.
func NewCreditRepo(tm *TxManager) *CreditRepo {
	return &CreditRepo{
		baseRepo: newBaseRepo(
			tm,
			creditTable,
			ExtractDBColumns[credit.Credit](),
			func() *credit.Credit { return &credit.Credit{} },
		),
	}
}

// Create implements credit.Repository.
func (r *CreditRepo) Create(ctx context.Context, c *credit.Credit) error {
	return r.create(ctx, c)
}

// GetByID implements credit.Repository.
func (r *CreditRepo) GetByID(ctx context.Context, creditID id.ID) (*credit.Credit, error) {
	return r.getByID(ctx, creditID)
}

// GetForUpdate implements credit.Repository.
func (r *CreditRepo) GetForUpdate(ctx context.Context, creditID id.ID) (*credit.Credit, error) {
	return r.getForUpdate(ctx, creditID)
}

// Update implements credit.Repository.
func (r *CreditRepo) Update(ctx context.Context, c *credit.Credit) error {
	return r.update(ctx, c)
}

// ReleaseMatured implements credit.Repository. The join keeps credits of
// cancelled and refunded sales PENDING forever: they never release.
func (r *CreditRepo) ReleaseMatured(ctx context.Context, asOf, releasedAt time.Time) (int64, error) {
	sql := `
		UPDATE led_credits c
		SET status = $1,
		    released_at = $2,
		    version = c.version + 1,
		    updated_at = NOW()
		FROM doc_sales s
		WHERE c.sale_id = s.id
		  AND s.status = $3
		  AND c.status = $4
		  AND c.matures_at <= $5
	`
	result, err := r.tm.GetQuerier(ctx).Exec(ctx, sql,
		credit.StatusReleased, releasedAt, "CONFIRMED", credit.StatusPending, asOf,
	)
	if err != nil {
		return 0, fmt.Errorf("release matured credits: %w", err)
	}
	return result.RowsAffected(), nil
}

// SumByStatus implements credit.Repository.
func (r *CreditRepo) SumByStatus(ctx context.Context, supplierID id.ID, status credit.Status) (types.Money, error) {
	sql, args, err := r.builder().
		Select("COALESCE(SUM(value), 0)").
		From(creditTable).
		Where(squirrel.Eq{"supplier_id": supplierID}).
		Where(squirrel.Eq{"status": status}).
		ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var total decimal.Decimal
	if err := r.tm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("sum credits: %w", err)
	}
	return total, nil
}

// ListBySale implements credit.Repository.
func (r *CreditRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*credit.Credit, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*credit.Credit
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list credits by sale: %w", err)
	}
	return items, nil
}

// ListBySupplier implements credit.Repository.
func (r *CreditRepo) ListBySupplier(ctx context.Context, supplierID id.ID, filter domain.ListFilter) (domain.ListResult[*credit.Credit], error) {
	result := domain.ListResult[*credit.Credit]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"supplier_id": supplierID})

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
		return result, fmt.Errorf("list credits: %w", err)
	}
	return result, nil
}
