package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"consigna/internal/core/id"
	"consigna/internal/domain"
	"consigna/internal/domain/sale"
)

const (
	saleTable     = "doc_sales"
	saleLineTable = "doc_sale_lines"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	baseRepo[*sale.Sale]
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(tm *TxManager) *SaleRepo {
	return &SaleRepo{
		baseRepo: newBaseRepo(
			tm,
			saleTable,
			ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return &sale.Sale{} },
		),
	}
}

// Create implements sale.Repository.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.create(ctx, s)
}

// SaveLines implements sale.Repository. Lines are written once at creation
// and never change afterwards.
func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	if len(lines) == 0 {
		return nil
	}

	cols := ExtractDBColumns[sale.Line]()
	q := r.builder().
		Insert(saleLineTable).
		Columns(cols...)

	for _, line := range lines {
		line.SaleID = saleID
		data := StructToMap(line)
		vals := make([]any, len(cols))
		for i, col := range cols {
			vals[i] = data[col]
		}
		q = q.Values(vals...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale lines: %w", err)
	}
	return nil
}

// Update implements sale.Repository.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	return r.update(ctx, s)
}

// GetByID implements sale.Repository.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.getByID(ctx, saleID)
}

// GetForUpdate implements sale.Repository.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.getForUpdate(ctx, saleID)
}

// GetLines implements sale.Repository.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	sql, args, err := r.builder().
		Select(ExtractDBColumns[sale.Line]()...).
		From(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sale.Line
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	return lines, nil
}

// ListStalePending implements sale.Repository.
func (r *SaleRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]id.ID, error) {
	q := r.builder().
		Select("id").
		From(saleTable).
		Where(squirrel.Eq{"status": sale.StatusPendingPayment}).
		Where(squirrel.LtOrEq{"created_at": cutoff}).
		OrderBy("created_at")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}
	return ids, nil
}

// List implements sale.Repository.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Channel != "" {
		q = q.Where(squirrel.Eq{"channel": filter.Channel})
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
		return result, fmt.Errorf("list sales: %w", err)
	}
	return result, nil
}
