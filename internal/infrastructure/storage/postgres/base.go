package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"consigna/internal/core/apperror"
	"consigna/internal/core/id"
)

// baseRepo provides common CRUD plumbing for entity repositories: insert
// and optimistic-lock update driven by "db" tags, locked and unlocked
// point reads, and order-by validation for list queries.
type baseRepo[T any] struct {
	tm    *TxManager
	table string
	cols  []string
	newFn func() T
}

func newBaseRepo[T any](tm *TxManager, table string, cols []string, newFn func() T) baseRepo[T] {
	return baseRepo[T]{tm: tm, table: table, cols: cols, newFn: newFn}
}

// builder returns a squirrel builder with PostgreSQL placeholders.
func (r *baseRepo[T]) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *baseRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(r.cols...).
		From(r.table)
}

// create inserts a new entity using its "db" tags.
func (r *baseRepo[T]) create(ctx context.Context, entity T) error {
	data := StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().
		Insert(r.table).
		SetMap(filtered).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.table, err)
	}
	return nil
}

// update modifies an existing entity with optimistic locking. The caller
// is expected to have called Touch, so the in-memory version is already
// one ahead of the stored row.
func (r *baseRepo[T]) update(ctx context.Context, entity T) error {
	data := StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field with db tag")
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if col == "id" || col == "version" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().
		Update(r.table).
		SetMap(filtered).
		Set("version", version).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version - 1}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.table, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.table, entityID)
	}
	return nil
}

// getByID retrieves an entity by ID.
func (r *baseRepo[T]) getByID(ctx context.Context, entityID id.ID) (T, error) {
	entity := r.newFn()

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.tm.GetQuerier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.table, entityID.String())
		}
		return entity, fmt.Errorf("get by id: %w", err)
	}
	return entity, nil
}

// getForUpdate retrieves an entity by ID with a row lock.
func (r *baseRepo[T]) getForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	entity := r.newFn()

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.tm.GetQuerier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.table, entityID.String())
		}
		return entity, fmt.Errorf("get for update: %w", err)
	}
	return entity, nil
}

// count runs a COUNT(*) over the filtered query, before pagination.
func (r *baseRepo[T]) count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := r.builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := r.tm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return total, nil
}

// parseOrderBy validates an "field" / "-field" order clause against the
// known columns. An empty clause falls back to the given default.
func (r *baseRepo[T]) parseOrderBy(orderBy, defaultOrder string) (string, error) {
	if orderBy == "" {
		return defaultOrder, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}
	field = strings.TrimSpace(field)

	for _, col := range r.cols {
		if col == field {
			return field + " " + direction, nil
		}
	}
	return "", apperror.NewValidation("invalid orderBy").
		WithDetail("orderBy", orderBy).
		WithDetail("field", field)
}
