// Package catalog_repo provides the PostgreSQL product repository.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/infrastructure/storage/postgres"
)

const productTable = "products"

var productColumns = []string{
	"id", "name", "sale_price", "active", "supplier_id",
	"lead_time_days", "min_coverage_days", "created_at", "updated_at",
}

// ProductRepo implements catalog.Repository.
type ProductRepo struct {
	txm *postgres.TxManager
}

var _ catalog.Repository = (*ProductRepo)(nil)

// NewProductRepo creates the repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{txm: txm}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *ProductRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ProductRepo) insertQuery(p *catalog.Product) squirrel.InsertBuilder {
	return r.Builder().
		Insert(productTable).
		Columns(productColumns...).
		Values(p.ID, p.Name, p.SalePrice, p.Active, p.SupplierID,
			p.LeadTimeDays, p.MinCoverageDays, p.CreatedAt, p.UpdatedAt)
}

func (r *ProductRepo) Create(ctx context.Context, p *catalog.Product) error {
	sql, args, err := r.insertQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewConflict("product with this name already exists").
				WithDetail("name", p.Name)
		}
		return fmt.Errorf("insert %s: %w", productTable, err)
	}
	return nil
}

func (r *ProductRepo) updateQuery(p *catalog.Product) squirrel.UpdateBuilder {
	return r.Builder().
		Update(productTable).
		SetMap(map[string]any{
			"name":              p.Name,
			"sale_price":        p.SalePrice,
			"active":            p.Active,
			"supplier_id":       p.SupplierID,
			"lead_time_days":    p.LeadTimeDays,
			"min_coverage_days": p.MinCoverageDays,
			"updated_at":        p.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": p.ID})
}

func (r *ProductRepo) Update(ctx context.Context, p *catalog.Product) error {
	sql, args, err := r.updateQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NewConflict("product with this name already exists").
				WithDetail("name", p.Name)
		}
		return fmt.Errorf("update %s: %w", productTable, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID.String())
	}
	return nil
}

func (r *ProductRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(productColumns...).
		From(productTable)
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": productID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]*catalog.Product, error) {
	sql, args, err := r.baseSelect().OrderBy("name", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*catalog.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (r *ProductRepo) deleteQuery(productID id.ID) squirrel.DeleteBuilder {
	return r.Builder().Delete(productTable).Where(squirrel.Eq{"id": productID})
}

// Delete removes the product; lots go with it through ON DELETE CASCADE.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	sql, args, err := r.deleteQuery(productID).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NewProductHasSales(productID.String())
		}
		return fmt.Errorf("delete %s: %w", productTable, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
