// Package report_repo provides the PostgreSQL report queries.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotledger/internal/core/types"
	"lotledger/internal/domain/reports"
	"lotledger/internal/domain/sales"
	"lotledger/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ReportRepo) productSalesQuery(from, to time.Time) squirrel.SelectBuilder {
	return r.builder.Select(
		"li.product_id",
		"p.name AS product_name",
		"SUM(li.quantity)::bigint AS quantity",
		"SUM(li.quantity * li.unit_price) AS revenue",
		"SUM(li.registered_cost) AS cost",
	).
		From("sale_line_items li").
		Join("sales s ON s.id = li.sale_id").
		Join("products p ON p.id = li.product_id").
		Where(squirrel.Eq{"s.status": string(sales.StatusCompleted)}).
		Where(squirrel.GtOrEq{"s.sale_date": from}).
		Where(squirrel.Lt{"s.sale_date": to}).
		GroupBy("li.product_id", "p.name")
}

// ProductSales aggregates completed sale lines per product.
func (r *ReportRepo) ProductSales(ctx context.Context, from, to time.Time) ([]reports.ProductSales, error) {
	sql, args, err := r.productSalesQuery(from, to).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.ProductSales
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("product sales report: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) stockValueQuery() squirrel.SelectBuilder {
	return r.builder.Select("COALESCE(SUM(l.current_quantity * l.unit_cost), 0)").
		From("lots l").
		Join("products p ON p.id = l.product_id").
		Where("p.active").
		Where(squirrel.Gt{"l.current_quantity": 0})
}

// StockValue sums the cost of stock on hand for active products.
func (r *ReportRepo) StockValue(ctx context.Context) (types.Money, error) {
	sql, args, err := r.stockValueQuery().ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var value types.Money
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &value, sql, args...); err != nil {
		return types.Zero(), fmt.Errorf("stock value report: %w", err)
	}
	return value, nil
}
