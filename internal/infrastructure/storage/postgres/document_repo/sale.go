// Package document_repo provides the PostgreSQL sale and return repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/fifo"
	"lotledger/internal/domain/sales"
	"lotledger/internal/infrastructure/storage/postgres"
)

const (
	salesTable        = "sales"
	saleLinesTable    = "sale_line_items"
	consumptionsTable = "line_item_lot_consumptions"
)

var (
	saleColumns = []string{
		"id", "number", "sale_date", "customer_name", "channel", "status",
		"discount", "payment_method", "installments", "fee_rate", "version",
		"created_at", "updated_at",
	}
	saleLineColumns = []string{
		"id", "sale_id", "line_no", "product_id", "quantity",
		"unit_price", "registered_cost", "gift",
	}
	consumptionColumns = []string{"line_item_id", "seq", "lot_id", "quantity", "unit_cost"}
)

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txm *postgres.TxManager
}

var _ sales.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{txm: txm}
}

// Builder returns a new squirrel builder.
func (r *SaleRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *SaleRepo) Create(ctx context.Context, s *sales.Sale) error {
	sql, args, err := r.Builder().
		Insert(salesTable).
		Columns(saleColumns...).
		Values(s.ID, s.Number, s.Date, s.CustomerName, s.Channel, s.Status,
			s.Discount, s.PaymentMethod, s.Installments, s.FeeRate, s.Version,
			s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// updateQuery writes the header. The version check turns a lost update into
// a conflict: callers bump Version by one before saving.
func (r *SaleRepo) updateQuery(s *sales.Sale) squirrel.UpdateBuilder {
	return r.Builder().
		Update(salesTable).
		SetMap(map[string]any{
			"sale_date":      s.Date,
			"customer_name":  s.CustomerName,
			"channel":        s.Channel,
			"status":         s.Status,
			"discount":       s.Discount,
			"payment_method": s.PaymentMethod,
			"installments":   s.Installments,
			"fee_rate":       s.FeeRate,
			"version":        s.Version,
			"updated_at":     s.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Eq{"version": s.Version - 1})
}

func (r *SaleRepo) Update(ctx context.Context, s *sales.Sale) error {
	sql, args, err := r.updateQuery(s).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("sale was modified concurrently").
			WithDetail("sale_id", s.ID.String()).
			WithDetail("version", s.Version)
	}
	return nil
}

// Delete removes the header; line items and consumption rows cascade.
func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) error {
	sql, args, err := r.Builder().
		Delete(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID.String())
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.get(ctx, r.Builder().Select(saleColumns...).From(salesTable).Where(squirrel.Eq{"id": saleID}), saleID)
}

// GetForUpdate locks the sale header row for the rest of the transaction.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	q := r.Builder().Select(saleColumns...).From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		Suffix("FOR UPDATE")
	return r.get(ctx, q, saleID)
}

func (r *SaleRepo) get(ctx context.Context, q squirrel.SelectBuilder, saleID id.ID) (*sales.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sales.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	if err := r.loadLines(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

type consumptionRow struct {
	LineItemID id.ID `db:"line_item_id"`
	fifo.Draw
}

func (r *SaleRepo) loadLines(ctx context.Context, s *sales.Sale) error {
	sql, args, err := r.Builder().
		Select(saleLineColumns...).
		From(saleLinesTable).
		Where(squirrel.Eq{"sale_id": s.ID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &s.Lines, sql, args...); err != nil {
		return fmt.Errorf("select sale lines: %w", err)
	}
	if len(s.Lines) == 0 {
		return nil
	}

	sql, args, err = r.drawsQuery(s.ID).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var rows []consumptionRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return fmt.Errorf("select consumptions: %w", err)
	}

	byLine := make(map[id.ID]*sales.LineItem, len(s.Lines))
	for _, l := range s.Lines {
		byLine[l.ID] = l
	}
	for _, row := range rows {
		if l, ok := byLine[row.LineItemID]; ok {
			l.Draws = append(l.Draws, row.Draw)
		}
	}
	return nil
}

// drawsQuery returns the sale's consumption rows in recorded order.
func (r *SaleRepo) drawsQuery(saleID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select("c.line_item_id", "c.lot_id", "c.quantity", "c.unit_cost").
		From(consumptionsTable + " c").
		Join(saleLinesTable + " li ON li.id = c.line_item_id").
		Where(squirrel.Eq{"li.sale_id": saleID}).
		OrderBy("li.line_no", "c.seq")
}

// SaveLines writes the sale's line items and their consumption trails with
// COPY. It must run inside a transaction.
func (r *SaleRepo) SaveLines(ctx context.Context, s *sales.Sale) error {
	lineRows := make([][]any, 0, len(s.Lines))
	var drawRows [][]any
	for _, l := range s.Lines {
		lineRows = append(lineRows, []any{
			l.ID, s.ID, l.LineNo, l.ProductID, l.Quantity,
			postgres.Numeric(l.UnitPrice), postgres.Numeric(l.RegisteredCost), l.Gift,
		})
		for seq, d := range l.Draws {
			drawRows = append(drawRows, []any{
				l.ID, seq + 1, d.LotID, d.Quantity, postgres.Numeric(d.UnitCost),
			})
		}
	}

	inserter := postgres.NewBatchInserter(r.txm)
	if _, err := inserter.CopyFromSlice(ctx, saleLinesTable, saleLineColumns, lineRows); err != nil {
		return fmt.Errorf("copy sale lines: %w", err)
	}
	if _, err := inserter.CopyFromSlice(ctx, consumptionsTable, consumptionColumns, drawRows); err != nil {
		return fmt.Errorf("copy consumptions: %w", err)
	}
	return nil
}

func (r *SaleRepo) DeleteLines(ctx context.Context, saleID id.ID) error {
	sql, args, err := r.Builder().
		Delete(saleLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete sale lines: %w", err)
	}
	return nil
}

func (r *SaleRepo) deleteDrawsQuery(saleID id.ID) squirrel.DeleteBuilder {
	return r.Builder().
		Delete(consumptionsTable).
		Where(squirrel.Expr("line_item_id IN (SELECT id FROM "+saleLinesTable+" WHERE sale_id = ?)", saleID))
}

func (r *SaleRepo) DeleteDraws(ctx context.Context, saleID id.ID) error {
	sql, args, err := r.deleteDrawsQuery(saleID).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete consumptions: %w", err)
	}
	return nil
}

func (r *SaleRepo) listQuery(f sales.ListFilter) squirrel.SelectBuilder {
	q := r.Builder().Select(saleColumns...).From(salesTable)
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"sale_date": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"sale_date": *f.To})
	}
	if f.Channel != "" {
		q = q.Where(squirrel.Eq{"channel": f.Channel})
	}
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"status": f.Status})
	}
	q = q.OrderBy("sale_date DESC", "id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	return q
}

// List returns sale headers without lines, newest first.
func (r *SaleRepo) List(ctx context.Context, f sales.ListFilter) ([]*sales.Sale, error) {
	sql, args, err := r.listQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*sales.Sale
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return out, nil
}

func (r *SaleRepo) productLinesQuery(productID id.ID) squirrel.SelectBuilder {
	return r.Builder().Select("1").
		Prefix("SELECT EXISTS (").
		From(saleLinesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Suffix(")")
}

func (r *SaleRepo) ReferencesProduct(ctx context.Context, productID id.ID) (bool, error) {
	sql, args, err := r.productLinesQuery(productID).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product lines: %w", err)
	}
	return exists, nil
}
