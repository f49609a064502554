package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
	"lotledger/internal/infrastructure/storage/postgres"
)

const (
	returnsTable     = "sale_returns"
	returnLinesTable = "sale_return_lines"
)

var (
	returnColumns     = []string{"id", "number", "sale_id", "returned_at", "reason", "created_at"}
	returnLineColumns = []string{"id", "return_id", "sale_id", "line_item_id", "quantity", "restored", "restored_at"}
)

// ReturnRepo implements returns.Repository and sales.ReturnLookup.
type ReturnRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var (
	_ returns.Repository = (*ReturnRepo)(nil)
	_ sales.ReturnLookup = (*ReturnRepo)(nil)
)

// NewReturnRepo creates a new return repository.
func NewReturnRepo(txm *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header and its lines in one multi-row statement each.
// Returns carry few lines, so COPY buys nothing here.
func (r *ReturnRepo) Create(ctx context.Context, ret *returns.Return) error {
	sql, args, err := r.builder.Insert(returnsTable).
		Columns(returnColumns...).
		Values(ret.ID, ret.Number, ret.SaleID, ret.ReturnedAt, ret.Reason, ret.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert return: %w", err)
	}
	if len(ret.Lines) == 0 {
		return nil
	}

	sql, args, err = r.insertLinesQuery(ret).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert return lines: %w", err)
	}
	return nil
}

func (r *ReturnRepo) insertLinesQuery(ret *returns.Return) squirrel.InsertBuilder {
	q := r.builder.Insert(returnLinesTable).Columns(returnLineColumns...)
	for _, l := range ret.Lines {
		q = q.Values(l.ID, ret.ID, ret.SaleID, l.LineItemID, l.Quantity, l.Restored, l.RestoredAt)
	}
	return q
}

func (r *ReturnRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*returns.Return, error) {
	sql, args, err := r.builder.Select(returnColumns...).
		From(returnsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("returned_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var out []*returns.Return
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select returns: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	sql, args, err = r.builder.Select(returnLineColumns...).
		From(returnLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []*returns.Line
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select return lines: %w", err)
	}

	byReturn := make(map[id.ID]*returns.Return, len(out))
	for _, ret := range out {
		byReturn[ret.ID] = ret
	}
	for _, l := range lines {
		if ret, ok := byReturn[l.ReturnID]; ok {
			ret.Lines = append(ret.Lines, l)
		}
	}
	return out, nil
}

type totalsRow struct {
	LineItemID id.ID `db:"line_item_id"`
	Returned   int64 `db:"returned"`
	Restored   int64 `db:"restored"`
}

func (r *ReturnRepo) totalsQuery(saleID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(
		"line_item_id",
		"COALESCE(SUM(quantity), 0) AS returned",
		"COALESCE(SUM(quantity) FILTER (WHERE restored), 0) AS restored",
	).
		From(returnLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		GroupBy("line_item_id")
}

func (r *ReturnRepo) Totals(ctx context.Context, saleID id.ID) (map[id.ID]returns.Totals, error) {
	sql, args, err := r.totalsQuery(saleID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []totalsRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select return totals: %w", err)
	}

	totals := make(map[id.ID]returns.Totals, len(rows))
	for _, row := range rows {
		totals[row.LineItemID] = returns.Totals{Returned: row.Returned, Restored: row.Restored}
	}
	return totals, nil
}

func (r *ReturnRepo) HasReturns(ctx context.Context, saleID id.ID) (bool, error) {
	sql, args, err := r.builder.Select("1").
		Prefix("SELECT EXISTS (").
		From(returnsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check returns: %w", err)
	}
	return exists, nil
}

func (r *ReturnRepo) GetLineForUpdate(ctx context.Context, lineID id.ID) (*returns.Line, error) {
	sql, args, err := r.builder.Select(returnLineColumns...).
		From(returnLinesTable).
		Where(squirrel.Eq{"id": lineID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l returns.Line
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("return line", lineID.String())
		}
		return nil, fmt.Errorf("get return line: %w", err)
	}
	return &l, nil
}

func (r *ReturnRepo) MarkRestored(ctx context.Context, lineID id.ID, at time.Time) error {
	sql, args, err := r.builder.Update(returnLinesTable).
		Set("restored", true).
		Set("restored_at", at).
		Where(squirrel.Eq{"id": lineID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark return line restored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("return line", lineID.String())
	}
	return nil
}
