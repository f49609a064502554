// Package register_repo provides the PostgreSQL lot repository.
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/lots"
	"lotledger/internal/infrastructure/storage/postgres"
)

const lotsTable = "lots"

var lotColumns = []string{
	"id", "product_id", "supplier_id", "initial_quantity", "current_quantity",
	"unit_cost", "arrived_at", "origin", "created_at",
}

// LotRepo implements lots.Repository.
type LotRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ lots.Repository = (*LotRepo)(nil)

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *LotRepo) Create(ctx context.Context, l *lots.Lot) error {
	sql, args, err := r.builder.Insert(lotsTable).
		Columns(lotColumns...).
		Values(l.ID, l.ProductID, l.SupplierID, l.InitialQuantity, l.CurrentQuantity,
			l.UnitCost, l.ArrivedAt, l.Origin, l.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// CreateBatch bulk-inserts lots with COPY. It must run inside a transaction.
func (r *LotRepo) CreateBatch(ctx context.Context, batch []*lots.Lot) error {
	rows := make([][]any, 0, len(batch))
	for _, l := range batch {
		rows = append(rows, []any{
			l.ID, l.ProductID, l.SupplierID, l.InitialQuantity, l.CurrentQuantity,
			postgres.Numeric(l.UnitCost), l.ArrivedAt, string(l.Origin), l.CreatedAt,
		})
	}
	if _, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, lotsTable, lotColumns, rows); err != nil {
		return fmt.Errorf("copy lots: %w", err)
	}
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lots.Lot, error) {
	sql, args, err := r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"id": lotID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l lots.Lot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", lotID.String())
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return &l, nil
}

// availableQuery selects lots with stock in consumption order and locks them.
func (r *LotRepo) availableQuery(productID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Gt{"current_quantity": 0}).
		OrderBy("arrived_at", "id").
		Suffix("FOR UPDATE")
}

func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, productID id.ID) ([]*lots.Lot, error) {
	sql, args, err := r.availableQuery(productID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*lots.Lot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select available lots: %w", err)
	}
	return out, nil
}

func (r *LotRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*lots.Lot, error) {
	sql, args, err := r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("arrived_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*lots.Lot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}
	return out, nil
}

func (r *LotRepo) latestQuery(productID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		Suffix("FOR UPDATE")
}

func (r *LotRepo) LatestForUpdate(ctx context.Context, productID id.ID) (*lots.Lot, error) {
	sql, args, err := r.latestQuery(productID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l lots.Lot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", productID.String())
		}
		return nil, fmt.Errorf("get latest lot: %w", err)
	}
	return &l, nil
}

// decrementQuery only matches while the lot holds at least amount units, so
// current_quantity can never go negative.
func (r *LotRepo) decrementQuery(lotID id.ID, amount int64) squirrel.UpdateBuilder {
	return r.builder.Update(lotsTable).
		Set("current_quantity", squirrel.Expr("current_quantity - ?", amount)).
		Where(squirrel.Eq{"id": lotID}).
		Where(squirrel.GtOrEq{"current_quantity": amount}).
		Suffix("RETURNING current_quantity")
}

func (r *LotRepo) Decrement(ctx context.Context, lotID id.ID, amount int64) (int64, error) {
	sql, args, err := r.decrementQuery(lotID, amount).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var current int64
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		l, getErr := r.GetByID(ctx, lotID)
		if getErr != nil {
			return 0, getErr
		}
		return 0, apperror.NewInsufficientLotQuantity(lotID.String(), amount, l.CurrentQuantity)
	}
	if err != nil {
		return 0, fmt.Errorf("decrement lot: %w", err)
	}
	return current, nil
}

func (r *LotRepo) incrementQuery(lotID id.ID, amount int64) squirrel.UpdateBuilder {
	return r.builder.Update(lotsTable).
		Set("current_quantity", squirrel.Expr("current_quantity + ?", amount)).
		Where(squirrel.Eq{"id": lotID}).
		Suffix("RETURNING current_quantity")
}

func (r *LotRepo) Increment(ctx context.Context, lotID id.ID, amount int64) (int64, error) {
	sql, args, err := r.incrementQuery(lotID, amount).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var current int64
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.NewNotFound("lot", lotID.String())
	}
	if err != nil {
		return 0, fmt.Errorf("increment lot: %w", err)
	}
	return current, nil
}
