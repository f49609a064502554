package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "lotledger/internal/core/context"
	"lotledger/internal/core/id"
	"lotledger/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which changes are stored compressed.
const DefaultCompressThreshold = 10 * 1024

// AuditRow is a stored journal record.
type AuditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            audit.Action    `db:"action"`
	Operator          string          `db:"operator"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Journal implements audit.Journal on the sys_audit table.
type Journal struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Journal = (*Journal)(nil)

// NewJournal creates the journal.
func NewJournal(txManager *TxManager) (*Journal, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Journal{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// Record implements audit.Journal.
func (j *Journal) Record(ctx context.Context, e audit.Entry) error {
	row, err := j.toRow(ctx, e)
	if err != nil {
		return err
	}

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert("sys_audit").
		Columns("id", "entity_type", "entity_id", "action", "operator",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(row.ID, row.EntityType, row.EntityID, row.Action, row.Operator,
			row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := j.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (j *Journal) toRow(ctx context.Context, e audit.Entry) (AuditRow, error) {
	row := AuditRow{
		ID:              e.ID,
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Action:          e.Action,
		Operator:        e.Operator,
		CreatedAt:       e.CreatedAt,
		CompressionAlgo: CompressionNone,
	}
	if id.IsNil(row.ID) {
		row.ID = id.New()
	}
	if row.Operator == "" {
		row.Operator = appctx.GetOperator(ctx)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	if e.Payload != nil {
		changes, err := json.Marshal(e.Payload)
		if err != nil {
			return row, fmt.Errorf("marshal audit payload: %w", err)
		}
		row.Changes = changes
	}

	if len(row.Changes) > j.compressThreshold {
		row.ChangesCompressed = j.encoder.EncodeAll(row.Changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row, nil
}

// History returns journal rows of one entity, newest first, with
// compressed payloads expanded.
func (j *Journal) History(ctx context.Context, entityType string, entityID id.ID, limit uint64) ([]AuditRow, error) {
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "entity_type", "entity_id", "action", "operator",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From("sys_audit").
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []AuditRow
	if err := pgxscan.Select(ctx, j.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	for i := range rows {
		if err := j.expand(&rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (j *Journal) expand(r *AuditRow) error {
	if r.CompressionAlgo != CompressionZstd || len(r.ChangesCompressed) == 0 {
		return nil
	}
	decompressed, err := j.decoder.DecodeAll(r.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	r.Changes = decompressed
	r.ChangesCompressed = nil
	return nil
}
