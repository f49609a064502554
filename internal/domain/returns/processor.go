package returns

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/numerator"
	"lotledger/internal/core/tx"
	"lotledger/internal/domain/audit"
	"lotledger/internal/domain/fifo"
	"lotledger/internal/domain/sales"
	"lotledger/internal/domain/settings"
	"lotledger/pkg/logger"
)

var tracer = otel.Tracer("lotledger/returns")

// Processor registers returns.
type Processor struct {
	txm       tx.Manager
	returns   Repository
	sales     sales.Repository
	engine    *fifo.Engine
	numerator numerator.Generator
	journal   audit.Journal
	now       func() time.Time
}

// Deps groups Processor collaborators.
type Deps struct {
	TxManager tx.Manager
	Returns   Repository
	Sales     sales.Repository
	Engine    *fifo.Engine
	Numerator numerator.Generator
	Journal   audit.Journal
	Clock     func() time.Time
}

// NewProcessor creates a return processor.
func NewProcessor(d Deps) *Processor {
	p := &Processor{
		txm:       d.TxManager,
		returns:   d.Returns,
		sales:     d.Sales,
		engine:    d.Engine,
		numerator: d.Numerator,
		journal:   d.Journal,
		now:       d.Clock,
	}
	if p.journal == nil {
		p.journal = audit.Nop{}
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	return p
}

// Register validates every requested line against what is still returnable,
// then records the return and, unless deferred, restores the units to the
// lots of each line's trail in recorded order.
func (p *Processor) Register(ctx context.Context, cfg settings.Settings, saleID id.ID, req Request) (*Return, error) {
	ctx, span := tracer.Start(ctx, "returns.Register", trace.WithAttributes(
		attribute.String("sale.id", saleID.String()),
		attribute.Bool("return.deferred", req.Deferred),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var ret *Return
	err := p.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := p.sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Cancelled() {
			return apperror.NewSaleCancelled(saleID.String())
		}

		now := p.now()
		returnedAt := req.ReturnedAt
		if returnedAt.IsZero() {
			returnedAt = now
		}
		returnedAt = returnedAt.UTC()
		if cfg.GracePeriodDays > 0 && returnedAt.After(sale.Date.AddDate(0, 0, cfg.GracePeriodDays)) {
			return apperror.NewBusinessRule(apperror.CodeReturnWindowClosed, "Return window has closed").
				WithDetail("sale_date", sale.Date).
				WithDetail("grace_period_days", cfg.GracePeriodDays)
		}

		totals, err := p.returns.Totals(ctx, saleID)
		if err != nil {
			return fmt.Errorf("return totals: %w", err)
		}

		ret = &Return{
			ID:         id.New(),
			SaleID:     saleID,
			ReturnedAt: returnedAt,
			Reason:     req.Reason,
			CreatedAt:  now,
		}
		items := make([]*sales.LineItem, 0, len(req.Lines))
		for _, lr := range req.Lines {
			item, ok := sale.Line(lr.LineItemID)
			if !ok {
				return apperror.NewValidation("line item does not belong to the sale").
					WithDetail("line_item_id", lr.LineItemID.String())
			}
			returnable := item.Quantity - totals[item.ID].Returned
			if lr.Quantity > returnable {
				return apperror.NewExceedsReturnable(item.ID.String(), lr.Quantity, returnable)
			}
			if lr.Quantity == 0 {
				continue
			}
			ret.Lines = append(ret.Lines, &Line{
				ID:         id.New(),
				ReturnID:   ret.ID,
				SaleID:     saleID,
				LineItemID: item.ID,
				Quantity:   lr.Quantity,
			})
			items = append(items, item)
		}
		if len(ret.Lines) == 0 {
			return apperror.NewBusinessRule(apperror.CodeEmptyReturn, "Return has no units")
		}

		if !req.Deferred {
			for i, l := range ret.Lines {
				if err := p.restore(ctx, items[i], l, totals[items[i].ID].Restored, now); err != nil {
					return err
				}
			}
		}

		ret.Number, err = p.numerator.Next(ctx, numerator.DefaultConfig(numerator.PrefixReturn), returnedAt)
		if err != nil {
			return fmt.Errorf("next return number: %w", err)
		}
		if err := p.returns.Create(ctx, ret); err != nil {
			return fmt.Errorf("create return: %w", err)
		}
		return p.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntityReturn,
			EntityID:   ret.ID,
			Action:     audit.ActionCreate,
			Payload:    ret,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return registered",
		"return_id", ret.ID,
		"sale_id", saleID,
		"lines", len(ret.Lines),
		"deferred", req.Deferred,
	)
	return ret, nil
}

// RestorePending puts the units of a deferred return line back into stock.
func (p *Processor) RestorePending(ctx context.Context, lineID id.ID) (*Line, error) {
	ctx, span := tracer.Start(ctx, "returns.RestorePending", trace.WithAttributes(attribute.String("return_line.id", lineID.String())))
	defer span.End()

	var line *Line
	err := p.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		line, err = p.returns.GetLineForUpdate(ctx, lineID)
		if err != nil {
			return err
		}
		if line.Restored {
			return apperror.NewBusinessRule(apperror.CodeAlreadyRestored, "Return line was already restored").
				WithDetail("return_line_id", lineID.String())
		}

		sale, err := p.sales.GetForUpdate(ctx, line.SaleID)
		if err != nil {
			return err
		}
		item, ok := sale.Line(line.LineItemID)
		if !ok {
			return apperror.NewInternal(fmt.Errorf("return line %s references missing line item %s", lineID, line.LineItemID))
		}
		totals, err := p.returns.Totals(ctx, sale.ID)
		if err != nil {
			return fmt.Errorf("return totals: %w", err)
		}

		if err := p.restore(ctx, item, line, totals[item.ID].Restored, p.now()); err != nil {
			return err
		}
		if err := p.returns.MarkRestored(ctx, line.ID, *line.RestoredAt); err != nil {
			return fmt.Errorf("mark restored: %w", err)
		}
		return p.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntityReturn,
			EntityID:   line.ReturnID,
			Action:     audit.ActionRestore,
			Payload:    line,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "deferred return restored", "return_line_id", line.ID, "quantity", line.Quantity)
	return line, nil
}

// ListBySale returns every return of a sale.
func (p *Processor) ListBySale(ctx context.Context, saleID id.ID) ([]*Return, error) {
	return p.returns.ListBySale(ctx, saleID)
}

// restore puts l.Quantity units of item back. Earlier restores always took a
// prefix of the trail, so alreadyRestored units are skipped first.
func (p *Processor) restore(ctx context.Context, item *sales.LineItem, l *Line, alreadyRestored int64, at time.Time) error {
	placed, err := p.engine.RestorePartial(ctx, item.Trail().Skip(alreadyRestored), l.Quantity)
	if err != nil {
		return err
	}
	l.Placement = placed
	l.Restored = true
	l.RestoredAt = &at
	return nil
}
