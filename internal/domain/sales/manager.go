package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/numerator"
	"lotledger/internal/core/tx"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/audit"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/fifo"
	"lotledger/internal/domain/settings"
	"lotledger/pkg/logger"
)

var tracer = otel.Tracer("lotledger/sales")

// Manager runs sale transactions. Every mutating method is one transaction:
// a failure on any line leaves all lots untouched.
type Manager struct {
	txm       tx.Manager
	sales     Repository
	returns   ReturnLookup
	products  catalog.Repository
	engine    *fifo.Engine
	numerator numerator.Generator
	journal   audit.Journal
	now       func() time.Time
}

// Deps groups Manager collaborators.
type Deps struct {
	TxManager tx.Manager
	Sales     Repository
	Returns   ReturnLookup
	Products  catalog.Repository
	Engine    *fifo.Engine
	Numerator numerator.Generator
	Journal   audit.Journal
	Clock     func() time.Time
}

// NewManager creates a sale manager.
func NewManager(d Deps) *Manager {
	m := &Manager{
		txm:       d.TxManager,
		sales:     d.Sales,
		returns:   d.Returns,
		products:  d.Products,
		engine:    d.Engine,
		numerator: d.Numerator,
		journal:   d.Journal,
		now:       d.Clock,
	}
	if m.journal == nil {
		m.journal = audit.Nop{}
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

// Create records a new completed sale, consuming stock FIFO for every line.
func (m *Manager) Create(ctx context.Context, cfg settings.Settings, req Request) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sales.Create", trace.WithAttributes(attribute.Int("sale.lines", len(req.Lines))))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	rate, err := cfg.FeeRate(req.PaymentMethod, req.Installments)
	if err != nil {
		return nil, err
	}

	now := m.now()
	sale := &Sale{
		ID:        id.New(),
		Status:    StatusCompleted,
		Version:   1,
		CreatedAt: now,
	}
	sale.apply(req, rate, now)

	err = m.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		products, err := m.check(ctx, req)
		if err != nil {
			return err
		}

		sale.Number, err = m.numerator.Next(ctx, numerator.DefaultConfig(numerator.PrefixSale), sale.Date)
		if err != nil {
			return fmt.Errorf("next sale number: %w", err)
		}
		if err := m.sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := m.consume(ctx, sale, req, products); err != nil {
			return err
		}
		return m.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntitySale,
			EntityID:   sale.ID,
			Action:     audit.ActionCreate,
			Payload:    sale,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale created",
		"sale_id", sale.ID,
		"number", sale.Number,
		"lines", len(sale.Lines),
		"channel", sale.Channel,
	)
	return sale, nil
}

// Edit replaces the lines of a sale. Every existing trail is restored first,
// then the sale is rebuilt from req on the same row. The fee rate is
// re-frozen from cfg.
func (m *Manager) Edit(ctx context.Context, cfg settings.Settings, saleID id.ID, req Request) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sales.Edit", trace.WithAttributes(attribute.String("sale.id", saleID.String())))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	rate, err := cfg.FeeRate(req.PaymentMethod, req.Installments)
	if err != nil {
		return nil, err
	}

	var sale *Sale
	err = m.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = m.lockMutable(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Cancelled() {
			return apperror.NewSaleCancelled(saleID.String())
		}

		if err := m.restoreLines(ctx, sale); err != nil {
			return err
		}
		if err := m.sales.DeleteLines(ctx, sale.ID); err != nil {
			return fmt.Errorf("delete sale lines: %w", err)
		}

		// Validation runs after the restore so the sale's own units count as available.
		products, err := m.check(ctx, req)
		if err != nil {
			return err
		}

		now := m.now()
		sale.apply(req, rate, now)
		sale.Version++
		sale.Lines = nil
		if err := m.consume(ctx, sale, req, products); err != nil {
			return err
		}
		if err := m.sales.Update(ctx, sale); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		return m.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntitySale,
			EntityID:   sale.ID,
			Action:     audit.ActionUpdate,
			Payload:    sale,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale edited", "sale_id", sale.ID, "version", sale.Version, "lines", len(sale.Lines))
	return sale, nil
}

// Delete restores every trail of the sale and removes it.
// A cancelled sale already gave its stock back and is only removed.
func (m *Manager) Delete(ctx context.Context, saleID id.ID) error {
	ctx, span := tracer.Start(ctx, "sales.Delete", trace.WithAttributes(attribute.String("sale.id", saleID.String())))
	defer span.End()

	err := m.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := m.lockMutable(ctx, saleID)
		if err != nil {
			return err
		}
		if !sale.Cancelled() {
			if err := m.restoreLines(ctx, sale); err != nil {
				return err
			}
		}
		if err := m.sales.Delete(ctx, sale.ID); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}
		return m.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntitySale,
			EntityID:   sale.ID,
			Action:     audit.ActionDelete,
			Payload:    map[string]any{"number": sale.Number},
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale deleted", "sale_id", saleID)
	return nil
}

// Cancel restores stock but keeps the sale and its lines for audit.
// The consumption rows are dropped since the units are back in their lots.
func (m *Manager) Cancel(ctx context.Context, saleID id.ID) (*Sale, error) {
	ctx, span := tracer.Start(ctx, "sales.Cancel", trace.WithAttributes(attribute.String("sale.id", saleID.String())))
	defer span.End()

	var sale *Sale
	err := m.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = m.lockMutable(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Cancelled() {
			return apperror.NewSaleCancelled(saleID.String())
		}
		if err := m.restoreLines(ctx, sale); err != nil {
			return err
		}
		if err := m.sales.DeleteDraws(ctx, sale.ID); err != nil {
			return fmt.Errorf("delete consumption rows: %w", err)
		}
		for _, l := range sale.Lines {
			l.Draws = nil
		}

		sale.Status = StatusCancelled
		sale.Version++
		sale.UpdatedAt = m.now()
		if err := m.sales.Update(ctx, sale); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		return m.journal.Record(ctx, audit.Entry{
			EntityType: audit.EntitySale,
			EntityID:   sale.ID,
			Action:     audit.ActionCancel,
			Payload:    map[string]any{"number": sale.Number},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale cancelled", "sale_id", sale.ID)
	return sale, nil
}

// Get loads a sale with lines and trails.
func (m *Manager) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	return m.sales.GetByID(ctx, saleID)
}

// List returns sale headers.
func (m *Manager) List(ctx context.Context, f ListFilter) ([]*Sale, error) {
	if f.Limit == 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return m.sales.List(ctx, f)
}

// lockMutable locks the sale and rejects it when any return references it.
func (m *Manager) lockMutable(ctx context.Context, saleID id.ID) (*Sale, error) {
	sale, err := m.sales.GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}
	locked, err := m.returns.HasReturns(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("check returns: %w", err)
	}
	if locked {
		return nil, apperror.NewSaleLocked(saleID.String())
	}
	return sale, nil
}

// check validates products, stock and discount for req. It locks the lots
// of every requested product.
func (m *Manager) check(ctx context.Context, req Request) (map[id.ID]*catalog.Product, error) {
	products := make(map[id.ID]*catalog.Product, len(req.Lines))
	gross := decimal.Zero
	for _, l := range req.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			var err error
			p, err = catalog.Lookup(ctx, m.products, l.ProductID)
			if err != nil {
				return nil, err
			}
			products[l.ProductID] = p
		}
		if err := p.CheckSellable(l.Gift); err != nil {
			return nil, err
		}
		if !l.Gift {
			gross = gross.Add(types.Times(p.Price(), l.Quantity))
		}
	}

	order, totals := req.quantities()
	for _, productID := range order {
		available, err := m.engine.Available(ctx, productID)
		if err != nil {
			return nil, err
		}
		if available < totals[productID] {
			return nil, apperror.NewInsufficientStock(productID.String(), totals[productID], available)
		}
	}

	if req.Discount.GreaterThan(gross) {
		return nil, apperror.NewBusinessRule(apperror.CodeInvalidDiscount, "Discount exceeds gross revenue").
			WithDetail("discount", req.Discount.String()).
			WithDetail("gross_revenue", gross.String())
	}
	return products, nil
}

// consume builds and persists the lines of sale from req.
func (m *Manager) consume(ctx context.Context, sale *Sale, req Request, products map[id.ID]*catalog.Product) error {
	for i, l := range req.Lines {
		res, err := m.engine.Consume(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return err
		}
		price := types.Zero()
		if !l.Gift {
			price = products[l.ProductID].Price()
		}
		sale.Lines = append(sale.Lines, &LineItem{
			ID:             id.New(),
			SaleID:         sale.ID,
			LineNo:         i + 1,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPrice:      price,
			RegisteredCost: res.TotalCost,
			Gift:           l.Gift,
			Draws:          res.Trail,
		})
	}
	if err := m.sales.SaveLines(ctx, sale); err != nil {
		return fmt.Errorf("save sale lines: %w", err)
	}
	return nil
}

func (m *Manager) restoreLines(ctx context.Context, sale *Sale) error {
	for _, l := range sale.Lines {
		if err := m.engine.Restore(ctx, l.Trail()); err != nil {
			return fmt.Errorf("restore line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

func (s *Sale) apply(req Request, rate types.Money, now time.Time) {
	switch {
	case !req.Date.IsZero():
		s.Date = req.Date.UTC()
	case s.Date.IsZero():
		s.Date = now
	}
	s.CustomerName = req.CustomerName
	if s.CustomerName == "" {
		s.CustomerName = DefaultCustomerName
	}
	s.Channel = req.Channel
	s.Discount = req.Discount
	s.PaymentMethod = req.PaymentMethod
	s.Installments = req.Installments
	s.FeeRate = rate
	s.UpdatedAt = now
}
