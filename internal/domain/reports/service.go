package reports

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
	"lotledger/internal/domain/profit"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
	"lotledger/internal/domain/settings"
)

var tracer = otel.Tracer("lotledger/reports")

// SaleReader is the part of the sale manager the dashboard reads.
type SaleReader interface {
	List(ctx context.Context, f sales.ListFilter) ([]*sales.Sale, error)
	Get(ctx context.Context, saleID id.ID) (*sales.Sale, error)
}

// ReturnReader lists the returns of a sale.
type ReturnReader interface {
	ListBySale(ctx context.Context, saleID id.ID) ([]*returns.Return, error)
}

// Service provides report generation operations.
type Service struct {
	repo     Repository
	sales    SaleReader
	returns  ReturnReader
	products catalog.Repository
	lots     *lots.Store
	now      func() time.Time
}

// Deps groups Service collaborators.
type Deps struct {
	Repo     Repository
	Sales    SaleReader
	Returns  ReturnReader
	Products catalog.Repository
	Lots     *lots.Store
	Clock    func() time.Time
}

// NewService creates a new reports service.
func NewService(d Deps) *Service {
	s := &Service{
		repo:     d.Repo,
		sales:    d.Sales,
		returns:  d.Returns,
		products: d.Products,
		lots:     d.Lots,
		now:      d.Clock,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Resolve turns a filter into a concrete period ending today. An empty preset
// means the last 30 days.
func Resolve(f PeriodFilter, now time.Time) (Period, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	switch f.Preset {
	case PresetWeek:
		return Period{Preset: f.Preset, From: today.AddDate(0, 0, -6), To: tomorrow}, nil
	case "", PresetMonth:
		return Period{Preset: PresetMonth, From: today.AddDate(0, 0, -29), To: tomorrow}, nil
	case PresetYear:
		return Period{Preset: f.Preset, From: today.AddDate(0, 0, -364), To: tomorrow}, nil
	case PresetCustom:
		if f.From == nil || f.To == nil {
			return Period{}, apperror.NewValidation("custom period needs from and to")
		}
		from := truncateDay(*f.From)
		to := truncateDay(*f.To)
		if to.Before(from) {
			return Period{}, apperror.NewValidation("period end is before its start").
				WithDetail("from", from.Format(time.DateOnly)).
				WithDetail("to", to.Format(time.DateOnly))
		}
		return Period{Preset: f.Preset, From: from, To: to.AddDate(0, 0, 1)}, nil
	default:
		return Period{}, apperror.NewValidation("unknown period preset").WithDetail("preset", string(f.Preset))
	}
}

// Dashboard builds the period report.
func (s *Service) Dashboard(ctx context.Context, cfg settings.Settings, f PeriodFilter) (*Dashboard, error) {
	period, err := Resolve(f, s.now())
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "reports.Dashboard", trace.WithAttributes(
		attribute.String("period.preset", string(period.Preset)),
		attribute.Int("period.days", period.Days()),
	))
	defer span.End()

	d := &Dashboard{Period: period, Revenue: types.Zero(), NetProfit: types.Zero()}

	if d.StockValue, err = s.repo.StockValue(ctx); err != nil {
		return nil, fmt.Errorf("stock value: %w", err)
	}

	if err := s.salesTotals(ctx, d); err != nil {
		return nil, err
	}

	rows, err := s.repo.ProductSales(ctx, period.From, period.To)
	if err != nil {
		return nil, fmt.Errorf("product sales: %w", err)
	}
	d.TopSold, d.TopProfitable = rank(rows)

	if d.LowStock, err = s.lowStock(ctx, cfg.LowStockThreshold); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) salesTotals(ctx context.Context, d *Dashboard) error {
	headers, err := s.sales.List(ctx, sales.ListFilter{
		From:   &d.Period.From,
		To:     &d.Period.To,
		Status: sales.StatusCompleted,
	})
	if err != nil {
		return fmt.Errorf("list sales: %w", err)
	}

	d.Series = buckets(d.Period)
	for _, h := range headers {
		sale, err := s.sales.Get(ctx, h.ID)
		if err != nil {
			return fmt.Errorf("load sale %s: %w", h.ID, err)
		}
		rets, err := s.returns.ListBySale(ctx, sale.ID)
		if err != nil {
			return fmt.Errorf("list returns of %s: %w", sale.ID, err)
		}
		fig := profit.Calculate(sale, rets)

		d.SalesCount++
		d.Revenue = d.Revenue.Add(fig.NetRevenue)
		d.NetProfit = d.NetProfit.Add(fig.NetProfit)
		if i := bucketIndex(d.Series, sale.Date); i >= 0 {
			d.Series[i].Revenue = d.Series[i].Revenue.Add(fig.NetRevenue)
			d.Series[i].NetProfit = d.Series[i].NetProfit.Add(fig.NetProfit)
		}
	}
	return nil
}

func (s *Service) lowStock(ctx context.Context, threshold int64) ([]LowStockItem, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := []LowStockItem{}
	for _, p := range products {
		if !p.Active {
			continue
		}
		sum, err := s.lots.Summary(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if sum.TotalQuantity <= threshold {
			out = append(out, LowStockItem{Summary: sum, ProductName: p.Name})
		}
	}
	slices.SortFunc(out, func(a, b LowStockItem) int {
		if a.TotalQuantity != b.TotalQuantity {
			return cmp.Compare(a.TotalQuantity, b.TotalQuantity)
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})
	return out, nil
}

// rank returns the top products by quantity sold and by profit.
func rank(rows []ProductSales) (bySold, byProfit []ProductRank) {
	ranks := make([]ProductRank, 0, len(rows))
	for _, r := range rows {
		pr := ProductRank{ProductSales: r, Profit: r.Revenue.Sub(r.Cost), MarginPercent: types.Zero()}
		if r.Revenue.IsPositive() {
			pr.MarginPercent = types.RoundCurrency(pr.Profit.Mul(types.MustMoney("100")).Div(r.Revenue))
		}
		ranks = append(ranks, pr)
	}

	bySold = slices.Clone(ranks)
	slices.SortStableFunc(bySold, func(a, b ProductRank) int {
		if a.Quantity != b.Quantity {
			return cmp.Compare(b.Quantity, a.Quantity)
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})

	byProfit = slices.Clone(ranks)
	slices.SortStableFunc(byProfit, func(a, b ProductRank) int {
		if c := b.Profit.Cmp(a.Profit); c != 0 {
			return c
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})

	return bySold[:min(TopN, len(bySold))], byProfit[:min(TopN, len(byProfit))]
}

// buckets lays out one point per day, or per month once the period is longer
// than monthlyAfterDays.
func buckets(p Period) []SeriesPoint {
	var out []SeriesPoint
	if p.Days() <= monthlyAfterDays {
		for d := p.From; d.Before(p.To); d = d.AddDate(0, 0, 1) {
			out = append(out, SeriesPoint{Label: d.Format(time.DateOnly), Start: d, Revenue: types.Zero(), NetProfit: types.Zero()})
		}
		return out
	}
	for m := time.Date(p.From.Year(), p.From.Month(), 1, 0, 0, 0, 0, time.UTC); m.Before(p.To); m = m.AddDate(0, 1, 0) {
		out = append(out, SeriesPoint{Label: m.Format("2006-01"), Start: m, Revenue: types.Zero(), NetProfit: types.Zero()})
	}
	return out
}

func bucketIndex(series []SeriesPoint, at time.Time) int {
	at = at.UTC()
	for i := len(series) - 1; i >= 0; i-- {
		if !at.Before(series[i].Start) {
			return i
		}
	}
	return -1
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
