// Package main provides a CLI tool for seeding the ledger with demo products and stock.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"lotledger/internal/config"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
	"lotledger/internal/infrastructure/storage"
	"lotledger/internal/ledger"
	"lotledger/pkg/logger"
)

type lotSeed struct {
	quantity int64
	unitCost string
	ageDays  int
}

type productSeed struct {
	name  string
	price string
	lots  []lotSeed
}

var demoProducts = []productSeed{
	{"Hydrating serum 30ml", "89.90", []lotSeed{{12, "41.50", 40}, {20, "43.00", 10}}},
	{"Vitamin C cream", "64.00", []lotSeed{{8, "30.00", 25}}},
	{"Sunscreen SPF50", "72.50", []lotSeed{{15, "35.20", 60}, {15, "36.80", 5}}},
	{"Lip balm", "19.90", []lotSeed{{40, "6.10", 15}}},
	{"Gift pouch", "", []lotSeed{{100, "1.20", 90}}},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	ctx := logger.WithLogger(context.Background(), log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	backend, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()
	log.Info("connected to storage")

	n, err := seedDemoData(ctx, ledger.New(backend.Backend, nil), time.Now().UTC())
	if err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Infow("seeding completed successfully", "lots", n)
}

// seedDemoData creates the demo products that do not exist yet and receives
// their opening stock in a single batch. It returns the number of lots created.
func seedDemoData(ctx context.Context, l *ledger.Ledger, now time.Time) (int, error) {
	existing, err := l.Products.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	byName := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		byName[p.Name] = struct{}{}
	}

	var batch []lots.NewLot
	for _, ps := range demoProducts {
		if _, ok := byName[ps.name]; ok {
			logger.Info(ctx, "product already exists", "name", ps.name)
			continue
		}

		var price *types.Money
		if ps.price != "" {
			m, err := types.NewMoneyFromString(ps.price)
			if err != nil {
				return 0, fmt.Errorf("price of %s: %w", ps.name, err)
			}
			price = &m
		}
		p := catalog.NewProduct(ps.name, price)
		if err := p.Validate(); err != nil {
			return 0, err
		}
		if err := l.Products.Create(ctx, p); err != nil {
			return 0, fmt.Errorf("create product %s: %w", ps.name, err)
		}

		for _, ls := range ps.lots {
			cost, err := types.NewMoneyFromString(ls.unitCost)
			if err != nil {
				return 0, fmt.Errorf("unit cost of %s: %w", ps.name, err)
			}
			batch = append(batch, lots.NewLot{
				ProductID: p.ID,
				Quantity:  ls.quantity,
				UnitCost:  cost,
				ArrivedAt: now.AddDate(0, 0, -ls.ageDays),
				Origin:    lots.OriginPurchase,
			})
		}
	}

	created, err := l.Lots.ReceiveBatch(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("receive opening stock: %w", err)
	}
	return len(created), nil
}
