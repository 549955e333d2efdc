package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/evergreenattire/checkout/internal/domain"
	"github.com/evergreenattire/checkout/internal/storage/memory"
	"github.com/evergreenattire/checkout/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения.
type Dependencies struct {
	Products domain.ProductRepository
	Carts    domain.CartRepository
	Offers   domain.OfferRepository
	Orders   domain.OrderRepository
	Timeline domain.TimelineRepository

	// Store не nil только при работе на PostgreSQL.
	Store *postgres.Store

	Logger *log.Entry
}

// NewDependencies создаёт хранилища согласно конфигурации: PostgreSQL при
// заданном DSN, иначе in-memory.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if !cfg.UsesPostgres() {
		logger.Info("postgres DSN is not set, using in-memory storage")
		return &Dependencies{
			Products: memory.NewProductRepository(),
			Carts:    memory.NewCartRepository(),
			Offers:   memory.NewOfferRepository(),
			Orders:   memory.NewOrderRepository(),
			Timeline: memory.NewTimelineRepository(),
			Logger:   logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &Dependencies{
		Products: postgres.NewProductRepository(store),
		Carts:    postgres.NewCartRepository(store),
		Offers:   postgres.NewOfferRepository(store),
		Orders:   postgres.NewOrderRepository(store),
		Timeline: postgres.NewTimelineRepository(store),
		Store:    store,
		Logger:   logger,
	}, nil
}

// Close освобождает внешние ресурсы.
func (d *Dependencies) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
