package cart

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/evergreenattire/checkout/internal/domain"
)

// Service — операции корзины поверх CartRepository. Цены позиций берутся из
// каталога в момент добавления и фиксируются; дальше корзина живёт своей жизнью.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// Get возвращает корзину пользователя, создавая пустую при первом обращении.
func (s *Service) Get(ctx context.Context, userID string) (domain.Cart, error) {
	return s.carts.GetOrCreate(ctx, userID)
}

// AddProduct добавляет товар в корзину по текущей цене каталога. Неактивные
// товары добавить нельзя — для покупателя их не существует.
func (s *Service) AddProduct(ctx context.Context, userID, productID string, qty int32) (domain.Cart, error) {
	if qty < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !product.IsActive {
		return domain.Cart{}, domain.ErrProductNotFound
	}

	cart, err := s.carts.MergeLine(ctx, userID, productID, qty, product.PriceMinor)
	if err != nil {
		return domain.Cart{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": productID,
		"qty":        qty,
	}).Debug("product merged into cart")

	return cart, nil
}

// RemoveProduct удаляет позицию; отсутствие позиции — no-op.
func (s *Service) RemoveProduct(ctx context.Context, userID, productID string) (domain.Cart, error) {
	return s.carts.RemoveLine(ctx, userID, productID)
}

// SetQuantity перезаписывает количество существующей позиции.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int32) (domain.Cart, error) {
	return s.carts.SetQuantity(ctx, userID, productID, qty)
}

// Clear опустошает корзину пользователя.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}
