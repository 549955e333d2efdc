package memory

import (
	"context"
	"sync"
	"time"

	"github.com/evergreenattire/checkout/internal/domain"
)

// productRepositoryInMemory — простая in-memory реализация ProductRepository.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory каталог для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Create сохраняет новый товар, перезаписывая запись с тем же ID.
func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[product.ID] = product
	return nil
}

// SetPrice меняет актуальную цену каталога.
func (r *productRepositoryInMemory) SetPrice(_ context.Context, id string, priceMinor int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.PriceMinor = priceMinor
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return nil
}

// DecrementStock списывает остаток условно: проверка и запись выполняются под
// одним локом, поэтому остаток не может уйти в минус даже под конкурентными
// оформлениями.
func (r *productRepositoryInMemory) DecrementStock(_ context.Context, id string, qty int32) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock < qty {
		return &domain.InsufficientStockError{
			ProductID: id,
			Requested: qty,
			Available: product.Stock,
		}
	}
	product.Stock -= qty
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
