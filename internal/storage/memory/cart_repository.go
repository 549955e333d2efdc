package memory

import (
	"context"
	"sync"
	"time"

	"github.com/evergreenattire/checkout/internal/domain"
)

// cartRepositoryInMemory хранит корзины в памяти, по одной на пользователя.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Cart
}

// NewCartRepository создаёт in-memory реализацию CartRepository.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		items: make(map[string]domain.Cart),
	}
}

// GetOrCreate возвращает корзину пользователя, создавая пустую при первом обращении.
func (r *cartRepositoryInMemory) GetOrCreate(_ context.Context, userID string) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return cloneCart(r.getOrCreateLocked(userID)), nil
}

// MergeLine добавляет товар в корзину; существующая позиция накапливает
// количество и перезаписывает цену.
func (r *cartRepositoryInMemory) MergeLine(_ context.Context, userID, productID string, qty int32, priceMinor int64) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	if qty < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.getOrCreateLocked(userID)
	cart.Merge(productID, qty, priceMinor, time.Now().UTC())
	r.items[userID] = cart
	return cloneCart(cart), nil
}

// RemoveLine удаляет позицию; отсутствие позиции — no-op.
func (r *cartRepositoryInMemory) RemoveLine(_ context.Context, userID, productID string) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.getOrCreateLocked(userID)
	if idx := cart.LineIndex(productID); idx >= 0 {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
		cart.UpdatedAt = time.Now().UTC()
		r.items[userID] = cart
	}
	return cloneCart(cart), nil
}

// SetQuantity перезаписывает количество существующей позиции.
func (r *cartRepositoryInMemory) SetQuantity(_ context.Context, userID, productID string, qty int32) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	if qty < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.getOrCreateLocked(userID)
	idx := cart.LineIndex(productID)
	if idx < 0 {
		return domain.Cart{}, domain.ErrCartLineNotFound
	}
	cart.Lines[idx].Qty = qty
	cart.UpdatedAt = time.Now().UTC()
	r.items[userID] = cart
	return cloneCart(cart), nil
}

// Clear опустошает корзину, не удаляя сам документ.
func (r *cartRepositoryInMemory) Clear(_ context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.getOrCreateLocked(userID)
	cart.Lines = nil
	cart.UpdatedAt = time.Now().UTC()
	r.items[userID] = cart
	return nil
}

// getOrCreateLocked ленивое создание корзины; вызывается только под r.mu.
func (r *cartRepositoryInMemory) getOrCreateLocked(userID string) domain.Cart {
	cart, ok := r.items[userID]
	if !ok {
		now := time.Now().UTC()
		cart = domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}
		r.items[userID] = cart
	}
	return cart
}

// cloneCart копирует корзину, чтобы избежать непредсказуемых мутаций извне.
func cloneCart(src domain.Cart) domain.Cart {
	dst := src
	dst.Lines = append([]domain.CartLine(nil), src.Lines...)
	return dst
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
