package memory

import (
	"context"
	"sync"
	"time"

	"github.com/evergreenattire/checkout/internal/domain"
)

// offerRepositoryInMemory хранит акции и их журналы активаций в памяти.
type offerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Offer
}

// NewOfferRepository создаёт in-memory реализацию OfferRepository.
func NewOfferRepository() domain.OfferRepository {
	return &offerRepositoryInMemory{
		items: make(map[string]domain.Offer),
	}
}

// Get возвращает акцию или ErrOfferNotFound.
func (r *offerRepositoryInMemory) Get(_ context.Context, id string) (domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, ok := r.items[id]
	if !ok {
		return domain.Offer{}, domain.ErrOfferNotFound
	}
	return cloneOffer(offer), nil
}

// Create сохраняет новую акцию.
func (r *offerRepositoryInMemory) Create(_ context.Context, offer domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[offer.ID] = cloneOffer(offer)
	return nil
}

// Claim дописывает пользователя в журнал активаций и увеличивает счётчик.
// Проверки и запись выполняются под одним локом — это in-memory эквивалент
// уникального индекса (offer_id, user_id) и условного инкремента used_count:
// гонки «проверили — записали» по журналу и по лимиту активаций исключены.
func (r *offerRepositoryInMemory) Claim(_ context.Context, offerID, userID string) (domain.Offer, error) {
	if userID == "" {
		return domain.Offer{}, domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	offer, ok := r.items[offerID]
	if !ok {
		return domain.Offer{}, domain.ErrOfferNotFound
	}
	if offer.HasClaimed(userID) {
		return cloneOffer(offer), domain.ErrOfferAlreadyClaimed
	}
	if offer.MaxUses > 0 && offer.UsedCount >= offer.MaxUses {
		return cloneOffer(offer), domain.ErrOfferInvalid
	}

	now := time.Now().UTC()
	offer.ClaimedBy = append(offer.ClaimedBy, domain.OfferClaim{UserID: userID, ClaimedAt: now})
	offer.UsedCount++
	offer.UpdatedAt = now
	r.items[offerID] = offer
	return cloneOffer(offer), nil
}

// cloneOffer копирует акцию вместе со слайсами, чтобы вызывающий код не мог
// мутировать хранимое состояние.
func cloneOffer(src domain.Offer) domain.Offer {
	dst := src
	dst.ProductIDs = append([]string(nil), src.ProductIDs...)
	dst.ClaimedBy = append([]domain.OfferClaim(nil), src.ClaimedBy...)
	return dst
}

var _ domain.OfferRepository = (*offerRepositoryInMemory)(nil)
