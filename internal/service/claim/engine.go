package claim

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/evergreenattire/checkout/internal/domain"
	"github.com/evergreenattire/checkout/internal/metrics"
)

// ProductResult сообщает, попал ли конкретный товар акции в корзину.
type ProductResult struct {
	ProductID string
	Name      string
	// Added=false означает, что товар был неактивен или недоступен на момент
	// активации и молча пропущен.
	Added bool
	// PriceMinor — цена со скидкой, по которой позиция легла в корзину.
	PriceMinor int64
}

// Result — итог активации акции.
type Result struct {
	Offer    domain.Offer
	Products []ProductResult
}

// AddedCount возвращает число товаров, реально добавленных в корзину.
func (r Result) AddedCount() int {
	return lo.CountBy(r.Products, func(p ProductResult) bool { return p.Added })
}

// Added возвращает только добавленные товары.
func (r Result) Added() []ProductResult {
	return lo.Filter(r.Products, func(p ProductResult, _ int) bool { return p.Added })
}

// Engine выполняет активацию акции: валидация, атомарная запись в журнал,
// добавление товаров со скидкой в корзину. Переход Unclaimed → Claimed
// терминальный, операции «отменить активацию» не существует.
type Engine struct {
	offers   domain.OfferRepository
	products domain.ProductRepository
	carts    domain.CartRepository
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
}

// NewEngine создаёт рабочий экземпляр движка активаций.
func NewEngine(
	offers domain.OfferRepository,
	products domain.ProductRepository,
	carts domain.CartRepository,
	logger *log.Entry,
) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "claim")
	}
	return &Engine{
		offers:   offers,
		products: products,
		carts:    carts,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
	}
}

// NewEngineWithoutMetrics создаёт движок без метрик (для тестов).
func NewEngineWithoutMetrics(
	offers domain.OfferRepository,
	products domain.ProductRepository,
	carts domain.CartRepository,
	logger *log.Entry,
) *Engine {
	e := NewEngine(offers, products, carts, logger)
	e.metrics = nil
	return e
}

// Claim активирует акцию для пользователя. Охранные условия проверяются по
// порядку с остановкой на первом отказе: акция существует → акция действительна
// сейчас → пользователь ещё не активировал. Повторная активация возвращает
// ErrOfferAlreadyClaimed, ничего не меняя: товары со скидкой уже в корзине.
func (e *Engine) Claim(ctx context.Context, offerID, userID string) (Result, error) {
	if e.metrics != nil {
		e.metrics.RecordClaimStarted()
	}

	offer, err := e.offers.Get(ctx, offerID)
	if err != nil {
		e.rejected("not_found")
		return Result{}, err
	}

	now := time.Now().UTC()
	if err := offer.ClaimableAt(now); err != nil {
		e.rejected("offer_invalid")
		return Result{}, err
	}

	// Атомарный «claim if absent»: хранилище исключает гонку между проверкой
	// журнала и записью в него.
	offer, err = e.offers.Claim(ctx, offerID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrOfferAlreadyClaimed) {
			e.rejected("already_claimed")
			return Result{Offer: offer}, err
		}
		e.rejected("storage_error")
		return Result{}, err
	}

	result := Result{
		Offer:    offer,
		Products: make([]ProductResult, 0, len(offer.ProductIDs)),
	}

	for _, productID := range offer.ProductIDs {
		product, err := e.products.Get(ctx, productID)
		if err != nil {
			// Товар мог быть удалён после создания акции: активация всё равно
			// успешна, просто с меньшим числом позиций.
			e.logger.WithError(err).WithFields(log.Fields{
				"offer_id":   offerID,
				"product_id": productID,
			}).Debug("offer product unavailable, skipping")
			result.Products = append(result.Products, ProductResult{ProductID: productID})
			continue
		}
		if !product.IsActive {
			result.Products = append(result.Products, ProductResult{
				ProductID: productID,
				Name:      product.Name,
			})
			continue
		}

		discounted := offer.DiscountedPriceMinor(product.PriceMinor)
		if _, err := e.carts.MergeLine(ctx, userID, productID, 1, discounted); err != nil {
			// Запись в журнале уже есть, откатывать её нельзя; позицию просто
			// помечаем как не добавленную.
			e.logger.WithError(err).WithFields(log.Fields{
				"offer_id":   offerID,
				"product_id": productID,
				"user_id":    userID,
			}).Warn("cart merge failed after claim")
			result.Products = append(result.Products, ProductResult{
				ProductID: productID,
				Name:      product.Name,
			})
			continue
		}

		result.Products = append(result.Products, ProductResult{
			ProductID:  productID,
			Name:       product.Name,
			Added:      true,
			PriceMinor: discounted,
		})
	}

	if e.metrics != nil {
		e.metrics.RecordClaimAccepted()
	}
	e.logger.WithFields(log.Fields{
		"offer_id": offerID,
		"user_id":  userID,
		"added":    result.AddedCount(),
	}).Info("offer claimed")

	return result, nil
}

func (e *Engine) rejected(reason string) {
	if e.metrics != nil {
		e.metrics.RecordClaimRejected(reason)
	}
}
