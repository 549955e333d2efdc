package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/evergreenattire/checkout/internal/domain"
	"github.com/evergreenattire/checkout/internal/messaging/kafka"
	"github.com/evergreenattire/checkout/internal/metrics"
	"github.com/evergreenattire/checkout/internal/service/claim"
	"github.com/evergreenattire/checkout/internal/service/whatsapp"
)

// Названия шагов оформления для метрик и timeline.
const (
	stepStockValidation = "stock_validation"
	stepPersistOrder    = "persist_order"
	stepStockDecrement  = "stock_decrement"
	stepCartClear       = "cart_clear"
)

// Input — параметры оформления заказа.
type Input struct {
	ShippingAddress string
	PaymentMethod   string
	Notes           string
}

// Validate проверяет обязательные поля оформления.
func (in Input) Validate() error {
	if in.ShippingAddress == "" {
		return domain.ErrShippingAddressRequired
	}
	if in.PaymentMethod == "" {
		return domain.ErrPaymentMethodRequired
	}
	return nil
}

// Result — созданный заказ вместе с исходящим сообщением и deep-link'ом.
type Result struct {
	Order   domain.Order
	Message string
	Link    string
}

// ClaimInput — параметры активации акции, опционально с немедленным оформлением.
type ClaimInput struct {
	OfferID     string
	CreateOrder bool
	Checkout    Input
}

// ClaimResult — итог активации. Если запрошено немедленное оформление и оно
// провалилось, Order остаётся nil, а OrderErr объясняет причину: активация при
// этом уже зафиксирована и товары лежат в корзине — пользователь может оформить
// заказ обычным путём позже.
type ClaimResult struct {
	Claim    claim.Result
	Order    *domain.Order
	Message  string
	Link     string
	OrderErr error
}

// Orchestrator сцепляет движок активаций, корзину, сборку заказа, списание
// остатков и компоновку исходящего сообщения в два пользовательских сценария:
// оформление корзины и «активировать и сразу оформить».
type Orchestrator struct {
	orders   domain.OrderRepository
	carts    domain.CartRepository
	products domain.ProductRepository
	timeline domain.TimelineRepository
	claims   *claim.Engine
	composer *whatsapp.Composer
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	producer *kafka.Producer // опциональный Kafka producer для событий оформления
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	orders domain.OrderRepository,
	carts domain.CartRepository,
	products domain.ProductRepository,
	timeline domain.TimelineRepository,
	claims *claim.Engine,
	composer *whatsapp.Composer,
	logger *log.Entry,
) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Orchestrator{
		orders:   orders,
		carts:    carts,
		products: products,
		timeline: timeline,
		claims:   claims,
		composer: composer,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
	}
}

// NewOrchestratorWithKafka создаёт оркестратор с Kafka producer.
func NewOrchestratorWithKafka(
	orders domain.OrderRepository,
	carts domain.CartRepository,
	products domain.ProductRepository,
	timeline domain.TimelineRepository,
	claims *claim.Engine,
	composer *whatsapp.Composer,
	producer *kafka.Producer,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(orders, carts, products, timeline, claims, composer, logger)
	o.producer = producer
	return o
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	orders domain.OrderRepository,
	carts domain.CartRepository,
	products domain.ProductRepository,
	timeline domain.TimelineRepository,
	claims *claim.Engine,
	composer *whatsapp.Composer,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(orders, carts, products, timeline, claims, composer, logger)
	o.metrics = nil
	return o
}

// CheckoutCart оформляет заказ из корзины пользователя и очищает её, чтобы те
// же позиции нельзя было оформить дважды.
func (o *Orchestrator) CheckoutCart(ctx context.Context, userID string, in Input) (Result, error) {
	if userID == "" {
		return Result{}, domain.ErrUserRequired
	}
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	cart, err := o.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if cart.IsEmpty() {
		o.failed()
		return Result{}, domain.ErrEmptyCart
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			PriceMinor:     line.PriceMinor,
			LineTotalMinor: int64(line.Qty) * line.PriceMinor,
			CreatedAt:      now,
		})
	}

	return o.buildOrder(ctx, userID, items, in, true)
}

// ClaimOffer активирует акцию и, если запрошено, немедленно оформляет заказ из
// только что добавленных позиций. Провал оформления активацию не откатывает.
func (o *Orchestrator) ClaimOffer(ctx context.Context, userID string, in ClaimInput) (ClaimResult, error) {
	if userID == "" {
		return ClaimResult{}, domain.ErrUserRequired
	}

	claimRes, err := o.claims.Claim(ctx, in.OfferID, userID)
	if err != nil {
		o.publishEvent(kafka.TopicCheckoutEvents, userID,
			kafka.NewCheckoutEvent(kafka.EventTypeOfferRejected, userID, map[string]interface{}{
				"reason": err.Error(),
			}).WithOffer(in.OfferID))
		return ClaimResult{Claim: claimRes}, err
	}

	o.publishEvent(kafka.TopicCheckoutEvents, userID,
		kafka.NewCheckoutEvent(kafka.EventTypeOfferClaimed, userID, map[string]interface{}{
			"added_products": claimRes.AddedCount(),
		}).WithOffer(in.OfferID))

	result := ClaimResult{Claim: claimRes}
	if !in.CreateOrder || claimRes.AddedCount() == 0 {
		return result, nil
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, claimRes.AddedCount())
	for _, p := range claimRes.Added() {
		items = append(items, domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      p.ProductID,
			Name:           p.Name,
			Qty:            1,
			PriceMinor:     p.PriceMinor,
			LineTotalMinor: p.PriceMinor,
			CreatedAt:      now,
		})
	}

	// Корзину не очищаем: оформляются только позиции этой активации, а ранее
	// лежавшие в корзине товары остаются нетронутыми.
	built, buildErr := o.buildOrder(ctx, userID, items, in.Checkout, false)
	if buildErr != nil {
		// Активация уже зафиксирована, товары в корзине; сообщаем о частичном
		// провале, не отменяя сделанного.
		o.logger.WithError(buildErr).WithFields(log.Fields{
			"offer_id": in.OfferID,
			"user_id":  userID,
		}).Warn("claim committed but order creation failed")
		o.publishEvent(kafka.TopicCheckoutEvents, userID,
			kafka.NewCheckoutEvent(kafka.EventTypeCheckoutFailed, userID, map[string]interface{}{
				"reason": buildErr.Error(),
			}).WithOffer(in.OfferID))
		result.OrderErr = buildErr
		return result, nil
	}

	result.Order = &built.Order
	result.Message = built.Message
	result.Link = built.Link
	return result, nil
}

// ResendMessage заново собирает сообщение и ссылку по сохранённому снимку
// заказа. Результат детерминирован и байт-в-байт совпадает с сохранённым.
func (o *Orchestrator) ResendMessage(ctx context.Context, orderID string) (message, link string, err error) {
	order, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return "", "", err
	}
	message, link = o.composer.ComposeLink(order)
	return message, link, nil
}

// TransitionStatus переводит заказ в новый статус по таблице переходов.
// Конфликты версий разрешаются перечитыванием и повтором.
func (o *Orchestrator) TransitionStatus(ctx context.Context, orderID string, next domain.OrderStatus, reason string) (domain.Order, error) {
	const maxRetries = 3

	var order domain.Order
	for attempt := 0; attempt < maxRetries; attempt++ {
		var err error
		order, err = o.orders.Get(ctx, orderID)
		if err != nil {
			return domain.Order{}, err
		}

		now := time.Now().UTC()
		if err := order.Transition(next, now); err != nil {
			return domain.Order{}, err
		}

		if err := o.orders.Save(ctx, order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				o.logger.WithFields(log.Fields{
					"order_id": orderID,
					"attempt":  attempt + 1,
				}).Warn("version conflict on status transition, retrying")
				continue
			}
			return domain.Order{}, err
		}
		order.Version++

		o.appendTimeline(ctx, domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     domain.TimelineStatusChanged,
			Reason:   reason,
			Occurred: now,
		})
		o.publishEvent(kafka.TopicOrderEvents, order.UserID,
			kafka.NewCheckoutEvent(kafka.EventTypeOrderStatusChanged, order.UserID, map[string]interface{}{
				"status": string(next),
				"reason": reason,
			}).WithOrder(order.ID))

		return order, nil
	}

	return domain.Order{}, domain.ErrOrderVersionConflict
}

// buildOrder выполняет строго упорядоченные шаги оформления: проверка остатков, подсчёт
// итога, номер, сохранение, списание, опциональная очистка корзины. Каждый шаг —
// предусловие следующего; до первой мутации любой отказ атомарен.
func (o *Orchestrator) buildOrder(ctx context.Context, userID string, items []domain.OrderItem, in Input, fromCart bool) (Result, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutInFlightStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordCheckoutDuration(time.Since(start))
			o.metrics.RecordCheckoutInFlightFinished()
		}
	}()

	if len(items) == 0 {
		o.failed()
		return Result{}, domain.ErrItemsRequired
	}
	if err := in.Validate(); err != nil {
		o.failed()
		return Result{}, err
	}

	// Шаг 1: валидация остатков. Любая нехватка отменяет оформление целиком,
	// частичный заказ не создаётся. Заодно подтягиваем названия товаров для
	// снимка позиций.
	stepStart := time.Now()
	for i := range items {
		product, err := o.products.Get(ctx, items[i].ProductID)
		if err != nil {
			o.failed()
			return Result{}, err
		}
		if !product.HasStock(items[i].Qty) {
			o.failed()
			return Result{}, &domain.InsufficientStockError{
				ProductID: items[i].ProductID,
				Requested: items[i].Qty,
				Available: product.Stock,
			}
		}
		if items[i].Name == "" {
			items[i].Name = product.Name
		}
	}
	o.step(stepStockValidation, stepStart)

	// Шаг 2: итог по зафиксированным ценам позиций, без обращения к каталогу.
	total := lo.SumBy(items, func(item domain.OrderItem) int64 { return item.LineTotalMinor })

	// Шаги 3–4: номер, снимок, сообщение, сохранение со статусом pending.
	now := time.Now().UTC()
	order := domain.Order{
		ID:              uuid.NewString(),
		Number:          domain.NewOrderNumber(now),
		UserID:          userID,
		Items:           items,
		TotalMinor:      total,
		Status:          domain.OrderStatusPending,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		Notes:           in.Notes,
		Version:         0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	message, link := o.composer.ComposeLink(order)
	order.WhatsAppMessage = message
	if o.metrics != nil {
		o.metrics.RecordMessageComposed()
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		o.failed()
		return Result{}, errs[0]
	}

	stepStart = time.Now()
	if err := o.orders.Create(ctx, order); err != nil {
		o.logger.WithError(err).WithField("user_id", userID).Error("failed to persist order")
		o.failed()
		return Result{}, err
	}
	o.step(stepPersistOrder, stepStart)

	o.appendTimeline(ctx, domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.TimelineOrderCreated,
		Occurred: now,
	})
	o.appendTimeline(ctx, domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.TimelineMessageComposed,
		Occurred: now,
	})

	// Шаг 5: атомарное списание остатков. Отказ здесь — гонка со встречным
	// оформлением после шага 1; заказ уже создан, поэтому не откатываем, а
	// помечаем его для ручной сверки.
	stepStart = time.Now()
	for _, item := range items {
		if err := o.products.DecrementStock(ctx, item.ProductID, item.Qty); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
				"qty":        item.Qty,
			}).Warn("late stock conflict on decrement")
			order.NeedsReconcile = true
			if o.metrics != nil && errors.Is(err, domain.ErrInsufficientStock) {
				o.metrics.RecordStockConflict()
			}
			o.appendTimeline(ctx, domain.TimelineEvent{
				OrderID:  order.ID,
				Type:     domain.TimelineStockConflict,
				Reason:   err.Error(),
				Occurred: time.Now().UTC(),
			})
			o.publishEvent(kafka.TopicCheckoutEvents, userID,
				kafka.NewCheckoutEvent(kafka.EventTypeStockConflict, userID, map[string]interface{}{
					"product_id": item.ProductID,
					"qty":        item.Qty,
				}).WithOrder(order.ID))
			continue
		}
		o.appendTimeline(ctx, domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     domain.TimelineStockDecremented,
			Reason:   item.ProductID,
			Occurred: time.Now().UTC(),
		})
	}
	o.step(stepStockDecrement, stepStart)

	if order.NeedsReconcile {
		order.UpdatedAt = time.Now().UTC()
		if err := o.orders.Save(ctx, order); err != nil {
			o.logger.WithError(err).WithField("order_id", order.ID).Error("failed to flag order for reconcile")
		} else {
			order.Version++
		}
	}

	// Шаг 6: очистка корзины, только если источником была корзина.
	if fromCart {
		stepStart = time.Now()
		if err := o.carts.Clear(ctx, userID); err != nil {
			// Заказ уже создан; застрявшая корзина неприятна, но не фатальна.
			o.logger.WithError(err).WithField("user_id", userID).Warn("failed to clear cart after checkout")
		}
		o.step(stepCartClear, stepStart)
	}

	if o.metrics != nil {
		o.metrics.RecordOrderCreated()
	}
	o.publishEvent(kafka.TopicOrderEvents, userID,
		kafka.NewCheckoutEvent(kafka.EventTypeOrderCreated, userID, map[string]interface{}{
			"number":      order.Number,
			"total_minor": order.TotalMinor,
			"items":       len(order.Items),
		}).WithOrder(order.ID))

	o.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"number":   order.Number,
		"user_id":  userID,
		"total":    order.TotalMinor,
	}).Info("order created")

	return Result{Order: order, Message: message, Link: link}, nil
}

func (o *Orchestrator) appendTimeline(ctx context.Context, event domain.TimelineEvent) {
	if o.timeline == nil {
		return
	}
	if err := o.timeline.Append(ctx, event); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"event":    event.Type,
		}).Warn("append timeline event failed")
	}
}

// publishEvent отправляет событие в Kafka, если producer настроен. Ошибки
// публикации оформление не прерывают.
func (o *Orchestrator) publishEvent(topic, key string, event *kafka.CheckoutEvent) {
	if o.producer == nil {
		return
	}
	if err := o.producer.PublishEvent(topic, key, event); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": event.EventType,
			"topic":      topic,
		}).Warn("failed to publish checkout event to kafka")
	}
}

func (o *Orchestrator) failed() {
	if o.metrics != nil {
		o.metrics.RecordCheckoutFailed()
	}
}

func (o *Orchestrator) step(name string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(name, time.Since(start))
	}
}
