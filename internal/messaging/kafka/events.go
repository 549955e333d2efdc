package kafka

import "time"

// EventType определяет тип события конвейера оформления.
type EventType string

const (
	// События активации акций
	EventTypeOfferClaimed  EventType = "offer.claimed"
	EventTypeOfferRejected EventType = "offer.rejected"

	// События заказов
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"

	// События оформления
	EventTypeCheckoutFailed EventType = "checkout.failed"
	EventTypeStockConflict  EventType = "stock.conflict"
)

// Topics для Kafka
const (
	TopicCheckoutEvents = "storefront.checkout.events"
	TopicOrderEvents    = "storefront.order.events"
)

// CheckoutEvent представляет событие конвейера активации и оформления.
type CheckoutEvent struct {
	EventType EventType              `json:"event_type"`
	UserID    string                 `json:"user_id"`
	OfferID   string                 `json:"offer_id,omitempty"`
	OrderID   string                 `json:"order_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewCheckoutEvent создаёт событие конвейера оформления.
func NewCheckoutEvent(eventType EventType, userID string, metadata map[string]interface{}) *CheckoutEvent {
	return &CheckoutEvent{
		EventType: eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// WithOffer привязывает событие к акции.
func (e *CheckoutEvent) WithOffer(offerID string) *CheckoutEvent {
	e.OfferID = offerID
	return e
}

// WithOrder привязывает событие к заказу.
func (e *CheckoutEvent) WithOrder(orderID string) *CheckoutEvent {
	e.OrderID = orderID
	return e
}
