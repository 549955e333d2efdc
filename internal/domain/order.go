package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, подтверждение ещё не выполнено.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён магазином.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing — заказ собирается.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ получен покупателем.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions — таблица разрешённых переходов статуса. Любой переход вне
// таблицы отклоняется. delivered → cancelled оставлен намеренно: это возврат
// после получения.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusCancelled},
	OrderStatusCancelled:  {},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo сообщает, разрешён ли переход в статус next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem — снимок позиции на момент создания заказа. Название и цена
// копируются из корзины/каталога и дальше не пересчитываются, даже если товар
// переоценили или удалили.
type OrderItem struct {
	ID         string
	ProductID  string
	Name       string
	Qty        int32
	PriceMinor int64
	// LineTotalMinor = Qty × PriceMinor, фиксируется при создании.
	LineTotalMinor int64
	CreatedAt      time.Time
}

// Order — неизменяемый после создания заказ. Меняется только Status (по таблице
// переходов) и NeedsReconcile.
type Order struct {
	ID string
	// Number — человекочитаемый номер вида EA20240131123456789.
	Number string
	UserID string
	Items  []OrderItem
	// TotalMinor — сумма LineTotalMinor всех позиций.
	TotalMinor      int64
	Status          OrderStatus
	ShippingAddress string
	PaymentMethod   string
	Notes           string
	// WhatsAppMessage — закэшированный текст исходящего сообщения; повторная
	// генерация по снимку заказа обязана дать байт-в-байт тот же результат.
	WhatsAppMessage string
	// NeedsReconcile выставляется, если списание остатка провалилось уже после
	// создания заказа (гонка со встречным оформлением) и требуется ручная сверка.
	NeedsReconcile bool
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.ShippingAddress == "" {
		errs = append(errs, ErrShippingAddressRequired)
	}
	if o.PaymentMethod == "" {
		errs = append(errs, ErrPaymentMethodRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем сумму заказа с суммой позиций.
	var calc int64
	for _, item := range o.Items {
		if item.Qty < 1 {
			errs = append(errs, ErrInvalidQuantity)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += item.LineTotalMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// Transition переводит заказ в новый статус, сверяясь с таблицей переходов.
func (o *Order) Transition(next OrderStatus, now time.Time) error {
	if !next.Valid() {
		return ErrOrderTransitionInvalid
	}
	if !o.Status.CanTransitionTo(next) {
		return ErrOrderTransitionInvalid
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// NewOrderNumber формирует номер заказа: EA + дата + шесть младших цифр
// миллисекунд + три случайные цифры. Уникальность вероятностная, без
// sequence: при ожидаемых объёмах заказов коллизии пренебрежимо редки, а
// уникальный индекс в хранилище отлавливает остальное.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("EA%s%06d%03d",
		now.Format("20060102"),
		now.UnixMilli()%1_000_000,
		rand.Intn(1000),
	)
}
