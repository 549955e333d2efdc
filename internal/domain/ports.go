package domain

import (
	"context"
	"time"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

// Типы событий timeline, которые пишет ядро оформления.
const (
	TimelineOrderCreated     = "OrderCreated"
	TimelineStockDecremented = "StockDecremented"
	TimelineStockConflict    = "StockConflict"
	TimelineMessageComposed  = "MessageComposed"
	TimelineStatusChanged    = "OrderStatusChanged"
)

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}
