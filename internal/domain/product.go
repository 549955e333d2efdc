package domain

import "time"

// Product — позиция каталога. Ядро оформления заказа читает товар и списывает
// остаток; создание и редактирование каталога выполняет внешняя админка.
type Product struct {
	ID   string
	Name string
	// PriceMinor — актуальная цена каталога в минимальных денежных единицах.
	// В корзину и заказ копируется значение на момент добавления, не ссылка.
	PriceMinor int64
	// Stock — текущий остаток; инвариант stock >= 0 держит хранилище:
	// списание выполняется условно и отказывает вместо ухода в минус.
	Stock    int32
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasStock сообщает, хватает ли остатка под запрошенное количество.
func (p *Product) HasStock(qty int32) bool {
	return p.Stock >= qty
}
