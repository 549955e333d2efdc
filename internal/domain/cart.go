package domain

import "time"

// CartLine — одна позиция корзины.
type CartLine struct {
	ProductID string
	Qty       int32
	// PriceMinor — цена за единицу, зафиксированная в момент добавления или
	// активации акции. Последующие изменения цены в каталоге позицию не трогают.
	PriceMinor int64
	AddedAt    time.Time
}

// Cart — корзина пользователя; ровно одна на userId, создаётся лениво.
// Инвариант: не более одной позиции на один productId.
type Cart struct {
	UserID    string
	Lines     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineIndex возвращает индекс позиции товара или -1, если её нет.
func (c *Cart) LineIndex(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Merge добавляет товар в корзину. Существующая позиция накапливает количество
// и перезаписывает цену последней применимой; новая — добавляется в конец.
func (c *Cart) Merge(productID string, qty int32, priceMinor int64, now time.Time) {
	if idx := c.LineIndex(productID); idx >= 0 {
		c.Lines[idx].Qty += qty
		c.Lines[idx].PriceMinor = priceMinor
		c.UpdatedAt = now
		return
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID:  productID,
		Qty:        qty,
		PriceMinor: priceMinor,
		AddedAt:    now,
	})
	c.UpdatedAt = now
}

// ItemCount — суммарное количество единиц товара в корзине.
func (c *Cart) ItemCount() int32 {
	var total int32
	for _, line := range c.Lines {
		total += line.Qty
	}
	return total
}

// TotalMinor — стоимость корзины по зафиксированным ценам позиций.
func (c *Cart) TotalMinor() int64 {
	var total int64
	for _, line := range c.Lines {
		total += int64(line.Qty) * line.PriceMinor
	}
	return total
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
