package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferClaim — запись в журнале активаций: кто и когда активировал акцию.
// На одного пользователя допускается не более одной записи.
type OfferClaim struct {
	UserID    string
	ClaimedAt time.Time
}

// Offer — временная акция со скидкой на фиксированный набор товаров.
// Создаётся и редактируется админкой; ядро читает акцию и дописывает журнал
// активаций. Вместо удаления акция выключается через IsActive=false.
type Offer struct {
	ID    string
	Title string
	// DiscountPercent — размер скидки, 0..100.
	DiscountPercent int32
	ProductIDs      []string
	ValidFrom       time.Time
	ValidUntil      time.Time
	IsActive        bool
	// MaxUses — лимит активаций; 0 означает «без ограничений».
	MaxUses   int32
	UsedCount int32
	ClaimedBy []OfferClaim

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClaimableAt проверяет, можно ли активировать акцию в момент now.
// Журнал активаций здесь не учитывается: повторную активацию конкретным
// пользователем отсекает хранилище атомарной записью «claim if absent».
func (o *Offer) ClaimableAt(now time.Time) error {
	if !o.IsActive {
		return ErrOfferInvalid
	}
	if now.Before(o.ValidFrom) || now.After(o.ValidUntil) {
		return ErrOfferInvalid
	}
	if o.MaxUses > 0 && o.UsedCount >= o.MaxUses {
		return ErrOfferInvalid
	}
	if len(o.ProductIDs) == 0 {
		return ErrOfferInvalid
	}
	return nil
}

// HasClaimed сообщает, есть ли пользователь в журнале активаций.
func (o *Offer) HasClaimed(userID string) bool {
	for _, claim := range o.ClaimedBy {
		if claim.UserID == userID {
			return true
		}
	}
	return false
}

// DiscountedPriceMinor считает цену со скидкой: price × (1 − percent/100).
// Дробный остаток отбрасывается в сторону нуля, чтобы результат всегда
// укладывался в минимальные денежные единицы без накопления ошибок float.
func (o *Offer) DiscountedPriceMinor(priceMinor int64) int64 {
	if o.DiscountPercent <= 0 {
		return priceMinor
	}
	if o.DiscountPercent >= 100 {
		return 0
	}
	return decimal.NewFromInt(priceMinor).
		Mul(decimal.NewFromInt32(100 - o.DiscountPercent)).
		Div(decimal.NewFromInt(100)).
		IntPart()
}
