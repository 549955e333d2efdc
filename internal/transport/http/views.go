package http

import (
	"time"

	"github.com/samber/lo"

	"github.com/evergreenattire/checkout/internal/domain"
	"github.com/evergreenattire/checkout/internal/service/claim"
)

type cartLineView struct {
	ProductID  string    `json:"product_id"`
	Qty        int32     `json:"qty"`
	PriceMinor int64     `json:"price_minor"`
	AddedAt    time.Time `json:"added_at"`
}

type cartView struct {
	UserID     string         `json:"user_id"`
	Lines      []cartLineView `json:"lines"`
	ItemCount  int32          `json:"item_count"`
	TotalMinor int64          `json:"total_minor"`
}

func toCartView(cart domain.Cart) cartView {
	return cartView{
		UserID: cart.UserID,
		Lines: lo.Map(cart.Lines, func(line domain.CartLine, _ int) cartLineView {
			return cartLineView{
				ProductID:  line.ProductID,
				Qty:        line.Qty,
				PriceMinor: line.PriceMinor,
				AddedAt:    line.AddedAt,
			}
		}),
		ItemCount:  cart.ItemCount(),
		TotalMinor: cart.TotalMinor(),
	}
}

type offerView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	DiscountPercent int32     `json:"discount_percent"`
	ProductIDs      []string  `json:"product_ids"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidUntil      time.Time `json:"valid_until"`
	IsActive        bool      `json:"is_active"`
	UsedCount       int32     `json:"used_count"`
}

func toOfferView(offer domain.Offer) offerView {
	return offerView{
		ID:              offer.ID,
		Title:           offer.Title,
		DiscountPercent: offer.DiscountPercent,
		ProductIDs:      offer.ProductIDs,
		ValidFrom:       offer.ValidFrom,
		ValidUntil:      offer.ValidUntil,
		IsActive:        offer.IsActive,
		UsedCount:       offer.UsedCount,
	}
}

type orderItemView struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int32  `json:"qty"`
	PriceMinor     int64  `json:"price_minor"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

type orderView struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	UserID          string          `json:"user_id"`
	Items           []orderItemView `json:"items"`
	TotalMinor      int64           `json:"total_minor"`
	Status          string          `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes,omitempty"`
	NeedsReconcile  bool            `json:"needs_reconcile"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toOrderView(order domain.Order) orderView {
	return orderView{
		ID:     order.ID,
		Number: order.Number,
		UserID: order.UserID,
		Items: lo.Map(order.Items, func(item domain.OrderItem, _ int) orderItemView {
			return orderItemView{
				ProductID:      item.ProductID,
				Name:           item.Name,
				Qty:            item.Qty,
				PriceMinor:     item.PriceMinor,
				LineTotalMinor: item.LineTotalMinor,
			}
		}),
		TotalMinor:      order.TotalMinor,
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		Notes:           order.Notes,
		NeedsReconcile:  order.NeedsReconcile,
		CreatedAt:       order.CreatedAt,
	}
}

type claimProductView struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name,omitempty"`
	Added      bool   `json:"added"`
	PriceMinor int64  `json:"price_minor,omitempty"`
}

type claimView struct {
	Offer      offerView          `json:"offer"`
	Products   []claimProductView `json:"products"`
	Order      *orderView         `json:"order,omitempty"`
	Message    string             `json:"message,omitempty"`
	Link       string             `json:"link,omitempty"`
	OrderError string             `json:"order_error,omitempty"`
}

func toClaimView(result claim.Result) claimView {
	return claimView{
		Offer: toOfferView(result.Offer),
		Products: lo.Map(result.Products, func(p claim.ProductResult, _ int) claimProductView {
			return claimProductView{
				ProductID:  p.ProductID,
				Name:       p.Name,
				Added:      p.Added,
				PriceMinor: p.PriceMinor,
			}
		}),
	}
}

type timelineEventView struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}
