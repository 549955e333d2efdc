package whatsapp

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreenattire/checkout/internal/domain"
)

func sampleOrder() domain.Order {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:     "order-1",
		Number: "EA20240315123456789",
		UserID: "user-1",
		Items: []domain.OrderItem{
			{
				ID:             "item-1",
				ProductID:      "product-1",
				Name:           "Linen Shirt",
				Qty:            1,
				PriceMinor:     800,
				LineTotalMinor: 800,
				CreatedAt:      now,
			},
			{
				ID:             "item-2",
				ProductID:      "product-2",
				Name:           "Canvas Tote",
				Qty:            2,
				PriceMinor:     450,
				LineTotalMinor: 900,
				CreatedAt:      now,
			},
		},
		TotalMinor:      1700,
		Status:          domain.OrderStatusPending,
		ShippingAddress: "Jl. Kenanga 12, Jakarta",
		PaymentMethod:   "bank transfer",
		Notes:           "leave at the door",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestCompose_ContainsOrderDetails(t *testing.T) {
	composer := NewComposer("6281234567890")
	message := composer.Compose(sampleOrder())

	assert.Contains(t, message, "EA20240315123456789")
	assert.Contains(t, message, "Linen Shirt")
	assert.Contains(t, message, "1 x 800 = 800")
	assert.Contains(t, message, "2 x 450 = 900")
	assert.Contains(t, message, "Total: 1700")
	assert.Contains(t, message, "Jl. Kenanga 12, Jakarta")
	assert.Contains(t, message, "bank transfer")
	assert.Contains(t, message, "leave at the door")
}

func TestCompose_SkipsEmptyNotes(t *testing.T) {
	composer := NewComposer("6281234567890")
	order := sampleOrder()
	order.Notes = ""

	message := composer.Compose(order)
	assert.NotContains(t, message, "Notes:")
}

// Повторная генерация по одному и тому же снимку заказа обязана давать
// байт-в-байт одинаковый результат.
func TestCompose_Deterministic(t *testing.T) {
	composer := NewComposer("6281234567890")
	order := sampleOrder()

	first := composer.Compose(order)
	second := composer.Compose(order)

	require.Equal(t, first, second)

	_, firstLink := composer.ComposeLink(order)
	_, secondLink := composer.ComposeLink(order)
	require.Equal(t, firstLink, secondLink)
}

func TestLink_EncodesMessage(t *testing.T) {
	composer := NewComposer("+6281234567890")
	message, link := composer.ComposeLink(sampleOrder())

	require.True(t, strings.HasPrefix(link, "https://wa.me/6281234567890?text="), link)

	parsed, err := url.Parse(link)
	require.NoError(t, err)

	decoded := parsed.Query().Get("text")
	assert.Equal(t, message, decoded)
}
