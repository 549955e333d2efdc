package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreenattire/checkout/internal/domain"
	"github.com/evergreenattire/checkout/internal/service/cart"
	"github.com/evergreenattire/checkout/internal/service/checkout"
	"github.com/evergreenattire/checkout/internal/service/claim"
	"github.com/evergreenattire/checkout/internal/service/whatsapp"
	"github.com/evergreenattire/checkout/internal/storage/memory"
)

type apiFixture struct {
	products domain.ProductRepository
	offers   domain.OfferRepository
	orders   domain.OrderRepository
	server   *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	products := memory.NewProductRepository()
	offers := memory.NewOfferRepository()
	orders := memory.NewOrderRepository()
	carts := memory.NewCartRepository()
	timeline := memory.NewTimelineRepository()

	engine := claim.NewEngineWithoutMetrics(offers, products, carts, nil)
	orchestrator := checkout.NewOrchestratorWithoutMetrics(
		orders, carts, products, timeline, engine, whatsapp.NewComposer("+79990001122"), nil)
	cartSvc := cart.NewService(carts, products, nil)

	api := NewAPI(cartSvc, orchestrator, offers, orders, timeline, nil)
	server := httptest.NewServer(WithRecover(nil, api.NewRouter()))
	t.Cleanup(server.Close)

	return &apiFixture{products: products, offers: offers, orders: orders, server: server}
}

func (f *apiFixture) seedProduct(t *testing.T, id string, priceMinor int64, stock int32) {
	t.Helper()
	err := f.products.Create(context.Background(), domain.Product{
		ID:         id,
		Name:       "product " + id,
		PriceMinor: priceMinor,
		Stock:      stock,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func (f *apiFixture) seedOffer(t *testing.T, id string, discount int32, products ...string) {
	t.Helper()
	now := time.Now().UTC()
	err := f.offers.Create(context.Background(), domain.Offer{
		ID:              id,
		Title:           "акция " + id,
		DiscountPercent: discount,
		ProductIDs:      products,
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.Add(time.Hour),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	require.NoError(t, err)
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestAPI_GetOffer(t *testing.T) {
	f := newAPIFixture(t)
	f.seedOffer(t, "offer-1", 20, "p1")

	resp := f.do(t, http.MethodGet, "/api/offers/offer-1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view offerView
	decodeJSON(t, resp, &view)
	assert.Equal(t, "offer-1", view.ID)
	assert.Equal(t, int32(20), view.DiscountPercent)

	resp = f.do(t, http.MethodGet, "/api/offers/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ClaimOffer(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "p1", 1000, 10)
	f.seedOffer(t, "offer-1", 20, "p1")

	resp := f.do(t, http.MethodPost, "/api/offers/offer-1/claim", "user-1", claimRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view claimView
	decodeJSON(t, resp, &view)
	require.Len(t, view.Products, 1)
	assert.True(t, view.Products[0].Added)
	assert.Equal(t, int64(800), view.Products[0].PriceMinor)
	assert.Nil(t, view.Order)

	// Повторная активация — 409.
	resp = f.do(t, http.MethodPost, "/api/offers/offer-1/claim", "user-1", claimRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp errorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "already_claimed", errResp.Error.Code)

	// Без заголовка пользователя — 401.
	resp = f.do(t, http.MethodPost, "/api/offers/offer-1/claim", "", claimRequest{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ClaimOfferWithImmediateOrder(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "p1", 1000, 10)
	f.seedOffer(t, "offer-1", 20, "p1")

	resp := f.do(t, http.MethodPost, "/api/offers/offer-1/claim", "user-1", claimRequest{
		CreateOrder:     true,
		ShippingAddress: "Казань, Баумана 5",
		PaymentMethod:   "card",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view claimView
	decodeJSON(t, resp, &view)
	require.NotNil(t, view.Order)
	assert.Equal(t, int64(800), view.Order.TotalMinor)
	assert.NotEmpty(t, view.Message)
	assert.Contains(t, view.Link, "https://wa.me/")
}

func TestAPI_CartFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "p1", 1500, 10)

	resp := f.do(t, http.MethodPost, "/api/cart/items", "user-1", addItemRequest{ProductID: "p1", Qty: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view cartView
	decodeJSON(t, resp, &view)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(3000), view.TotalMinor)

	resp = f.do(t, http.MethodPut, "/api/cart/items/p1", "user-1", setQtyRequest{Qty: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &view)
	assert.Equal(t, int32(5), view.Lines[0].Qty)

	resp = f.do(t, http.MethodGet, "/api/cart", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &view)
	assert.Equal(t, int32(5), view.ItemCount)

	resp = f.do(t, http.MethodDelete, "/api/cart/items/p1", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &view)
	assert.Empty(t, view.Lines)

	resp = f.do(t, http.MethodDelete, "/api/cart", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_CartValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/cart/items", "user-1", addItemRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/cart/items", "user-1", addItemRequest{ProductID: "ghost", Qty: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_CheckoutFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "p1", 1000, 10)

	resp := f.do(t, http.MethodPost, "/api/cart/items", "user-1", addItemRequest{ProductID: "p1", Qty: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/checkout", "user-1", checkoutRequest{
		ShippingAddress: "Москва, Ленина 1",
		PaymentMethod:   "cash",
		Notes:           "позвонить за час",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created checkoutResponse
	decodeJSON(t, resp, &created)
	assert.Equal(t, int64(2000), created.Order.TotalMinor)
	assert.Equal(t, "pending", created.Order.Status)
	assert.NotEmpty(t, created.Message)

	// Заказ виден в списке и по ID.
	resp = f.do(t, http.MethodGet, "/api/orders", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []orderView
	decodeJSON(t, resp, &listed)
	require.Len(t, listed, 1)

	resp = f.do(t, http.MethodGet, "/api/orders/"+created.Order.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Timeline содержит событие создания.
	resp = f.do(t, http.MethodGet, "/api/orders/"+created.Order.ID+"/timeline", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []timelineEventView
	decodeJSON(t, resp, &events)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.TimelineOrderCreated, events[0].Type)

	// Повторное оформление пустой корзины — 422.
	resp = f.do(t, http.MethodPost, "/api/checkout", "user-1", checkoutRequest{
		ShippingAddress: "Москва, Ленина 1",
		PaymentMethod:   "cash",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPI_ResendMessage(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "p1", 1000, 10)
	f.do(t, http.MethodPost, "/api/cart/items", "user-1", addItemRequest{ProductID: "p1", Qty: 1})

	resp := f.do(t, http.MethodPost, "/api/checkout", "user-1", checkoutRequest{
		ShippingAddress: "СПб, Невский 10",
		PaymentMethod:   "card",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created checkoutResponse
	decodeJSON(t, resp, &created)

	resp = f.do(t, http.MethodPost, "/api/orders/"+created.Order.ID+"/resend-message", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var resent resendResponse
	decodeJSON(t, resp, &resent)
	assert.Equal(t, created.Message, resent.Message)
	assert.Equal(t, created.Link, resent.Link)
}

func TestAPI_StatusTransition(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "p1", 1000, 10)
	f.do(t, http.MethodPost, "/api/cart/items", "user-1", addItemRequest{ProductID: "p1", Qty: 1})

	resp := f.do(t, http.MethodPost, "/api/checkout", "user-1", checkoutRequest{
		ShippingAddress: "СПб, Невский 10",
		PaymentMethod:   "card",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created checkoutResponse
	decodeJSON(t, resp, &created)

	resp = f.do(t, http.MethodPost, "/api/orders/"+created.Order.ID+"/status", "user-1",
		statusRequest{Status: "confirmed", Reason: "оплата получена"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view orderView
	decodeJSON(t, resp, &view)
	assert.Equal(t, "confirmed", view.Status)

	// Недопустимый переход — 409.
	resp = f.do(t, http.MethodPost, "/api/orders/"+created.Order.ID+"/status", "user-1",
		statusRequest{Status: "delivered"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Неизвестный статус — 400.
	resp = f.do(t, http.MethodPost, "/api/orders/"+created.Order.ID+"/status", "user-1",
		statusRequest{Status: "teleported"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ReconcileRouteNotShadowed(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/orders/reconcile", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []orderView
	decodeJSON(t, resp, &listed)
	assert.Empty(t, listed)
}
