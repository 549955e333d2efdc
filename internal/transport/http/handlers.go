package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/evergreenattire/checkout/internal/domain"
	"github.com/evergreenattire/checkout/internal/service/cart"
	"github.com/evergreenattire/checkout/internal/service/checkout"
)

// userIDHeader несёт идентификатор покупателя. Аутентификация выполняется
// выше по стеку; сервис доверяет заголовку.
const userIDHeader = "X-User-ID"

// API — HTTP-обработчики поверх сервисного слоя.
type API struct {
	carts        *cart.Service
	orchestrator *checkout.Orchestrator
	offers       domain.OfferRepository
	orders       domain.OrderRepository
	timeline     domain.TimelineRepository
	logger       *log.Entry
}

// NewAPI создаёт HTTP API.
func NewAPI(
	carts *cart.Service,
	orchestrator *checkout.Orchestrator,
	offers domain.OfferRepository,
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *API {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	return &API{
		carts:        carts,
		orchestrator: orchestrator,
		offers:       offers,
		orders:       orders,
		timeline:     timeline,
		logger:       logger,
	}
}

func (a *API) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "user_required", "X-User-ID header is required")
		return "", false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// --- Акции ---

func (a *API) getOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := a.offers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferView(offer))
}

type claimRequest struct {
	CreateOrder     bool   `json:"create_order"`
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

func (a *API) claimOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}

	var req claimRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	result, err := a.orchestrator.ClaimOffer(r.Context(), userID, checkout.ClaimInput{
		OfferID:     r.PathValue("id"),
		CreateOrder: req.CreateOrder,
		Checkout: checkout.Input{
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
		},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	view := toClaimView(result.Claim)
	if result.Order != nil {
		orderView := toOrderView(*result.Order)
		view.Order = &orderView
		view.Message = result.Message
		view.Link = result.Link
	}
	if result.OrderErr != nil {
		view.OrderError = result.OrderErr.Error()
	}
	writeJSON(w, http.StatusOK, view)
}

// --- Корзина ---

func (a *API) getCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	c, err := a.carts.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

func (a *API) addCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "product_id is required")
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	c, err := a.carts.AddProduct(r.Context(), userID, req.ProductID, req.Qty)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

type setQtyRequest struct {
	Qty int32 `json:"qty"`
}

func (a *API) setCartItemQty(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	var req setQtyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := a.carts.SetQuantity(r.Context(), userID, r.PathValue("productID"), req.Qty)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

func (a *API) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	c, err := a.carts.RemoveProduct(r.Context(), userID, r.PathValue("productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

func (a *API) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	if err := a.carts.Clear(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Оформление ---

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

type checkoutResponse struct {
	Order   orderView `json:"order"`
	Message string    `json:"message"`
	Link    string    `json:"link"`
}

func (a *API) checkoutCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := a.orchestrator.CheckoutCart(r.Context(), userID, checkout.Input{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:   toOrderView(result.Order),
		Message: result.Message,
		Link:    result.Link,
	})
}

// --- Заказы ---

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	orders, err := a.orders.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (a *API) getOrderTimeline(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if _, err := a.orders.Get(r.Context(), orderID); err != nil {
		writeDomainError(w, err)
		return
	}

	events, err := a.timeline.List(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]timelineEventView, 0, len(events))
	for _, event := range events {
		views = append(views, timelineEventView{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type resendResponse struct {
	Message string `json:"message"`
	Link    string `json:"link"`
}

func (a *API) resendMessage(w http.ResponseWriter, r *http.Request) {
	message, link, err := a.orchestrator.ResendMessage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resendResponse{Message: message, Link: link})
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (a *API) transitionStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	next := domain.OrderStatus(req.Status)
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "validation_error", "unknown order status: "+req.Status)
		return
	}

	order, err := a.orchestrator.TransitionStatus(r.Context(), r.PathValue("id"), next, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (a *API) listReconcile(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orders.ListNeedsReconcile(r.Context(), 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	writeJSON(w, http.StatusOK, views)
}
