package http

import "net/http"

// NewRouter собирает маршруты API.
func (a *API) NewRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/offers/{id}", a.getOffer)
	mux.HandleFunc("POST /api/offers/{id}/claim", a.claimOffer)

	mux.HandleFunc("GET /api/cart", a.getCart)
	mux.HandleFunc("POST /api/cart/items", a.addCartItem)
	mux.HandleFunc("PUT /api/cart/items/{productID}", a.setCartItemQty)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", a.removeCartItem)
	mux.HandleFunc("DELETE /api/cart", a.clearCart)

	mux.HandleFunc("POST /api/checkout", a.checkoutCart)

	mux.HandleFunc("GET /api/orders", a.listOrders)
	mux.HandleFunc("GET /api/orders/reconcile", a.listReconcile)
	mux.HandleFunc("GET /api/orders/{id}", a.getOrder)
	mux.HandleFunc("GET /api/orders/{id}/timeline", a.getOrderTimeline)
	mux.HandleFunc("POST /api/orders/{id}/resend-message", a.resendMessage)
	mux.HandleFunc("POST /api/orders/{id}/status", a.transitionStatus)

	return mux
}
