package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	models "ecofinds/model"
)

// writeCart renders cart with each entry's current listing.
func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, cart models.Cart) {
	lines, err := h.svc.DescribeCart(r.Context(), cart)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cart": toCartJSON(lines)})
}

// GetCart handles GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.GetCart(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	h.writeCart(w, r, cart)
}

// AddToCart handles POST /api/cart/add
// body: { "productId": "...", "quantity": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req, false); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" {
		writeErr(w, http.StatusBadRequest, "productId is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	cart, err := h.svc.AddItem(r.Context(), UserID(r.Context()), req.ProductID, qty)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	h.writeCart(w, r, cart)
}

// RemoveFromCart handles DELETE /api/cart/remove/{productId}
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.RemoveItem(r.Context(), UserID(r.Context()), mux.Vars(r)["productId"])
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	h.writeCart(w, r, cart)
}

// DecreaseCartItem handles PATCH /api/cart/decrease/{productId}
// body (optional): { "quantity": 1 }
func (h *Handler) DecreaseCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := decodeJSON(r, &req, true); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	amount := 1
	if req.Quantity != nil {
		amount = *req.Quantity
	}
	cart, err := h.svc.DecreaseItem(r.Context(), UserID(r.Context()), mux.Vars(r)["productId"], amount)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	h.writeCart(w, r, cart)
}

// SetCartQuantity handles PUT /api/cart/quantity/{productId}
// body: { "quantity": 3 }
func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := decodeJSON(r, &req, false); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity == nil {
		writeErr(w, http.StatusBadRequest, "quantity is required")
		return
	}
	cart, err := h.svc.SetQuantity(r.Context(), UserID(r.Context()), mux.Vars(r)["productId"], *req.Quantity)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	h.writeCart(w, r, cart)
}
