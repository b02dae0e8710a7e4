package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	models "ecofinds/model"
	"ecofinds/service"
)

// Checkout handles POST /api/orders/checkout
// body: { "paymentMethod": "pay_later" | "gateway" | "razorpay" }
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decodeJSON(r, &req, false); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := h.svc.Checkout(r.Context(), UserID(r.Context()), method)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"order": toOrderJSON(order)})
}

// OrderHistory handles GET /api/orders/history
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": out})
}

// ownOrder loads the order named in the path and hides it unless it
// belongs to the caller.
func (h *Handler) ownOrder(w http.ResponseWriter, r *http.Request) (models.Order, bool) {
	o, err := h.svc.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceErr(w, r, err)
		return models.Order{}, false
	}
	if o.UserID != UserID(r.Context()) {
		writeErr(w, http.StatusNotFound, service.ErrMsgOrderNotFound)
		return models.Order{}, false
	}
	return o, true
}

// GetOrder handles GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": toOrderJSON(o)})
}

// MarkPaid handles POST /api/orders/{id}/pay, called by the payment
// collaborator once it has confirmed a pay_later order was settled.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	paid, err := h.svc.MarkPaid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": toOrderJSON(paid)})
}
