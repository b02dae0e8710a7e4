package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ecofinds/service"
)

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc        service.ServiceInterface
	log        *zap.Logger
	secret     []byte
	paymentKey []byte
	origins    []string
}

type Config struct {
	// JWTSecret verifies the HS256 tokens issued by the auth service.
	JWTSecret []byte
	// PaymentAPIKey authenticates the payment collaborator on the settle
	// route. When empty the route refuses every request.
	PaymentAPIKey []byte
	CORSOrigins   []string
}

func NewHandler(s service.ServiceInterface, log *zap.Logger, cfg Config) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:        s,
		log:        log,
		secret:     cfg.JWTSecret,
		paymentKey: cfg.PaymentAPIKey,
		origins:    cfg.CORSOrigins,
	}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Products
	api.HandleFunc("/products", h.requireUser(h.CreateProduct)).Methods(http.MethodPost)
	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)

	// Cart
	api.HandleFunc("/cart", h.requireUser(h.GetCart)).Methods(http.MethodGet)
	api.HandleFunc("/cart/add", h.requireUser(h.AddToCart)).Methods(http.MethodPost)
	api.HandleFunc("/cart/remove/{productId}", h.requireUser(h.RemoveFromCart)).Methods(http.MethodDelete)
	api.HandleFunc("/cart/decrease/{productId}", h.requireUser(h.DecreaseCartItem)).Methods(http.MethodPatch)
	api.HandleFunc("/cart/quantity/{productId}", h.requireUser(h.SetCartQuantity)).Methods(http.MethodPut)

	// Orders
	api.HandleFunc("/orders/checkout", h.requireUser(h.Checkout)).Methods(http.MethodPost)
	api.HandleFunc("/orders/history", h.requireUser(h.OrderHistory)).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", h.requireUser(h.GetOrder)).Methods(http.MethodGet)

	// Payment collaborator
	api.HandleFunc("/orders/{id}/pay", h.requirePaymentKey(h.MarkPaid)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "route not found")
	})
}

// Router builds the full HTTP stack: routes, CORS, request logging and
// panic recovery.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	var next http.Handler = r
	next = handlers.CORS(
		handlers.AllowedOrigins(h.origins),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(next)
	next = handlers.CustomLoggingHandler(io.Discard, next, h.logRequest)
	next = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{h.log}),
		handlers.PrintRecoveryStack(true),
	)(next)
	return next
}

func (h *Handler) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	h.log.Info("request",
		zap.String("method", p.Request.Method),
		zap.String("path", p.URL.Path),
		zap.Int("status", p.StatusCode),
		zap.Int("size", p.Size),
		zap.Duration("duration", time.Since(p.TimeStamp)))
}

type recoveryLogger struct{ log *zap.Logger }

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("panic serving request", zap.String("panic", fmt.Sprint(v...)))
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

// writeServiceErr maps a service error kind to its status code. Failures
// are logged with their cause; clients only see the message.
func (h *Handler) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	msg := service.ErrMsgStoreUnavailable
	if errors.As(err, &se) {
		msg = se.Message
	}
	switch service.KindOf(err) {
	case service.KindInvalidOperation:
		writeErr(w, http.StatusBadRequest, msg)
	case service.KindNotFound:
		writeErr(w, http.StatusNotFound, msg)
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", UserID(r.Context())),
			zap.Error(err))
		writeErr(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON decodes a single JSON value into v, rejecting unknown fields
// and trailing data. With optional set an empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "EcoFinds API"})
}
