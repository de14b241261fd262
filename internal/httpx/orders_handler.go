package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, customerID string, lines []orders.LineInput) (*orders.Order, error)
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, error)
	GetOrder(ctx context.Context, id string) (orders.Order, error)
	Receipt(ctx context.Context, id string) (orders.Receipt, error)
}

// Idempotency remembers which order an Idempotency-Key produced.
type Idempotency interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, orderID string) error
}

const headerIdempotencyKey = "Idempotency-Key"

type OrdersHandler struct {
	Service OrderService
	Idem    Idempotency // optional
	Log     *zap.Logger
}

type PlaceOrderReq struct {
	CustomerID string             `json:"customerId"`
	Items      []orders.LineInput `json:"items"`
}

type defectResp struct {
	Error   string          `json:"error"`
	Defects []orders.Defect `json:"defects"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/receipt", h.receipt)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if idemKey != "" && h.Idem != nil {
		if id, ok, err := h.Idem.Lookup(ctx, idemKey); err != nil {
			h.Log.Warn("idempotency lookup failed", zap.String("key", idemKey), zap.Error(err))
		} else if ok {
			o, err := h.Service.GetOrder(ctx, id)
			if err == nil {
				w.Header().Set("Idempotent-Replayed", "true")
				writeJSON(w, http.StatusOK, o)
				return
			}
			h.Log.Warn("idempotent order unreadable", zap.String("order_id", id), zap.Error(err))
		}
	}

	o, err := h.Service.PlaceOrder(ctx, req.CustomerID, req.Items)
	if err != nil {
		h.writePlaceError(w, err)
		return
	}

	if idemKey != "" && h.Idem != nil {
		if err := h.Idem.Remember(ctx, idemKey, o.ID); err != nil {
			h.Log.Warn("idempotency store failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) writePlaceError(w http.ResponseWriter, err error) {
	var report *orders.DefectReport
	var commit *orders.CommitError
	switch {
	case errors.Is(err, orders.ErrMissingCustomer), errors.Is(err, orders.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &report):
		writeJSON(w, http.StatusConflict, defectResp{Error: report.Error(), Defects: report.Defects})
	case errors.As(err, &commit):
		writeError(w, http.StatusBadGateway, commit.Error())
	default:
		h.Log.Error("place order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Service.ListOrders(ctx, orders.ListFilter{
		CustomerID: r.URL.Query().Get("customerId"),
		Limit:      limit,
	})
	if err != nil {
		h.Log.Error("list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Service.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeReadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) receipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rc, err := h.Service.Receipt(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeReadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (h *OrdersHandler) writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.Log.Error("read order", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
