package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/cart"
	"github.com/mmeshcher/florist-storefront/internal/checkout"
	"github.com/mmeshcher/florist-storefront/internal/vendor"
)

// envelope задаёт общий формат ответов API.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeError переводит ошибку сервиса в код ответа. Неизвестные ошибки пишутся в журнал.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *vendor.Error
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		writeFail(w, http.StatusNotFound, "Cart not found")
	case errors.Is(err, cart.ErrItemNotFound):
		writeFail(w, http.StatusNotFound, "Item not found in cart")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeFail(w, http.StatusBadRequest, "Quantity must be between 0 and 99")
	case errors.Is(err, cart.ErrCartTooLarge):
		writeFail(w, http.StatusBadRequest, "Cart is full, remove an item before adding more")
	case errors.Is(err, checkout.ErrEmptyCart):
		writeFail(w, http.StatusBadRequest, "Cart is empty")
	case errors.Is(err, checkout.ErrInvalidOrder):
		writeFail(w, http.StatusBadRequest, capitalize(strings.TrimPrefix(err.Error(), checkout.ErrInvalidOrder.Error()+": ")))
	case errors.Is(err, cart.ErrPartialUpdate):
		writeFail(w, http.StatusInternalServerError,
			"Cart update was interrupted and the item may have been removed, please add it again")
	case errors.Is(err, checkout.ErrDeliveryUnresolved):
		writeFail(w, http.StatusInternalServerError,
			"Unable to calculate delivery fee for this address and date, please try another date")
	case errors.Is(err, checkout.ErrOrderRejected):
		h.logger.Error("order rejected", zap.String("path", r.URL.Path), zap.Error(err))
		writeFail(w, http.StatusInternalServerError, capitalize(err.Error()))
	case errors.Is(err, vendor.ErrNotConfigured):
		h.logger.Error("vendor not configured", zap.String("path", r.URL.Path))
		writeFail(w, http.StatusInternalServerError, "Florist service is not configured")
	case errors.As(err, &verr):
		h.logger.Error("vendor error", zap.String("path", r.URL.Path), zap.String("op", verr.Op),
			zap.Int("status", verr.StatusCode), zap.String("body", verr.Body))
		writeFail(w, http.StatusInternalServerError, "Florist service request failed")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
