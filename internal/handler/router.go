package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/florist-storefront/internal/middleware"
	"github.com/mmeshcher/florist-storefront/internal/validation"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/healthz", h.Health)

	r.Route("/{state}/{city}", func(r chi.Router) {
		r.Use(validateLocation)
		r.Use(custommiddleware.CartIdentity)

		r.HandleFunc("/cart", allow(http.HandlerFunc(h.GetCart), http.MethodGet))
		r.HandleFunc("/cart/create", allow(http.HandlerFunc(h.CreateCart), http.MethodPost))
		r.HandleFunc("/cart/add", allow(http.HandlerFunc(h.AddToCart), http.MethodPost))
		r.HandleFunc("/cart/remove", allow(http.HandlerFunc(h.RemoveFromCart), http.MethodPost))
		r.HandleFunc("/cart/update-quantity", allow(http.HandlerFunc(h.UpdateQuantity), http.MethodPost))
		r.HandleFunc("/cart/destroy", allow(http.HandlerFunc(h.DestroyCart), http.MethodPost))

		limited := custommiddleware.RateLimit(h.limiter, h.totalLimit, h.logger)
		r.HandleFunc("/checkout/get-total", allow(limited(http.HandlerFunc(h.GetTotal)), http.MethodGet))
		r.HandleFunc("/checkout/delivery-dates", allow(http.HandlerFunc(h.DeliveryDates), http.MethodGet))
		r.HandleFunc("/checkout/place-order", allow(http.HandlerFunc(h.PlaceOrder), http.MethodPost))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}

// allow пропускает только перечисленные методы: OPTIONS получает 204, остальные 405.
// Оба ответа несут заголовок Allow.
func allow(next http.Handler, methods ...string) http.HandlerFunc {
	allowed := strings.Join(append(methods, http.MethodOptions), ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("Allow", allowed)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeFail(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
	}
}

// validateLocation проверяет префикс маршрута: двухбуквенный штат и slug города.
func validateLocation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validation.IsValidState(chi.URLParam(r, "state")) {
			writeFail(w, http.StatusBadRequest, "Invalid state in path")
			return
		}
		if !validation.IsValidCitySlug(chi.URLParam(r, "city")) {
			writeFail(w, http.StatusBadRequest, "Invalid city in path")
			return
		}
		next.ServeHTTP(w, r)
	})
}
