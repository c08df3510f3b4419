// Package handler содержит HTTP-обработчики API корзины и оформления заказа.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/cart"
	"github.com/mmeshcher/florist-storefront/internal/middleware"
	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/ratelimit"
	"github.com/mmeshcher/florist-storefront/internal/validation"
)

const maxBodyBytes = 64 << 10

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ResolveCart(cartID string, payload model.MockCart) (cart.Backend, bool)
	CreateCart(ctx context.Context) (cart.Backend, error)
	ViewCart(ctx context.Context, b cart.Backend) (*model.Cart, error)
	AddItem(ctx context.Context, b cart.Backend, sku string, quantity int) (*model.Cart, error)
	RemoveItem(ctx context.Context, b cart.Backend, ref string) (*model.Cart, error)
	UpdateQuantity(ctx context.Context, b cart.Backend, sku string, quantity int) (*model.Cart, error)
	DestroyCart(ctx context.Context, b cart.Backend) error
	ComputeTotal(ctx context.Context, b cart.Backend, zip, deliveryDate string) (*model.OrderTotal, error)
	DeliveryDates(ctx context.Context, zip string) ([]string, error)
	PlaceOrder(ctx context.Context, b cart.Backend, req model.OrderRequest) (*model.OrderConfirmation, error)
}

// Handler реализует HTTP-обработчики витрины.
type Handler struct {
	service    Service
	logger     *zap.Logger
	limiter    *ratelimit.Limiter
	totalLimit ratelimit.Options
}

// NewHandler создаёт обработчик. limiter и totalLimit защищают расчёт итога.
func NewHandler(s Service, logger *zap.Logger, limiter *ratelimit.Limiter, totalLimit ratelimit.Options) *Handler {
	return &Handler{
		service:    s,
		logger:     logger,
		limiter:    limiter,
		totalLimit: totalLimit,
	}
}

type cartResponse struct {
	CartID      string           `json:"cartId"`
	Items       []model.CartItem `json:"items"`
	Subtotal    float64          `json:"subtotal"`
	DeliveryFee *float64         `json:"deliveryFee"`
	ServiceFee  float64          `json:"serviceFee"`
	Total       float64          `json:"total"`
	IsEmpty     bool             `json:"isEmpty"`
}

type addResponse struct {
	CartID      string           `json:"cartId"`
	Items       []model.CartItem `json:"items"`
	Subtotal    float64          `json:"subtotal"`
	DeliveryFee *float64         `json:"deliveryFee"`
	Total       float64          `json:"total"`
}

type mutationResponse struct {
	CartID   string           `json:"cartId"`
	Items    []model.CartItem `json:"items"`
	Subtotal float64          `json:"subtotal"`
	Total    float64          `json:"total"`
	IsEmpty  bool             `json:"isEmpty"`
}

func newMutationResponse(c *model.Cart) mutationResponse {
	return mutationResponse{
		CartID:   c.CartID,
		Items:    c.Items,
		Subtotal: c.Subtotal,
		Total:    c.Total,
		IsEmpty:  c.IsEmpty(),
	}
}

// resolve выбирает корзину по cookie запроса.
func (h *Handler) resolve(r *http.Request) (cart.Backend, bool) {
	id := middleware.IdentityFromContext(r.Context())
	if !id.HasCart() {
		return nil, false
	}
	return h.service.ResolveCart(id.CartID, id.Mock)
}

// setCookies повторно выставляет обе cookie корзины после изменения.
func (h *Handler) setCookies(w http.ResponseWriter, r *http.Request, b cart.Backend) error {
	return middleware.SetCartCookies(w, r, b.CartID(), b.Payload())
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// GetCart возвращает текущую корзину. Без корзины возвращается пустое представление.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	b, ok := h.resolve(r)
	if !ok {
		writeData(w, cartResponse{Items: []model.CartItem{}, IsEmpty: true})
		return
	}

	c, err := h.service.ViewCart(r.Context(), b)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeData(w, cartResponse{
		CartID:      c.CartID,
		Items:       c.Items,
		Subtotal:    c.Subtotal,
		DeliveryFee: c.DeliveryFee,
		ServiceFee:  c.ServiceFee,
		Total:       c.Total,
		IsEmpty:     c.IsEmpty(),
	})
}

type createResponse struct {
	CartID     string `json:"cartId"`
	IsExisting bool   `json:"isExisting"`
}

// CreateCart возвращает текущую корзину клиента или заводит новую.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	existing := true
	b, ok := h.resolve(r)
	if !ok {
		existing = false
		var err error
		b, err = h.service.CreateCart(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	if err := h.setCookies(w, r, b); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, createResponse{CartID: b.CartID(), IsExisting: existing})
}

type addRequest struct {
	SKU      string `json:"sku"`
	Quantity *int   `json:"quantity"`
}

// AddToCart добавляет товар, при необходимости заводя корзину.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeBody(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.SKU = strings.TrimSpace(req.SKU)
	if !validation.IsValidSKU(req.SKU) {
		writeFail(w, http.StatusBadRequest, "A valid sku is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 || quantity > cart.MaxQuantity {
		writeFail(w, http.StatusBadRequest, "Quantity must be between 1 and 99")
		return
	}

	b, ok := h.resolve(r)
	if !ok {
		var err error
		b, err = h.service.CreateCart(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.logger.Info("cart created", zap.String("cartId", b.CartID()), zap.String("mode", b.Kind().String()))
	}

	c, err := h.service.AddItem(r.Context(), b, req.SKU, quantity)
	if cerr := h.setCookies(w, r, b); cerr != nil {
		h.writeError(w, r, cerr)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeData(w, addResponse{
		CartID:   c.CartID,
		Items:    c.Items,
		Subtotal: c.Subtotal,
		Total:    c.Total,
	})
}

type removeRequest struct {
	ItemID string `json:"itemId"`
	SKU    string `json:"sku"`
}

// RemoveFromCart удаляет позицию по itemId или sku.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeBody(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ref := strings.TrimSpace(req.ItemID)
	if ref == "" {
		ref = strings.TrimSpace(req.SKU)
	}
	if ref == "" {
		writeFail(w, http.StatusBadRequest, "itemId or sku is required")
		return
	}

	b, ok := h.resolve(r)
	if !ok {
		h.writeError(w, r, cart.ErrCartNotFound)
		return
	}

	c, err := h.service.RemoveItem(r.Context(), b, ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.setCookies(w, r, b); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, newMutationResponse(c))
}

type updateQuantityRequest struct {
	SKU      string `json:"sku"`
	Quantity *int   `json:"quantity"`
}

// UpdateQuantity устанавливает количество товара; ноль удаляет позицию.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeBody(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.SKU = strings.TrimSpace(req.SKU)
	if !validation.IsValidSKU(req.SKU) {
		writeFail(w, http.StatusBadRequest, "A valid sku is required")
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 || *req.Quantity > cart.MaxQuantity {
		writeFail(w, http.StatusBadRequest, "Quantity must be between 0 and 99")
		return
	}

	b, ok := h.resolve(r)
	if !ok {
		h.writeError(w, r, cart.ErrCartNotFound)
		return
	}

	c, err := h.service.UpdateQuantity(r.Context(), b, req.SKU, *req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.setCookies(w, r, b); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, newMutationResponse(c))
}

type messageResponse struct {
	Message string `json:"message"`
}

// DestroyCart удаляет корзину. Cookie очищаются в любом случае, даже при ошибке поставщика.
func (h *Handler) DestroyCart(w http.ResponseWriter, r *http.Request) {
	if b, ok := h.resolve(r); ok {
		if err := h.service.DestroyCart(r.Context(), b); err != nil {
			h.logger.Warn("destroy cart failed", zap.String("cartId", b.CartID()), zap.Error(err))
		}
	}

	middleware.ClearCartCookies(w, r)
	writeData(w, messageResponse{Message: "Cart destroyed"})
}

// GetTotal рассчитывает итог заказа по индексу и дате доставки.
func (h *Handler) GetTotal(w http.ResponseWriter, r *http.Request) {
	zip := strings.TrimSpace(r.URL.Query().Get("zip"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if !validation.IsValidZIP(zip) {
		writeFail(w, http.StatusBadRequest, "A valid 5-digit zip code is required")
		return
	}
	if _, ok := validation.ParseDeliveryDate(date); !ok {
		writeFail(w, http.StatusBadRequest, "A valid delivery date (YYYY-MM-DD) is required")
		return
	}

	b, ok := h.resolve(r)
	if !ok {
		h.writeError(w, r, cart.ErrCartNotFound)
		return
	}

	total, err := h.service.ComputeTotal(r.Context(), b, zip, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, total)
}

type deliveryDatesResponse struct {
	ZIP   string   `json:"zip"`
	Dates []string `json:"dates"`
}

// DeliveryDates возвращает доступные даты доставки для индекса.
func (h *Handler) DeliveryDates(w http.ResponseWriter, r *http.Request) {
	zip := strings.TrimSpace(r.URL.Query().Get("zip"))
	if !validation.IsValidZIP(zip) {
		writeFail(w, http.StatusBadRequest, "A valid 5-digit zip code is required")
		return
	}

	dates, err := h.service.DeliveryDates(r.Context(), zip)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, deliveryDatesResponse{ZIP: zip, Dates: dates})
}

// PlaceOrder оформляет заказ. Cookie корзины очищаются только после успеха.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, ok := h.resolve(r)
	if !ok {
		h.writeError(w, r, cart.ErrCartNotFound)
		return
	}

	confirmation, err := h.service.PlaceOrder(r.Context(), b, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("order placed",
		zap.String("orderId", confirmation.OrderID), zap.String("cartId", b.CartID()),
		zap.String("mode", b.Kind().String()))
	middleware.ClearCartCookies(w, r)
	writeData(w, confirmation)
}

// Health сообщает, что процесс обслуживает запросы.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
