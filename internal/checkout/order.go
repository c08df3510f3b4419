package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/cart"
	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/validation"
	"github.com/mmeshcher/florist-storefront/internal/vendor"
)

const (
	dateLayout         = validation.DateLayout
	maxCardMessage     = 200
	maxInstructions    = 100
	mockOrderPrefix    = "MOCK-"
	confirmationPrefix = "FLO-"
	defaultCountry     = "US"
)

var (
	// ErrInvalidOrder возвращается при некорректных данных формы заказа.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrOrderRejected означает, что поставщик не подтвердил заказ.
	ErrOrderRejected = errors.New("order rejected by vendor")
)

// Receipt содержит результат оформления: ответ клиенту и запись для журнала заказов.
type Receipt struct {
	Confirmation model.OrderConfirmation
	Order        model.PlacedOrder
}

// ValidateOrder проверяет получателя, отправителя, открытку, дату и платёжный токен.
func ValidateOrder(req model.OrderRequest) error {
	if err := validateAddress("recipient", req.Recipient); err != nil {
		return err
	}
	if strings.TrimSpace(req.Sender.Name) == "" {
		return fmt.Errorf("%w: sender name is required", ErrInvalidOrder)
	}
	if strings.TrimSpace(req.Sender.Email) == "" && strings.TrimSpace(req.Sender.Phone) == "" {
		return fmt.Errorf("%w: sender email or phone is required", ErrInvalidOrder)
	}
	if utf8.RuneCountInString(req.CardMessage) > maxCardMessage {
		return fmt.Errorf("%w: card message exceeds %d characters", ErrInvalidOrder, maxCardMessage)
	}
	if utf8.RuneCountInString(req.SpecialInstructions) > maxInstructions {
		return fmt.Errorf("%w: special instructions exceed %d characters", ErrInvalidOrder, maxInstructions)
	}
	if _, ok := validation.ParseDeliveryDate(req.DeliveryDate); !ok {
		return fmt.Errorf("%w: delivery date must be YYYY-MM-DD", ErrInvalidOrder)
	}
	if strings.TrimSpace(req.PaymentToken) == "" {
		return fmt.Errorf("%w: payment token is required", ErrInvalidOrder)
	}
	return nil
}

func validateAddress(role string, a model.Address) error {
	required := []struct{ field, value string }{
		{"name", a.Name},
		{"address1", a.Address1},
		{"city", a.City},
		{"phone", a.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s %s is required", ErrInvalidOrder, role, f.field)
		}
	}
	if !validation.IsValidState(a.State) {
		return fmt.Errorf("%w: %s state is invalid", ErrInvalidOrder, role)
	}
	if !validation.IsValidZIP(a.ZIP) {
		return fmt.Errorf("%w: %s zip code is invalid", ErrInvalidOrder, role)
	}
	return nil
}

// PlaceOrder оформляет заказ. Для корзины поставщика выполняется ровно один запрос без повторов;
// успех определяется по номеру заказа или флагу успеха в теле ответа.
func (p *Pipeline) PlaceOrder(ctx context.Context, b cart.Backend, req model.OrderRequest) (*Receipt, error) {
	if err := ValidateOrder(req); err != nil {
		return nil, err
	}

	if b.Kind() == cart.KindMock {
		return p.placeMockOrder(b, req)
	}

	flat, err := p.products.Products(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(flat) == 0 {
		return nil, ErrEmptyCart
	}
	if p.vendor == nil {
		return nil, vendor.ErrNotConfigured
	}

	recipient := contact(req.Recipient)
	products := make([]vendor.OrderProduct, 0, len(flat))
	for _, item := range flat {
		products = append(products, vendor.OrderProduct{
			Code:                item.Code,
			Price:               item.Price,
			Recipient:           recipient,
			CardMessage:         req.CardMessage,
			SpecialInstructions: req.SpecialInstructions,
			DeliveryDate:        req.DeliveryDate,
		})
	}
	subtotal := flatSubtotal(flat)
	orderTotal := model.Sum(subtotal, model.StandardDeliveryFee)

	res, err := p.vendor.PlaceOrder(ctx, vendor.OrderPayload{
		Customer:       contact(req.Sender),
		Products:       products,
		PaymentToken:   req.PaymentToken,
		DeliveryCharge: model.StandardDeliveryFee,
		OrderTotal:     orderTotal,
	})
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	if res.OrderNo == "" && !res.Success {
		p.logger.Error("vendor did not confirm order",
			zap.String("cartId", b.CartID()), zap.String("message", res.Message))
		if res.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrOrderRejected, res.Message)
		}
		return nil, ErrOrderRejected
	}

	confirmation := res.Confirmation
	if confirmation == "" {
		confirmation = string(res.OrderNo)
	}
	return &Receipt{
		Confirmation: model.OrderConfirmation{
			OrderID:            string(res.OrderNo),
			ConfirmationNumber: confirmation,
		},
		Order: model.PlacedOrder{
			OrderID:      string(res.OrderNo),
			CartID:       b.CartID(),
			RecipientZIP: req.Recipient.ZIP,
			DeliveryDate: req.DeliveryDate,
			ItemCount:    len(flat),
			Total:        orderTotal,
			CreatedAt:    p.now(),
		},
	}, nil
}

func (p *Pipeline) placeMockOrder(b cart.Backend, req model.OrderRequest) (*Receipt, error) {
	items := b.Payload().Items
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	units := 0
	for _, it := range items {
		units += it.Quantity
	}
	total := mockTotal(model.Subtotal(items))
	orderID := mockOrderPrefix + shortID(p.newID())

	p.logger.Info("mock order placed", zap.String("orderId", orderID), zap.String("cartId", b.CartID()))
	return &Receipt{
		Confirmation: model.OrderConfirmation{
			OrderID:            orderID,
			ConfirmationNumber: confirmationPrefix + shortID(p.newID()),
		},
		Order: model.PlacedOrder{
			OrderID:      orderID,
			CartID:       b.CartID(),
			Mock:         true,
			RecipientZIP: req.Recipient.ZIP,
			DeliveryDate: req.DeliveryDate,
			ItemCount:    units,
			Total:        total.Total,
			CreatedAt:    p.now(),
		},
	}, nil
}

func shortID(id string) string {
	id = strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

func contact(a model.Address) vendor.OrderContact {
	country := a.Country
	if country == "" {
		country = defaultCountry
	}
	return vendor.OrderContact{
		Name:        a.Name,
		Institution: a.Institution,
		Address1:    a.Address1,
		Address2:    a.Address2,
		City:        a.City,
		State:       strings.ToUpper(a.State),
		ZIP:         a.ZIP,
		Country:     country,
		Phone:       a.Phone,
		Email:       a.Email,
	}
}
