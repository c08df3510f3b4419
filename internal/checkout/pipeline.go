// Package checkout рассчитывает итог заказа, подбирает даты доставки и оформляет заказ.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/cache"
	"github.com/mmeshcher/florist-storefront/internal/cart"
	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/vendor"
)

const (
	deliveryDatesTTL    = 20 * time.Minute
	deliveryDatesPrefix = "delivery-dates:"
	mockDeliveryDays    = 10
)

var (
	// ErrEmptyCart возвращается при попытке оформить пустую корзину.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrDeliveryUnresolved означает, что поставщик не вернул стоимость доставки
	// или после округления до цента она не положительна.
	ErrDeliveryUnresolved = errors.New("delivery charge could not be resolved")
)

// Vendor описывает операции поставщика, нужные оформлению заказа.
type Vendor interface {
	GetCartTotal(ctx context.Context, lines []vendor.TotalLine, zip string) (*vendor.Total, error)
	GetDeliveryDates(ctx context.Context, zip string) ([]string, error)
	PlaceOrder(ctx context.Context, payload vendor.OrderPayload) (*vendor.OrderResult, error)
}

// Products возвращает плоский список товаров корзины.
type Products interface {
	Products(ctx context.Context, b cart.Backend) ([]vendor.CartProduct, error)
}

// Pipeline выполняет расчёт итога и оформление заказа для корзины любого источника.
type Pipeline struct {
	vendor   Vendor
	products Products
	dates    *cache.JSON
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewPipeline создаёт конвейер оформления. Без клиента поставщика работают только mock-корзины.
func NewPipeline(v Vendor, products Products, dates *cache.JSON, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		vendor:   v,
		products: products,
		dates:    dates,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ComputeTotal возвращает итог для корзины, индекса и даты доставки.
// Для корзины поставщика все позиции отправляются одним запросом: поставщик берёт плату
// за доставку в каждом расчёте. Ошибка поставщика не заменяется локальной оценкой.
func (p *Pipeline) ComputeTotal(ctx context.Context, b cart.Backend, zip, deliveryDate string) (*model.OrderTotal, error) {
	if b.Kind() == cart.KindMock {
		return mockTotal(model.Subtotal(b.Payload().Items)), nil
	}

	flat, err := p.products.Products(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(flat) == 0 {
		return &model.OrderTotal{}, nil
	}
	if p.vendor == nil {
		return nil, vendor.ErrNotConfigured
	}

	lines := make([]vendor.TotalLine, 0, len(flat))
	for _, item := range flat {
		lines = append(lines, vendor.TotalLine{
			Code:         item.Code,
			Price:        item.Price,
			Recipient:    vendor.TotalRecipient{ZIP: zip},
			DeliveryDate: deliveryDate,
		})
	}

	total, err := p.vendor.GetCartTotal(ctx, lines, zip)
	if err != nil {
		return nil, fmt.Errorf("get cart total: %w", err)
	}

	delivery, ok := total.DeliveryCharge()
	delivery = model.Round2(delivery)
	if !ok || delivery <= 0 {
		p.logger.Error("vendor total without delivery charge",
			zap.String("cartId", b.CartID()), zap.String("zip", zip), zap.String("date", deliveryDate),
			zap.Float64("delivery", delivery))
		return nil, ErrDeliveryUnresolved
	}
	tax, _ := total.Tax()

	subtotal := flatSubtotal(flat)
	if total.Subtotal != nil {
		subtotal = model.Round2(*total.Subtotal)
	}
	tax = model.Round2(tax)

	result := &model.OrderTotal{
		Subtotal: subtotal,
		Delivery: delivery,
		Tax:      tax,
		Total:    model.Sum(subtotal, delivery, tax),
	}
	if total.OrderTotal != nil && *total.OrderTotal > 0 {
		result.Total = model.Round2(*total.OrderTotal)
	}
	return result, nil
}

// Приблизительный расчёт без цен поставщика.
func mockTotal(subtotal float64) *model.OrderTotal {
	if subtotal == 0 {
		return &model.OrderTotal{}
	}
	tax := decimal.NewFromFloat(subtotal).
		Mul(decimal.NewFromFloat(model.MockTaxRate)).
		Round(2).
		InexactFloat64()
	return &model.OrderTotal{
		Subtotal: subtotal,
		Delivery: model.StandardDeliveryFee,
		Tax:      tax,
		Total:    model.Sum(subtotal, model.StandardDeliveryFee, tax),
	}
}

func flatSubtotal(flat []vendor.CartProduct) float64 {
	sum := decimal.Zero
	for _, item := range flat {
		sum = sum.Add(decimal.NewFromFloat(item.Price))
	}
	return sum.Round(2).InexactFloat64()
}

// DeliveryDates возвращает доступные даты доставки для индекса. Ответ поставщика кэшируется
// на 20 минут; без поставщика даты строятся на ближайшие дни, кроме воскресений.
func (p *Pipeline) DeliveryDates(ctx context.Context, zip string) ([]string, error) {
	if p.vendor == nil {
		return p.mockDeliveryDates(), nil
	}

	key := deliveryDatesPrefix + zip
	var dates []string
	if p.dates.Get(ctx, key, &dates) {
		return dates, nil
	}

	dates, err := p.vendor.GetDeliveryDates(ctx, zip)
	if err != nil {
		return nil, fmt.Errorf("get delivery dates: %w", err)
	}
	if dates == nil {
		dates = []string{}
	}
	p.dates.Set(ctx, key, dates, deliveryDatesTTL)
	return dates, nil
}

func (p *Pipeline) mockDeliveryDates() []string {
	dates := make([]string, 0, mockDeliveryDays)
	day := p.now()
	for len(dates) < mockDeliveryDays {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, day.Format(dateLayout))
	}
	return dates
}
