// Package model содержит доменные сущности витрины цветочного магазина.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MockCartPrefix отличает симулированные корзины от корзин поставщика.
const MockCartPrefix = "mock_cart_"

const (
	// StandardDeliveryFee — фиксированная стоимость доставки для mock-режима и оформления заказа.
	StandardDeliveryFee = 14.99
	// MockTaxRate — приблизительная ставка налога, используемая только без цен поставщика.
	MockTaxRate = 0.115
)

// IsMockCartID сообщает, принадлежит ли идентификатор симулированной корзине.
func IsMockCartID(cartID string) bool {
	return strings.HasPrefix(cartID, MockCartPrefix)
}

// CartItem описывает одну позицию корзины, сгруппированную по SKU.
type CartItem struct {
	ItemID   string  `json:"itemId,omitempty"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Cart описывает единое представление корзины независимо от источника данных.
type Cart struct {
	CartID      string     `json:"cartId"`
	Items       []CartItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	DeliveryFee *float64   `json:"deliveryFee"`
	ServiceFee  float64    `json:"serviceFee"`
	Total       float64    `json:"total"`
}

// IsEmpty сообщает, что в корзине нет ни одной позиции.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// NewCart собирает представление корзины и вычисляет производные суммы.
func NewCart(cartID string, items []CartItem) *Cart {
	if items == nil {
		items = []CartItem{}
	}
	subtotal := Subtotal(items)
	return &Cart{
		CartID:   cartID,
		Items:    items,
		Subtotal: subtotal,
		Total:    subtotal,
	}
}

// MockCart содержит данные cookie симулированной корзины.
type MockCart struct {
	Items []CartItem `json:"items"`
}

// OrderTotal — итог оформления заказа в долларах США.
type OrderTotal struct {
	Subtotal float64 `json:"subtotal"`
	Delivery float64 `json:"delivery"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Subtotal возвращает сумму price*quantity по всем позициям, округлённую до центов.
func Subtotal(items []CartItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2).InexactFloat64()
}

// Round2 округляет денежную величину до двух знаков.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Sum складывает денежные величины без накопления ошибки float64.
func Sum(values ...float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Round(2).InexactFloat64()
}

// Address описывает получателя или отправителя заказа.
type Address struct {
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZIP         string `json:"zipcode"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
}

// OrderRequest содержит данные формы оформления заказа.
type OrderRequest struct {
	Recipient           Address `json:"recipient"`
	Sender              Address `json:"sender"`
	CardMessage         string  `json:"cardMessage"`
	SpecialInstructions string  `json:"specialInstructions,omitempty"`
	DeliveryDate        string  `json:"deliveryDate"`
	PaymentToken        string  `json:"paymentToken"`
}

// OrderConfirmation возвращается клиенту после успешного оформления.
type OrderConfirmation struct {
	OrderID            string `json:"orderId"`
	ConfirmationNumber string `json:"confirmationNumber"`
}

// PlacedOrder описывает запись журнала оформленных заказов.
type PlacedOrder struct {
	OrderID      string
	CartID       string
	Mock         bool
	RecipientZIP string
	DeliveryDate string
	ItemCount    int
	Total        float64
	CreatedAt    time.Time
}
