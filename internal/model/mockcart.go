package model

import (
	"encoding/json"
	"errors"
	"net/url"
)

const (
	// MaxMockCartBytes ограничивает закодированный документ, чтобы cookie не превысил лимит браузера.
	MaxMockCartBytes = 3800
	// MaxMockCartItems ограничивает число различных SKU в симулированной корзине.
	MaxMockCartItems = 25
)

// ErrMockCartTooLarge возвращается, если документ не помещается в cookie.
var ErrMockCartTooLarge = errors.New("mock cart exceeds cookie size limit")

// EmptyMockCart возвращает пустой документ.
func EmptyMockCart() MockCart {
	return MockCart{Items: []CartItem{}}
}

// Encode сериализует документ в значение cookie: JSON, экранированный для URL.
func (m MockCart) Encode() (string, error) {
	if len(m.Items) > MaxMockCartItems {
		return "", ErrMockCartTooLarge
	}
	items := make([]CartItem, 0, len(m.Items))
	for _, it := range m.Items {
		it.ItemID = ""
		items = append(items, it)
	}
	data, err := json.Marshal(MockCart{Items: items})
	if err != nil {
		return "", err
	}
	encoded := url.QueryEscape(string(data))
	if len(encoded) > MaxMockCartBytes {
		return "", ErrMockCartTooLarge
	}
	return encoded, nil
}

// DecodeMockCart восстанавливает документ из cookie. Повреждённое значение, как и документ
// сверх лимитов Encode, даёт пустую корзину.
func DecodeMockCart(raw string) MockCart {
	if raw == "" || len(raw) > MaxMockCartBytes {
		return EmptyMockCart()
	}
	s, err := url.QueryUnescape(raw)
	if err != nil {
		return EmptyMockCart()
	}
	var m MockCart
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return EmptyMockCart()
	}

	out := EmptyMockCart()
	index := make(map[string]int, len(m.Items))
	for _, it := range m.Items {
		if it.SKU == "" || it.Quantity < 1 || it.Price < 0 {
			continue
		}
		it.ItemID = ""
		if i, ok := index[it.SKU]; ok {
			out.Items[i].Quantity += it.Quantity
			continue
		}
		index[it.SKU] = len(out.Items)
		out.Items = append(out.Items, it)
	}
	if len(out.Items) > MaxMockCartItems {
		return EmptyMockCart()
	}
	return out
}
