package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMockCart(t *testing.T, items []CartItem) string {
	t.Helper()
	data, err := json.Marshal(MockCart{Items: items})
	require.NoError(t, err)
	return url.QueryEscape(string(data))
}

func skus(n int) []CartItem {
	items := make([]CartItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, CartItem{SKU: fmt.Sprintf("S%d", i), Name: "x", Price: 1, Quantity: 1})
	}
	return items
}

func TestMockCart_EncodeDecode(t *testing.T) {
	in := MockCart{Items: []CartItem{
		{ItemID: "mock_item_0", SKU: "MOCK-BD-001", Name: "Birthday Bouquet", Price: 64.99, Quantity: 2},
	}}

	raw, err := in.Encode()
	require.NoError(t, err)

	out := DecodeMockCart(raw)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "MOCK-BD-001", out.Items[0].SKU)
	assert.Equal(t, 2, out.Items[0].Quantity)
	assert.Empty(t, out.Items[0].ItemID)
}

func TestMockCart_EncodeTooLarge(t *testing.T) {
	_, err := MockCart{Items: skus(MaxMockCartItems + 1)}.Encode()
	assert.ErrorIs(t, err, ErrMockCartTooLarge)

	_, err = MockCart{Items: []CartItem{{SKU: "A", Name: strings.Repeat("n", MaxMockCartBytes), Quantity: 1}}}.Encode()
	assert.ErrorIs(t, err, ErrMockCartTooLarge)
}

func TestDecodeMockCart(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		count int
	}{
		{name: "empty", raw: "", count: 0},
		{name: "not escaped json", raw: "%zz", count: 0},
		{name: "broken json", raw: url.QueryEscape(`{"items":[`), count: 0},
		{name: "at the item limit", raw: rawMockCart(t, skus(MaxMockCartItems)), count: MaxMockCartItems},
		{name: "over the item limit", raw: rawMockCart(t, skus(MaxMockCartItems+1)), count: 0},
		{name: "over the byte limit", raw: rawMockCart(t, []CartItem{
			{SKU: "A", Name: strings.Repeat("n", MaxMockCartBytes), Price: 1, Quantity: 1},
		}), count: 0},
		{name: "invalid rows dropped", raw: rawMockCart(t, []CartItem{
			{SKU: "", Price: 1, Quantity: 1},
			{SKU: "A", Price: 1, Quantity: 0},
			{SKU: "B", Price: -1, Quantity: 1},
			{SKU: "C", Price: 1, Quantity: 1},
		}), count: 1},
		{name: "duplicate skus merged", raw: rawMockCart(t, []CartItem{
			{SKU: "A", Price: 1, Quantity: 1},
			{SKU: "A", Price: 1, Quantity: 2},
		}), count: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeMockCart(tt.raw)
			assert.NotNil(t, got.Items)
			assert.Len(t, got.Items, tt.count)
		})
	}
}

func TestDecodeMockCart_DecodedDocumentIsWritable(t *testing.T) {
	got := DecodeMockCart(rawMockCart(t, skus(MaxMockCartItems+5)))

	_, err := got.Encode()
	assert.NoError(t, err)
}
