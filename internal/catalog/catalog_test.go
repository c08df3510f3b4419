package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	p, ok := c.Lookup("MOCK-BD-001")
	require.True(t, ok)
	assert.Equal(t, 64.99, p.Price)

	p, ok = c.Lookup("MOCK-BD-002")
	require.True(t, ok)
	assert.Equal(t, 54.99, p.Price)
}

func TestResolveUnknownSKU(t *testing.T) {
	p := Default().Resolve("XYZ-42")

	assert.Equal(t, "XYZ-42", p.SKU)
	assert.Equal(t, DefaultPrice, p.Price)
	assert.Contains(t, p.Name, "XYZ-42")
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: "  "},
		{name: "missing sku", data: "products:\n  - name: x\n    price: 1\n"},
		{name: "zero price", data: "products:\n  - sku: A\n    name: x\n    price: 0\n"},
		{name: "duplicate", data: "products:\n  - {sku: A, name: x, price: 1}\n  - {sku: A, name: y, price: 2}\n"},
		{name: "not yaml", data: "products: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
