// Package catalog предоставляет справочник товаров для симулированной корзины.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPrice назначается неизвестному SKU, чтобы mock-корзина не падала на незнакомом товаре.
const DefaultPrice = 59.99

//go:embed products.yaml
var defaultProducts []byte

// Product описывает товар каталога.
type Product struct {
	SKU   string  `yaml:"sku"`
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
}

type document struct {
	Products []Product `yaml:"products"`
}

// Catalog хранит неизменяемый индекс товаров по SKU.
type Catalog struct {
	bySKU map[string]Product
}

// Parse разбирает YAML-описание каталога.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("catalog: payload is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	c := &Catalog{bySKU: make(map[string]Product, len(doc.Products))}
	for i, p := range doc.Products {
		p.SKU = strings.TrimSpace(p.SKU)
		if p.SKU == "" {
			return nil, fmt.Errorf("catalog: product %d has no sku", i)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("catalog: product %s has non-positive price", p.SKU)
		}
		if _, dup := c.bySKU[p.SKU]; dup {
			return nil, fmt.Errorf("catalog: duplicate sku %s", p.SKU)
		}
		c.bySKU[p.SKU] = p
	}
	return c, nil
}

// Default возвращает встроенный каталог.
func Default() *Catalog {
	c, err := Parse(defaultProducts)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup ищет товар по SKU.
func (c *Catalog) Lookup(sku string) (Product, bool) {
	p, ok := c.bySKU[sku]
	return p, ok
}

// Resolve возвращает товар каталога либо синтетическую запись с ценой по умолчанию.
func (c *Catalog) Resolve(sku string) Product {
	if p, ok := c.Lookup(sku); ok {
		return p
	}
	return Product{
		SKU:   sku,
		Name:  "Floral Arrangement " + sku,
		Price: DefaultPrice,
	}
}
