package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/catalog"
	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/vendor"
)

// fakeVendor моделирует плоскую корзину поставщика: одна строка на единицу товара.
type fakeVendor struct {
	flat   []vendor.CartProduct
	nextID int
	prices map[string]float64

	calls []string

	failAddAt  int
	adds       int
	createErr  error
	getErr     error
	destroyErr error
}

func newFakeVendor() *fakeVendor {
	return &fakeVendor{prices: map[string]float64{"ABC": 49.99, "XYZ": 30}}
}

func (f *fakeVendor) seed(sku string, units int) {
	for i := 0; i < units; i++ {
		f.push(sku)
	}
}

func (f *fakeVendor) push(sku string) {
	f.nextID++
	f.flat = append(f.flat, vendor.CartProduct{
		ItemID: vendor.ID(fmt.Sprintf("%d", 1000+f.nextID)),
		Code:   sku,
		Name:   "Product " + sku,
		Price:  f.prices[sku],
	})
}

func (f *fakeVendor) CreateCart(context.Context) (string, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return "", f.createErr
	}
	return "vendor-cart-1", nil
}

func (f *fakeVendor) GetCart(context.Context, string) ([]vendor.CartProduct, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]vendor.CartProduct, len(f.flat))
	copy(out, f.flat)
	return out, nil
}

func (f *fakeVendor) AddToCart(_ context.Context, _ string, sku string) error {
	f.adds++
	if f.failAddAt > 0 && f.adds >= f.failAddAt {
		return errors.New("vendor add failed")
	}
	f.calls = append(f.calls, "add:"+sku)
	f.push(sku)
	return nil
}

func (f *fakeVendor) RemoveFromCart(_ context.Context, _ string, ref string) error {
	f.calls = append(f.calls, "remove:"+ref)
	code := ref
	for _, p := range f.flat {
		if string(p.ItemID) == ref {
			code = p.Code
			break
		}
	}
	kept := f.flat[:0]
	for _, p := range f.flat {
		if p.Code != code {
			kept = append(kept, p)
		}
	}
	f.flat = kept
	return nil
}

func (f *fakeVendor) DestroyCart(context.Context, string) error {
	f.calls = append(f.calls, "destroy")
	if f.destroyErr != nil {
		return f.destroyErr
	}
	f.flat = nil
	return nil
}

func (f *fakeVendor) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newLive(t *testing.T, fv *fakeVendor) (*Engine, Backend) {
	t.Helper()
	e := NewEngine(fv, catalog.Default(), zap.NewNop())
	b, ok := e.Resolve("vendor-cart-1", model.MockCart{})
	require.True(t, ok)
	require.Equal(t, KindLive, b.Kind())
	return e, b
}

func newMock(t *testing.T) (*Engine, Backend) {
	t.Helper()
	e := NewEngine(nil, catalog.Default(), zap.NewNop())
	b, err := e.Create(context.Background())
	require.NoError(t, err)
	require.Equal(t, KindMock, b.Kind())
	return e, b
}

func quantityOf(c *model.Cart, sku string) int {
	for _, it := range c.Items {
		if it.SKU == sku {
			return it.Quantity
		}
	}
	return 0
}

func TestAggregate(t *testing.T) {
	flat := []vendor.CartProduct{
		{ItemID: "1", Code: "A", Name: "Roses", Price: 10},
		{ItemID: "2", Code: "B", Name: "Lilies", Price: 20},
		{ItemID: "3", Code: "A", Name: "Roses (renamed)", Price: 11},
		{ItemID: "4", Code: "A", Name: "Roses", Price: 10},
	}

	items := Aggregate(flat)

	require.Len(t, items, 2)
	assert.Equal(t, model.CartItem{ItemID: "item_0", SKU: "A", Name: "Roses", Price: 10, Quantity: 3}, items[0])
	assert.Equal(t, model.CartItem{ItemID: "item_1", SKU: "B", Name: "Lilies", Price: 20, Quantity: 1}, items[1])
	assert.Equal(t, "1", string(flat[0].ItemID), "flat input must not be mutated")
}

func TestAggregate_Empty(t *testing.T) {
	items := Aggregate(nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestAdd_ThenReadYieldsQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("live", func(t *testing.T) {
		fv := newFakeVendor()
		e, b := newLive(t, fv)

		c, err := e.Add(ctx, b, "ABC", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, quantityOf(c, "ABC"))
		assert.Equal(t, 3, fv.count("add:"))

		c, err = e.View(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, 3, quantityOf(c, "ABC"))
		assert.Equal(t, 149.97, c.Subtotal)
	})

	t.Run("mock", func(t *testing.T) {
		e, b := newMock(t)

		_, err := e.Add(ctx, b, "MOCK-BD-001", 3)
		require.NoError(t, err)

		c, err := e.View(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, 3, quantityOf(c, "MOCK-BD-001"))
	})
}

func TestAdd_MockScenario(t *testing.T) {
	ctx := context.Background()
	e, b := newMock(t)

	c, err := e.Add(ctx, b, "MOCK-BD-001", 2)
	require.NoError(t, err)
	assert.Equal(t, 129.98, c.Subtotal)

	c, err = e.Add(ctx, b, "MOCK-BD-002", 1)
	require.NoError(t, err)
	assert.Equal(t, 184.97, c.Subtotal)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, 184.97, c.Total)
	assert.Nil(t, c.DeliveryFee)
	assert.True(t, strings.HasPrefix(c.CartID, model.MockCartPrefix))
}

func TestAdd_MockUnknownSKUUsesDefaults(t *testing.T) {
	e, b := newMock(t)

	c, err := e.Add(context.Background(), b, "UNKNOWN-1", 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, catalog.DefaultPrice, c.Items[0].Price)
	assert.NotEmpty(t, c.Items[0].Name)
}

func TestAdd_LiveAbortsOnFirstFailure(t *testing.T) {
	fv := newFakeVendor()
	fv.failAddAt = 2
	e, b := newLive(t, fv)

	_, err := e.Add(context.Background(), b, "ABC", 4)
	require.Error(t, err)
	assert.Equal(t, 2, fv.adds, "no further adds after the first failure")
	assert.Len(t, fv.flat, 1, "already committed units are not rolled back")
}

func TestAdd_InvalidQuantity(t *testing.T) {
	e, b := newMock(t)
	for _, q := range []int{0, -1, 100} {
		_, err := e.Add(context.Background(), b, "MOCK-BD-001", q)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestUpdateQuantity_DecreaseIsRemoveAllThenReadd(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("ABC", 3)
	e, b := newLive(t, fv)

	c, err := e.UpdateQuantity(context.Background(), b, "ABC", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"remove:ABC", "add:ABC"}, fv.calls)
	assert.Equal(t, 1, quantityOf(c, "ABC"))
}

func TestUpdateQuantity_IncreaseOnlyAdds(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("ABC", 1)
	e, b := newLive(t, fv)

	c, err := e.UpdateQuantity(context.Background(), b, "ABC", 4)
	require.NoError(t, err)

	assert.Equal(t, 3, fv.count("add:"))
	assert.Equal(t, 0, fv.count("remove:"))
	assert.Equal(t, 4, quantityOf(c, "ABC"))
}

func TestUpdateQuantity_SameQuantityMakesNoVendorCall(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("ABC", 2)
	e, b := newLive(t, fv)

	_, err := e.UpdateQuantity(context.Background(), b, "ABC", 2)
	require.NoError(t, err)
	assert.Empty(t, fv.calls)
}

func TestUpdateQuantity_IsIdempotent(t *testing.T) {
	ctx := context.Background()

	t.Run("live", func(t *testing.T) {
		fv := newFakeVendor()
		fv.seed("ABC", 5)
		fv.seed("XYZ", 1)
		e, b := newLive(t, fv)

		first, err := e.UpdateQuantity(ctx, b, "ABC", 2)
		require.NoError(t, err)
		second, err := e.UpdateQuantity(ctx, b, "ABC", 2)
		require.NoError(t, err)

		assert.Equal(t, first.Subtotal, second.Subtotal)
		assert.ElementsMatch(t, skuQuantities(first), skuQuantities(second))
	})

	t.Run("mock", func(t *testing.T) {
		e, b := newMock(t)
		_, err := e.Add(ctx, b, "MOCK-BD-001", 5)
		require.NoError(t, err)

		first, err := e.UpdateQuantity(ctx, b, "MOCK-BD-001", 2)
		require.NoError(t, err)
		second, err := e.UpdateQuantity(ctx, b, "MOCK-BD-001", 2)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func skuQuantities(c *model.Cart) []string {
	out := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, fmt.Sprintf("%s=%d", it.SKU, it.Quantity))
	}
	return out
}

func TestUpdateQuantity_ZeroRemovesAllUnits(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("ABC", 2)
	fv.seed("XYZ", 1)
	e, b := newLive(t, fv)

	c, err := e.UpdateQuantity(context.Background(), b, "ABC", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"remove:ABC"}, fv.calls)
	assert.Equal(t, 0, fv.count("add:"))
	assert.Equal(t, 0, quantityOf(c, "ABC"))
	assert.Equal(t, 1, quantityOf(c, "XYZ"))
}

func TestUpdateQuantity_ZeroEqualsRemove(t *testing.T) {
	ctx := context.Background()

	run := func(mutate func(e *Engine, b Backend) (*model.Cart, error)) *model.Cart {
		fv := newFakeVendor()
		fv.seed("ABC", 2)
		fv.seed("XYZ", 3)
		e, b := newLive(t, fv)
		c, err := mutate(e, b)
		require.NoError(t, err)
		return c
	}

	viaUpdate := run(func(e *Engine, b Backend) (*model.Cart, error) {
		return e.UpdateQuantity(ctx, b, "ABC", 0)
	})
	viaRemove := run(func(e *Engine, b Backend) (*model.Cart, error) {
		return e.Remove(ctx, b, "ABC")
	})

	assert.Equal(t, viaRemove, viaUpdate)
}

func TestUpdateQuantity_PartialFailure(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("ABC", 3)
	fv.failAddAt = 1
	e, b := newLive(t, fv)

	_, err := e.UpdateQuantity(context.Background(), b, "ABC", 2)
	require.ErrorIs(t, err, ErrPartialUpdate)
	assert.Equal(t, 0, CountUnits(fv.flat, "ABC"))

	// после сбоя позиции нет, восстановление идёт через добавление
	fv.failAddAt = 0
	c, err := e.UpdateQuantity(context.Background(), b, "ABC", 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Nil(t, c)

	c, err = e.Add(context.Background(), b, "ABC", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, quantityOf(c, "ABC"))
}

func TestUpdateQuantity_MissingSKU(t *testing.T) {
	ctx := context.Background()

	fv := newFakeVendor()
	e, b := newLive(t, fv)
	_, err := e.UpdateQuantity(ctx, b, "ABC", 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = e.UpdateQuantity(ctx, b, "ABC", 0)
	assert.ErrorIs(t, err, ErrItemNotFound)

	me, mb := newMock(t)
	_, err = me.UpdateQuantity(ctx, mb, "MOCK-BD-001", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateQuantity_OutOfRange(t *testing.T) {
	e, b := newMock(t)
	_, err := e.UpdateQuantity(context.Background(), b, "MOCK-BD-001", 100)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRemove_LiveResolvesVendorItemID(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("XYZ", 1)
	fv.seed("ABC", 2)
	e, b := newLive(t, fv)

	c, err := e.Remove(context.Background(), b, "ABC")
	require.NoError(t, err)

	require.Len(t, fv.calls, 1)
	assert.Equal(t, "remove:1002", fv.calls[0])
	assert.Equal(t, 0, quantityOf(c, "ABC"))
	assert.Equal(t, 1, quantityOf(c, "XYZ"))
}

func TestRemove_LiveBySyntheticItemID(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("XYZ", 1)
	fv.seed("ABC", 2)
	e, b := newLive(t, fv)

	c, err := e.Remove(context.Background(), b, "item_1")
	require.NoError(t, err)
	assert.Equal(t, 0, quantityOf(c, "ABC"))
	assert.Equal(t, 1, quantityOf(c, "XYZ"))
}

func TestRemove_NotFound(t *testing.T) {
	ctx := context.Background()

	fv := newFakeVendor()
	fv.seed("ABC", 1)
	e, b := newLive(t, fv)
	_, err := e.Remove(ctx, b, "NOPE")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, fv.calls)

	me, mb := newMock(t)
	_, err = me.Add(ctx, mb, "MOCK-BD-001", 1)
	require.NoError(t, err)
	_, err = me.Remove(ctx, mb, "mock_item_5")
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = me.Remove(ctx, mb, "NOPE")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemove_MockBySKUAndIndex(t *testing.T) {
	ctx := context.Background()
	e, b := newMock(t)

	for _, sku := range []string{"MOCK-BD-001", "MOCK-BD-002", "MOCK-AN-001"} {
		_, err := e.Add(ctx, b, sku, 1)
		require.NoError(t, err)
	}

	c, err := e.Remove(ctx, b, "mock_item_1")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "MOCK-BD-001", c.Items[0].SKU)
	assert.Equal(t, "MOCK-AN-001", c.Items[1].SKU)
	assert.Equal(t, "mock_item_1", c.Items[1].ItemID)

	c, err = e.Remove(ctx, b, "MOCK-BD-001")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "MOCK-AN-001", c.Items[0].SKU)
}

func TestDestroy(t *testing.T) {
	fv := newFakeVendor()
	fv.seed("ABC", 1)
	fv.destroyErr = errors.New("vendor down")
	e, b := newLive(t, fv)

	err := e.Destroy(context.Background(), b)
	assert.Error(t, err)
	assert.Equal(t, []string{"destroy"}, fv.calls)

	me, mb := newMock(t)
	_, err = me.Add(context.Background(), mb, "MOCK-BD-001", 1)
	require.NoError(t, err)
	require.NoError(t, me.Destroy(context.Background(), mb))
	assert.Empty(t, mb.Payload().Items)
}

func TestResolve(t *testing.T) {
	live := NewEngine(newFakeVendor(), catalog.Default(), zap.NewNop())
	mockOnly := NewEngine(nil, catalog.Default(), zap.NewNop())

	_, ok := live.Resolve("", model.MockCart{})
	assert.False(t, ok)

	b, ok := live.Resolve("mock_cart_1", model.MockCart{Items: []model.CartItem{{SKU: "A", Price: 1, Quantity: 1}}})
	require.True(t, ok)
	assert.Equal(t, KindMock, b.Kind())
	assert.Len(t, b.Payload().Items, 1)

	_, ok = mockOnly.Resolve("vendor-cart-1", model.MockCart{})
	assert.False(t, ok, "live id is ignored without vendor configuration")
	assert.True(t, mockOnly.MockOnly())
}

func TestCreate(t *testing.T) {
	fv := newFakeVendor()
	b, err := NewEngine(fv, catalog.Default(), zap.NewNop()).Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vendor-cart-1", b.CartID())

	fv.createErr = errors.New("nope")
	_, err = NewEngine(fv, catalog.Default(), zap.NewNop()).Create(context.Background())
	assert.Error(t, err)
}

func TestMockCartTooLarge(t *testing.T) {
	ctx := context.Background()
	e, b := newMock(t)

	for i := 0; i < model.MaxMockCartItems; i++ {
		_, err := e.Add(ctx, b, fmt.Sprintf("SKU-%02d", i), 1)
		require.NoError(t, err)
	}

	_, err := e.Add(ctx, b, "ONE-TOO-MANY", 1)
	assert.ErrorIs(t, err, ErrCartTooLarge)
	assert.Len(t, b.Payload().Items, model.MaxMockCartItems, "previous document stays untouched")
}

func TestProducts(t *testing.T) {
	ctx := context.Background()

	fv := newFakeVendor()
	fv.seed("ABC", 2)
	e, b := newLive(t, fv)
	flat, err := e.Products(ctx, b)
	require.NoError(t, err)
	assert.Len(t, flat, 2)

	me, mb := newMock(t)
	_, err = me.Add(ctx, mb, "MOCK-BD-001", 3)
	require.NoError(t, err)
	flat, err = me.Products(ctx, mb)
	require.NoError(t, err)
	assert.Len(t, flat, 3)
	assert.Equal(t, "MOCK-BD-001", flat[0].Code)
}
