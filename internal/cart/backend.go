package cart

import (
	"context"
	"fmt"

	"github.com/mmeshcher/florist-storefront/internal/model"
)

// Kind различает источник данных корзины.
type Kind int

const (
	// KindLive — корзина хранится у поставщика.
	KindLive Kind = iota
	// KindMock — корзина целиком хранится в cookie.
	KindMock
)

func (k Kind) String() string {
	if k == KindMock {
		return "mock"
	}
	return "live"
}

// Backend — корзина, выбранная один раз на запрос. Реализации есть только в этом пакете.
type Backend interface {
	Kind() Kind
	CartID() string
	// Payload возвращает документ mock-корзины; для корзины поставщика он всегда пуст.
	Payload() model.MockCart

	items(ctx context.Context) ([]model.CartItem, error)
	add(ctx context.Context, sku string, quantity int) error
	remove(ctx context.Context, ref string) error
	setQuantity(ctx context.Context, sku string, quantity int) error
	destroy(ctx context.Context) error
}

type liveBackend struct {
	vendor Vendor
	cartID string
}

func (b *liveBackend) Kind() Kind              { return KindLive }
func (b *liveBackend) CartID() string          { return b.cartID }
func (b *liveBackend) Payload() model.MockCart { return model.EmptyMockCart() }

func (b *liveBackend) items(ctx context.Context) ([]model.CartItem, error) {
	flat, err := b.vendor.GetCart(ctx, b.cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return Aggregate(flat), nil
}

// add вызывает добавление одной единицы quantity раз подряд. Уже добавленные единицы
// при ошибке не откатываются: каждое добавление у поставщика фиксируется сразу.
func (b *liveBackend) add(ctx context.Context, sku string, quantity int) error {
	for i := 0; i < quantity; i++ {
		if err := b.vendor.AddToCart(ctx, b.cartID, sku); err != nil {
			return fmt.Errorf("add unit %d of %d: %w", i+1, quantity, err)
		}
	}
	return nil
}

// remove находит позицию по SKU, синтетическому item_<N> или идентификатору поставщика
// и удаляет все её единицы по идентификатору поставщика.
func (b *liveBackend) remove(ctx context.Context, ref string) error {
	flat, err := b.vendor.GetCart(ctx, b.cartID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	sku := ""
	for _, p := range flat {
		if p.Code == ref {
			sku = ref
			break
		}
	}
	if sku == "" {
		if n, ok := parseItemIndex(ref, liveItemPrefix); ok {
			if groups := Aggregate(flat); n < len(groups) {
				sku = groups[n].SKU
			}
		}
	}

	target := ""
	for _, p := range flat {
		switch {
		case sku != "" && p.Code == sku:
			target = string(p.ItemID)
			if target == "" {
				target = p.Code
			}
		case sku == "" && p.ItemID != "" && string(p.ItemID) == ref:
			target = ref
		}
		if target != "" {
			break
		}
	}
	if target == "" {
		return ErrItemNotFound
	}

	if err := b.vendor.RemoveFromCart(ctx, b.cartID, target); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// setQuantity сводит число единиц SKU к quantity, имея лишь «добавить одну» и «удалить все».
// Уменьшение выполняется как удаление всех единиц с повторным добавлением нужного числа;
// ошибка между этими шагами оставляет SKU с нулём единиц и возвращается как ErrPartialUpdate.
func (b *liveBackend) setQuantity(ctx context.Context, sku string, quantity int) error {
	flat, err := b.vendor.GetCart(ctx, b.cartID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	current := CountUnits(flat, sku)
	if current == 0 {
		return ErrItemNotFound
	}

	switch {
	case quantity > current:
		return b.add(ctx, sku, quantity-current)
	case quantity < current:
		if err := b.vendor.RemoveFromCart(ctx, b.cartID, sku); err != nil {
			return fmt.Errorf("remove item: %w", err)
		}
		if err := b.add(ctx, sku, quantity); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPartialUpdate, sku, err)
		}
	}
	return nil
}

func (b *liveBackend) destroy(ctx context.Context) error {
	if err := b.vendor.DestroyCart(ctx, b.cartID); err != nil {
		return fmt.Errorf("destroy cart: %w", err)
	}
	return nil
}

type mockBackend struct {
	cartID  string
	cart    model.MockCart
	catalog Catalog
}

func (b *mockBackend) Kind() Kind     { return KindMock }
func (b *mockBackend) CartID() string { return b.cartID }

func (b *mockBackend) Payload() model.MockCart {
	items := make([]model.CartItem, len(b.cart.Items))
	copy(items, b.cart.Items)
	return model.MockCart{Items: items}
}

func (b *mockBackend) items(context.Context) ([]model.CartItem, error) {
	items := make([]model.CartItem, 0, len(b.cart.Items))
	for i, it := range b.cart.Items {
		it.ItemID = mockItemID(i)
		items = append(items, it)
	}
	return items, nil
}

func (b *mockBackend) add(_ context.Context, sku string, quantity int) error {
	next := b.Payload()
	if i := findSKU(next.Items, sku); i >= 0 {
		if next.Items[i].Quantity+quantity > MaxQuantity {
			return fmt.Errorf("%w: at most %d units per item", ErrInvalidQuantity, MaxQuantity)
		}
		next.Items[i].Quantity += quantity
	} else {
		p := b.catalog.Resolve(sku)
		next.Items = append(next.Items, model.CartItem{
			SKU:      sku,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: quantity,
		})
	}
	return b.commit(next)
}

func (b *mockBackend) remove(_ context.Context, ref string) error {
	next := b.Payload()
	i := findSKU(next.Items, ref)
	if i < 0 {
		n, ok := parseItemIndex(ref, mockItemPrefix)
		if !ok || n >= len(next.Items) {
			return ErrItemNotFound
		}
		i = n
	}
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return b.commit(next)
}

func (b *mockBackend) setQuantity(_ context.Context, sku string, quantity int) error {
	next := b.Payload()
	i := findSKU(next.Items, sku)
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity == 0 {
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
	} else {
		next.Items[i].Quantity = quantity
	}
	return b.commit(next)
}

func (b *mockBackend) destroy(context.Context) error {
	b.cart = model.EmptyMockCart()
	return nil
}

// commit принимает новое состояние, только если оно помещается в cookie.
func (b *mockBackend) commit(next model.MockCart) error {
	if _, err := next.Encode(); err != nil {
		return err
	}
	b.cart = next
	return nil
}

func findSKU(items []model.CartItem, sku string) int {
	for i, it := range items {
		if it.SKU == sku {
			return i
		}
	}
	return -1
}
