// Package cart реализует движок корзины поверх корзины поставщика или корзины в cookie.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/catalog"
	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/vendor"
)

// MaxQuantity — максимальное число единиц одного товара.
const MaxQuantity = 99

var (
	// ErrCartNotFound возвращается, если у запроса нет корзины.
	ErrCartNotFound = errors.New("cart not found")
	// ErrItemNotFound возвращается, если позиции нет в корзине.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidQuantity возвращается при количестве вне допустимого диапазона.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrPartialUpdate означает, что после удаления всех единиц не удалось добавить их заново.
	// SKU при этом пропадает из корзины, и клиенту нужно добавить его заново.
	ErrPartialUpdate = errors.New("cart partially updated")
	// ErrCartTooLarge возвращается, если mock-корзина не помещается в cookie.
	ErrCartTooLarge = model.ErrMockCartTooLarge
)

// Vendor описывает операции корзины поставщика, нужные движку.
type Vendor interface {
	CreateCart(ctx context.Context) (string, error)
	GetCart(ctx context.Context, cartID string) ([]vendor.CartProduct, error)
	AddToCart(ctx context.Context, cartID, sku string) error
	RemoveFromCart(ctx context.Context, cartID, ref string) error
	DestroyCart(ctx context.Context, cartID string) error
}

// Catalog даёт имя и цену товара для mock-корзины.
type Catalog interface {
	Resolve(sku string) catalog.Product
}

// Engine выполняет операции над корзиной независимо от её источника.
type Engine struct {
	vendor  Vendor
	catalog Catalog
	logger  *zap.Logger
}

// NewEngine создаёт движок. Без клиента поставщика все новые корзины создаются в mock-режиме.
func NewEngine(v Vendor, c Catalog, logger *zap.Logger) *Engine {
	return &Engine{
		vendor:  v,
		catalog: c,
		logger:  logger,
	}
}

// MockOnly сообщает, что клиент поставщика не настроен.
func (e *Engine) MockOnly() bool {
	return e.vendor == nil
}

// Resolve выбирает источник корзины по идентификатору из cookie.
func (e *Engine) Resolve(cartID string, payload model.MockCart) (Backend, bool) {
	if cartID == "" {
		return nil, false
	}
	if model.IsMockCartID(cartID) {
		if payload.Items == nil {
			payload = model.EmptyMockCart()
		}
		return &mockBackend{cartID: cartID, cart: payload, catalog: e.catalog}, true
	}
	if e.vendor == nil {
		e.logger.Warn("live cart id without vendor configuration", zap.String("cartId", cartID))
		return nil, false
	}
	return &liveBackend{vendor: e.vendor, cartID: cartID}, true
}

// Create заводит новую корзину: у поставщика, если он настроен, иначе в cookie.
func (e *Engine) Create(ctx context.Context) (Backend, error) {
	if e.vendor == nil {
		return &mockBackend{
			cartID:  model.MockCartPrefix + uuid.NewString(),
			cart:    model.EmptyMockCart(),
			catalog: e.catalog,
		}, nil
	}
	id, err := e.vendor.CreateCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return &liveBackend{vendor: e.vendor, cartID: id}, nil
}

// View возвращает текущее состояние корзины. Корзина поставщика читается заново на каждый вызов.
func (e *Engine) View(ctx context.Context, b Backend) (*model.Cart, error) {
	items, err := b.items(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewCart(b.CartID(), items), nil
}

// Add добавляет quantity единиц товара.
func (e *Engine) Add(ctx context.Context, b Backend, sku string, quantity int) (*model.Cart, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if err := b.add(ctx, sku, quantity); err != nil {
		return nil, err
	}
	e.logger.Debug("cart item added",
		zap.String("cartId", b.CartID()), zap.String("mode", b.Kind().String()),
		zap.String("sku", sku), zap.Int("quantity", quantity))
	return e.View(ctx, b)
}

// Remove удаляет позицию по SKU или идентификатору позиции целиком.
func (e *Engine) Remove(ctx context.Context, b Backend, ref string) (*model.Cart, error) {
	if err := b.remove(ctx, ref); err != nil {
		return nil, err
	}
	return e.View(ctx, b)
}

// UpdateQuantity устанавливает количество товара; ноль удаляет позицию.
// Результат строится по заново прочитанной корзине, а не по собственному учёту движка.
func (e *Engine) UpdateQuantity(ctx context.Context, b Backend, sku string, quantity int) (*model.Cart, error) {
	if quantity < 0 || quantity > MaxQuantity {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if err := b.setQuantity(ctx, sku, quantity); err != nil {
		if errors.Is(err, ErrPartialUpdate) {
			e.logger.Error("quantity reconciliation interrupted",
				zap.String("cartId", b.CartID()), zap.String("sku", sku),
				zap.Int("quantity", quantity), zap.Error(err))
		}
		return nil, err
	}
	return e.View(ctx, b)
}

// Destroy удаляет корзину. Ошибка поставщика возвращается, но cookie вызывающий очищает в любом случае.
func (e *Engine) Destroy(ctx context.Context, b Backend) error {
	return b.destroy(ctx)
}

// Products возвращает плоский список товаров корзины поставщика для расчёта итога и заказа.
// Для mock-корзины строки восстанавливаются из документа, по одной на единицу.
func (e *Engine) Products(ctx context.Context, b Backend) ([]vendor.CartProduct, error) {
	if b.Kind() == KindLive {
		flat, err := e.vendor.GetCart(ctx, b.CartID())
		if err != nil {
			return nil, fmt.Errorf("get cart: %w", err)
		}
		return flat, nil
	}
	var flat []vendor.CartProduct
	for _, it := range b.Payload().Items {
		for i := 0; i < it.Quantity; i++ {
			flat = append(flat, vendor.CartProduct{Code: it.SKU, Name: it.Name, Price: it.Price})
		}
	}
	return flat, nil
}
