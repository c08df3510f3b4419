// Package service связывает движок корзины, оформление заказа и журнал заказов в одну витрину.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/florist-storefront/internal/cart"
	"github.com/mmeshcher/florist-storefront/internal/checkout"
	"github.com/mmeshcher/florist-storefront/internal/model"
	"github.com/mmeshcher/florist-storefront/internal/repository"
)

const recordTimeout = 10 * time.Second

// Repository описывает журнал заказов.
type Repository interface {
	Close() error
	RecordOrder(ctx context.Context, o model.PlacedOrder) error
}

// Service реализует операции витрины поверх корзины и конвейера оформления.
type Service struct {
	engine   *cart.Engine
	checkout *checkout.Pipeline
	repo     Repository
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewService создаёт сервис. repo может быть nil: тогда заказы не журналируются.
func NewService(engine *cart.Engine, pipeline *checkout.Pipeline, repo Repository, logger *zap.Logger) *Service {
	return &Service{
		engine:   engine,
		checkout: pipeline,
		repo:     repo,
		logger:   logger,
	}
}

// Close дожидается незавершённых записей журнала и закрывает репозиторий.
func (s *Service) Close() error {
	s.wg.Wait()
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// ResolveCart выбирает корзину по состоянию cookie запроса.
func (s *Service) ResolveCart(cartID string, payload model.MockCart) (cart.Backend, bool) {
	return s.engine.Resolve(cartID, payload)
}

// CreateCart заводит новую корзину.
func (s *Service) CreateCart(ctx context.Context) (cart.Backend, error) {
	return s.engine.Create(ctx)
}

// ViewCart возвращает текущее состояние корзины.
func (s *Service) ViewCart(ctx context.Context, b cart.Backend) (*model.Cart, error) {
	return s.engine.View(ctx, b)
}

// AddItem добавляет товар в корзину.
func (s *Service) AddItem(ctx context.Context, b cart.Backend, sku string, quantity int) (*model.Cart, error) {
	return s.engine.Add(ctx, b, sku, quantity)
}

// RemoveItem удаляет позицию корзины.
func (s *Service) RemoveItem(ctx context.Context, b cart.Backend, ref string) (*model.Cart, error) {
	return s.engine.Remove(ctx, b, ref)
}

// UpdateQuantity устанавливает количество товара.
func (s *Service) UpdateQuantity(ctx context.Context, b cart.Backend, sku string, quantity int) (*model.Cart, error) {
	return s.engine.UpdateQuantity(ctx, b, sku, quantity)
}

// DestroyCart удаляет корзину.
func (s *Service) DestroyCart(ctx context.Context, b cart.Backend) error {
	return s.engine.Destroy(ctx, b)
}

// ComputeTotal рассчитывает итог заказа.
func (s *Service) ComputeTotal(ctx context.Context, b cart.Backend, zip, deliveryDate string) (*model.OrderTotal, error) {
	return s.checkout.ComputeTotal(ctx, b, zip, deliveryDate)
}

// DeliveryDates возвращает доступные даты доставки.
func (s *Service) DeliveryDates(ctx context.Context, zip string) ([]string, error) {
	return s.checkout.DeliveryDates(ctx, zip)
}

// PlaceOrder оформляет заказ и в фоне записывает его в журнал.
// Ошибка журнала не влияет на результат оформления.
func (s *Service) PlaceOrder(ctx context.Context, b cart.Backend, req model.OrderRequest) (*model.OrderConfirmation, error) {
	receipt, err := s.checkout.PlaceOrder(ctx, b, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, receipt.Order)
	return &receipt.Confirmation, nil
}

func (s *Service) record(ctx context.Context, o model.PlacedOrder) {
	if s.repo == nil || o.OrderID == "" {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()

		err := s.repo.RecordOrder(ctx, o)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrOrderExists):
			s.logger.Debug("order already recorded", zap.String("orderId", o.OrderID))
		default:
			s.logger.Warn("record order failed", zap.String("orderId", o.OrderID), zap.Error(err))
		}
	}()
}
