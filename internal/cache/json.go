package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// JSON — кэш с чтением-через поверх Store. Любая ошибка хранилища трактуется как промах
// и только пишется в журнал: кэш не влияет на корректность ответа.
type JSON struct {
	store  Store
	logger *zap.Logger
}

// NewJSON создаёт кэш JSON-значений поверх хранилища.
func NewJSON(store Store, logger *zap.Logger) *JSON {
	return &JSON{store: store, logger: logger}
}

// Get декодирует значение ключа в dst и сообщает, было ли попадание.
func (c *JSON) Get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.store == nil {
		return false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set сохраняет значение на время ttl.
func (c *JSON) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete удаляет ключ.
func (c *JSON) Delete(ctx context.Context, key string) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
