package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Collection reads and writes a typed slice under one backend key.
type Collection[T any] struct {
	backend Backend
	key     string
	logger  *slog.Logger
}

// NewCollection binds a key on backend to element type T.
func NewCollection[T any](backend Backend, key string, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{backend: backend, key: key, logger: logger}
}

// Load returns the persisted items. Missing or malformed payloads are logged
// and yield an empty collection. A backend failure returns an empty slice
// together with the error so callers can keep what they already hold.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	if c.backend == nil {
		return []T{}, nil
	}
	payload, err := c.backend.Load(ctx, c.key)
	if err != nil {
		c.logger.Error("load collection", slog.String("key", c.key), slog.Any("error", err))
		return []T{}, fmt.Errorf("storage: load %s: %w", c.key, err)
	}
	if len(payload) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		c.logger.Error("decode collection", slog.String("key", c.key), slog.Any("error", err))
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save serialises the full collection and writes it.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if c.backend == nil {
		return nil
	}
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		c.logger.Error("encode collection", slog.String("key", c.key), slog.Any("error", err))
		return fmt.Errorf("storage: encode %s: %w", c.key, err)
	}
	if err := c.backend.Save(ctx, c.key, payload); err != nil {
		c.logger.Error("save collection", slog.String("key", c.key), slog.Any("error", err))
		return err
	}
	return nil
}
