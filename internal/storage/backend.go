// Package storage persists whole collections as JSON arrays under fixed keys.
//
// Every store in costdesk owns one key and rewrites the full array on each
// mutation. Backends only move bytes; they never interpret the payload.
package storage

import (
	"context"
	"errors"
)

// Collection keys used by the stores.
const (
	KeyEstimations     = "estimations"
	KeyCostChangeNotes = "costChangeNotes"
	KeyPurchaseOrders  = "purchaseOrders"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage: backend closed")

// Backend loads and saves raw collection payloads.
// Load returns (nil, nil) when nothing has been saved under key yet.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}
