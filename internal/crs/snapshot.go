package crs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/costdesk/costdesk/internal/shared"
)

// SnapshotKeyPrefix namespaces dated CRS snapshots in Redis.
const SnapshotKeyPrefix = "costdesk:crs:snapshot:"

// ErrSnapshotNotFound is returned when no snapshot exists for a date.
var ErrSnapshotNotFound = fmt.Errorf("crs: snapshot: %w", shared.ErrNotFound)

// SnapshotStore keeps one report per calendar day.
type SnapshotStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSnapshotStore wraps a Redis client. A zero ttl keeps snapshots forever.
func NewSnapshotStore(client redis.UniversalClient, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// SnapshotKey returns the Redis key for date.
func SnapshotKey(date time.Time) string {
	return SnapshotKeyPrefix + date.UTC().Format(time.DateOnly)
}

// Save stores report under date, replacing any earlier snapshot of that day.
func (s *SnapshotStore) Save(ctx context.Context, date time.Time, report Report) error {
	if s == nil || s.client == nil {
		return errors.New("crs: snapshot store not configured")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("crs: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, SnapshotKey(date), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("crs: save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot stored for date.
func (s *SnapshotStore) Load(ctx context.Context, date time.Time) (Report, error) {
	if s == nil || s.client == nil {
		return Report{}, errors.New("crs: snapshot store not configured")
	}
	payload, err := s.client.Get(ctx, SnapshotKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Report{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("crs: load snapshot: %w", err)
	}
	var report Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return Report{}, fmt.Errorf("crs: decode snapshot: %w", err)
	}
	return report, nil
}
