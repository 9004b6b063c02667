package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"cogniva-docs/internal/model"
)

const (
	historyKey      = "docqa:history"
	historyDirtyKey = "docqa:history:dirty"
)

// QAHistoryCache holds the most recent answered questions. The dirty marker
// tells readers a write may not have reached the database yet, so a cached
// copy must not be refilled from it.
type QAHistoryCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewQAHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *QAHistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &QAHistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *QAHistoryCache) GetHistory(ctx context.Context) ([]model.QARecord, bool, error) {
	raw, err := c.client.Get(ctx, historyKey).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var records []model.QARecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return records, true, nil
}

func (c *QAHistoryCache) SetHistory(ctx context.Context, records []model.QARecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, historyKey, payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *QAHistoryCache) DeleteHistory(ctx context.Context) error {
	if err := c.client.Del(ctx, historyKey).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *QAHistoryCache) MarkDirty(ctx context.Context) error {
	if err := c.client.Set(ctx, historyDirtyKey, "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *QAHistoryCache) IsDirty(ctx context.Context) (bool, error) {
	exists, err := c.client.Exists(ctx, historyDirtyKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}
