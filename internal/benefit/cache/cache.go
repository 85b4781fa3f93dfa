// Package cache provides a read-through Redis cache for benefit summaries.
// The summary endpoint is hit on every app open; the record changes only on
// explicit transitions, so mutations invalidate and reads repopulate.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"janani/internal/benefit/models"
	"janani/internal/platform/redis"
	id "janani/pkg/domain"
)

// SummaryCache caches serialized benefit records per beneficiary. A nil
// *SummaryCache is a valid no-op cache, so callers never branch on
// configuration.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a cache over the given client, or nil when the client is nil
// (Redis not configured).
func New(client *redis.Client, ttl time.Duration) *SummaryCache {
	if client == nil {
		return nil
	}
	return &SummaryCache{client: client, ttl: ttl}
}

func key(beneficiaryID id.BeneficiaryID) string {
	return fmt.Sprintf("benefit:summary:%s", beneficiaryID)
}

// Get returns the cached record, or (nil, nil) on miss. Cache errors are
// returned so the caller can log them, but a broken cache must never fail a
// read: callers fall through to the store.
func (c *SummaryCache) Get(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.BenefitRecord, error) {
	if c == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, key(beneficiaryID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("summary cache get: %w", err)
	}
	record := &models.BenefitRecord{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("summary cache decode: %w", err)
	}
	return record, nil
}

// Set stores the record with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, record *models.BenefitRecord) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("summary cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(record.BeneficiaryID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("summary cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached record. Called after every mutation.
func (c *SummaryCache) Invalidate(ctx context.Context, beneficiaryID id.BeneficiaryID) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, key(beneficiaryID)).Err(); err != nil {
		return fmt.Errorf("summary cache invalidate: %w", err)
	}
	return nil
}
