package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmastock/backend-go/internal/config"
	"github.com/pharmastock/backend-go/internal/domain"
)

const (
	snapshotKeyPrefix = "snapshot:rows"
	scanBatchSize     = 100
)

// SnapshotCache shields the database from repeated snapshot assemblies
// of the same branch pair. Entries are short-lived and the refresh
// coordinator invalidates everything after a successful commit.
type SnapshotCache interface {
	Get(ctx context.Context, filter domain.SnapshotFilter) ([]domain.SnapshotRow, bool, error)
	Set(ctx context.Context, filter domain.SnapshotFilter, rows []domain.SnapshotRow) error
	InvalidateAll(ctx context.Context) error
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSnapshotCache struct{}

func NewSnapshotCache(cfg config.CacheConfig) (SnapshotCache, error) {
	if !cfg.Enabled {
		return &noopSnapshotCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSnapshotCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopSnapshotCache() SnapshotCache {
	return &noopSnapshotCache{}
}

func (c *redisSnapshotCache) Get(ctx context.Context, filter domain.SnapshotFilter) ([]domain.SnapshotRow, bool, error) {
	key := buildSnapshotKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rows []domain.SnapshotRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false, fmt.Errorf("decode snapshot cache: %w", err)
	}

	return rows, true, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, filter domain.SnapshotFilter, rows []domain.SnapshotRow) error {
	key := buildSnapshotKey(filter)
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode snapshot cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSnapshotCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, snapshotKeyPrefix, scanBatchSize)
}

func (n *noopSnapshotCache) Get(ctx context.Context, filter domain.SnapshotFilter) ([]domain.SnapshotRow, bool, error) {
	return nil, false, nil
}

func (n *noopSnapshotCache) Set(ctx context.Context, filter domain.SnapshotFilter, rows []domain.SnapshotRow) error {
	return nil
}

func (n *noopSnapshotCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildSnapshotKey(filter domain.SnapshotFilter) string {
	return fmt.Sprintf("%s:%s", snapshotKeyPrefix, snapshotFilterHash(filter))
}

func snapshotFilterHash(filter domain.SnapshotFilter) string {
	parts := []string{
		"target=" + strings.ToUpper(strings.TrimSpace(filter.TargetBranch)),
		"company=" + strings.ToUpper(strings.TrimSpace(filter.Company)),
	}

	if filter.SourceBranch != "" {
		parts = append(parts, "source="+strings.ToUpper(strings.TrimSpace(filter.SourceBranch)))
	}
	if filter.SourceCompany != "" {
		parts = append(parts, "source_company="+strings.ToUpper(strings.TrimSpace(filter.SourceCompany)))
	}
	if filter.PriorityOnly {
		parts = append(parts, "priority_only=1")
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
