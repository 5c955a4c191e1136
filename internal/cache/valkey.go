package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyClient is a read-through cache in front of the catalog. Availability
// entries are invalidated whenever the ledger confirms or releases stock, so
// cached numbers are only ever stale between a hold and its outcome.
type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeyClient() (*ValkeyClient, error) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	password := os.Getenv("VALKEY_PASSWORD")

	ttl := 30 * time.Second
	if raw := os.Getenv("VALKEY_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			ttl = parsed
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client: rdb,
		ttl:    ttl,
	}, nil
}

func eventsListKey(page, pageSize int) string {
	return fmt.Sprintf("events:list:%d:%d", page, pageSize)
}

func categoriesKey(eventID int64) string {
	return fmt.Sprintf("events:%d:categories", eventID)
}

// GetEventsListRaw returns the cached events page as raw JSON to skip a
// decode/encode round trip on the hot path
func (v *ValkeyClient) GetEventsListRaw(ctx context.Context, page, pageSize int) ([]byte, error) {
	data, err := v.client.Get(ctx, eventsListKey(page, pageSize)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("events list not in cache")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

func (v *ValkeyClient) SetEventsList(ctx context.Context, page, pageSize int, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal events list: %w", err)
	}
	return v.client.Set(ctx, eventsListKey(page, pageSize), payload, v.ttl).Err()
}

// GetCategoriesRaw returns the cached availability snapshot for one event
func (v *ValkeyClient) GetCategoriesRaw(ctx context.Context, eventID int64) ([]byte, error) {
	data, err := v.client.Get(ctx, categoriesKey(eventID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("categories not in cache")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

func (v *ValkeyClient) SetCategories(ctx context.Context, eventID int64, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	return v.client.Set(ctx, categoriesKey(eventID), payload, v.ttl).Err()
}

// InvalidateCategories drops the availability snapshot after confirmed or
// released stock changes
func (v *ValkeyClient) InvalidateCategories(ctx context.Context, eventID int64) {
	v.client.Del(ctx, categoriesKey(eventID))
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
