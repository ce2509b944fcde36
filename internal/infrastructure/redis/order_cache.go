package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"fulfillment/internal/config"
	"fulfillment/internal/domain"
)

const orderDetailKeyPrefix = "order:detail:"

// OrderCache stores materialized order details. A miss returns (nil, nil).
type OrderCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewClient(cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

func NewOrderCache(client *goredis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{client: client, ttl: ttl}
}

func (c *OrderCache) Get(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
	data, err := c.client.Get(ctx, orderDetailKeyPrefix+orderID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached order detail: %w", err)
	}

	var detail domain.OrderDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("decoding cached order detail: %w", err)
	}
	return &detail, nil
}

func (c *OrderCache) Set(ctx context.Context, detail *domain.OrderDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encoding order detail: %w", err)
	}
	return c.client.Set(ctx, orderDetailKeyPrefix+detail.Order.ID, data, c.ttl).Err()
}

func (c *OrderCache) Invalidate(ctx context.Context, orderID string) error {
	return c.client.Del(ctx, orderDetailKeyPrefix+orderID).Err()
}

// NopOrderCache is used when Redis is disabled.
type NopOrderCache struct{}

func (NopOrderCache) Get(context.Context, string) (*domain.OrderDetail, error) { return nil, nil }
func (NopOrderCache) Set(context.Context, *domain.OrderDetail) error          { return nil }
func (NopOrderCache) Invalidate(context.Context, string) error                { return nil }
