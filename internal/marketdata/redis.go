package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisSource serves last prices from a Redis cache fed by the ticker
// consumer. Prices are stored under price:{exchange}:{pair} with a TTL so
// a stalled feed reads as unavailable rather than as a frozen price.
// Delisted pairs are tombstoned in a per-exchange set.
type RedisSource struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSource creates a RedisSource writing prices with the given TTL.
func NewRedisSource(client *redis.Client, ttl time.Duration) *RedisSource {
	return &RedisSource{
		client: client,
		ttl:    ttl,
	}
}

// LastPrice returns the cached last price for a pair. A missing or expired
// key is ErrPriceUnavailable; a tombstoned pair is ErrPairDelisted. Redis
// being unreachable is treated as transient.
func (s *RedisSource) LastPrice(ctx context.Context, exchange, pair string) (decimal.Decimal, error) {
	delisted, err := s.client.SIsMember(ctx, delistedKey(exchange), pair).Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if delisted {
		return decimal.Zero, ErrPairDelisted
	}

	raw, err := s.client.Get(ctx, priceKey(exchange, pair)).Result()
	if err == redis.Nil {
		return decimal.Zero, ErrPriceUnavailable
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad cached price %q", ErrPriceUnavailable, raw)
	}
	return price, nil
}

// SetLastPrice stores the latest price for a pair and clears any tombstone
// left by a previous delisting.
func (s *RedisSource) SetLastPrice(ctx context.Context, exchange, pair string, price decimal.Decimal) error {
	if err := s.client.SRem(ctx, delistedKey(exchange), pair).Err(); err != nil {
		return fmt.Errorf("failed to clear delist tombstone: %w", err)
	}
	if err := s.client.Set(ctx, priceKey(exchange, pair), price.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store price: %w", err)
	}
	return nil
}

// MarkDelisted tombstones a pair and drops its cached price.
func (s *RedisSource) MarkDelisted(ctx context.Context, exchange, pair string) error {
	if err := s.client.SAdd(ctx, delistedKey(exchange), pair).Err(); err != nil {
		return fmt.Errorf("failed to tombstone pair: %w", err)
	}
	if err := s.client.Del(ctx, priceKey(exchange, pair)).Err(); err != nil {
		return fmt.Errorf("failed to drop price: %w", err)
	}
	return nil
}

func priceKey(exchange, pair string) string {
	return "price:" + exchange + ":" + pair
}

func delistedKey(exchange string) string {
	return "delisted:" + exchange
}
