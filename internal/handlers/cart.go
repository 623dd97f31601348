package handlers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CartStore keeps product quantities per cart id
type CartStore interface {
	Add(ctx context.Context, cartID string, productID, quantity int) error
	Items(ctx context.Context, cartID string) (map[int]int, error)
}

// MemoryCartStore is the default CartStore
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]map[int]int
}

// NewMemoryCartStore returns an empty store
func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]map[int]int)}
}

func (s *MemoryCartStore) Add(_ context.Context, cartID string, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[cartID]
	if !ok {
		items = make(map[int]int)
		s.carts[cartID] = items
	}
	items[productID] += quantity
	return nil
}

func (s *MemoryCartStore) Items(_ context.Context, cartID string) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.carts[cartID]))
	for id, qty := range s.carts[cartID] {
		out[id] = qty
	}
	return out, nil
}

// RedisCartStore keeps each cart in a hash of product id to quantity, so several
// storefront instances can share carts.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartStore connects to url (redis://host:port/db) and pings it
func NewRedisCartStore(ctx context.Context, url string, ttl time.Duration) (*RedisCartStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisCartStore{client: client, ttl: ttl}, nil
}

func cartKey(cartID string) string {
	return "storecheck:cart:" + cartID
}

func (s *RedisCartStore) Add(ctx context.Context, cartID string, productID, quantity int) error {
	key := cartKey(cartID)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, strconv.Itoa(productID), int64(quantity))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

func (s *RedisCartStore) Items(ctx context.Context, cartID string) (map[int]int, error) {
	raw, err := s.client.HGetAll(ctx, cartKey(cartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	out := make(map[int]int, len(raw))
	for field, value := range raw {
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("corrupt quantity for product %d: %w", id, err)
		}
		out[id] = qty
	}
	return out, nil
}

// Close releases the redis connection pool
func (s *RedisCartStore) Close() error {
	return s.client.Close()
}
