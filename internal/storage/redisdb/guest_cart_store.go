package redisdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	// Гостевая корзина хранится как hash: guestcart:{id} -> {productID: qty}.
	guestCartKeyFmt = "guestcart:%s"

	defaultCartTTL = 24 * time.Hour
)

// GuestCartStore хранит корзины неавторизованных покупателей в Redis.
// Ключ корзины живёт ограниченное время и продлевается при каждом изменении.
type GuestCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient создаёт Redis-клиент по адресу host:port.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewGuestCartStore создаёт Redis-хранилище гостевых корзин.
// ttl<=0 заменяется значением по умолчанию.
func NewGuestCartStore(client *redis.Client, ttl time.Duration) *GuestCartStore {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &GuestCartStore{client: client, ttl: ttl}
}

func (s *GuestCartStore) Add(ctx context.Context, cartID string, productID int64, quantity int32) error {
	if quantity <= 0 {
		return domain.ErrQuantityInvalid
	}

	key := guestCartKey(cartID)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, strconv.FormatInt(productID, 10), int64(quantity))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add guest cart item: %w", err)
	}

	return nil
}

func (s *GuestCartStore) List(ctx context.Context, cartID string) ([]domain.CartSelection, error) {
	raw, err := s.client.HGetAll(ctx, guestCartKey(cartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	selections := make([]domain.CartSelection, 0, len(raw))
	for field, value := range raw {
		productID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse guest cart product id %q: %w", field, err)
		}
		qty, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse guest cart quantity %q: %w", value, err)
		}
		selections = append(selections, domain.CartSelection{
			ProductID: productID,
			Quantity:  int32(qty),
		})
	}
	sort.Slice(selections, func(i, j int) bool { return selections[i].ProductID < selections[j].ProductID })

	return selections, nil
}

func (s *GuestCartStore) Clear(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, guestCartKey(cartID)).Err(); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis (используется health-пробами).
func (s *GuestCartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func guestCartKey(cartID string) string {
	return fmt.Sprintf(guestCartKeyFmt, cartID)
}

var _ domain.GuestCartStore = (*GuestCartStore)(nil)
