package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock another holder now owns.
var ErrLockNotHeld = errors.New("checkout lock not held by this submission")

// releaseLockScript deletes the lock only while it still names the caller,
// so a submission that outlived its TTL cannot free a newer holder's lock.
const releaseLockSource = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLockScript = redis.NewScript(releaseLockSource)

// CartRepository keeps carts and checkout locks in Redis.
type CartRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewCartRepository(client redis.Cmdable, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *CartRepository) getKey(ownerKey string) string {
	return "cart:" + ownerKey
}

func (r *CartRepository) getLockKey(ownerKey string) string {
	return "lock:checkout:" + ownerKey
}

func (r *CartRepository) GetCart(ctx context.Context, ownerKey string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.getKey(ownerKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.getKey(cart.OwnerKey), data, r.ttl).Err()
}

func (r *CartRepository) DeleteCart(ctx context.Context, ownerKey string) error {
	return r.client.Del(ctx, r.getKey(ownerKey)).Err()
}

// AcquireCheckoutLock claims the owner's submit lock for holder. It returns
// false when another submission holds it.
func (r *CartRepository) AcquireCheckoutLock(ctx context.Context, ownerKey, holder string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.getLockKey(ownerKey), holder, ttl).Result()
}

// ReleaseCheckoutLock frees the owner's submit lock if holder still owns it.
// A lock that expired and was taken by another submission is left alone and
// reported as ErrLockNotHeld.
func (r *CartRepository) ReleaseCheckoutLock(ctx context.Context, ownerKey, holder string) error {
	deleted, err := releaseLockScript.Run(ctx, r.client, []string{r.getLockKey(ownerKey)}, holder).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
