package subscription

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// pendingKey is the sorted set holding renewal orders awaiting their
// payment confirmation webhook, scored by expiry time.
const pendingKey = "orderlink:pending_confirmations"

// PendingQueue tracks renewals whose confirmation has not arrived yet
// so a periodic sweep can fail the stuck ones.
type PendingQueue interface {
	Add(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) error
	Remove(ctx context.Context, orderID uuid.UUID) error
	Expired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type redisQueue struct {
	client redis.UniversalClient
}

// NewPendingQueue creates a redis-backed pending-confirmation queue.
func NewPendingQueue(client redis.UniversalClient) PendingQueue {
	return &redisQueue{client: client}
}

func (q *redisQueue) Add(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) error {
	return q.client.ZAdd(ctx, pendingKey, redis.Z{
		Score:  float64(expiresAt.Unix()),
		Member: orderID.String(),
	}).Err()
}

func (q *redisQueue) Remove(ctx context.Context, orderID uuid.UUID) error {
	return q.client.ZRem(ctx, pendingKey, orderID.String()).Err()
}

// Expired returns the orders whose confirmation window has passed.
// Entries stay queued until explicitly removed, so a crashed sweep can
// be retried.
func (q *redisQueue) Expired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	members, err := q.client.ZRangeByScore(ctx, pendingKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			// drop unparseable members instead of blocking the sweep
			q.client.ZRem(ctx, pendingKey, m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
