package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/sentinel"
)

const claimKeyPrefix = "pixpax:claim:"

// RedisStore uses SET NX so concurrent inserts resolve in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a Redis claim store. A zero ttl keeps claims forever.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key models.ClaimKey) (*models.IssuanceClaim, error) {
	data, err := s.client.Get(ctx, claimKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	var claim models.IssuanceClaim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, fmt.Errorf("decode claim: %w", err)
	}
	return &claim, nil
}

func (s *RedisStore) InsertIfAbsent(ctx context.Context, claim models.IssuanceClaim) (bool, *models.IssuanceClaim, error) {
	data, err := json.Marshal(claim)
	if err != nil {
		return false, nil, fmt.Errorf("encode claim: %w", err)
	}
	ok, err := s.client.SetNX(ctx, claimKeyPrefix+claim.Key().String(), data, s.ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("insert claim: %w", err)
	}
	if ok {
		return true, nil, nil
	}
	existing, err := s.Get(ctx, claim.Key())
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

var _ Store = (*RedisStore)(nil)
