package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const KeyPrefix = "rewe:progress:page:"

// StateManager remembers the last page a crawl query handed to the queue so
// an interrupted crawl resumes there.
type StateManager interface {
	LastProcessedPage(ctx context.Context, query string) (int, error)
	SetLastProcessedPage(ctx context.Context, query string, page int) error
	Reset(ctx context.Context, query string) error
}

type redisStateManager struct {
	rdb *redis.Client
}

func NewRedisStateManager(rdb *redis.Client) StateManager {
	return &redisStateManager{rdb: rdb}
}

func Key(query string) string {
	return KeyPrefix + query
}

// LastProcessedPage returns 0 when nothing was saved for query.
func (s *redisStateManager) LastProcessedPage(ctx context.Context, query string) (int, error) {
	val, err := s.rdb.Get(ctx, Key(query)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get progress of %s: %w", query, err)
	}

	page, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse progress of %s: %w", query, err)
	}
	return page, nil
}

func (s *redisStateManager) SetLastProcessedPage(ctx context.Context, query string, page int) error {
	if err := s.rdb.Set(ctx, Key(query), page, 0).Err(); err != nil {
		return fmt.Errorf("failed to save progress of %s: %w", query, err)
	}
	return nil
}

func (s *redisStateManager) Reset(ctx context.Context, query string) error {
	if err := s.rdb.Del(ctx, Key(query)).Err(); err != nil {
		return fmt.Errorf("failed to reset progress of %s: %w", query, err)
	}
	return nil
}
