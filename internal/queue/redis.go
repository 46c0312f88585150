package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewe/crawler/internal/config"
	"rewe/crawler/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	StreamPrefix = "rewe:stream:"

	fieldType = "task_type"
	fieldData = "task_data"

	readBlock = 5 * time.Second
)

// StreamName returns the stream that carries tasks of taskType.
func StreamName(taskType string) string {
	return StreamPrefix + taskType
}

type Queue interface {
	AddTask(ctx context.Context, t task.Task) (string, error) // message id
	GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error)
	AckTask(ctx context.Context, stream, group, msgID string) error
	AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error)
}

type RedisQueue struct {
	rdb       *redis.Client
	groupName string
}

// NewRedisQueue creates the streams and the consumer group of every task
// type before returning.
func NewRedisQueue(ctx context.Context, rdb *redis.Client, cfg config.RedisConfig) (*RedisQueue, error) {
	q := &RedisQueue{
		rdb:       rdb,
		groupName: cfg.ConsumerGroup,
	}

	if err := q.EnsureStreams(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure streams exist: %w", err)
	}

	return q, nil
}

func (q *RedisQueue) Group() string {
	return q.groupName
}

// EnsureStreams creates the missing streams along with their group.
// MKSTREAM makes an empty stream, no placeholder entry is needed.
func (q *RedisQueue) EnsureStreams(ctx context.Context) error {
	log.Info("🔧 Preparing Redis streams...")

	for _, taskType := range task.TaskTypes {
		stream := StreamName(taskType)
		err := q.rdb.XGroupCreateMkStream(ctx, stream, q.groupName, "0").Err()
		switch {
		case err == nil:
			log.Infof("✅ Stream %s and group %s ready", stream, q.groupName)
		case isBusyGroup(err):
			log.Debugf("Group %s already exists for stream %s", q.groupName, stream)
		default:
			return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
		}
	}

	return nil
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (q *RedisQueue) AddTask(ctx context.Context, t task.Task) (string, error) {
	taskType := t.TaskType()
	stream := StreamName(taskType)

	value, err := t.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	id, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			fieldType: taskType,
			fieldData: string(value),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to stream %s: %w", stream, err)
	}

	log.Debugf("Added %s to %s as %s", taskType, stream, id)
	return id, nil
}

// GetTask blocks for a few seconds and returns nil when nothing arrived.
func (q *RedisQueue) GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error) {
	result, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    readBlock,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream %s: %w", stream, err)
	}

	if len(result) == 0 || len(result[0].Messages) == 0 {
		return nil, nil
	}
	return &result[0].Messages[0], nil
}

func (q *RedisQueue) AckTask(ctx context.Context, stream, group, msgID string) error {
	if err := q.rdb.XAck(ctx, stream, group, msgID).Err(); err != nil {
		return fmt.Errorf("failed to ack %s on %s: %w", msgID, stream, err)
	}
	return nil
}

// AutoClaim takes over one message that stayed pending for minIdleTime.
func (q *RedisQueue) AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error) {
	messages, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdleTime,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to claim messages from %s: %w", stream, err)
	}
	return messages, nil
}

// Decode splits a stream message into its task type and payload.
func Decode(msg *redis.XMessage) (string, []byte, error) {
	taskType, ok := msg.Values[fieldType].(string)
	if !ok {
		return "", nil, fmt.Errorf("invalid task type in message %s", msg.ID)
	}
	data, ok := msg.Values[fieldData].(string)
	if !ok {
		return "", nil, fmt.Errorf("invalid task data in message %s", msg.ID)
	}
	return taskType, []byte(data), nil
}
