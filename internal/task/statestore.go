package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
)

// ErrTaskNotFound is returned for an unknown or expired task id.
var ErrTaskNotFound = errors.New("task not found")

// StateStore persists task state across requests.
type StateStore interface {
	Save(ctx context.Context, task *models.SearchTask) error
	Load(ctx context.Context, taskID string) (*models.SearchTask, error)
	Delete(ctx context.Context, taskID string) error
}

// RedisStateStore keeps each task as a JSON blob under a TTL. Tasks expire
// on their own, so an abandoned run never needs manual cleanup.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

func taskKey(taskID string) string {
	return "task:" + taskID
}

func (s *RedisStateStore) Save(ctx context.Context, task *models.SearchTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.TaskID, err)
	}
	if err := s.client.Set(ctx, taskKey(task.TaskID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.TaskID, err)
	}
	return nil
}

func (s *RedisStateStore) Load(ctx context.Context, taskID string) (*models.SearchTask, error) {
	payload, err := s.client.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	var task models.SearchTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", taskID, err)
	}
	return &task, nil
}

func (s *RedisStateStore) Delete(ctx context.Context, taskID string) error {
	return s.client.Del(ctx, taskKey(taskID)).Err()
}
