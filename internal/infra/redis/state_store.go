package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"scripture-quiz-service/internal/domain"
)

// StateStore keeps per-user state blobs in one Redis hash per user:
// HSET quiz:state:{userID} {key} {json}
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	raw, err := s.client.HGet(ctx, s.hashKey(namespace), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrStateNotFound
	}
	return raw, err
}

func (s *StateStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	return s.client.HSet(ctx, s.hashKey(namespace), key, value).Err()
}

func (s *StateStore) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.HDel(ctx, s.hashKey(namespace), keys...).Err()
}

func (s *StateStore) hashKey(namespace string) string {
	return "quiz:state:" + namespace
}
