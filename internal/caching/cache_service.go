package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalogd/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService holds fully expanded category trees so repeat reads skip the
// per-node round trips of tree expansion.
type CacheService interface {
	GetTree(ctx context.Context, slug string) (*models.Category, error)
	SetTree(ctx context.Context, slug string, category *models.Category, ttl time.Duration) error
	GetRoots(ctx context.Context) ([]*models.Category, error)
	SetRoots(ctx context.Context, categories []*models.Category, ttl time.Duration) error
	InvalidateCategories(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisCacheService{client: client}
}

func treeKey(slug string) string {
	return fmt.Sprintf("category:tree:%s", slug)
}

const rootsKey = "category:roots"

func (s *redisCacheService) GetTree(ctx context.Context, slug string) (*models.Category, error) {
	data, err := s.client.Get(ctx, treeKey(slug)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := json.Unmarshal([]byte(data), &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *redisCacheService) SetTree(ctx context.Context, slug string, category *models.Category, ttl time.Duration) error {
	data, err := json.Marshal(category)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, treeKey(slug), data, ttl).Err()
}

func (s *redisCacheService) GetRoots(ctx context.Context) ([]*models.Category, error) {
	data, err := s.client.Get(ctx, rootsKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var categories []*models.Category
	if err := json.Unmarshal([]byte(data), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *redisCacheService) SetRoots(ctx context.Context, categories []*models.Category, ttl time.Duration) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rootsKey, data, ttl).Err()
}

// InvalidateCategories drops every cached tree. Any category write can change
// an arbitrary subtree, so the whole keyspace goes.
func (s *redisCacheService) InvalidateCategories(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, "category:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
