package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"genius365/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CacheService wraps Redis for hot-path reads, sessions and rate limiting.
type CacheService interface {
	GetAgent(ctx context.Context, workspaceID, agentID uuid.UUID) (*models.Agent, error)
	SetAgent(ctx context.Context, workspaceID uuid.UUID, agent *models.Agent, ttl time.Duration) error
	DeleteAgent(ctx context.Context, workspaceID, agentID uuid.UUID) error

	GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.Workspace, error)
	SetWorkspace(ctx context.Context, workspace *models.Workspace, ttl time.Duration) error
	DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) error

	GetWorkspaceAnalytics(ctx context.Context, workspaceID uuid.UUID) (map[string]interface{}, error)
	SetWorkspaceAnalytics(ctx context.Context, workspaceID uuid.UUID, analytics map[string]interface{}, ttl time.Duration) error

	InvalidateWorkspaceCache(ctx context.Context, workspaceID uuid.UUID) error

	SetSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error

	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) error

	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
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

func agentKey(workspaceID, agentID uuid.UUID) string {
	return fmt.Sprintf("genius365:agent:%s:%s", workspaceID, agentID)
}

func workspaceKey(workspaceID uuid.UUID) string {
	return fmt.Sprintf("genius365:workspace:%s", workspaceID)
}

func analyticsKey(workspaceID uuid.UUID) string {
	return fmt.Sprintf("genius365:analytics:%s", workspaceID)
}

func (r *redisCacheService) GetAgent(ctx context.Context, workspaceID, agentID uuid.UUID) (*models.Agent, error) {
	data, err := r.client.Get(ctx, agentKey(workspaceID, agentID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	agent := &models.Agent{}
	if err := json.Unmarshal([]byte(data), agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *redisCacheService) SetAgent(ctx context.Context, workspaceID uuid.UUID, agent *models.Agent, ttl time.Duration) error {
	data, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, agentKey(workspaceID, agent.ID), data, ttl).Err()
}

func (r *redisCacheService) DeleteAgent(ctx context.Context, workspaceID, agentID uuid.UUID) error {
	return r.client.Del(ctx, agentKey(workspaceID, agentID)).Err()
}

func (r *redisCacheService) GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.Workspace, error) {
	data, err := r.client.Get(ctx, workspaceKey(workspaceID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	workspace := &models.Workspace{}
	if err := json.Unmarshal([]byte(data), workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (r *redisCacheService) SetWorkspace(ctx context.Context, workspace *models.Workspace, ttl time.Duration) error {
	data, err := json.Marshal(workspace)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, workspaceKey(workspace.ID), data, ttl).Err()
}

func (r *redisCacheService) DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	return r.client.Del(ctx, workspaceKey(workspaceID)).Err()
}

func (r *redisCacheService) GetWorkspaceAnalytics(ctx context.Context, workspaceID uuid.UUID) (map[string]interface{}, error) {
	data, err := r.client.Get(ctx, analyticsKey(workspaceID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var analytics map[string]interface{}
	if err := json.Unmarshal([]byte(data), &analytics); err != nil {
		return nil, err
	}
	return analytics, nil
}

func (r *redisCacheService) SetWorkspaceAnalytics(ctx context.Context, workspaceID uuid.UUID, analytics map[string]interface{}, ttl time.Duration) error {
	data, err := json.Marshal(analytics)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, analyticsKey(workspaceID), data, ttl).Err()
}

func (r *redisCacheService) InvalidateWorkspaceCache(ctx context.Context, workspaceID uuid.UUID) error {
	pattern := fmt.Sprintf("genius365:*%s*", workspaceID)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *redisCacheService) SetSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	key := fmt.Sprintf("genius365:session:%s", sessionID)
	return r.client.Set(ctx, key, userID, ttl).Err()
}

func (r *redisCacheService) GetSession(ctx context.Context, sessionID string) (string, error) {
	key := fmt.Sprintf("genius365:session:%s", sessionID)
	userID, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("session not found")
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (r *redisCacheService) DeleteSession(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf("genius365:session:%s", sessionID)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rateKey := fmt.Sprintf("genius365:ratelimit:%s", key)
	count, err := r.client.Get(ctx, rateKey).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= limit, nil
}

func (r *redisCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	rateKey := fmt.Sprintf("genius365:ratelimit:%s", key)
	pipe := r.client.Pipeline()
	pipe.Incr(ctx, rateKey)
	pipe.Expire(ctx, rateKey, window)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("key not found")
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
