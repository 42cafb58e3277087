package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"autom8/domain"
)

type backend interface {
	ListMembers(ctx context.Context) ([]domain.TeamMember, error)
	AddMember(ctx context.Context, name string, role domain.Role) (string, error)
	RemoveMember(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
	CreateProject(ctx context.Context, p domain.Project) (string, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, projectID string, t domain.Task) (string, error)
	UpdateTaskStatus(ctx context.Context, projectID, taskID string, status domain.Status) error
	PublishEvent(ctx context.Context, ev domain.ProjectEvent) error
}

// Cache wraps a backend with Redis-backed caching for list operations.
// Writes go to the backend first and then evict the affected keys.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper. A nil client disables caching.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListMembers(ctx context.Context) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	if c.load(ctx, teamCacheKey, &members) {
		return members, nil
	}
	members, err := c.base.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, teamCacheKey, members)
	return members, nil
}

func (c *Cache) AddMember(ctx context.Context, name string, role domain.Role) (string, error) {
	id, err := c.base.AddMember(ctx, name, role)
	if err != nil {
		return "", err
	}
	c.evict(ctx, teamCacheKey)
	return id, nil
}

func (c *Cache) RemoveMember(ctx context.Context, id string) error {
	err := c.base.RemoveMember(ctx, id)
	c.evict(ctx, teamCacheKey)
	return err
}

func (c *Cache) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	if c.load(ctx, projectsCacheKey, &projects) {
		return projects, nil
	}
	projects, err := c.base.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, projectsCacheKey, projects)
	return projects, nil
}

func (c *Cache) CreateProject(ctx context.Context, p domain.Project) (string, error) {
	id, err := c.base.CreateProject(ctx, p)
	if err != nil {
		return "", err
	}
	c.evict(ctx, projectsCacheKey)
	return id, nil
}

func (c *Cache) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	key := tasksCacheKey(projectID)
	var tasks []domain.Task
	if c.load(ctx, key, &tasks) {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tasks)
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, projectID string, t domain.Task) (string, error) {
	id, err := c.base.CreateTask(ctx, projectID, t)
	// A failed add may still have been applied remotely.
	c.evict(ctx, tasksCacheKey(projectID))
	return id, err
}

func (c *Cache) UpdateTaskStatus(ctx context.Context, projectID, taskID string, status domain.Status) error {
	err := c.base.UpdateTaskStatus(ctx, projectID, taskID, status)
	c.evict(ctx, tasksCacheKey(projectID))
	return err
}

func (c *Cache) PublishEvent(ctx context.Context, ev domain.ProjectEvent) error {
	return c.base.PublishEvent(ctx, ev)
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			log.WithError(err).WithField("key", key).Debug("cache read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

const (
	teamCacheKey     = "autom8:team"
	projectsCacheKey = "autom8:projects"
)

func tasksCacheKey(projectID string) string {
	return "autom8:tasks:" + projectID
}
