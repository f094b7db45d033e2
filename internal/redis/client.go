package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mossy-p/ptt-signaling/config"
	"github.com/mossy-p/ptt-signaling/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	usersKey      = "presence:users"
	roleKeyPrefix = "presence:role:"
)

// Presence mirrors the in-memory registry into Redis so that dashboards and
// other tooling can see who is on air. The relay never reads it back.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect initializes the Redis client
func Connect(ctx context.Context, cfg config.RedisConfig) (*Presence, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, cfg.TTL), nil
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Presence{client: client, ttl: ttl}
}

func roleKey(role models.Role) string {
	return roleKeyPrefix + string(role)
}

// Reset drops presence left behind by a previous process.
func (p *Presence) Reset(ctx context.Context) error {
	keys := []string{usersKey, roleKey(models.RoleSecurity), roleKey(models.RoleManagement), roleKey(models.RoleUser)}
	if err := p.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset presence: %w", err)
	}
	return nil
}

// Track records a registered user.
func (p *Presence) Track(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", user.SocketID, err)
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, usersKey, user.SocketID, data)
	pipe.Expire(ctx, usersKey, p.ttl)
	pipe.SAdd(ctx, roleKey(user.Role), user.SocketID)
	pipe.Expire(ctx, roleKey(user.Role), p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track user %s: %w", user.SocketID, err)
	}
	return nil
}

// Forget removes a user recorded by Track.
func (p *Presence) Forget(ctx context.Context, user *models.User) error {
	pipe := p.client.TxPipeline()
	pipe.HDel(ctx, usersKey, user.SocketID)
	pipe.SRem(ctx, roleKey(user.Role), user.SocketID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("forget user %s: %w", user.SocketID, err)
	}
	return nil
}

// Users returns the mirrored users keyed by socket id.
func (p *Presence) Users(ctx context.Context) (map[string]*models.User, error) {
	entries, err := p.client.HGetAll(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read presence: %w", err)
	}

	users := make(map[string]*models.User, len(entries))
	for id, data := range entries {
		var user models.User
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			return nil, fmt.Errorf("parse presence entry %s: %w", id, err)
		}
		users[id] = &user
	}
	return users, nil
}

// Count returns the number of mirrored members of a role.
func (p *Presence) Count(ctx context.Context, role models.Role) (int, error) {
	n, err := p.client.SCard(ctx, roleKey(role)).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s presence: %w", role, err)
	}
	return int(n), nil
}

// Close closes the Redis connection
func (p *Presence) Close() error {
	return p.client.Close()
}
