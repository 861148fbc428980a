package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
)

// UserLoader is the slice of storage.UserStore the directory reads through to.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// UserDirectory looks up user profiles through a cache. Cache failures are
// logged and fall back to the store.
type UserDirectory struct {
	users UserLoader
	cache Cache
	ttl   time.Duration
}

// NewUserDirectory creates a directory caching profiles for ttl.
func NewUserDirectory(users UserLoader, cache Cache, ttl time.Duration) *UserDirectory {
	return &UserDirectory{users: users, cache: cache, ttl: ttl}
}

func userKey(id string) string { return "user:" + id }

// FindUser returns the user or nil, nil when the user does not exist.
func (d *UserDirectory) FindUser(ctx context.Context, id string) (*models.User, error) {
	var cached models.User
	hit, err := d.cache.Get(ctx, userKey(id), &cached)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		slog.Warn("user cache read failed", "user_id", id, "error", err)
	case hit:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &cached, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	user, err := d.users.GetUserByID(ctx, id)
	if err != nil || user == nil {
		return user, err
	}

	if err := d.cache.Set(ctx, userKey(id), user, d.ttl); err != nil {
		slog.Warn("user cache write failed", "user_id", id, "error", err)
	}
	return user, nil
}

// Invalidate drops the cached profile of id.
func (d *UserDirectory) Invalidate(ctx context.Context, id string) {
	if err := d.cache.Delete(ctx, userKey(id)); err != nil {
		slog.Warn("user cache invalidate failed", "user_id", id, "error", err)
	}
}
