package usecase

import (
	"sync"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
)

const (
	authCacheTTL = 5 * time.Minute
)

type cachedActor struct {
	actor     *auth.Actor
	expiresAt time.Time
}

type authCache struct {
	cache sync.Map
}

func newAuthCache() *authCache {
	return &authCache{}
}

func (c *authCache) get(key string, now time.Time) (*auth.Actor, bool) {
	val, ok := c.cache.Load(key)
	if !ok {
		return nil, false
	}

	cached := val.(*cachedActor)
	if !now.Before(cached.expiresAt) {
		c.cache.Delete(key)
		return nil, false
	}

	actor := *cached.actor
	return &actor, true
}

func (c *authCache) set(key string, actor *auth.Actor, expiresAt time.Time) {
	copied := *actor
	c.cache.Store(key, &cachedActor{
		actor:     &copied,
		expiresAt: expiresAt,
	})
}
