package memory

import (
	"time"

	"ai-data-analyst-be/pkg/conversation"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live analysis sessions with a sliding TTL.
type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository calls onEvict for every session that expires or is
// deleted, so the caller can release its engine.
func NewSessionRepository(ttl time.Duration, onEvict func(id string, session *conversation.Session)) *SessionRepository {
	c := cache.New(ttl, cleanupInterval(ttl))
	if onEvict != nil {
		c.OnEvicted(func(id string, v interface{}) {
			onEvict(id, v.(*conversation.Session))
		})
	}
	return &SessionRepository{cache: c}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 6; interval > time.Second {
		return interval
	}
	return time.Second
}

func (r *SessionRepository) Save(session *conversation.Session) {
	r.cache.Set(session.ID(), session, cache.DefaultExpiration)
}

// Get returns the session and pushes its expiry forward.
func (r *SessionRepository) Get(sessionID string) (*conversation.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	session := x.(*conversation.Session)
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// DeleteAll evicts every session.
func (r *SessionRepository) DeleteAll() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
