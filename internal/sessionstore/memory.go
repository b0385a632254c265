// Package sessionstore holds an in-process Session Store backed by go-cache.
// It trades restart safety for zero setup and is meant for single-node
// deployments and tests; the SQLite store in package store is the default.
package sessionstore

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/abhisek/skillcert/internal/store"
)

// DefaultGrace keeps an expired session around long enough for the sweep to
// finalize it before the cache evicts it.
const DefaultGrace = 10 * time.Minute

// Memory implements store.SessionRepo. Records are cloned on the way in and
// out so callers never share the answers map.
type Memory struct {
	c     *cache.Cache
	grace time.Duration
	now   func() time.Time
}

var _ store.SessionRepo = (*Memory)(nil)

// NewMemory returns an empty store. A session is evicted grace after its
// deadline.
func NewMemory(grace time.Duration) *Memory {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Memory{
		c:     cache.New(cache.NoExpiration, time.Minute),
		grace: grace,
		now:   time.Now,
	}
}

func (m *Memory) GetSession(_ context.Context, id string) (*store.Session, error) {
	v, ok := m.c.Get(id)
	if !ok {
		return nil, nil
	}
	return v.(*store.Session).Clone(), nil
}

func (m *Memory) PutSession(_ context.Context, s *store.Session) error {
	ttl := s.Deadline.Add(m.grace).Sub(m.now())
	if ttl <= 0 {
		ttl = m.grace
	}
	m.c.Set(s.ID, s.Clone(), ttl)
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.c.Delete(id)
	return nil
}

func (m *Memory) ListSessions(_ context.Context) ([]*store.Session, error) {
	return m.filter(func(*store.Session) bool { return true }), nil
}

func (m *Memory) ExpiredSessions(_ context.Context, now time.Time) ([]*store.Session, error) {
	return m.filter(func(s *store.Session) bool { return s.Expired(now) }), nil
}

func (m *Memory) filter(keep func(*store.Session) bool) []*store.Session {
	var out []*store.Session
	for _, item := range m.c.Items() {
		s := item.Object.(*store.Session)
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out
}
