// Package session provides the per-conversation mutable context store.
//
// A Context holds the template variables and accumulated stage outputs for
// one session ID. Contexts are created on first use and kept for the
// lifetime of the Store; eviction is the caller's concern.
//
// Concurrency: distinct session IDs never interfere. Concurrent writers to
// the same session ID race with last-write-wins semantics; that race is an
// accepted property of the design, not something the store serializes.
package session

import (
	"sync"
)

// Store holds one Context per session ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Context
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Context),
	}
}

// GetOrCreate returns the context for sessionID, creating it if absent.
func (s *Store) GetOrCreate(sessionID string) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.sessions[sessionID]
	if !ok {
		ctx = newContext(sessionID)
		s.sessions[sessionID] = ctx
	}
	return ctx
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Context is the mutable key/value state for one session.
type Context struct {
	id string

	mu   sync.RWMutex
	vars map[string]any
}

func newContext(id string) *Context {
	return &Context{
		id:   id,
		vars: make(map[string]any),
	}
}

// ID returns the session identifier.
func (c *Context) ID() string {
	return c.id
}

// Set writes a variable. Later writes overwrite earlier ones.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[key] = value
}

// Get reads a variable, reporting whether it was present.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vars[key]
	return v, ok
}

// Merge writes every entry of initial into the context. Incoming values win
// over any stale leftovers from a previous run, which keeps reruns of the
// same session idempotent on key overwrite.
func (c *Context) Merge(initial map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range initial {
		c.vars[k] = v
	}
}

// Snapshot returns a copy of all variables.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}
