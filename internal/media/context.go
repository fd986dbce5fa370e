// Package media tracks downloadable URLs for assets the user attached or
// the model generated earlier in a conversation. Entries are keyed by
// session identifier, or by a generated media URL when the producing step
// only knew the URL.
package media

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	urls    []string
	updated time.Time
}

// Context is the session-scoped media registry. It is an injected service
// object shared by every request in the process.
type Context struct {
	mu      sync.RWMutex
	entries map[string]*entry

	// allowGlobal enables the last-resort scan over every known context.
	// A call in one session can then pick up media from an unrelated
	// session, so it is off unless the operator opts in.
	allowGlobal bool

	now func() time.Time
}

// New creates an empty media context. allowGlobal enables the cross-session
// fallback scan.
func New(allowGlobal bool) *Context {
	return &Context{
		entries:     make(map[string]*entry),
		allowGlobal: allowGlobal,
		now:         time.Now,
	}
}

// Add records URLs under the given context key (a session id, or a media
// URL used as its own key).
func (c *Context) Add(key string, urls ...string) {
	if key == "" || len(urls) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.urls = append(e.urls, urls...)
	e.updated = c.now()
}

// Resolve looks up media for a session using the fallback chain:
// exact session match, then a scan for keys related to the session, then
// (only when enabled) the most recently updated context of any session.
func (c *Context) Resolve(sessionID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if sessionID != "" {
		if e, ok := c.entries[sessionID]; ok && len(e.urls) > 0 {
			return append([]string(nil), e.urls...)
		}

		// Legacy keys embed the session id in a composite key.
		for key, e := range c.entries {
			if len(e.urls) == 0 {
				continue
			}
			if strings.Contains(key, sessionID) || strings.Contains(sessionID, key) {
				return append([]string(nil), e.urls...)
			}
		}
	}

	if !c.allowGlobal {
		return nil
	}

	var best *entry
	for _, e := range c.entries {
		if len(e.urls) == 0 {
			continue
		}
		if best == nil || e.updated.After(best.updated) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return append([]string(nil), best.urls...)
}

// Clear removes the context for key.
func (c *Context) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of known contexts.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
