package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveExactMatch(t *testing.T) {
	c := New(false)
	c.Add("sess-1", "https://cdn.example.com/a.png")

	urls := c.Resolve("sess-1")
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, urls)
	assert.Nil(t, c.Resolve("sess-2"))
}

func TestResolveRelatedKey(t *testing.T) {
	c := New(false)
	c.Add("agent:sess-1:media", "https://cdn.example.com/a.png")

	urls := c.Resolve("sess-1")
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, urls)
}

func TestResolveGlobalFallbackIsGated(t *testing.T) {
	c := New(false)
	c.Add("sess-other", "https://cdn.example.com/a.png")

	assert.Nil(t, c.Resolve("sess-1"), "cross-session scan must be off by default")

	c = New(true)
	base := time.Now()
	c.now = func() time.Time { return base.Add(-time.Minute) }
	c.Add("sess-old", "https://cdn.example.com/old.png")
	c.now = func() time.Time { return base }
	c.Add("sess-new", "https://cdn.example.com/new.png")

	urls := c.Resolve("sess-1")
	assert.Equal(t, []string{"https://cdn.example.com/new.png"}, urls, "fallback picks the most recent context")
}

func TestResolveReturnsCopy(t *testing.T) {
	c := New(false)
	c.Add("sess-1", "https://cdn.example.com/a.png")

	urls := c.Resolve("sess-1")
	urls[0] = "mutated"

	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, c.Resolve("sess-1"))
}

func TestAddAppendsAndClear(t *testing.T) {
	c := New(false)
	c.Add("sess-1", "https://cdn.example.com/a.png")
	c.Add("sess-1", "https://cdn.example.com/b.png")

	assert.Len(t, c.Resolve("sess-1"), 2)

	c.Clear("sess-1")
	assert.Nil(t, c.Resolve("sess-1"))
	assert.Equal(t, 0, c.Len())
}

func TestAddIgnoresEmpty(t *testing.T) {
	c := New(false)
	c.Add("", "https://cdn.example.com/a.png")
	c.Add("sess-1")
	assert.Equal(t, 0, c.Len())
}
