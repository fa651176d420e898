package client

import (
	"context"
	"sync"
	"time"
)

// DefaultListMaxAge is how long a fetched chat list is served without refetching.
const DefaultListMaxAge = 30 * time.Second

// ChatListCache holds the last fetched chat list. Title changes published on
// the bus are patched in place; create and delete must call Invalidate.
type ChatListCache struct {
	fetch  func(ctx context.Context) ([]ChatSummary, error)
	maxAge time.Duration
	now    func() time.Time

	mu        sync.Mutex
	data      []ChatSummary
	fetchedAt time.Time

	unsubscribe func()
}

func NewChatListCache(fetch func(ctx context.Context) ([]ChatSummary, error), maxAge time.Duration, bus *TitleBus) *ChatListCache {
	if maxAge <= 0 {
		maxAge = DefaultListMaxAge
	}
	c := &ChatListCache{fetch: fetch, maxAge: maxAge, now: time.Now}
	if bus != nil {
		c.unsubscribe = bus.Subscribe(c.applyTitle)
	}
	return c
}

// Get returns the cached list while it is fresh and refetches otherwise.
func (c *ChatListCache) Get(ctx context.Context) ([]ChatSummary, error) {
	c.mu.Lock()
	if c.data != nil && c.now().Sub(c.fetchedAt) < c.maxAge {
		out := append([]ChatSummary(nil), c.data...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	chats, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []ChatSummary{}
	}

	c.mu.Lock()
	c.data = chats
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return append([]ChatSummary(nil), chats...), nil
}

func (c *ChatListCache) Invalidate() {
	c.mu.Lock()
	c.data = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Close detaches the cache from its bus.
func (c *ChatListCache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *ChatListCache) applyTitle(ev TitleChanged) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.data {
		if c.data[i].ID == ev.ChatID {
			c.data[i].Title = ev.Title
		}
	}
}
