package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatListCacheServesFreshData(t *testing.T) {
	fetches := 0
	cache := NewChatListCache(func(context.Context) ([]ChatSummary, error) {
		fetches++
		return []ChatSummary{{ID: 1, Title: UntitledChat}}, nil
	}, time.Minute, nil)
	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetches, "stale data is refetched")

	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fetches, "invalidation forces a fetch")
}

func TestChatListCachePatchesTitlesFromBus(t *testing.T) {
	bus := NewTitleBus()
	cache := NewChatListCache(func(context.Context) ([]ChatSummary, error) {
		return []ChatSummary{{ID: 1, Title: UntitledChat}, {ID: 2, Title: "Other"}}, nil
	}, time.Minute, bus)
	defer cache.Close()

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	bus.Publish(TitleChanged{ChatID: 1, Title: "Generated"})

	chats, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Generated", chats[0].Title)
	assert.Equal(t, "Other", chats[1].Title)
}

func TestTitleBusUnsubscribe(t *testing.T) {
	bus := NewTitleBus()
	var got []TitleChanged
	unsubscribe := bus.Subscribe(func(ev TitleChanged) { got = append(got, ev) })

	bus.Publish(TitleChanged{ChatID: 1, Title: "a"})
	unsubscribe()
	unsubscribe()
	bus.Publish(TitleChanged{ChatID: 1, Title: "b"})

	assert.Equal(t, []TitleChanged{{ChatID: 1, Title: "a"}}, got)
}
