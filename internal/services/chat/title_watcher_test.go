package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstream/internal/notify"
)

func TestWatchTimesOutWithoutMessages(t *testing.T) {
	f := newFixture(t)
	chat := f.newChat(t, "")

	var emitted []string
	start := time.Now()
	ok, err := f.watcher.Watch(context.Background(), chat.ID, func(title string) error {
		emitted = append(emitted, title)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, emitted)
	assert.GreaterOrEqual(t, time.Since(start), f.config.TitleStreamTimeout)
	assert.Equal(t, 0, f.notifier.Subscribers(chat.ID))
}

func TestWatchEmitsExistingTitleImmediately(t *testing.T) {
	f := newFixture(t)
	chat := f.newChat(t, "Already titled")
	f.config.TitleStreamTimeout = time.Hour

	var got string
	ok, err := f.watcher.Watch(context.Background(), chat.ID, func(title string) error {
		got = title
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Already titled", got)
}

func TestWatchEmitsOnNotification(t *testing.T) {
	f := newFixture(t)
	chat := f.newChat(t, "")
	// Polling alone could never see the title within the timeout.
	f.config.TitlePollInterval = time.Hour
	f.config.TitleStreamTimeout = 5 * time.Second

	go func() {
		for f.notifier.Subscribers(chat.ID) == 0 {
			time.Sleep(time.Millisecond)
		}
		_ = f.notifier.Publish(context.Background(), notify.TitleUpdate{ChatID: chat.ID, Title: "Pushed title"})
	}()

	var got string
	ok, err := f.watcher.Watch(context.Background(), chat.ID, func(title string) error {
		got = title
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Pushed title", got)
}

func TestWatchPollsForTitleChange(t *testing.T) {
	f := newFixture(t)
	chat := f.newChat(t, "")
	f.config.TitleStreamTimeout = 5 * time.Second

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = f.chats.SetGeneratedTitle(context.Background(), chat.ID, "Polled title")
	}()

	var got string
	ok, err := f.watcher.Watch(context.Background(), chat.ID, func(title string) error {
		got = title
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Polled title", got)
}

func TestWatchStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	chat := f.newChat(t, "")
	f.config.TitleStreamTimeout = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	ok, err := f.watcher.Watch(ctx, chat.ID, func(string) error { return nil })
	require.NoError(t, err)
	assert.False(t, ok)
}
