package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstream/internal/logging"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "chatstream.chat.42.title", Subject(42))
}

func TestMemoryNotifierDeliversPerChat(t *testing.T) {
	n := NewMemoryNotifier()
	ctx := context.Background()

	updates, cancel, err := n.Subscribe(ctx, 1)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, n.Publish(ctx, TitleUpdate{ChatID: 2, Title: "other"}))
	require.NoError(t, n.Publish(ctx, TitleUpdate{ChatID: 1, Title: "mine"}))

	select {
	case got := <-updates:
		assert.Equal(t, TitleUpdate{ChatID: 1, Title: "mine"}, got)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestMemoryNotifierCancelDetaches(t *testing.T) {
	n := NewMemoryNotifier()
	ctx, stop := context.WithCancel(context.Background())

	updates, cancel, err := n.Subscribe(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Subscribers(9))

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)
	assert.Equal(t, 0, n.Subscribers(9))

	_, _, err = n.Subscribe(ctx, 9)
	require.NoError(t, err)
	stop()
	assert.Eventually(t, func() bool { return n.Subscribers(9) == 0 }, time.Second, 10*time.Millisecond)
	assert.NoError(t, n.Publish(context.Background(), TitleUpdate{ChatID: 9, Title: "late"}))
}

func TestMemoryNotifierClosed(t *testing.T) {
	n := NewMemoryNotifier()
	require.NoError(t, n.Close())
	assert.ErrorIs(t, n.Close(), ErrClosed)
	assert.ErrorIs(t, n.Publish(context.Background(), TitleUpdate{ChatID: 1}), ErrClosed)
}

func TestNATSNotifierRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	n, err := NewNATSNotifier(url, logging.NewNoOp())
	require.NoError(t, err)
	defer n.Close()

	updates, cancel, err := n.Subscribe(context.Background(), 5)
	require.NoError(t, err)
	defer cancel()
	require.NoError(t, n.conn.Flush())

	require.NoError(t, n.Publish(context.Background(), TitleUpdate{ChatID: 5, Title: "over the wire"}))
	select {
	case got := <-updates:
		assert.Equal(t, "over the wire", got.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
}
