package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/iyunix/go-chatstream/internal/logging"
)

// NATSNotifier shares title updates across server instances.
type NATSNotifier struct {
	conn   *nats.Conn
	logger logging.Logger
	closed atomic.Bool
}

// NewNATSNotifier connects to url.
func NewNATSNotifier(url string, logger logging.Logger) (*NATSNotifier, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name("chatstream"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewNATSNotifierFromConn(conn, logger), nil
}

func NewNATSNotifierFromConn(conn *nats.Conn, logger logging.Logger) *NATSNotifier {
	return &NATSNotifier{conn: conn, logger: logger}
}

func (n *NATSNotifier) Publish(ctx context.Context, update TitleUpdate) error {
	if n.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return n.conn.Publish(Subject(update.ChatID), data)
}

func (n *NATSNotifier) Subscribe(ctx context.Context, chatID uint) (<-chan TitleUpdate, func(), error) {
	if n.closed.Load() {
		return nil, nil, ErrClosed
	}

	msgs := make(chan *nats.Msg, subscriberBuffer)
	sub, err := n.conn.ChanSubscribe(Subject(chatID), msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("nats subscribe: %w", err)
	}

	out := make(chan TitleUpdate, subscriberBuffer)
	done := make(chan struct{})
	stopped := make(chan struct{})
	var once atomic.Bool
	cancel := func() {
		if once.Swap(true) {
			return
		}
		_ = sub.Unsubscribe()
		close(done)
		<-stopped
	}

	go func() {
		defer close(stopped)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				_ = sub.Unsubscribe()
				return
			case <-done:
				return
			case msg := <-msgs:
				var update TitleUpdate
				if err := json.Unmarshal(msg.Data, &update); err != nil {
					n.logger.Warn("dropping malformed title update", "subject", msg.Subject, "error", err)
					continue
				}
				select {
				case out <- update:
				default:
				}
			}
		}
	}()

	return out, cancel, nil
}

func (n *NATSNotifier) Close() error {
	if n.closed.Swap(true) {
		return ErrClosed
	}
	return n.conn.Drain()
}
