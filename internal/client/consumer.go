package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iyunix/go-chatstream/internal/logging"
)

type State int

const (
	Idle State = iota
	Sending
	Streaming
	TitlePending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case TitlePending:
		return "title_pending"
	default:
		return "unknown"
	}
}

// ErrBusy is returned when a submit arrives while a stream is in flight.
var ErrBusy = errors.New("a response is still streaming")

// StreamAPI is the part of Client the consumer needs.
type StreamAPI interface {
	Stream(ctx context.Context, chatID uint, turns []Turn, onFragment func(string) error) error
	TitleStream(ctx context.Context, chatID uint, onTitle func(string)) (bool, error)
}

// Observer receives consumer progress. Nil callbacks are skipped.
type Observer struct {
	OnState   func(State)
	OnPartial func(text string)
	OnMessage func(Turn)
	OnTitle   func(title string)
}

// Consumer drives one conversation: it appends the prompt before the request
// goes out, accumulates fragments into a pending reply, stores the reply when
// the stream ends and waits for a generated title on a new chat.
type Consumer struct {
	api      StreamAPI
	bus      *TitleBus
	observer Observer
	logger   logging.Logger

	mu     sync.Mutex
	state  State
	chatID uint
	title  string
	turns  []Turn
}

// NewConsumer attaches to chat, or streams anonymously when chat is nil.
func NewConsumer(api StreamAPI, bus *TitleBus, chat *Chat, observer Observer, logger logging.Logger) *Consumer {
	c := &Consumer{api: api, bus: bus, observer: observer, logger: logger, title: UntitledChat}
	if chat != nil {
		c.chatID = chat.ID
		c.title = chat.Title
		for _, t := range chat.Messages {
			t.Saved = true
			c.turns = append(c.turns, t)
		}
	}
	return c
}

func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consumer) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// Turns returns a copy of the conversation so far.
func (c *Consumer) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.turns...)
}

// Submit sends text as a new prompt and blocks until the reply, and the title
// when one is pending, have arrived.
func (c *Consumer) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	prompt := Turn{Type: "prompt", Content: text}
	c.turns = append(c.turns, prompt)
	c.state = Sending
	c.mu.Unlock()

	c.notifyState(Sending)
	c.emitMessage(prompt)
	return c.run(ctx)
}

// Resume streams a reply to an already stored prompt, as after creating a
// chat with a first message.
func (c *Consumer) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	if len(c.turns) == 0 || c.turns[len(c.turns)-1].Type != "prompt" {
		c.mu.Unlock()
		return nil
	}
	c.state = Sending
	c.mu.Unlock()

	c.notifyState(Sending)
	return c.run(ctx)
}

// run expects the state to be Sending already.
func (c *Consumer) run(ctx context.Context) error {
	c.mu.Lock()
	turns := append([]Turn(nil), c.turns...)
	chatID := c.chatID
	c.mu.Unlock()

	var reply strings.Builder
	err := c.api.Stream(ctx, chatID, turns, func(fragment string) error {
		if reply.Len() == 0 {
			c.setState(Streaming)
		}
		reply.WriteString(fragment)
		if c.observer.OnPartial != nil {
			c.observer.OnPartial(reply.String())
		}
		return nil
	})
	if err != nil {
		failed := Turn{Type: "error", Content: err.Error()}
		c.mu.Lock()
		c.turns = append(c.turns, failed)
		c.mu.Unlock()
		c.emitMessage(failed)
		c.setState(Idle)
		return err
	}

	response := Turn{Type: "response", Content: reply.String()}
	c.mu.Lock()
	if chatID != 0 {
		// The server stored everything it was sent plus the reply.
		for i := range c.turns {
			c.turns[i].Saved = true
		}
		response.Saved = true
	}
	// An empty reply is never replayed: the server rejects blank turns.
	empty := strings.TrimSpace(response.Content) == ""
	if !empty {
		c.turns = append(c.turns, response)
	}
	needsTitle := chatID != 0 && c.title == UntitledChat
	c.mu.Unlock()
	if !empty {
		c.emitMessage(response)
	}

	if needsTitle {
		c.setState(TitlePending)
		if _, err := c.api.TitleStream(ctx, chatID, c.applyTitle); err != nil {
			// The chat keeps its current title; the next reply tries again.
			c.logger.Warn("title stream failed", "chat_id", chatID, "error", err)
		}
	}
	c.setState(Idle)
	return nil
}

func (c *Consumer) applyTitle(title string) {
	c.mu.Lock()
	c.title = title
	chatID := c.chatID
	c.mu.Unlock()

	if c.observer.OnTitle != nil {
		c.observer.OnTitle(title)
	}
	if c.bus != nil {
		c.bus.Publish(TitleChanged{ChatID: chatID, Title: title})
	}
}

func (c *Consumer) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notifyState(s)
}

func (c *Consumer) notifyState(s State) {
	if c.observer.OnState != nil {
		c.observer.OnState(s)
	}
}

func (c *Consumer) emitMessage(t Turn) {
	if c.observer.OnMessage != nil {
		c.observer.OnMessage(t)
	}
}
