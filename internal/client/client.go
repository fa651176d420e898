// Package client talks to a chatstream server and drives a conversation the
// way the browser does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// UntitledChat mirrors the server's placeholder title.
const UntitledChat = "Untitled"

// EndSignal is the data of the event that closes a title stream.
const EndSignal = "</stream>"

var ErrUnauthorized = errors.New("not signed in")

// Turn is one message as the stream endpoint accepts it.
type Turn struct {
	ID      *uint  `json:"id,omitempty"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Saved   bool   `json:"saved,omitempty"`
}

type Chat struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Messages  []Turn    `json:"messages,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatSummary is one row of the chat list.
type ChatSummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL with its own cookie jar, so a Login
// carries over to later calls.
func New(baseURL string) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Jar: jar},
	}, nil
}

// Login signs in and keeps the session cookie.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var chats []ChatSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat creates a chat. autoStream is true when firstMessage was stored
// and the caller should stream the first reply.
func (c *Client) CreateChat(ctx context.Context, title, firstMessage string) (*Chat, bool, error) {
	body := map[string]string{"title": title, "firstMessage": firstMessage}
	var resp struct {
		Chat       Chat `json:"chat"`
		AutoStream bool `json:"auto_stream"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/chat", body, &resp); err != nil {
		return nil, false, err
	}
	return &resp.Chat, resp.AutoStream, nil
}

func (c *Client) GetChat(ctx context.Context, chatID uint) (*Chat, error) {
	var chat Chat
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/chat/%d", chatID), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// RenameChat sets the chat's title and returns the updated chat.
func (c *Client) RenameChat(ctx context.Context, chatID uint, title string) (*Chat, error) {
	var chat Chat
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/chat/%d", chatID), body, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) DeleteChat(ctx context.Context, chatID uint) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/chat/%d", chatID), nil, nil)
}

// Stream posts turns and calls onFragment for every fragment. chatID 0
// streams anonymously.
func (c *Client) Stream(ctx context.Context, chatID uint, turns []Turn, onFragment func(string) error) error {
	path := "/chat/stream"
	if chatID != 0 {
		path = fmt.Sprintf("/chat/%d/stream", chatID)
	}
	resp, err := c.openStream(ctx, http.MethodPost, path, map[string]any{"messages": turns})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return ReadEvents(resp.Body, func(ev Event) error {
		return onFragment(ev.Data)
	})
}

// TitleStream waits for the chat's title. It reports whether a title
// arrived before the server closed the channel.
func (c *Client) TitleStream(ctx context.Context, chatID uint, onTitle func(string)) (bool, error) {
	resp, err := c.openStream(ctx, http.MethodGet, fmt.Sprintf("/chat/%d/title-stream", chatID), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	received := false
	errEnd := errors.New("end of stream")
	err = ReadEvents(resp.Body, func(ev Event) error {
		if ev.Data == EndSignal {
			return errEnd
		}
		if ev.Event != "title-update" {
			return nil
		}
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return fmt.Errorf("decode title update: %w", err)
		}
		received = true
		onTitle(payload.Title)
		return nil
	})
	if errors.Is(err, errEnd) {
		err = nil
	}
	return received, err
}

func (c *Client) openStream(ctx context.Context, method, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
