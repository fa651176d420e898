package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "tok", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/chats", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("auth_token"); err != nil {
			_, _ = w.Write([]byte("[]"))
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"Untitled"}]`))
	})
	mux.HandleFunc("POST /chat/1/stream", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []Turn `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) == 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: This is\n\ndata:  a test\n\n"))
	})
	mux.HandleFunc("GET /chat/1/title-stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: title-update\ndata: {\"title\":\"A test\"}\n\nevent: update\ndata: </stream>\n\n"))
	})
	mux.HandleFunc("PATCH /chat/1", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"title must be between 1 and 255 characters"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "title": body.Title})
	})
	mux.HandleFunc("POST /chat/2/stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLoginKeepsCookie(t *testing.T) {
	srv := newTestServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	chats, err := c.ListChats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chats)

	assert.ErrorIs(t, c.Login(context.Background(), "alice", "wrong"), ErrUnauthorized)
	require.NoError(t, c.Login(context.Background(), "alice", "secret"))

	chats, err = c.ListChats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ChatSummary{{ID: 1, Title: UntitledChat}}, chats)
}

func TestClientStreamAndTitle(t *testing.T) {
	srv := newTestServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	var fragments []string
	err = c.Stream(context.Background(), 1, []Turn{{Type: "prompt", Content: "hi"}}, func(f string) error {
		fragments = append(fragments, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"This is", " a test"}, fragments)

	var title string
	got, err := c.TitleStream(context.Background(), 1, func(t string) { title = t })
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, "A test", title)
}

func TestClientStreamStatusError(t *testing.T) {
	srv := newTestServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	err = c.Stream(context.Background(), 2, []Turn{{Type: "prompt", Content: "hi"}}, func(string) error { return nil })
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
}

func TestClientRenameChat(t *testing.T) {
	srv := newTestServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	chat, err := c.RenameChat(context.Background(), 1, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, uint(1), chat.ID)
	assert.Equal(t, "Renamed", chat.Title)

	_, err = c.RenameChat(context.Background(), 1, "")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Code)
}
