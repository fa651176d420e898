package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/services/ai"
)

func TestHandleStreamEmptyTurnsWritesNothing(t *testing.T) {
	f := newFixture(t)
	chat := f.newChat(t, "")
	w := &recorder{}

	result, err := f.streaming.HandleStream(context.Background(), chat, nil, w)
	require.NoError(t, err)

	assert.Zero(t, result.Fragments)
	assert.Empty(t, w.fragments)
	assert.Zero(t, f.count(t, &domain.Message{}))
	assert.False(t, result.TitleTriggered)
}

func TestHandleStreamAnonymousPersistsNothing(t *testing.T) {
	f := newFixture(t)
	w := &recorder{}

	result, err := f.streaming.HandleStream(context.Background(), nil,
		[]IncomingTurn{{Type: domain.MessageTypePrompt, Content: "hello"}}, w)
	require.NoError(t, err)

	assert.Equal(t, []string{ai.StubText}, w.fragments)
	assert.Equal(t, ai.StubText, result.Response)
	assert.False(t, result.Persisted)
	assert.Zero(t, f.count(t, &domain.Message{}))
	assert.Zero(t, f.count(t, &domain.Chat{}))
}

func TestHandleStreamRejectsInvalidTurns(t *testing.T) {
	f := newFixture(t)

	_, err := f.streaming.HandleStream(context.Background(), nil,
		[]IncomingTurn{{Type: "system", Content: "x"}}, &recorder{})
	var chatErr *ChatError
	require.True(t, errors.As(err, &chatErr))
	assert.Equal(t, ErrTypeValidation, chatErr.Type)
}

func TestHandleStreamSkipsPersistedTurns(t *testing.T) {
	f := newFixture(t)
	chat := f.newChat(t, "Existing")
	ctx := context.Background()

	prior, err := f.messages.Create(ctx, &domain.Message{ChatID: chat.ID, Type: domain.MessageTypePrompt, Content: "first"})
	require.NoError(t, err)

	turns := []IncomingTurn{
		{ID: uintPtr(prior.ID), Type: domain.MessageTypePrompt, Content: "first"},
		{Type: domain.MessageTypeResponse, Content: "earlier answer", Saved: true},
		{Type: domain.MessageTypePrompt, Content: "second"},
	}
	_, err = f.streaming.HandleStream(ctx, chat, turns, &recorder{})
	require.NoError(t, err)

	messages, err := f.messages.FindByChatID(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, domain.MessageTypeResponse, messages[2].Type)
}

func TestHandleStreamPersistsConcatenatedResponse(t *testing.T) {
	f := newFixture(t)
	f.stub.Fragments = []string{"Go ", "has ", "goroutines", "."}
	chat := f.newChat(t, "Named")
	w := &recorder{}

	result, err := f.streaming.HandleStream(context.Background(), chat,
		[]IncomingTurn{{Type: domain.MessageTypePrompt, Content: "tell me"}}, w)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Fragments)
	assert.True(t, result.Persisted)

	var responses []domain.Message
	require.NoError(t, f.db.Where("chat_id = ? AND type = ?", chat.ID, domain.MessageTypeResponse).Find(&responses).Error)
	require.Len(t, responses, 1)
	assert.Equal(t, strings.Join(w.fragments, ""), responses[0].Content)
	assert.Equal(t, "Go has goroutines.", responses[0].Content)
}

func TestHandleStreamProjectsRoles(t *testing.T) {
	f := newFixture(t)

	_, err := f.streaming.HandleStream(context.Background(), nil, []IncomingTurn{
		{Type: domain.MessageTypePrompt, Content: "q1"},
		{Type: domain.MessageTypeResponse, Content: "a1"},
		{Type: domain.MessageTypeError, Content: "oops"},
		{Type: domain.MessageTypePrompt, Content: "q2"},
	}, &recorder{})
	require.NoError(t, err)

	req := f.stub.Requests()[0]
	roles := make([]ai.Role, 0, len(req.Turns))
	for _, turn := range req.Turns {
		roles = append(roles, turn.Role)
	}
	assert.Equal(t, []ai.Role{ai.RoleUser, ai.RoleAssistant, ai.RoleAssistant, ai.RoleUser}, roles)
}

func TestHandleStreamKeepsPartialResponseWhenClientLeaves(t *testing.T) {
	f := newFixture(t)
	f.stub.Fragments = []string{"part one", " part two", " part three"}
	chat := f.newChat(t, "Named")
	w := &recorder{failAfter: 1}

	result, err := f.streaming.HandleStream(context.Background(), chat,
		[]IncomingTurn{{Type: domain.MessageTypePrompt, Content: "go"}}, w)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fragments)

	var response domain.Message
	require.NoError(t, f.db.Where("chat_id = ? AND type = ?", chat.ID, domain.MessageTypeResponse).First(&response).Error)
	assert.Equal(t, "part one", response.Content)
}

func TestHandleStreamUpstreamFailureBecomesResponseText(t *testing.T) {
	f := newFixture(t)
	f.stub.Err = errors.New("upstream down")
	chat := f.newChat(t, "Named")
	w := &recorder{}

	result, err := f.streaming.HandleStream(context.Background(), chat,
		[]IncomingTurn{{Type: domain.MessageTypePrompt, Content: "go"}}, w)
	require.NoError(t, err)
	assert.Equal(t, []string{ai.FailureText}, w.fragments)
	assert.Equal(t, ai.FailureText, result.Response)
}

func TestHandleStreamEmptyUpstreamReplyKeepsChatUsable(t *testing.T) {
	f := newFixture(t)
	f.stub.Fragments = []string{""}
	chat := f.newChat(t, "Named")
	ctx := context.Background()
	prompt := IncomingTurn{Type: domain.MessageTypePrompt, Content: "first"}

	w := &recorder{}
	result, err := f.streaming.HandleStream(ctx, chat, []IncomingTurn{prompt}, w)
	require.NoError(t, err)
	assert.Equal(t, []string{ai.FailureText}, w.fragments)
	assert.Equal(t, ai.FailureText, result.Response)

	// The client replays the conversation, reply included.
	f.stub.Fragments = nil
	prompt.Saved = true
	replay := []IncomingTurn{
		prompt,
		{Type: domain.MessageTypeResponse, Content: result.Response, Saved: true},
		{Type: domain.MessageTypePrompt, Content: "second"},
	}
	w = &recorder{}
	_, err = f.streaming.HandleStream(ctx, chat, replay, w)
	require.NoError(t, err)
	assert.Equal(t, []string{ai.StubText}, w.fragments)
}

func TestHandleStreamTriggersTitleOnlyForSentinel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	turns := []IncomingTurn{{Type: domain.MessageTypePrompt, Content: "How do channels work in Go?"}}

	untitled := f.newChat(t, "")
	result, err := f.streaming.HandleStream(ctx, untitled, turns, &recorder{})
	require.NoError(t, err)
	assert.True(t, result.TitleTriggered)
	f.titles.Wait()

	got, err := f.chats.FindByID(ctx, untitled.ID)
	require.NoError(t, err)
	assert.True(t, got.HasGeneratedTitle())

	named := f.newChat(t, "Already named")
	result, err = f.streaming.HandleStream(ctx, named, turns, &recorder{})
	require.NoError(t, err)
	assert.False(t, result.TitleTriggered)
}
