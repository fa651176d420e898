// File: internal/services/chat/types.go
package chat

import (
	"strings"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/services/ai"
)

// IncomingTurn is one entry of a stream request body. A turn carrying an ID
// (or flagged saved) was persisted earlier and is never written again.
type IncomingTurn struct {
	ID      *uint              `json:"id,omitempty"`
	Type    domain.MessageType `json:"type"`
	Content string             `json:"content"`
	Saved   bool               `json:"saved,omitempty"`
}

func (t IncomingTurn) Persisted() bool {
	return t.ID != nil || t.Saved
}

// FragmentWriter receives fragments as they arrive. Implementations flush
// per call; an error means the client is gone.
type FragmentWriter interface {
	WriteFragment(fragment string) error
}

// StreamResult summarises one HandleStream call.
type StreamResult struct {
	Fragments      int
	Response       string
	Persisted      bool
	TitleTriggered bool
}

// ValidateTurns rejects bodies the stream must not start on.
func ValidateTurns(turns []IncomingTurn) error {
	for _, t := range turns {
		if _, err := domain.ParseMessageType(string(t.Type)); err != nil {
			return NewValidationError("validate_turns", err.Error())
		}
		if strings.TrimSpace(t.Content) == "" {
			return NewValidationError("validate_turns", "turn content is required")
		}
	}
	return nil
}

// ProjectTurns maps message types onto upstream roles: prompts are the user,
// everything else is the assistant.
func ProjectTurns(turns []IncomingTurn) []ai.Turn {
	out := make([]ai.Turn, 0, len(turns))
	for _, t := range turns {
		role := ai.RoleAssistant
		if t.Type == domain.MessageTypePrompt {
			role = ai.RoleUser
		}
		out = append(out, ai.Turn{Role: role, Content: t.Content})
	}
	return out
}
