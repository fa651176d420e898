// File: internal/domain/message.go
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType tags a turn within a chat.
type MessageType string

const (
	MessageTypePrompt   MessageType = "prompt"
	MessageTypeResponse MessageType = "response"
	MessageTypeError    MessageType = "error"
)

// ParseMessageType validates a client-supplied turn type.
func ParseMessageType(s string) (MessageType, error) {
	switch t := MessageType(s); t {
	case MessageTypePrompt, MessageTypeResponse, MessageTypeError:
		return t, nil
	default:
		return "", fmt.Errorf("unknown message type %q", s)
	}
}

// Message represents a single message within a chat.
type Message struct {
	ID        uint        `json:"id" gorm:"primarykey"`
	ChatID    uint        `json:"chat_id" gorm:"not null;index"`
	Type      MessageType `json:"type" gorm:"not null;size:16"`
	Content   string      `json:"content" gorm:"not null"`
	CreatedAt time.Time   `json:"created_at"`
}

// MarshalJSON adds the saved flag clients use to skip persisted turns on replay.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return json.Marshal(struct {
		plain
		Saved bool `json:"saved"`
	}{plain: plain(m), Saved: true})
}
