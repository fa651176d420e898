// File: internal/domain/chat.go
package domain

import "time"

// UntitledChat is the placeholder title a chat keeps until one is generated.
const UntitledChat = "Untitled"

// TitleMaxLength bounds generated titles, in runes.
const TitleMaxLength = 50

// TitleStoredMaxLength bounds user-supplied titles, in runes.
const TitleStoredMaxLength = 255

// Chat represents a single conversation thread.
type Chat struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null;default:Untitled"`
	Messages  []Message `json:"messages,omitempty" gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasGeneratedTitle reports whether the title moved off the sentinel.
func (c *Chat) HasGeneratedTitle() bool {
	return c.Title != "" && c.Title != UntitledChat
}

// IsOwnedBy reports whether userID owns the chat.
func (c *Chat) IsOwnedBy(userID uint) bool {
	return userID != 0 && c.UserID == userID
}
