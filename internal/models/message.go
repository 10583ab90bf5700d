package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageType distinguishes what Content holds: the text body for text
// messages, the stored media URL for image and voice messages.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVoice MessageType = "voice"
)

// Message is a single chat message. Deletion is a tombstone: IsDeleted
// flips to true and every other field stays in place.
type Message struct {
	ID        string      `gorm:"primaryKey;type:text" json:"id"`
	ChatID    string      `gorm:"index:idx_messages_chat_created;type:text;not null" json:"chatId"`
	SenderID  string      `gorm:"index;type:text;not null" json:"senderId"`
	Type      MessageType `gorm:"type:text;default:'text';not null" json:"type"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	IsDeleted bool        `gorm:"default:false" json:"isDeleted"`
	CreatedAt time.Time   `gorm:"index:idx_messages_chat_created" json:"createdAt"`

	// Relations
	Sender Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`

	// ResolvedURL is filled per open view for media messages: the
	// signed (or public) URL the UI renders. Never persisted.
	ResolvedURL string `gorm:"-" json:"resolvedUrl,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return
}

// MessageRead marks a message as read by one member. One row per
// (message, reader); marking twice is a no-op.
type MessageRead struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	MessageID string    `gorm:"uniqueIndex:idx_message_reader;type:text;not null" json:"messageId"`
	UserID    string    `gorm:"uniqueIndex:idx_message_reader;type:text;not null" json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

func (r *MessageRead) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ReadAt.IsZero() {
		r.ReadAt = time.Now()
	}
	return
}
