package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat represents a conversation thread, direct or group. UpdatedAt
// advances on every new message so chat lists sort by recency.
type Chat struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	IsGroup   bool      `gorm:"default:false" json:"isGroup"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// PairKey is the sorted "idA:idB" of a direct chat's two members.
	// The unique index makes "at most one direct chat per unordered
	// pair" a database guarantee. NULL for group chats.
	PairKey *string `gorm:"uniqueIndex;size:80" json:"-"`

	// Relations
	Participants []ChatParticipant `gorm:"foreignKey:ChatID" json:"participants,omitempty"`
	Messages     []Message         `gorm:"foreignKey:ChatID" json:"-"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// DirectPairKey builds the canonical key for a direct chat between two
// users. Callers may pass the IDs in either order.
func DirectPairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return strings.Join([]string{userA, userB}, ":")
}

// ChatParticipant tracks who is in a chat and how far they have read.
// LastReadAt is nil until the member opens the chat for the first time.
type ChatParticipant struct {
	ChatID     string     `gorm:"primaryKey;type:text" json:"chatId"`
	UserID     string     `gorm:"primaryKey;type:text" json:"userId"`
	JoinedAt   time.Time  `json:"joinedAt"`
	LastReadAt *time.Time `json:"lastReadAt"`

	// Relations
	Profile Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (p *ChatParticipant) BeforeCreate(tx *gorm.DB) (err error) {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	return
}
