package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendshipStatus is the stored status of a directed friendship row.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Friendship is a directed edge: UserID sent the request, FriendID
// received it. A pair of users has at most one row per direction; the
// relationship the UI shows is derived from whichever rows exist.
type Friendship struct {
	ID        string           `gorm:"primaryKey;type:text" json:"id"`
	UserID    string           `gorm:"uniqueIndex:idx_user_friend;type:text;not null" json:"userId"`
	FriendID  string           `gorm:"uniqueIndex:idx_user_friend;type:text;not null" json:"friendId"`
	Status    FriendshipStatus `gorm:"type:text;default:'pending';not null" json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	// Relations
	User   Profile `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Friend Profile `gorm:"foreignKey:FriendID" json:"friend,omitempty"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return
}

// FriendshipState is the relationship as seen from one user's side,
// derived from the directed rows between the two users.
type FriendshipState string

const (
	StateNone            FriendshipState = "none"
	StatePendingOutgoing FriendshipState = "pendingOutgoing"
	StatePendingIncoming FriendshipState = "pendingIncoming"
	StateAccepted        FriendshipState = "accepted"
	StateRejected        FriendshipState = "rejected"
	StateBlocked         FriendshipState = "blocked"
)
