package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
)

// ChatStore is the typed access path for chat and participant rows.
type ChatStore struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

// Create inserts the chat and its participant rows in one transaction.
func (s *ChatStore) Create(ctx context.Context, chat *models.Chat, memberIDs []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, userID := range memberIDs {
			participant := models.ChatParticipant{
				ChatID:   chat.ID,
				UserID:   userID,
				JoinedAt: now,
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("chatStore.Create: %w", err)
	}
	return nil
}

// FindDirect returns the direct chat for the canonical pair key, or
// (nil, nil) when none exists.
func (s *ChatStore) FindDirect(ctx context.Context, pairKey string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).First(&chat, "pair_key = ?", pairKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chatStore.FindDirect: %w", err)
	}
	return &chat, nil
}

func (s *ChatStore) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	if err := s.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error; err != nil {
		return nil, fmt.Errorf("chatStore.GetByID: %w", err)
	}
	return &chat, nil
}

// ListForUser returns every chat the user participates in, most
// recently active first.
func (s *ChatStore) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.db.WithContext(ctx).
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userID).
		Order("chats.updated_at desc").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("chatStore.ListForUser: %w", err)
	}
	return chats, nil
}

// Participants returns the membership rows with profiles attached.
func (s *ChatStore) Participants(ctx context.Context, chatID string) ([]models.ChatParticipant, error) {
	var participants []models.ChatParticipant
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("chat_id = ?", chatID).
		Order("joined_at asc").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("chatStore.Participants: %w", err)
	}
	return participants, nil
}

// GetParticipant returns the membership row for (chat, user), or
// (nil, nil) when the user is not a member.
func (s *ChatStore) GetParticipant(ctx context.Context, chatID, userID string) (*models.ChatParticipant, error) {
	var participant models.ChatParticipant
	err := s.db.WithContext(ctx).
		First(&participant, "chat_id = ? AND user_id = ?", chatID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chatStore.GetParticipant: %w", err)
	}
	return &participant, nil
}

// AddParticipants inserts membership rows, skipping users who are
// already members. Returns the IDs actually added.
func (s *ChatStore) AddParticipants(ctx context.Context, chatID string, userIDs []string) ([]string, error) {
	var added []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, userID := range userIDs {
			var count int64
			if err := tx.Model(&models.ChatParticipant{}).
				Where("chat_id = ? AND user_id = ?", chatID, userID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			participant := models.ChatParticipant{
				ChatID:   chatID,
				UserID:   userID,
				JoinedAt: time.Now(),
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
			added = append(added, userID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chatStore.AddParticipants: %w", err)
	}
	return added, nil
}

// RemoveParticipant deletes the membership row. Removing a user who is
// not a member is a no-op.
func (s *ChatStore) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&models.ChatParticipant{}).Error
	if err != nil {
		return fmt.Errorf("chatStore.RemoveParticipant: %w", err)
	}
	return nil
}

// Touch advances the chat's updated_at so it sorts to the top of chat
// lists. Runs unconditionally after every message insert.
func (s *ChatStore) Touch(ctx context.Context, chatID string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", at).Error
	if err != nil {
		return fmt.Errorf("chatStore.Touch: %w", err)
	}
	return nil
}

// SetLastRead advances the member's read watermark. The guard keeps
// the watermark monotonic under concurrent calls.
func (s *ChatStore) SetLastRead(ctx context.Context, chatID, userID string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Where("last_read_at IS NULL OR last_read_at < ?", at).
		Update("last_read_at", at).Error
	if err != nil {
		return fmt.Errorf("chatStore.SetLastRead: %w", err)
	}
	return nil
}
