package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
)

// MessageStore is the typed access path for message and read rows.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Insert(ctx context.Context, message *models.Message) error {
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("messageStore.Insert: %w", err)
	}
	return nil
}

func (s *MessageStore) GetByID(ctx context.Context, messageID string) (*models.Message, error) {
	var message models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		First(&message, "id = ?", messageID).Error
	if err != nil {
		return nil, fmt.Errorf("messageStore.GetByID: %w", err)
	}
	return &message, nil
}

// PageDesc fetches up to limit non-deleted messages for the chat,
// newest first. A non-nil before narrows to messages created strictly
// earlier, which is the pagination cursor.
func (s *MessageStore) PageDesc(ctx context.Context, chatID string, limit int, before *time.Time) ([]models.Message, error) {
	query := s.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_id = ? AND is_deleted = ?", chatID, false)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var messages []models.Message
	err := query.
		Order("created_at desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("messageStore.PageDesc: %w", err)
	}
	return messages, nil
}

// CountUnread counts non-deleted messages from other senders created
// after the reader's watermark. A nil watermark means the reader has
// never opened the chat, so every such message counts.
func (s *MessageStore) CountUnread(ctx context.Context, chatID, readerID string, lastReadAt *time.Time) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_deleted = ?", chatID, readerID, false)
	if lastReadAt != nil {
		query = query.Where("created_at > ?", *lastReadAt)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("messageStore.CountUnread: %w", err)
	}
	return count, nil
}

// MarkOthersRead upserts read rows for every non-deleted message in
// the chat from other senders that the reader has not marked yet.
// Returns how many rows were written.
func (s *MessageStore) MarkOthersRead(ctx context.Context, chatID, readerID string) (int64, error) {
	readSubquery := s.db.Model(&models.MessageRead{}).
		Select("message_id").
		Where("user_id = ?", readerID)

	var unreadIDs []string
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_deleted = ?", chatID, readerID, false).
		Not("id IN (?)", readSubquery).
		Pluck("id", &unreadIDs).Error
	if err != nil {
		return 0, fmt.Errorf("messageStore.MarkOthersRead: %w", err)
	}
	if len(unreadIDs) == 0 {
		return 0, nil
	}

	now := time.Now()
	reads := make([]models.MessageRead, 0, len(unreadIDs))
	for _, messageID := range unreadIDs {
		reads = append(reads, models.MessageRead{
			MessageID: messageID,
			UserID:    readerID,
			ReadAt:    now,
		})
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reads).Error
	if err != nil {
		return 0, fmt.Errorf("messageStore.MarkOthersRead: %w", err)
	}
	return int64(len(reads)), nil
}

// SoftDelete tombstones the sender's own message. Content and
// timestamps stay in place; only the flag flips.
func (s *MessageStore) SoftDelete(ctx context.Context, messageID, senderID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND sender_id = ?", messageID, senderID).
		Update("is_deleted", true)
	if result.Error != nil {
		return false, fmt.Errorf("messageStore.SoftDelete: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
