package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
)

// FriendshipStore is the typed access path for friendship rows.
type FriendshipStore struct {
	db *gorm.DB
}

func NewFriendshipStore(db *gorm.DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

// PairRows returns the directed rows between two users, oldest first.
// At most two rows exist, one per direction.
func (s *FriendshipStore) PairRows(ctx context.Context, userA, userB string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userA, userB, userB, userA).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("friendshipStore.PairRows: %w", err)
	}
	return rows, nil
}

func (s *FriendshipStore) Create(ctx context.Context, row *models.Friendship) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("friendshipStore.Create: %w", err)
	}
	return nil
}

// Accept flips the pending row the caller received to accepted.
// Only the recipient of the request may accept it.
func (s *FriendshipStore) Accept(ctx context.Context, initiatorID, recipientID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ? AND status = ?",
			initiatorID, recipientID, models.FriendshipPending).
		Update("status", models.FriendshipAccepted)
	if result.Error != nil {
		return false, fmt.Errorf("friendshipStore.Accept: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteDirected removes the row from initiator to recipient, any
// status. Used when the recipient rejects a request.
func (s *FriendshipStore) DeleteDirected(ctx context.Context, initiatorID, recipientID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", initiatorID, recipientID).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return false, fmt.Errorf("friendshipStore.DeleteDirected: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeletePending removes the initiator's own still-pending request.
func (s *FriendshipStore) DeletePending(ctx context.Context, initiatorID, recipientID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ? AND status = ?",
			initiatorID, recipientID, models.FriendshipPending).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return false, fmt.Errorf("friendshipStore.DeletePending: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteAccepted removes the accepted row between two users regardless
// of which side initiated it.
func (s *FriendshipStore) DeleteAccepted(ctx context.Context, userA, userB string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)) AND status = ?",
			userA, userB, userB, userA, models.FriendshipAccepted).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return false, fmt.Errorf("friendshipStore.DeleteAccepted: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListAccepted returns the accepted rows touching the user, in either
// direction, with both profiles attached.
func (s *FriendshipStore) ListAccepted(ctx context.Context, userID string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Friend").
		Where("(user_id = ? OR friend_id = ?) AND status = ?",
			userID, userID, models.FriendshipAccepted).
		Order("updated_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("friendshipStore.ListAccepted: %w", err)
	}
	return rows, nil
}

// ListIncoming returns pending requests sent to the user.
func (s *FriendshipStore) ListIncoming(ctx context.Context, userID string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("friend_id = ? AND status = ?", userID, models.FriendshipPending).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("friendshipStore.ListIncoming: %w", err)
	}
	return rows, nil
}

// ListOutgoing returns pending requests the user has sent.
func (s *FriendshipStore) ListOutgoing(ctx context.Context, userID string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.db.WithContext(ctx).
		Preload("Friend").
		Where("user_id = ? AND status = ?", userID, models.FriendshipPending).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("friendshipStore.ListOutgoing: %w", err)
	}
	return rows, nil
}
