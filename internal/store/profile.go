package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/pkg/utils"
)

// ProfileStore is the typed access path for profile rows.
type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("profileStore.GetByID: %w", err)
	}
	return &profile, nil
}

func (s *ProfileStore) GetByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("profileStore.GetByIDs: %w", err)
	}
	return profiles, nil
}

func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("profileStore.Create: %w", err)
	}
	return nil
}

// Update persists the mutable profile fields.
func (s *ProfileStore) Update(ctx context.Context, profile *models.Profile) error {
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]interface{}{
			"username":   profile.Username,
			"name":       profile.Name,
			"bio":        profile.Bio,
			"avatar_url": profile.AvatarURL,
		}).Error
	if err != nil {
		return fmt.Errorf("profileStore.Update: %w", err)
	}
	return nil
}

// Exists reports whether a profile row is present for the given user.
func (s *ProfileStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("profileStore.Exists: %w", err)
	}
	return count > 0, nil
}

// Search finds profiles whose username or display name contains the
// term, case-insensitively. The viewer is always excluded; wildcards
// in the term are escaped before matching.
func (s *ProfileStore) Search(ctx context.Context, viewerID, term string, limit int) ([]models.Profile, error) {
	pattern := utils.SanitizeSearchQuery(strings.ToLower(term))

	var profiles []models.Profile
	err := s.db.WithContext(ctx).
		Where("id <> ?", viewerID).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username asc").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("profileStore.Search: %w", err)
	}
	return profiles, nil
}
