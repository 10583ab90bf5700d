package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
	"github.com/Raed-Bourouis/VoiceUP/pkg/utils"
)

const maxBioLength = 280

// AvatarUploader puts avatars into the public bucket and removes
// replaced ones.
type AvatarUploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, bucket, key string) error
	AvatarBucket() string
}

// ProfileService implements reading and editing profiles.
type ProfileService struct {
	auth     CurrentUser
	profiles *store.ProfileStore
	media    AvatarUploader
	log      zerolog.Logger
}

func NewProfileService(auth CurrentUser, profiles *store.ProfileStore, media AvatarUploader) *ProfileService {
	return &ProfileService{
		auth:     auth,
		profiles: profiles,
		media:    media,
		log:      logger.With("profileservice"),
	}
}

// Me returns the caller's own profile.
func (s *ProfileService) Me(ctx context.Context) (*models.Profile, error) {
	const op = "ProfileService.Me"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return profile, nil
}

// Get returns any user's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "ProfileService.Get"

	if _, err := s.auth.CurrentUserID(); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound(op, "profile not found")
	}
	return profile, nil
}

// Update edits the caller's username, display name and bio.
func (s *ProfileService) Update(ctx context.Context, username, name, bio string) (*models.Profile, error) {
	const op = "ProfileService.Update"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}
	if !utils.ValidateUsername(username) {
		return nil, errors.Invalid(op, "username must be 3-30 characters: letters, digits, _ or -")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.Invalid(op, "display name is required")
	}

	profile, err := s.profiles.GetByID(ctx, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}

	profile.Username = username
	profile.Name = strings.TrimSpace(name)
	profile.Bio = utils.TruncateString(bio, maxBioLength)
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, errors.Query(op, err)
	}
	return profile, nil
}

// UploadAvatar stores a new avatar in the public bucket and points the
// profile at it. The replaced object is removed best-effort.
func (s *ProfileService) UploadAvatar(ctx context.Context, filename string, data io.Reader, contentType string) (*models.Profile, error) {
	const op = "ProfileService.UploadAvatar"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}

	key := fmt.Sprintf("%s/%d%s", me, time.Now().UnixMilli(), filepath.Ext(filename))
	publicURL, err := s.media.Upload(ctx, s.media.AvatarBucket(), key, data, contentType)
	if err != nil {
		return nil, errors.Storage(op, err)
	}

	previous := profile.AvatarURL
	profile.AvatarURL = publicURL
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, errors.Query(op, err)
	}

	if oldKey, ok := avatarKeyOf(previous, s.media.AvatarBucket()); ok {
		if err := s.media.Remove(ctx, s.media.AvatarBucket(), oldKey); err != nil {
			s.log.Warn().Err(err).Str("key", oldKey).Msg("failed to remove replaced avatar")
		}
	}
	return profile, nil
}

// avatarKeyOf extracts the object key from a stored avatar URL. The
// public URL may or may not carry the bucket as a path segment.
func avatarKeyOf(avatarURL, bucket string) (string, bool) {
	if avatarURL == "" {
		return "", false
	}
	trimmed := strings.SplitN(avatarURL, "://", 2)
	path := trimmed[len(trimmed)-1]
	segments := strings.Split(path, "/")
	if len(segments) < 2 {
		return "", false
	}
	// Drop the host
	segments = segments[1:]
	if segments[0] == bucket {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", false
	}
	return strings.Join(segments, "/"), true
}
