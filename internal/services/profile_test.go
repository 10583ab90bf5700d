package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
)

func setupProfileTest(t *testing.T) (*ProfileService, *fakeUploader) {
	t.Helper()
	db := setupTestDB(t)
	createProfile(t, db, "alice", "alice")
	createProfile(t, db, "bob", "bob")

	uploader := newFakeUploader()
	return NewProfileService(staticUser("alice"), store.NewProfileStore(db), uploader), uploader
}

func TestMeReturnsOwnProfile(t *testing.T) {
	svc, _ := setupProfileTest(t)

	profile, err := svc.Me(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "alice", profile.ID)
}

func TestGetUnknownProfile(t *testing.T) {
	svc, _ := setupProfileTest(t)

	_, err := svc.Get(context.Background(), "nobody")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestUpdateValidatesFields(t *testing.T) {
	svc, _ := setupProfileTest(t)

	_, err := svc.Update(context.Background(), "a!", "Alice", "hi")
	assert.True(t, errors.IsKind(err, errors.KindInvalid))

	_, err = svc.Update(context.Background(), "alice_v2", "   ", "hi")
	assert.True(t, errors.IsKind(err, errors.KindInvalid))

	profile, err := svc.Update(context.Background(), "alice_v2", "  Alice A.  ", "hello there")
	assert.NoError(t, err)
	assert.Equal(t, "alice_v2", profile.Username)
	assert.Equal(t, "Alice A.", profile.Name)
	assert.Equal(t, "hello there", profile.Bio)
}

func TestUpdateCapsBioLength(t *testing.T) {
	svc, _ := setupProfileTest(t)

	long := strings.Repeat("x", 400)
	profile, err := svc.Update(context.Background(), "alice", "Alice", long)
	assert.NoError(t, err)
	assert.Len(t, profile.Bio, maxBioLength)
}

func TestUploadAvatarReplacesPrevious(t *testing.T) {
	svc, uploader := setupProfileTest(t)

	first, err := svc.UploadAvatar(context.Background(), "me.png", strings.NewReader("pngdata"), "image/png")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.AvatarURL, "https://storage.test/avatars/alice/"))
	assert.True(t, strings.HasSuffix(first.AvatarURL, ".png"))
	assert.Empty(t, uploader.removed)

	second, err := svc.UploadAvatar(context.Background(), "me2.jpg", strings.NewReader("jpegdata"), "image/jpeg")
	assert.NoError(t, err)
	assert.NotEqual(t, first.AvatarURL, second.AvatarURL)

	// The replaced object was cleaned out of the bucket
	assert.Len(t, uploader.removed, 1)
	assert.True(t, strings.HasPrefix(uploader.removed[0], "avatars/alice/"))
}

func TestProfileOperationsRequireSession(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProfileService(noUser{}, store.NewProfileStore(db), newFakeUploader())

	_, err := svc.Me(context.Background())
	assert.True(t, errors.IsKind(err, errors.KindNoSession))
}
