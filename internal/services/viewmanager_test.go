package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Raed-Bourouis/VoiceUP/internal/store"
)

func setupViewManager(t *testing.T, h *viewHarness) (*ViewManager, *PushRouter) {
	t.Helper()
	router := NewPushRouter(staticUser("alice"), store.NewDeviceStore(h.db))
	resolver := func() *MediaResolver {
		return NewMediaResolver(h.presigner, "chat-media", "avatars")
	}
	manager := NewViewManager(h.alice, h.feed, resolver, router)
	t.Cleanup(manager.CloseAll)
	return manager, router
}

func TestViewManagerOpenTracksCurrentChat(t *testing.T) {
	h := newViewHarness(t)
	h.seedMessages(t, 2)
	manager, router := setupViewManager(t, h)

	view, err := manager.Open(context.Background(), h.chat.ID)
	assert.NoError(t, err)
	assert.NotNil(t, view)

	// An open chat suppresses its own pushes
	assert.Equal(t, h.chat.ID, router.CurrentChat())
	assert.False(t, router.ShouldDisplay(h.chat.ID))
	assert.True(t, router.ShouldDisplay("other-chat"))

	snapshot := waitUpdate(t, view, UpdateSnapshot)
	assert.Len(t, snapshot.Messages, 2)
}

func TestViewManagerReusesOpenView(t *testing.T) {
	h := newViewHarness(t)
	manager, _ := setupViewManager(t, h)

	first, err := manager.Open(context.Background(), h.chat.ID)
	assert.NoError(t, err)
	second, err := manager.Open(context.Background(), h.chat.ID)
	assert.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, manager.Get(h.chat.ID))
}

func TestViewManagerCloseRestoresPushes(t *testing.T) {
	h := newViewHarness(t)
	manager, router := setupViewManager(t, h)

	view, err := manager.Open(context.Background(), h.chat.ID)
	assert.NoError(t, err)

	manager.Close(h.chat.ID)
	assert.Nil(t, manager.Get(h.chat.ID))
	assert.Equal(t, "", router.CurrentChat())
	assert.True(t, router.ShouldDisplay(h.chat.ID))

	// The closed view's channel drained shut
	for range view.Updates() {
	}
}

func TestViewManagerSwitchKeepsLatestCurrent(t *testing.T) {
	h := newViewHarness(t)
	manager, router := setupViewManager(t, h)

	chats := store.NewChatStore(h.db)
	other, err := NewChatService(staticUser("alice"), chats).CreateGroupChat(context.Background(), "team", "", []string{"bob"})
	assert.NoError(t, err)

	_, err = manager.Open(context.Background(), h.chat.ID)
	assert.NoError(t, err)
	_, err = manager.Open(context.Background(), other.ID)
	assert.NoError(t, err)
	assert.Equal(t, other.ID, router.CurrentChat())

	// Closing the chat left behind must not clobber the one on screen
	manager.Close(h.chat.ID)
	assert.Equal(t, other.ID, router.CurrentChat())

	manager.Close(other.ID)
	assert.Equal(t, "", router.CurrentChat())
}

func TestViewManagerCloseAll(t *testing.T) {
	h := newViewHarness(t)
	manager, router := setupViewManager(t, h)

	view, err := manager.Open(context.Background(), h.chat.ID)
	assert.NoError(t, err)

	manager.CloseAll()
	assert.Nil(t, manager.Get(h.chat.ID))
	assert.Equal(t, "", router.CurrentChat())
	assert.Equal(t, ViewClosed, view.Snapshot().State)
}
