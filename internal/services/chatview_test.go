package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/realtime"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
)

// viewHarness runs the whole sync path for one direct chat: real
// stores on SQLite, a real change feed on miniredis, fakes only at the
// storage edge.
type viewHarness struct {
	db        *gorm.DB
	rdb       *redis.Client
	feed      *realtime.Feed
	presigner *fakePresigner
	uploader  *fakeUploader
	chat      *models.Chat
	alice     *MessageService
	bob       *MessageService
}

func newViewHarness(t *testing.T) *viewHarness {
	t.Helper()
	db := setupTestDB(t)
	createProfile(t, db, "alice", "alice")
	createProfile(t, db, "bob", "bob")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	feed := realtime.NewFeed(rdb)

	chats := store.NewChatStore(db)
	messages := store.NewMessageStore(db)
	chat, err := NewChatService(staticUser("alice"), chats).CreateDirectChat(context.Background(), "bob")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	uploader := newFakeUploader()
	return &viewHarness{
		db:        db,
		rdb:       rdb,
		feed:      feed,
		presigner: &fakePresigner{},
		uploader:  uploader,
		chat:      chat,
		alice:     NewMessageService(staticUser("alice"), messages, chats, feed, uploader),
		bob:       NewMessageService(staticUser("bob"), messages, chats, feed, uploader),
	}
}

func (h *viewHarness) newView() *ChatView {
	resolver := NewMediaResolver(h.presigner, "chat-media", "avatars")
	return NewChatView(h.chat.ID, h.alice, h.feed, resolver)
}

func (h *viewHarness) openView(t *testing.T) *ChatView {
	t.Helper()
	view := h.newView()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open view: %v", err)
	}
	t.Cleanup(view.Close)
	h.waitForSubscriber(t)
	return view
}

// waitForSubscriber publishes garbage until the broker reports a
// receiver. The payload never decodes, so no event leaks into the
// view.
func (h *viewHarness) waitForSubscriber(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := h.rdb.Publish(context.Background(), "chat:feed:"+h.chat.ID, "not json").Result()
		if err == nil && n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no feed subscriber registered in time")
}

func (h *viewHarness) seedMessages(t *testing.T, n int) []models.Message {
	t.Helper()
	base := time.Now().Add(-time.Hour).UTC()
	seeded := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		message := models.Message{
			ChatID:    h.chat.ID,
			SenderID:  "bob",
			Type:      models.MessageText,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := h.db.Create(&message).Error; err != nil {
			t.Fatalf("seed message %d: %v", i, err)
		}
		seeded = append(seeded, message)
	}
	return seeded
}

func waitUpdate(t *testing.T, view *ChatView, kind UpdateKind) ViewUpdate {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case update, ok := <-view.Updates():
			if !ok {
				t.Fatalf("updates channel closed while waiting for %q", kind)
			}
			if update.Kind == kind {
				return update
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q update", kind)
		}
	}
}

func assertNoUpdate(t *testing.T, view *ChatView, wait time.Duration) {
	t.Helper()
	select {
	case update, ok := <-view.Updates():
		if ok {
			t.Fatalf("unexpected %q update", update.Kind)
		}
	case <-time.After(wait):
	}
}

func TestChatViewInitialLoad(t *testing.T) {
	h := newViewHarness(t)
	h.seedMessages(t, 5)

	view := h.openView(t)
	snapshot := waitUpdate(t, view, UpdateSnapshot)

	assert.Equal(t, ViewReady, snapshot.State)
	assert.False(t, snapshot.HasMore)
	assert.Len(t, snapshot.Messages, 5)
	assert.Equal(t, "message 0", snapshot.Messages[0].Content)
	assert.Equal(t, "message 4", snapshot.Messages[4].Content)
}

func TestChatViewLoadOlder(t *testing.T) {
	h := newViewHarness(t)
	h.seedMessages(t, 35)

	view := h.openView(t)
	snapshot := waitUpdate(t, view, UpdateSnapshot)
	assert.True(t, snapshot.HasMore)
	assert.Len(t, snapshot.Messages, 30)
	assert.Equal(t, "message 5", snapshot.Messages[0].Content)

	assert.NoError(t, view.LoadOlder(context.Background()))
	snapshot = waitUpdate(t, view, UpdateSnapshot)
	assert.False(t, snapshot.HasMore)
	assert.Len(t, snapshot.Messages, 35)
	assert.Equal(t, "message 0", snapshot.Messages[0].Content)
	assert.Equal(t, "message 34", snapshot.Messages[34].Content)

	seen := map[string]bool{}
	for _, message := range snapshot.Messages {
		assert.False(t, seen[message.ID], "message %s delivered twice", message.ID)
		seen[message.ID] = true
	}

	// Exhausted history makes further loads a no-op
	assert.NoError(t, view.LoadOlder(context.Background()))
	assertNoUpdate(t, view, 100*time.Millisecond)
	assert.Len(t, view.Snapshot().Messages, 35)
}

func TestChatViewLiveAppend(t *testing.T) {
	h := newViewHarness(t)
	h.seedMessages(t, 2)

	view := h.openView(t)
	waitUpdate(t, view, UpdateSnapshot)

	sent, err := h.bob.SendText(context.Background(), h.chat.ID, "heads up")
	assert.NoError(t, err)

	update := waitUpdate(t, view, UpdateAppend)
	assert.Equal(t, sent.ID, update.Message.ID)
	assert.Equal(t, "heads up", update.Message.Content)
	assert.Equal(t, "bob", update.Message.SenderID)

	snapshot := view.Snapshot()
	assert.Len(t, snapshot.Messages, 3)
	assert.Equal(t, sent.ID, snapshot.Messages[2].ID)
}

func TestChatViewOwnSendArrivesOnce(t *testing.T) {
	h := newViewHarness(t)

	view := h.openView(t)
	waitUpdate(t, view, UpdateSnapshot)

	// No optimistic echo: the sender's view appends via the feed like
	// everyone else's, exactly once
	sent, err := h.alice.SendText(context.Background(), h.chat.ID, "from me")
	assert.NoError(t, err)

	update := waitUpdate(t, view, UpdateAppend)
	assert.Equal(t, sent.ID, update.Message.ID)

	assertNoUpdate(t, view, 150*time.Millisecond)
	assert.Len(t, view.Snapshot().Messages, 1)
}

func TestChatViewDeletePropagates(t *testing.T) {
	h := newViewHarness(t)
	seeded := h.seedMessages(t, 3)

	view := h.openView(t)
	waitUpdate(t, view, UpdateSnapshot)

	assert.NoError(t, h.bob.DeleteMessage(context.Background(), seeded[1].ID))

	update := waitUpdate(t, view, UpdateChange)
	assert.Equal(t, seeded[1].ID, update.Message.ID)
	assert.True(t, update.Message.IsDeleted)

	snapshot := view.Snapshot()
	assert.Len(t, snapshot.Messages, 3)
	assert.True(t, snapshot.Messages[1].IsDeleted)
}

func TestChatViewResolvesMediaPerView(t *testing.T) {
	h := newViewHarness(t)

	view := h.openView(t)
	waitUpdate(t, view, UpdateSnapshot)

	sent, err := h.bob.SendPhoto(context.Background(), h.chat.ID, "pic.jpg", strings.NewReader("jpegdata"), "image/jpeg")
	assert.NoError(t, err)
	assert.NotContains(t, sent.Content, "signature=")

	// The live event carries a freshly signed URL
	update := waitUpdate(t, view, UpdateAppend)
	assert.Contains(t, update.Message.ResolvedURL, "signature=")
	assert.Equal(t, sent.Content, update.Message.Content)
	assert.Equal(t, 1, h.presigner.callCount())

	// A second view signs again with its own cache
	view.Close()
	reopened := h.newView()
	assert.NoError(t, reopened.Open(context.Background()))
	t.Cleanup(reopened.Close)

	snapshot := waitUpdate(t, reopened, UpdateSnapshot)
	assert.Len(t, snapshot.Messages, 1)
	assert.Contains(t, snapshot.Messages[0].ResolvedURL, "signature=")
	assert.Equal(t, 2, h.presigner.callCount())
}

func TestChatViewDropsEventsAfterClose(t *testing.T) {
	h := newViewHarness(t)
	h.seedMessages(t, 1)

	view := h.openView(t)
	waitUpdate(t, view, UpdateSnapshot)

	view.Close()
	assert.Equal(t, ViewClosed, view.Snapshot().State)

	_, err := h.bob.SendText(context.Background(), h.chat.ID, "too late")
	assert.NoError(t, err)

	// The channel drains to closed with no append in it
	for update := range view.Updates() {
		assert.NotEqual(t, UpdateAppend, update.Kind)
	}

	// Closing again is harmless
	view.Close()
}

func TestChatViewRetryAfterFailedLoad(t *testing.T) {
	h := newViewHarness(t)

	// Break the messages table so the initial load fails
	assert.NoError(t, h.db.Migrator().DropTable(&models.Message{}))

	view := h.newView()
	err := view.Open(context.Background())
	assert.Error(t, err)
	t.Cleanup(view.Close)

	failure := waitUpdate(t, view, UpdateFailure)
	assert.Equal(t, ViewError, failure.State)
	assert.NotEmpty(t, failure.Error)
	assert.Equal(t, ViewError, view.Snapshot().State)

	// Heal the table and retry the interrupted load
	assert.NoError(t, h.db.AutoMigrate(&models.Message{}))
	h.seedMessages(t, 2)

	assert.NoError(t, view.Retry(context.Background()))
	snapshot := waitUpdate(t, view, UpdateSnapshot)
	assert.Equal(t, ViewReady, snapshot.State)
	assert.Len(t, snapshot.Messages, 2)
}

func TestChatViewOpenTwice(t *testing.T) {
	h := newViewHarness(t)
	h.seedMessages(t, 1)

	view := h.openView(t)
	waitUpdate(t, view, UpdateSnapshot)

	// A second open must not resubscribe or reload
	assert.NoError(t, view.Open(context.Background()))
	assertNoUpdate(t, view, 100*time.Millisecond)
}
