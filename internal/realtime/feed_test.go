package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("production")
	os.Exit(m.Run())
}

func newTestFeed(t *testing.T) (*Feed, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewFeed(rdb), rdb
}

// waitForSubscriber publishes undecodable garbage until the broker
// reports a receiver. The garbage is dropped by the decoder, so the
// probe leaves no events behind.
func waitForSubscriber(t *testing.T, rdb *redis.Client, chatID string) {
	t.Helper()
	ctx := context.Background()
	assert.Eventually(t, func() bool {
		n, err := rdb.Publish(ctx, "chat:feed:"+chatID, "not json").Result()
		return err == nil && n > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func receiveEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestFeedPublishSubscribe(t *testing.T) {
	feed, rdb := newTestFeed(t)
	ctx := context.Background()

	sub := feed.Subscribe(ctx, "chat1")
	defer sub.Close()
	waitForSubscriber(t, rdb, "chat1")

	message := models.Message{
		ID:       "m1",
		ChatID:   "chat1",
		SenderID: "u1",
		Type:     models.MessageText,
		Content:  "hello",
	}
	assert.NoError(t, feed.PublishInsert(ctx, &message))

	event := receiveEvent(t, sub)
	assert.Equal(t, EventInsert, event.Type)
	assert.Equal(t, "m1", event.Message.ID)
	assert.Equal(t, "hello", event.Message.Content)
}

func TestFeedDropsMalformedPayloads(t *testing.T) {
	feed, rdb := newTestFeed(t)
	ctx := context.Background()

	sub := feed.Subscribe(ctx, "chat1")
	defer sub.Close()
	waitForSubscriber(t, rdb, "chat1")

	// Valid JSON but missing ids, unknown type, and raw garbage: all
	// must be dropped without killing the stream
	rdb.Publish(ctx, "chat:feed:chat1", `{"type":"INSERT","chatId":"chat1","message":{}}`)
	rdb.Publish(ctx, "chat:feed:chat1", `{"type":"EXPLODE","chatId":"chat1","message":{"id":"x","chatId":"chat1"}}`)
	rdb.Publish(ctx, "chat:feed:chat1", `{{{`)

	message := models.Message{ID: "m2", ChatID: "chat1", SenderID: "u1", Type: models.MessageText, Content: "still alive"}
	assert.NoError(t, feed.PublishInsert(ctx, &message))

	event := receiveEvent(t, sub)
	assert.Equal(t, "m2", event.Message.ID)

	// Nothing else was let through
	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected extra event: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFeedUpdateEvents(t *testing.T) {
	feed, rdb := newTestFeed(t)
	ctx := context.Background()

	sub := feed.Subscribe(ctx, "chat1")
	defer sub.Close()
	waitForSubscriber(t, rdb, "chat1")

	message := models.Message{ID: "m1", ChatID: "chat1", SenderID: "u1", Type: models.MessageText, Content: "bye", IsDeleted: true}
	assert.NoError(t, feed.PublishUpdate(ctx, &message))

	event := receiveEvent(t, sub)
	assert.Equal(t, EventUpdate, event.Type)
	assert.True(t, event.Message.IsDeleted)
}

func TestFeedCloseEndsStream(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx := context.Background()

	sub := feed.Subscribe(ctx, "chat1")
	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}
