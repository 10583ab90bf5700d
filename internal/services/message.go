package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/metrics"
	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// messagePageSize is how many messages one page fetch returns.
const messagePageSize = 30

// FeedPublisher announces message writes on the realtime change feed.
type FeedPublisher interface {
	PublishInsert(ctx context.Context, message *models.Message) error
	PublishUpdate(ctx context.Context, message *models.Message) error
}

// MediaUploader puts chat media into the private bucket.
type MediaUploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	MediaBucket() string
}

// MessageService implements sending, paging and read tracking.
type MessageService struct {
	auth     CurrentUser
	messages *store.MessageStore
	chats    *store.ChatStore
	feed     FeedPublisher
	media    MediaUploader
	log      zerolog.Logger
}

func NewMessageService(auth CurrentUser, messages *store.MessageStore, chats *store.ChatStore, feed FeedPublisher, media MediaUploader) *MessageService {
	return &MessageService{
		auth:     auth,
		messages: messages,
		chats:    chats,
		feed:     feed,
		media:    media,
		log:      logger.With("messageservice"),
	}
}

// SendText inserts a text message. There is no optimistic echo: the
// sender's open view appends the message when it arrives back on the
// change feed, same as everyone else's.
func (s *MessageService) SendText(ctx context.Context, chatID, text string) (*models.Message, error) {
	const op = "MessageService.SendText"

	if strings.TrimSpace(text) == "" {
		return nil, errors.Invalid(op, "message text is empty")
	}
	return s.send(ctx, op, chatID, models.MessageText, text)
}

// SendPhoto uploads the image first and only inserts the message once
// the upload succeeded. An upload failure aborts the send.
func (s *MessageService) SendPhoto(ctx context.Context, chatID, filename string, data io.Reader, contentType string) (*models.Message, error) {
	const op = "MessageService.SendPhoto"
	return s.sendMedia(ctx, op, chatID, models.MessageImage, filename, data, contentType)
}

// SendVoice uploads the recording first; an upload failure aborts the
// send.
func (s *MessageService) SendVoice(ctx context.Context, chatID, filename string, data io.Reader, contentType string) (*models.Message, error) {
	const op = "MessageService.SendVoice"
	return s.sendMedia(ctx, op, chatID, models.MessageVoice, filename, data, contentType)
}

func (s *MessageService) sendMedia(ctx context.Context, op, chatID string, messageType models.MessageType, filename string, data io.Reader, contentType string) (*models.Message, error) {
	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, op, chatID, me); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("chats/%s/%s%s", chatID, uuid.New().String(), filepath.Ext(filename))
	storedURL, err := s.media.Upload(ctx, s.media.MediaBucket(), key, data, contentType)
	if err != nil {
		return nil, errors.Storage(op, err)
	}

	return s.insert(ctx, op, chatID, me, messageType, storedURL)
}

func (s *MessageService) send(ctx context.Context, op, chatID string, messageType models.MessageType, content string) (*models.Message, error) {
	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, op, chatID, me); err != nil {
		return nil, err
	}
	return s.insert(ctx, op, chatID, me, messageType, content)
}

func (s *MessageService) insert(ctx context.Context, op, chatID, senderID string, messageType models.MessageType, content string) (*models.Message, error) {
	message := models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Type:     messageType,
		Content:  content,
	}
	if err := s.messages.Insert(ctx, &message); err != nil {
		return nil, errors.Query(op, err)
	}

	// The chat surfaces in everyone's list regardless of what the
	// message was
	if err := s.chats.Touch(ctx, chatID, message.CreatedAt); err != nil {
		return nil, errors.Query(op, err)
	}

	if err := s.feed.PublishInsert(ctx, &message); err != nil {
		// The write landed; open views just will not see it until a
		// reload
		s.log.Warn().Err(err).Str("messageId", message.ID).Msg("change feed publish failed")
	}

	metrics.MessagesSent.WithLabelValues(string(messageType)).Inc()
	return &message, nil
}

// GetMessages returns one page, oldest first, and whether more pages
// remain. A nil before means the newest page; otherwise the page holds
// messages created strictly before the cursor.
func (s *MessageService) GetMessages(ctx context.Context, chatID string, limit int, before *time.Time) ([]models.Message, bool, error) {
	const op = "MessageService.GetMessages"

	if _, err := s.auth.CurrentUserID(); err != nil {
		return nil, false, err
	}
	if limit <= 0 {
		limit = messagePageSize
	}

	page, err := s.messages.PageDesc(ctx, chatID, limit, before)
	if err != nil {
		return nil, false, errors.Query(op, err)
	}

	// A full page means there may be more history; an exact boundary
	// costs one empty fetch, which is fine
	hasMore := len(page) == limit

	// Fetched newest-first, shown oldest-first
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, hasMore, nil
}

// MarkAsRead is two sequential writes with no transaction: first the
// member's watermark advances, then read rows are written for the
// other senders' messages. A failure in the second step propagates and
// does not undo the first.
func (s *MessageService) MarkAsRead(ctx context.Context, chatID string) error {
	const op = "MessageService.MarkAsRead"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}

	if err := s.chats.SetLastRead(ctx, chatID, me, time.Now()); err != nil {
		return errors.Query(op, err)
	}

	if _, err := s.messages.MarkOthersRead(ctx, chatID, me); err != nil {
		return errors.Query(op, err)
	}
	return nil
}

// GetUnreadCount counts other senders' messages newer than the
// caller's watermark. Without a participant row the answer is 0.
func (s *MessageService) GetUnreadCount(ctx context.Context, chatID string) (int64, error) {
	const op = "MessageService.GetUnreadCount"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return 0, err
	}

	participant, err := s.chats.GetParticipant(ctx, chatID, me)
	if err != nil {
		return 0, errors.Query(op, err)
	}
	if participant == nil {
		return 0, nil
	}

	count, err := s.messages.CountUnread(ctx, chatID, me, participant.LastReadAt)
	if err != nil {
		return 0, errors.Query(op, err)
	}
	return count, nil
}

// DeleteMessage tombstones the caller's own message and announces the
// change on the feed.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID string) error {
	const op = "MessageService.DeleteMessage"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}

	ok, err := s.messages.SoftDelete(ctx, messageID, me)
	if err != nil {
		return errors.Query(op, err)
	}
	if !ok {
		return errors.NotFound(op, "message not found")
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return errors.Query(op, err)
	}
	if err := s.feed.PublishUpdate(ctx, message); err != nil {
		s.log.Warn().Err(err).Str("messageId", messageID).Msg("change feed publish failed")
	}
	return nil
}

func (s *MessageService) requireMembership(ctx context.Context, op, chatID, userID string) error {
	participant, err := s.chats.GetParticipant(ctx, chatID, userID)
	if err != nil {
		return errors.Query(op, err)
	}
	if participant == nil {
		return errors.Forbidden(op, "not a member of this chat")
	}
	return nil
}
