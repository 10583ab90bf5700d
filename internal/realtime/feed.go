package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/metrics"
	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// EventType marks what happened to the row carried by an envelope.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// Envelope is the wire form published on a chat's feed channel. Every
// client publishes one after each message write; the broker fans it
// out to whoever has the chat open.
type Envelope struct {
	Type    EventType       `json:"type"`
	ChatID  string          `json:"chatId"`
	Message json.RawMessage `json:"message"`
}

// Event is a decoded change delivered to a subscriber.
type Event struct {
	Type    EventType
	Message models.Message
}

// Feed is the client's handle on the realtime change feed.
type Feed struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{
		rdb: rdb,
		log: logger.With("realtime"),
	}
}

func channelFor(chatID string) string {
	return "chat:feed:" + chatID
}

// PublishInsert announces a freshly inserted message.
func (f *Feed) PublishInsert(ctx context.Context, message *models.Message) error {
	return f.publish(ctx, EventInsert, message)
}

// PublishUpdate announces a changed message, deletion included.
func (f *Feed) PublishUpdate(ctx context.Context, message *models.Message) error {
	return f.publish(ctx, EventUpdate, message)
}

func (f *Feed) publish(ctx context.Context, eventType EventType, message *models.Message) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("realtime.publish: marshal message: %w", err)
	}
	payload, err := json.Marshal(Envelope{
		Type:    eventType,
		ChatID:  message.ChatID,
		Message: raw,
	})
	if err != nil {
		return fmt.Errorf("realtime.publish: marshal envelope: %w", err)
	}
	if err := f.rdb.Publish(ctx, channelFor(message.ChatID), payload).Err(); err != nil {
		return fmt.Errorf("realtime.publish: %w", err)
	}
	return nil
}

// Subscribe opens a cancellable subscription to one chat's feed.
// Events arrive on Events() in publish order; Close tears the
// subscription down and closes the channel.
func (f *Feed) Subscribe(ctx context.Context, chatID string) *Subscription {
	pubsub := f.rdb.Subscribe(ctx, channelFor(chatID))
	sub := &Subscription{
		chatID: chatID,
		pubsub: pubsub,
		events: make(chan Event, 64),
		log:    f.log,
	}
	go sub.pump()
	return sub
}

// Subscription is one chat's live event stream.
type Subscription struct {
	chatID    string
	pubsub    *redis.PubSub
	events    chan Event
	log       zerolog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Events yields decoded changes. The channel closes after Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close cancels the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

// pump decodes envelopes off the broker. Malformed payloads are
// dropped, never surfaced: a bad publisher must not wedge the stream.
func (s *Subscription) pump() {
	defer close(s.events)
	for raw := range s.pubsub.Channel() {
		event, ok := s.decode(raw.Payload)
		if !ok {
			continue
		}
		select {
		case s.events <- event:
		default:
			metrics.RealtimeDropped.Inc()
			s.log.Warn().Str("chatId", s.chatID).Msg("subscriber lagging, dropping event")
		}
	}
}

func (s *Subscription) decode(payload string) (Event, bool) {
	var envelope Envelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		metrics.RealtimeDropped.Inc()
		s.log.Warn().Str("chatId", s.chatID).Err(err).Msg("dropping malformed envelope")
		return Event{}, false
	}
	if envelope.Type != EventInsert && envelope.Type != EventUpdate {
		metrics.RealtimeDropped.Inc()
		s.log.Warn().Str("chatId", s.chatID).Str("type", string(envelope.Type)).Msg("dropping envelope with unknown type")
		return Event{}, false
	}

	var message models.Message
	if err := json.Unmarshal(envelope.Message, &message); err != nil {
		metrics.RealtimeDropped.Inc()
		s.log.Warn().Str("chatId", s.chatID).Err(err).Msg("dropping undecodable message payload")
		return Event{}, false
	}
	if message.ID == "" || message.ChatID == "" {
		metrics.RealtimeDropped.Inc()
		s.log.Warn().Str("chatId", s.chatID).Msg("dropping message payload missing ids")
		return Event{}, false
	}

	return Event{Type: envelope.Type, Message: message}, true
}
