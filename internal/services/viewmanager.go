package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/realtime"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// ViewManager owns the open chat views, one per chat, and keeps the
// push router's current-chat in step with them.
type ViewManager struct {
	messages *MessageService
	feed     *realtime.Feed
	resolver func() *MediaResolver
	router   *PushRouter
	log      zerolog.Logger

	mu    sync.Mutex
	views map[string]*ChatView
}

func NewViewManager(messages *MessageService, feed *realtime.Feed, resolver func() *MediaResolver, router *PushRouter) *ViewManager {
	return &ViewManager{
		messages: messages,
		feed:     feed,
		resolver: resolver,
		router:   router,
		log:      logger.With("viewmanager"),
		views:    make(map[string]*ChatView),
	}
}

// Open returns the chat's view, creating and loading it on first
// open. The chat becomes the current chat either way, so its pushes
// stop displaying. A failed initial load still returns the view; the
// caller can Retry on it.
func (m *ViewManager) Open(ctx context.Context, chatID string) (*ChatView, error) {
	m.mu.Lock()
	view, ok := m.views[chatID]
	if !ok {
		view = NewChatView(chatID, m.messages, m.feed, m.resolver())
		m.views[chatID] = view
	}
	m.mu.Unlock()

	m.router.SetCurrentChat(chatID)
	if ok {
		return view, nil
	}
	if err := view.Open(ctx); err != nil {
		m.log.Error().Err(err).Str("chatId", chatID).Msg("initial load failed")
		return view, err
	}
	return view, nil
}

// Get returns the open view for a chat, or nil.
func (m *ViewManager) Get(chatID string) *ChatView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views[chatID]
}

// Close tears down the chat's view and, when it was the current chat,
// lets its pushes display again.
func (m *ViewManager) Close(chatID string) {
	m.mu.Lock()
	view, ok := m.views[chatID]
	delete(m.views, chatID)
	m.mu.Unlock()

	if ok {
		view.Close()
	}
	m.router.ClearCurrentChat(chatID)
}

// CloseAll tears down every open view, for daemon shutdown.
func (m *ViewManager) CloseAll() {
	m.mu.Lock()
	views := make([]*ChatView, 0, len(m.views))
	for _, view := range m.views {
		views = append(views, view)
	}
	m.views = make(map[string]*ChatView)
	m.mu.Unlock()

	for _, view := range views {
		view.Close()
		m.router.ClearCurrentChat(view.ChatID())
	}
}
