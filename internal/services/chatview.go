package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/metrics"
	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/realtime"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// ViewState is where a chat view is in its lifecycle.
type ViewState string

const (
	ViewIdle           ViewState = "idle"
	ViewLoadingInitial ViewState = "loadingInitial"
	ViewReady          ViewState = "ready"
	ViewLoadingMore    ViewState = "loadingMore"
	ViewError          ViewState = "error"
	ViewClosed         ViewState = "closed"
)

// UpdateKind says what a ViewUpdate carries.
type UpdateKind string

const (
	// UpdateSnapshot replaces the UI's whole message list.
	UpdateSnapshot UpdateKind = "snapshot"
	// UpdateAppend adds one new message at the bottom.
	UpdateAppend UpdateKind = "append"
	// UpdateChange replaces one message in place.
	UpdateChange UpdateKind = "change"
	// UpdateFailure reports a failed load; Retry resumes it.
	UpdateFailure UpdateKind = "failure"
)

// ViewUpdate is what the gateway forwards to the UI shell.
type ViewUpdate struct {
	Kind     UpdateKind       `json:"kind"`
	State    ViewState        `json:"state"`
	ChatID   string           `json:"chatId"`
	Messages []models.Message `json:"messages,omitempty"`
	Message  *models.Message  `json:"message,omitempty"`
	HasMore  bool             `json:"hasMore"`
	Error    string           `json:"error,omitempty"`
}

// pendingCap bounds how many realtime events a loading view will hold
// back before it starts dropping them.
const pendingCap = 256

// ChatView holds one open chat's message window: an initial page,
// older pages prepended on demand, and live events appended as they
// arrive. All state changes happen under one mutex; consumers see
// ordered ViewUpdates on Updates().
type ChatView struct {
	chatID   string
	pageSize int
	svc      *MessageService
	feed     *realtime.Feed
	resolver *MediaResolver
	log      zerolog.Logger

	mu         sync.Mutex
	state      ViewState
	messages   []models.Message
	ids        map[string]bool
	hasMore    bool
	closed     bool
	started    bool
	retryOlder bool
	pending    []realtime.Event
	sub        *realtime.Subscription

	pumpDone chan struct{}
	updates  chan ViewUpdate
}

func NewChatView(chatID string, svc *MessageService, feed *realtime.Feed, resolver *MediaResolver) *ChatView {
	return &ChatView{
		chatID:   chatID,
		pageSize: messagePageSize,
		svc:      svc,
		feed:     feed,
		resolver: resolver,
		log:      logger.With("chatview").With().Str("chatId", chatID).Logger(),
		state:    ViewIdle,
		ids:      make(map[string]bool),
		pumpDone: make(chan struct{}),
		updates:  make(chan ViewUpdate, 128),
	}
}

// Updates yields ordered view updates. The channel closes after
// Close.
func (v *ChatView) Updates() <-chan ViewUpdate {
	return v.updates
}

// ChatID names the chat this view renders.
func (v *ChatView) ChatID() string {
	return v.chatID
}

// Open subscribes to the chat's change feed and loads the newest
// page. Calling it twice is a no-op.
func (v *ChatView) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.closed || v.started {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	sub := v.feed.Subscribe(ctx, v.chatID)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		sub.Close()
		return nil
	}
	v.sub = sub
	v.started = true
	v.mu.Unlock()

	go v.pump()
	return v.LoadInitial(ctx)
}

// LoadInitial fetches the newest page and replaces the window with it.
// Events that arrived while loading are applied right after the
// snapshot, in arrival order.
func (v *ChatView) LoadInitial(ctx context.Context) error {
	v.mu.Lock()
	if v.closed || v.state == ViewLoadingInitial || v.state == ViewLoadingMore {
		v.mu.Unlock()
		return nil
	}
	v.state = ViewLoadingInitial
	v.mu.Unlock()

	page, hasMore, err := v.svc.GetMessages(ctx, v.chatID, v.pageSize, nil)
	if err != nil {
		v.fail(err, false)
		return err
	}
	v.resolvePage(ctx, page)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		// Late result for a view that is gone
		return nil
	}

	v.messages = page
	v.ids = make(map[string]bool, len(page))
	for _, m := range page {
		v.ids[m.ID] = true
	}
	v.hasMore = hasMore
	v.state = ViewReady
	v.pushLocked(v.snapshotLocked())
	v.drainPendingLocked()
	return nil
}

// LoadOlder prepends the page before the oldest loaded message. While
// a load is running, or when no more history exists, it is a no-op.
func (v *ChatView) LoadOlder(ctx context.Context) error {
	v.mu.Lock()
	if v.closed || v.state != ViewReady || !v.hasMore || len(v.messages) == 0 {
		v.mu.Unlock()
		return nil
	}
	cursor := v.messages[0].CreatedAt
	v.state = ViewLoadingMore
	v.mu.Unlock()

	page, hasMore, err := v.svc.GetMessages(ctx, v.chatID, v.pageSize, &cursor)
	if err != nil {
		v.fail(err, true)
		return err
	}
	v.resolvePage(ctx, page)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}

	fresh := page[:0]
	for _, m := range page {
		if v.ids[m.ID] {
			continue
		}
		v.ids[m.ID] = true
		fresh = append(fresh, m)
	}
	v.messages = append(fresh, v.messages...)
	v.hasMore = hasMore
	v.state = ViewReady
	v.pushLocked(v.snapshotLocked())
	return nil
}

// Retry resumes whichever load failed.
func (v *ChatView) Retry(ctx context.Context) error {
	v.mu.Lock()
	if v.closed || v.state != ViewError {
		v.mu.Unlock()
		return nil
	}
	older := v.retryOlder
	if older {
		// LoadOlder only runs from ready
		v.state = ViewReady
	}
	v.mu.Unlock()

	if older {
		return v.LoadOlder(ctx)
	}
	return v.LoadInitial(ctx)
}

// Snapshot returns the current window, for a UI that just
// (re)connected.
func (v *ChatView) Snapshot() ViewUpdate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Close tears the view down. In-flight loads and events still finish
// but their results are discarded.
func (v *ChatView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.state = ViewClosed
	started := v.started
	sub := v.sub
	v.mu.Unlock()

	if started {
		sub.Close()
		<-v.pumpDone
	}

	v.mu.Lock()
	close(v.updates)
	v.mu.Unlock()
}

// pump applies change-feed events. While a load is replacing the
// window the events wait in a bounded buffer, so the snapshot and the
// live tail keep their order.
func (v *ChatView) pump() {
	defer close(v.pumpDone)
	for event := range v.sub.Events() {
		metrics.RealtimeEvents.Inc()
		v.resolveMessage(context.Background(), &event.Message)

		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return
		}
		if v.state != ViewReady && v.state != ViewLoadingMore {
			if len(v.pending) < pendingCap {
				v.pending = append(v.pending, event)
			} else {
				metrics.RealtimeDropped.Inc()
				v.log.Warn().Msg("pending buffer full, dropping event")
			}
			v.mu.Unlock()
			continue
		}
		v.applyLocked(event)
		v.mu.Unlock()
	}
}

// applyLocked folds one event into the window. Inserts append in
// arrival order; the window is never re-sorted.
func (v *ChatView) applyLocked(event realtime.Event) {
	message := event.Message
	switch event.Type {
	case realtime.EventInsert:
		if v.ids[message.ID] {
			return
		}
		v.ids[message.ID] = true
		v.messages = append(v.messages, message)
		v.pushLocked(ViewUpdate{
			Kind:    UpdateAppend,
			State:   v.state,
			ChatID:  v.chatID,
			Message: &message,
			HasMore: v.hasMore,
		})
	case realtime.EventUpdate:
		for i := range v.messages {
			if v.messages[i].ID != message.ID {
				continue
			}
			v.messages[i] = message
			v.pushLocked(ViewUpdate{
				Kind:    UpdateChange,
				State:   v.state,
				ChatID:  v.chatID,
				Message: &message,
				HasMore: v.hasMore,
			})
			return
		}
	}
}

func (v *ChatView) drainPendingLocked() {
	for _, event := range v.pending {
		v.applyLocked(event)
	}
	v.pending = nil
}

func (v *ChatView) fail(cause error, older bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.state = ViewError
	v.retryOlder = older
	v.pushLocked(ViewUpdate{
		Kind:    UpdateFailure,
		State:   ViewError,
		ChatID:  v.chatID,
		HasMore: v.hasMore,
		Error:   cause.Error(),
	})
}

func (v *ChatView) snapshotLocked() ViewUpdate {
	messages := make([]models.Message, len(v.messages))
	copy(messages, v.messages)
	return ViewUpdate{
		Kind:     UpdateSnapshot,
		State:    v.state,
		ChatID:   v.chatID,
		Messages: messages,
		HasMore:  v.hasMore,
	}
}

func (v *ChatView) pushLocked(update ViewUpdate) {
	if v.closed {
		return
	}
	select {
	case v.updates <- update:
	default:
		v.log.Warn().Str("kind", string(update.Kind)).Msg("updates channel full, dropping")
	}
}

// resolvePage fills ResolvedURL on every media message of a page.
func (v *ChatView) resolvePage(ctx context.Context, page []models.Message) {
	for i := range page {
		v.resolveMessage(ctx, &page[i])
	}
}

func (v *ChatView) resolveMessage(ctx context.Context, message *models.Message) {
	if message.Type != models.MessageImage && message.Type != models.MessageVoice {
		return
	}
	if message.IsDeleted {
		return
	}
	message.ResolvedURL = v.resolver.Resolve(ctx, message.Content)
}
