package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/metrics"
	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// PushRouter tracks device tokens and decides whether a delivered push
// should reach the user's eyes. The presentation layer reports which
// chat is on screen; pushes for that chat are suppressed since the
// user is already looking at it.
type PushRouter struct {
	auth    CurrentUser
	devices *store.DeviceStore
	log     zerolog.Logger

	mu            sync.RWMutex
	currentChatID string
}

func NewPushRouter(auth CurrentUser, devices *store.DeviceStore) *PushRouter {
	return &PushRouter{
		auth:    auth,
		devices: devices,
		log:     logger.With("pushrouter"),
	}
}

// SetCurrentChat records the chat the UI has on screen.
func (r *PushRouter) SetCurrentChat(chatID string) {
	r.mu.Lock()
	r.currentChatID = chatID
	r.mu.Unlock()
}

// ClearCurrentChat clears the record, but only if it still names the
// given chat. A late close event from a chat the user already left
// must not clobber the one they switched to.
func (r *PushRouter) ClearCurrentChat(chatID string) {
	r.mu.Lock()
	if r.currentChatID == chatID {
		r.currentChatID = ""
	}
	r.mu.Unlock()
}

// CurrentChat returns the chat id on screen, or "".
func (r *PushRouter) CurrentChat() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentChatID
}

// ShouldDisplay reports whether a push event for the given chat should
// be shown.
func (r *PushRouter) ShouldDisplay(chatID string) bool {
	r.mu.RLock()
	suppressed := chatID != "" && chatID == r.currentChatID
	r.mu.RUnlock()

	if suppressed {
		metrics.PushSuppressed.Inc()
	}
	return !suppressed
}

// RegisterDevice persists a freshly issued push token for the caller.
func (r *PushRouter) RegisterDevice(ctx context.Context, token, platform string) error {
	const op = "PushRouter.RegisterDevice"

	me, err := r.auth.CurrentUserID()
	if err != nil {
		return err
	}
	if token == "" {
		return errors.Invalid(op, "token is required")
	}
	if platform != "ios" && platform != "android" {
		return errors.Invalid(op, "platform must be ios or android")
	}

	device := models.Device{UserID: me, Token: token, Platform: platform}
	if err := r.devices.Upsert(ctx, &device); err != nil {
		return errors.Query(op, err)
	}
	r.log.Info().Str("platform", platform).Msg("registered push token")
	return nil
}

// RefreshDeviceToken swaps a rotated token. An unknown old token falls
// back to a fresh registration so a missed rotation self-heals.
func (r *PushRouter) RefreshDeviceToken(ctx context.Context, oldToken, newToken, platform string) error {
	const op = "PushRouter.RefreshDeviceToken"

	if _, err := r.auth.CurrentUserID(); err != nil {
		return err
	}
	if newToken == "" {
		return errors.Invalid(op, "new token is required")
	}

	ok, err := r.devices.Refresh(ctx, oldToken, newToken)
	if err != nil {
		return errors.Query(op, err)
	}
	if !ok {
		return r.RegisterDevice(ctx, newToken, platform)
	}
	return nil
}
