package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// refreshMargin is how long before expiry the auto-refresher acts.
const refreshMargin = time.Minute

// EventType marks a session transition.
type EventType string

const (
	EventSignedIn  EventType = "signedIn"
	EventRefreshed EventType = "refreshed"
	EventSignedOut EventType = "signedOut"
)

// Event is delivered on session changes so the UI shell can react.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"userId"`
}

// TokenSource is what the Manager needs from the identity service.
type TokenSource interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Manager owns the current session. Every operation that needs the
// signed-in user id asks the Manager; with no session it fails locally
// before any backend call is made.
type Manager struct {
	source   TokenSource
	profiles *store.ProfileStore
	log      zerolog.Logger

	mu      sync.RWMutex
	session *Session

	events chan Event
}

func NewManager(source TokenSource, profiles *store.ProfileStore) *Manager {
	return &Manager{
		source:   source,
		profiles: profiles,
		log:      logger.With("auth"),
		events:   make(chan Event, 16),
	}
}

// Events yields session transitions. The gateway forwards them to the
// UI shell.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// SignIn performs a password grant and creates the profile row on
// first sign-in if it does not exist yet.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.SignIn"

	session, err := m.source.SignIn(ctx, email, password)
	if err != nil {
		if errors.IsApp(err) {
			return nil, err
		}
		return nil, errors.Query(op, err)
	}

	if err := m.ensureProfile(ctx, session); err != nil {
		return nil, errors.Query(op, err)
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.emit(Event{Type: EventSignedIn, UserID: session.UserID})
	m.log.Info().Str("userId", session.UserID).Msg("signed in")
	return session, nil
}

// SignOut drops the session. Local only; the refresh token simply
// stops being used.
func (m *Manager) SignOut() {
	m.mu.Lock()
	previous := m.session
	m.session = nil
	m.mu.Unlock()

	if previous != nil {
		m.emit(Event{Type: EventSignedOut, UserID: previous.UserID})
		m.log.Info().Str("userId", previous.UserID).Msg("signed out")
	}
}

// CurrentUserID returns the signed-in user, or a no-session error
// raised before any network call.
func (m *Manager) CurrentUserID() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return "", errors.NoSession("auth.CurrentUserID")
	}
	return m.session.UserID, nil
}

// AccessToken returns the bearer the data plane attaches to backend
// calls.
func (m *Manager) AccessToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return "", errors.NoSession("auth.AccessToken")
	}
	return m.session.AccessToken, nil
}

// Refresh exchanges the current refresh token for fresh credentials.
func (m *Manager) Refresh(ctx context.Context) error {
	const op = "auth.Refresh"

	m.mu.RLock()
	current := m.session
	m.mu.RUnlock()
	if current == nil {
		return errors.NoSession(op)
	}

	fresh, err := m.source.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if errors.IsApp(err) {
			return err
		}
		return errors.Query(op, err)
	}
	fresh.Email = current.Email

	m.mu.Lock()
	m.session = fresh
	m.mu.Unlock()

	m.emit(Event{Type: EventRefreshed, UserID: fresh.UserID})
	return nil
}

// AutoRefresh keeps the access token fresh until the context ends.
// Run it as a goroutine from the daemon.
func (m *Manager) AutoRefresh(ctx context.Context) {
	for {
		wait := 15 * time.Second
		m.mu.RLock()
		if m.session != nil {
			wait = time.Until(m.session.ExpiresAt.Add(-refreshMargin))
			if wait < time.Second {
				wait = time.Second
			}
		}
		m.mu.RUnlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		m.mu.RLock()
		due := m.session != nil && time.Until(m.session.ExpiresAt) <= refreshMargin
		m.mu.RUnlock()
		if !due {
			continue
		}

		if err := m.Refresh(ctx); err != nil {
			m.log.Warn().Err(err).Msg("token refresh failed, will retry")
		}
	}
}

func (m *Manager) emit(event Event) {
	select {
	case m.events <- event:
	default:
		m.log.Warn().Str("type", string(event.Type)).Msg("session event dropped, no consumer")
	}
}

// ensureProfile creates the lazily-initialized profile row on first
// sign-in. Username defaults to the email's local part; a collision
// gets a fragment of the user id appended.
func (m *Manager) ensureProfile(ctx context.Context, session *Session) error {
	exists, err := m.profiles.Exists(ctx, session.UserID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	username := usernameFromEmail(session.Email)
	profile := &models.Profile{
		ID:       session.UserID,
		Username: username,
		Name:     username,
	}
	if err := m.profiles.Create(ctx, profile); err != nil {
		profile.Username = fmt.Sprintf("%s_%s", username, shortID(session.UserID))
		if err := m.profiles.Create(ctx, profile); err != nil {
			return err
		}
	}

	m.log.Info().Str("userId", session.UserID).Str("username", profile.Username).Msg("created profile on first sign-in")
	return nil
}

var usernameFilter = regexp.MustCompile(`[^a-z0-9_-]`)

func usernameFromEmail(email string) string {
	local := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	local = usernameFilter.ReplaceAllString(local, "_")
	if len(local) < 3 {
		local = "user_" + local
	}
	if len(local) > 30 {
		local = local[:30]
	}
	return local
}

func shortID(userID string) string {
	cleaned := strings.ReplaceAll(userID, "-", "")
	if len(cleaned) > 6 {
		cleaned = cleaned[:6]
	}
	return cleaned
}
