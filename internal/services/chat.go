package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// CurrentUser supplies the signed-in user id. Every service checks it
// before touching the backend; with no session the operation fails
// locally.
type CurrentUser interface {
	CurrentUserID() (string, error)
}

// ChatService implements chat and membership operations.
type ChatService struct {
	auth  CurrentUser
	chats *store.ChatStore
	log   zerolog.Logger
}

func NewChatService(auth CurrentUser, chats *store.ChatStore) *ChatService {
	return &ChatService{
		auth:  auth,
		chats: chats,
		log:   logger.With("chatservice"),
	}
}

// CreateDirectChat returns the direct chat with the other user,
// creating it if absent. Both users calling concurrently still end up
// with one chat: the pair key's unique index breaks the tie and the
// loser re-reads.
func (s *ChatService) CreateDirectChat(ctx context.Context, otherUserID string) (*models.Chat, error) {
	const op = "ChatService.CreateDirectChat"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}
	if otherUserID == "" || otherUserID == me {
		return nil, errors.Invalid(op, "cannot open a direct chat with yourself")
	}

	pairKey := models.DirectPairKey(me, otherUserID)
	existing, err := s.chats.FindDirect(ctx, pairKey)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	if existing != nil {
		return existing, nil
	}

	chat := models.Chat{PairKey: &pairKey}
	if err := s.chats.Create(ctx, &chat, []string{me, otherUserID}); err != nil {
		// Lost the race against the other member's client
		existing, findErr := s.chats.FindDirect(ctx, pairKey)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, errors.Query(op, err)
	}
	return &chat, nil
}

// CreateGroupChat creates a group with the caller plus the given
// members as participants.
func (s *ChatService) CreateGroupChat(ctx context.Context, name, avatarURL string, memberIDs []string) (*models.Chat, error) {
	const op = "ChatService.CreateGroupChat"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.Invalid(op, "group name is required")
	}

	members := []string{me}
	seen := map[string]bool{me: true}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}

	chat := models.Chat{IsGroup: true, Name: name, AvatarURL: avatarURL}
	if err := s.chats.Create(ctx, &chat, members); err != nil {
		return nil, errors.Query(op, err)
	}
	s.log.Info().Str("chatId", chat.ID).Int("members", len(members)).Msg("created group chat")
	return &chat, nil
}

// GetChats lists the caller's chats, most recently active first.
func (s *ChatService) GetChats(ctx context.Context) ([]models.Chat, error) {
	const op = "ChatService.GetChats"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	chats, err := s.chats.ListForUser(ctx, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return chats, nil
}

// GetChatByID returns one chat. Callers must be members.
func (s *ChatService) GetChatByID(ctx context.Context, chatID string) (*models.Chat, error) {
	const op = "ChatService.GetChatByID"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	participant, err := s.chats.GetParticipant(ctx, chatID, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	if participant == nil {
		return nil, errors.Forbidden(op, "not a member of this chat")
	}

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return chat, nil
}

// GetChatParticipants returns the membership rows with profiles.
func (s *ChatService) GetChatParticipants(ctx context.Context, chatID string) ([]models.ChatParticipant, error) {
	const op = "ChatService.GetChatParticipants"

	if _, err := s.auth.CurrentUserID(); err != nil {
		return nil, err
	}

	participants, err := s.chats.Participants(ctx, chatID)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return participants, nil
}

// AddParticipants adds members to a group chat. Existing members are
// skipped. Direct chats never grow.
func (s *ChatService) AddParticipants(ctx context.Context, chatID string, userIDs []string) ([]string, error) {
	const op = "ChatService.AddParticipants"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	participant, err := s.chats.GetParticipant(ctx, chatID, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	if participant == nil {
		return nil, errors.Forbidden(op, "not a member of this chat")
	}

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	if !chat.IsGroup {
		return nil, errors.Invalid(op, "cannot add participants to a direct chat")
	}

	added, err := s.chats.AddParticipants(ctx, chatID, userIDs)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return added, nil
}

// LeaveChat removes the caller's own participant row.
func (s *ChatService) LeaveChat(ctx context.Context, chatID string) error {
	const op = "ChatService.LeaveChat"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}

	if err := s.chats.RemoveParticipant(ctx, chatID, me); err != nil {
		return errors.Query(op, err)
	}
	s.log.Info().Str("chatId", chatID).Str("userId", me).Msg("left chat")
	return nil
}
