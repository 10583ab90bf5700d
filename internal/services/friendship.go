package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/store"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

const (
	searchDefaultLimit = 20
	searchMaxLimit     = 50
)

// FriendshipService implements the social graph: requests, the
// derived relationship state, and user search.
type FriendshipService struct {
	auth        CurrentUser
	friendships *store.FriendshipStore
	profiles    *store.ProfileStore
	log         zerolog.Logger
}

func NewFriendshipService(auth CurrentUser, friendships *store.FriendshipStore, profiles *store.ProfileStore) *FriendshipService {
	return &FriendshipService{
		auth:        auth,
		friendships: friendships,
		profiles:    profiles,
		log:         logger.With("friendshipservice"),
	}
}

// GetFriendshipState derives the relationship with another user from
// the directed rows between the two. With contradictory rows the most
// recent one wins.
func (s *FriendshipService) GetFriendshipState(ctx context.Context, otherUserID string) (models.FriendshipState, error) {
	const op = "FriendshipService.GetFriendshipState"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return models.StateNone, err
	}
	if otherUserID == me {
		return models.StateNone, errors.Invalid(op, "no friendship state with yourself")
	}

	rows, err := s.friendships.PairRows(ctx, me, otherUserID)
	if err != nil {
		return models.StateNone, errors.Query(op, err)
	}

	state := models.StateNone
	for _, row := range rows {
		state = deriveState(row, me)
	}
	return state, nil
}

func deriveState(row models.Friendship, viewerID string) models.FriendshipState {
	switch row.Status {
	case models.FriendshipAccepted:
		return models.StateAccepted
	case models.FriendshipRejected:
		return models.StateRejected
	case models.FriendshipBlocked:
		return models.StateBlocked
	case models.FriendshipPending:
		if row.UserID == viewerID {
			return models.StatePendingOutgoing
		}
		return models.StatePendingIncoming
	}
	return models.StateNone
}

// SendFriendRequest inserts a pending row from the caller.
func (s *FriendshipService) SendFriendRequest(ctx context.Context, otherUserID string) error {
	const op = "FriendshipService.SendFriendRequest"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}
	if otherUserID == "" || otherUserID == me {
		return errors.Invalid(op, "cannot send a friend request to yourself")
	}

	row := models.Friendship{
		UserID:   me,
		FriendID: otherUserID,
		Status:   models.FriendshipPending,
	}
	if err := s.friendships.Create(ctx, &row); err != nil {
		// The (user, friend) unique index rejects a duplicate request
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict(op, "request already exists")
		}
		return errors.Query(op, err)
	}
	s.log.Info().Str("to", otherUserID).Msg("sent friend request")
	return nil
}

// AcceptFriendRequest flips the pending request the caller received.
// Only the recipient may accept.
func (s *FriendshipService) AcceptFriendRequest(ctx context.Context, otherUserID string) error {
	const op = "FriendshipService.AcceptFriendRequest"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}

	ok, err := s.friendships.Accept(ctx, otherUserID, me)
	if err != nil {
		return errors.Query(op, err)
	}
	if !ok {
		return errors.NotFound(op, "no pending request from this user")
	}
	return nil
}

// RejectFriendRequest removes the other user's row toward the caller,
// whatever its status. The row is gone, not archived; the other user
// may ask again later.
func (s *FriendshipService) RejectFriendRequest(ctx context.Context, otherUserID string) error {
	const op = "FriendshipService.RejectFriendRequest"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}

	ok, err := s.friendships.DeleteDirected(ctx, otherUserID, me)
	if err != nil {
		return errors.Query(op, err)
	}
	if !ok {
		return errors.NotFound(op, "no request from this user")
	}
	return nil
}

// CancelFriendRequest withdraws the caller's own still-pending
// request.
func (s *FriendshipService) CancelFriendRequest(ctx context.Context, otherUserID string) error {
	const op = "FriendshipService.CancelFriendRequest"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}

	ok, err := s.friendships.DeletePending(ctx, me, otherUserID)
	if err != nil {
		return errors.Query(op, err)
	}
	if !ok {
		return errors.NotFound(op, "no pending request to this user")
	}
	return nil
}

// Unfriend removes an accepted friendship from either side.
func (s *FriendshipService) Unfriend(ctx context.Context, otherUserID string) error {
	const op = "FriendshipService.Unfriend"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return err
	}

	ok, err := s.friendships.DeleteAccepted(ctx, me, otherUserID)
	if err != nil {
		return errors.Query(op, err)
	}
	if !ok {
		return errors.NotFound(op, "not friends with this user")
	}
	return nil
}

// GetFriends returns the other side's profile for every accepted
// friendship.
func (s *FriendshipService) GetFriends(ctx context.Context) ([]models.Profile, error) {
	const op = "FriendshipService.GetFriends"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	rows, err := s.friendships.ListAccepted(ctx, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}

	friends := make([]models.Profile, 0, len(rows))
	for _, row := range rows {
		if row.UserID == me {
			friends = append(friends, row.Friend)
		} else {
			friends = append(friends, row.User)
		}
	}
	return friends, nil
}

// GetIncomingRequests returns pending requests sent to the caller,
// with the sender's profile attached.
func (s *FriendshipService) GetIncomingRequests(ctx context.Context) ([]models.Friendship, error) {
	const op = "FriendshipService.GetIncomingRequests"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	rows, err := s.friendships.ListIncoming(ctx, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return rows, nil
}

// GetOutgoingRequests returns the caller's own pending requests.
func (s *FriendshipService) GetOutgoingRequests(ctx context.Context) ([]models.Friendship, error) {
	const op = "FriendshipService.GetOutgoingRequests"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}

	rows, err := s.friendships.ListOutgoing(ctx, me)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return rows, nil
}

// SearchUsers finds other users by username or display name. A blank
// term returns nothing rather than everyone.
func (s *FriendshipService) SearchUsers(ctx context.Context, term string, limit int) ([]models.Profile, error) {
	const op = "FriendshipService.SearchUsers"

	me, err := s.auth.CurrentUserID()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(term) == "" {
		return []models.Profile{}, nil
	}
	if limit <= 0 {
		limit = searchDefaultLimit
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	profiles, err := s.profiles.Search(ctx, me, term, limit)
	if err != nil {
		return nil, errors.Query(op, err)
	}
	return profiles, nil
}
