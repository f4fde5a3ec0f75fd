package services

import (
	"context"
	"time"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
)

// FollowService maintains user-to-user follow edges. Each edge is stored as
// two mirror rows (the follower's "following" row and the followee's
// "followed" row); both are written and removed in one transaction so
// neither side ever observes half an edge.
type FollowService struct {
	store    repositories.RelationshipStore
	notifier *Notifier
}

func NewFollowService(store repositories.RelationshipStore, notifier *Notifier) *FollowService {
	return &FollowService{store: store, notifier: notifier}
}

// Toggle follows the target, or unfollows if either mirror half already
// exists (a desynchronized pair is cleaned up whole).
func (s *FollowService) Toggle(ctx context.Context, followerID, followeeID int64) (Outcome, error) {
	if followerID == followeeID {
		return OutcomeNo, apperror.Conflict("cannot follow yourself")
	}
	var outcome Outcome
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		follower, err := store.GetUser(ctx, followerID)
		if err != nil {
			return err
		}
		if _, err := store.GetUser(ctx, followeeID); err != nil {
			return err
		}
		forward, err := store.HasUserFollow(ctx, followerID, followeeID)
		if err != nil {
			return err
		}
		mirror, err := store.HasFollowedMirror(ctx, followeeID, followerID)
		if err != nil {
			return err
		}
		if forward || mirror {
			outcome = OutcomeUnfollowed
			return store.DeleteUserFollow(ctx, followerID, followeeID)
		}
		if err := store.PutUserFollow(ctx, followerID, followeeID); err != nil {
			return err
		}
		outcome = OutcomeFollowed
		return s.notifier.Emit(ctx, store, []models.Notification{{
			RecipientID: followeeID,
			ActorID:     followerID,
			Kind:        models.NotificationFollow,
			Message:     follower.Username + " " + msgStartedFollowing,
			CreatedAt:   time.Now(),
		}})
	})
	return outcome, err
}

// Unfollow removes both mirror rows. Removing an absent edge is a success.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) (Outcome, error) {
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		return store.DeleteUserFollow(ctx, followerID, followeeID)
	})
	if err != nil {
		return OutcomeNo, err
	}
	return OutcomeRemoved, nil
}

// IsFollowing reports the forward half; the mirror invariant keeps both
// halves in lockstep so either side answers the same.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID int64) (Outcome, error) {
	ok, err := s.store.HasUserFollow(ctx, followerID, followeeID)
	if err != nil {
		return OutcomeNo, err
	}
	if ok {
		return OutcomeYes, nil
	}
	return OutcomeNo, nil
}

func (s *FollowService) Following(ctx context.Context, userID int64) ([]models.User, error) {
	return s.store.FollowingUsers(ctx, userID)
}

func (s *FollowService) Followers(ctx context.Context, userID int64) ([]models.User, error) {
	return s.store.FollowerUsers(ctx, userID)
}

// FollowedNotInGroup lists the users the caller follows who hold no
// membership row in the group; this backs the add-member picker.
func (s *FollowService) FollowedNotInGroup(ctx context.Context, userID, groupID int64) ([]models.User, error) {
	followed, err := s.store.FollowingUsers(ctx, userID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.GroupMembers(ctx, groupID, "")
	if err != nil {
		return nil, err
	}
	inGroup := make(map[int64]struct{}, len(members))
	for _, m := range members {
		inGroup[m.UserID] = struct{}{}
	}
	out := make([]models.User, 0, len(followed))
	for _, u := range followed {
		if _, ok := inGroup[u.ID]; !ok {
			out = append(out, u)
		}
	}
	return out, nil
}
