package services

import (
	"context"
	"errors"
	"time"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
)

// MembershipService drives the (user, group) lifecycle: join/leave toggling,
// permission requests and approvals, direct adds, and role changes. Every
// intent loads the current state, asks the state machine for a plan, and
// applies it inside one store transaction. The transaction opens by locking
// the group row, so concurrent intents on the same group run one at a time
// and each plan sees the state the previous one committed.
type MembershipService struct {
	store    repositories.RelationshipStore
	notifier *Notifier
}

func NewMembershipService(store repositories.RelationshipStore, notifier *Notifier) *MembershipService {
	return &MembershipService{store: store, notifier: notifier}
}

// loadState reads the plan inputs through the transaction-bound store.
func (s *MembershipService) loadState(ctx context.Context, store repositories.RelationshipStore, userID, groupID int64, needAdmin bool) (membershipState, error) {
	var st membershipState
	m, err := store.GetMembership(ctx, userID, groupID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return st, err
	}
	st.membership = m
	st.hasGroupFollow, err = store.HasGroupFollow(ctx, userID, groupID)
	if err != nil {
		return st, err
	}
	if needAdmin {
		admin, err := store.GroupAdmin(ctx, groupID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return st, err
		}
		st.admin = admin
	}
	return st, nil
}

func (s *MembershipService) apply(ctx context.Context, store repositories.RelationshipStore, userID, groupID int64, p plan) error {
	if p.deleteMembership {
		if err := store.DeleteMembership(ctx, userID, groupID); err != nil {
			return err
		}
	}
	if p.upsert != nil {
		if err := store.UpsertMembership(ctx, p.upsert); err != nil {
			return err
		}
	}
	if p.demotePrevAdmin != nil {
		if err := store.UpsertMembership(ctx, p.demotePrevAdmin); err != nil {
			return err
		}
	}
	if p.removeGroupFollow {
		if err := store.DeleteGroupFollow(ctx, userID, groupID); err != nil {
			return err
		}
	}
	if p.addGroupFollow {
		if err := store.PutGroupFollow(ctx, userID, groupID); err != nil {
			return err
		}
	}
	if p.counterDelta != 0 {
		if err := store.AddMemberCount(ctx, groupID, p.counterDelta); err != nil {
			return err
		}
	}
	return s.notifier.Emit(ctx, store, p.notifications)
}

// ToggleJoin joins the group as an active member, or leaves it if any
// membership row or group follow edge exists for the pair.
func (s *MembershipService) ToggleJoin(ctx context.Context, userID, groupID int64) (Outcome, error) {
	var outcome Outcome
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		if _, err := store.LockGroup(ctx, groupID); err != nil {
			return err
		}
		st, err := s.loadState(ctx, store, userID, groupID, false)
		if err != nil {
			return err
		}
		p := planToggleJoin(time.Now(), userID, groupID, st)
		outcome = p.outcome
		return s.apply(ctx, store, userID, groupID, p)
	})
	return outcome, err
}

// RequestJoin asks the group owner for membership. Repeated requests while
// pending, and requests from active members, succeed without changing state.
func (s *MembershipService) RequestJoin(ctx context.Context, userID, groupID int64) (Outcome, error) {
	var outcome Outcome
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		group, err := store.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		st, err := s.loadState(ctx, store, userID, groupID, false)
		if err != nil {
			return err
		}
		p := planRequestJoin(time.Now(), userID, groupID, group.OwnerID, st)
		outcome = p.outcome
		return s.apply(ctx, store, userID, groupID, p)
	})
	return outcome, err
}

// Approve accepts a pending membership. The caller-asserted actor identity
// must be the group owner or an admin-role member; the credential behind it
// was already verified upstream.
func (s *MembershipService) Approve(ctx context.Context, actorID, userID, groupID int64) (Outcome, error) {
	var outcome Outcome
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		group, err := store.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if err := s.requireManager(ctx, store, actorID, group); err != nil {
			return err
		}
		st, err := s.loadState(ctx, store, userID, groupID, false)
		if err != nil {
			return err
		}
		if st.membership == nil {
			return apperror.NotFound("membership", userID)
		}
		p := planApprove(time.Now(), userID, groupID, actorID, group.Name, st)
		outcome = p.outcome
		return s.apply(ctx, store, userID, groupID, p)
	})
	return outcome, err
}

// AddMember lets a group manager add a user directly as an active member.
func (s *MembershipService) AddMember(ctx context.Context, actorID, userID, groupID int64) (Outcome, error) {
	var outcome Outcome
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		group, err := store.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if err := s.requireManager(ctx, store, actorID, group); err != nil {
			return err
		}
		if _, err := store.GetUser(ctx, userID); err != nil {
			return err
		}
		st, err := s.loadState(ctx, store, userID, groupID, false)
		if err != nil {
			return err
		}
		p := planAddMember(time.Now(), userID, groupID, actorID, st)
		outcome = p.outcome
		return s.apply(ctx, store, userID, groupID, p)
	})
	return outcome, err
}

// ChangeRole reassigns the target's role. Unlike the other intents this is a
// genuine mutation on every call. Promoting to admin demotes the previous
// admin to member in the same transaction.
func (s *MembershipService) ChangeRole(ctx context.Context, actorID, userID, groupID int64, newRole string) (Outcome, error) {
	var outcome Outcome
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		group, err := store.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if err := s.requireManager(ctx, store, actorID, group); err != nil {
			return err
		}
		st, err := s.loadState(ctx, store, userID, groupID, true)
		if err != nil {
			return err
		}
		if st.membership == nil {
			return apperror.NotFound("membership", userID)
		}
		p := planChangeRole(newRole, st)
		outcome = p.outcome
		return s.apply(ctx, store, userID, groupID, p)
	})
	return outcome, err
}

// DemoteToMember drops an admin or moderator back to plain member. No
// notification is emitted for demotions.
func (s *MembershipService) DemoteToMember(ctx context.Context, actorID, userID, groupID int64) (Outcome, error) {
	return s.ChangeRole(ctx, actorID, userID, groupID, models.RoleMember)
}

// Remove deletes the pair's membership whatever its state. The group follow
// edge is deliberately left in place; only ToggleJoin unfollows.
func (s *MembershipService) Remove(ctx context.Context, actorID, userID, groupID int64) (Outcome, error) {
	var outcome Outcome
	err := s.store.Atomically(ctx, func(store repositories.RelationshipStore) error {
		group, err := store.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if actorID != userID {
			if err := s.requireManager(ctx, store, actorID, group); err != nil {
				return err
			}
		}
		st, err := s.loadState(ctx, store, userID, groupID, false)
		if err != nil {
			return err
		}
		p := planRemove(st)
		outcome = p.outcome
		return s.apply(ctx, store, userID, groupID, p)
	})
	return outcome, err
}

// IsMember reports whether the user holds an active membership.
func (s *MembershipService) IsMember(ctx context.Context, userID, groupID int64) (Outcome, error) {
	m, err := s.store.GetMembership(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return OutcomeNo, nil
		}
		return OutcomeNo, err
	}
	if m.Active() {
		return OutcomeYes, nil
	}
	return OutcomeNo, nil
}

// JoinAccepted reports whether a join request has been approved yet.
func (s *MembershipService) JoinAccepted(ctx context.Context, userID, groupID int64) (Outcome, error) {
	m, err := s.store.GetMembership(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return OutcomeNo, nil
		}
		return OutcomeNo, err
	}
	if m.Active() {
		return OutcomeYes, nil
	}
	return OutcomeNo, nil
}

// CurrentMembership returns the pair's row, or ErrNotFound.
func (s *MembershipService) CurrentMembership(ctx context.Context, userID, groupID int64) (*models.Membership, error) {
	return s.store.GetMembership(ctx, userID, groupID)
}

// requireManager refuses mutations whose actor is neither the group owner
// nor an active admin/moderator of the group.
func (s *MembershipService) requireManager(ctx context.Context, store repositories.RelationshipStore, actorID int64, group *models.Group) error {
	if actorID == group.OwnerID {
		return nil
	}
	m, err := store.GetMembership(ctx, actorID, group.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Unauthorized("caller is not a manager of this group")
		}
		return err
	}
	if !m.Active() || m.Role == models.RoleMember {
		return apperror.Unauthorized("caller is not a manager of this group")
	}
	return nil
}
