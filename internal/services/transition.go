package services

import (
	"time"

	"github.com/circlehub/backend/internal/models"
)

// The membership state machine. Each plan function is a pure function of the
// observed state plus an intent, returning the set of writes that move the
// (user, group) pair to its next legal state. MembershipService loads the
// state and applies the plan inside one store transaction, so a plan is
// either fully applied or not at all.

// membershipState is the snapshot a plan decides on.
type membershipState struct {
	membership     *models.Membership // nil when the pair has no row
	hasGroupFollow bool
	admin          *models.Membership // current group admin, nil when none
}

func (st membershipState) status() string {
	if st.membership == nil {
		return ""
	}
	return st.membership.Status
}

// plan is the computed next state: row writes, counter delta, follow-edge
// ops and notification side effects, applied together as one atomic unit.
type plan struct {
	upsert            *models.Membership
	demotePrevAdmin   *models.Membership
	deleteMembership  bool
	counterDelta      int64
	addGroupFollow    bool
	removeGroupFollow bool
	notifications     []models.Notification
	outcome           Outcome
}

// planToggleJoin both joins and leaves depending on current state: an
// existing row (any status) or a leftover group follow edge means leave,
// otherwise join as an active member. Applying it twice round-trips to the
// starting state.
func planToggleJoin(now time.Time, userID, groupID int64, st membershipState) plan {
	if st.membership != nil || st.hasGroupFollow {
		p := plan{
			deleteMembership:  st.membership != nil,
			removeGroupFollow: st.hasGroupFollow,
			outcome:           OutcomeLeft,
		}
		// The counter only moves across the active/inactive boundary. A
		// leftover follow edge with no row decrements nothing.
		if st.membership != nil && st.membership.Active() {
			p.counterDelta = -1
		}
		return p
	}
	return plan{
		upsert: &models.Membership{
			UserID:   userID,
			GroupID:  groupID,
			Role:     models.RoleMember,
			Status:   models.StatusActive,
			JoinedAt: now,
		},
		addGroupFollow: true,
		counterDelta:   1,
		outcome:        OutcomeJoined,
	}
}

// planRequestJoin moves absent -> pending. Repeats while pending and calls
// on an already-active pair are no-ops reporting the existing state; no
// duplicate row, no duplicate notification.
func planRequestJoin(now time.Time, userID, groupID, ownerID int64, st membershipState) plan {
	switch st.status() {
	case models.StatusPending:
		return plan{outcome: OutcomeAlreadyPending}
	case models.StatusActive:
		return plan{outcome: OutcomeAlreadyActive}
	}
	gid := groupID
	return plan{
		upsert: &models.Membership{
			UserID:   userID,
			GroupID:  groupID,
			Role:     models.RoleMember,
			Status:   models.StatusPending,
			JoinedAt: now,
		},
		notifications: []models.Notification{
			{
				RecipientID: ownerID,
				ActorID:     userID,
				Kind:        models.NotificationGroupPermissionRequest,
				GroupID:     &gid,
				Message:     msgPermissionRequested,
				CreatedAt:   now,
			},
			{
				RecipientID: userID,
				ActorID:     ownerID,
				Kind:        models.NotificationGroupPermissionRequest,
				GroupID:     &gid,
				Message:     msgRequestForwarded,
				CreatedAt:   now,
			},
		},
		outcome: OutcomeRequestCreated,
	}
}

// planApprove moves pending -> active/member, creating the group follow edge
// so an active member role stays synonymous with following the group.
// Approving an already-active membership is a no-op success.
func planApprove(now time.Time, userID, groupID, actorID int64, groupName string, st membershipState) plan {
	if st.membership.Active() {
		return plan{outcome: OutcomeApproved}
	}
	m := *st.membership
	m.Status = models.StatusActive
	gid := groupID
	return plan{
		upsert:         &m,
		counterDelta:   1,
		addGroupFollow: !st.hasGroupFollow,
		notifications: []models.Notification{
			{
				RecipientID: userID,
				ActorID:     actorID,
				Kind:        models.NotificationGroupPermissionGranted,
				GroupID:     &gid,
				Message:     msgPermissionGranted(groupName),
				CreatedAt:   now,
			},
		},
		outcome: OutcomeApproved,
	}
}

// planAddMember is an admin adding a followed user directly: absent ->
// active/member plus a group-added notification. An existing row of any
// status is left alone.
func planAddMember(now time.Time, userID, groupID, actorID int64, st membershipState) plan {
	if st.membership != nil {
		return plan{outcome: OutcomeAdded}
	}
	gid := groupID
	return plan{
		upsert: &models.Membership{
			UserID:   userID,
			GroupID:  groupID,
			Role:     models.RoleMember,
			Status:   models.StatusActive,
			JoinedAt: now,
		},
		counterDelta:   1,
		addGroupFollow: !st.hasGroupFollow,
		notifications: []models.Notification{
			{
				RecipientID: userID,
				ActorID:     actorID,
				Kind:        models.NotificationGroupAdded,
				GroupID:     &gid,
				Message:     msgAddedToGroup,
				CreatedAt:   now,
			},
		},
		outcome: OutcomeAdded,
	}
}

// planChangeRole reassigns the target's role. Promoting a second admin
// forces the previous admin down to member (never moderator) in the same
// unit, so at most one admin exists at every observable point. Role-only
// changes never touch the member counter.
func planChangeRole(newRole string, st membershipState) plan {
	m := *st.membership
	m.Role = newRole
	p := plan{upsert: &m, outcome: OutcomeRoleChanged}
	if newRole == models.RoleAdmin && st.admin != nil && st.admin.UserID != m.UserID {
		prev := *st.admin
		prev.Role = models.RoleMember
		p.demotePrevAdmin = &prev
	}
	return p
}

// planRemove moves any state to absent. The group follow edge is left
// untouched on purpose: only the toggle path unfollows.
func planRemove(st membershipState) plan {
	if st.membership == nil {
		return plan{outcome: OutcomeRemoved}
	}
	p := plan{deleteMembership: true, outcome: OutcomeRemoved}
	if st.membership.Active() {
		p.counterDelta = -1
	}
	return p
}
