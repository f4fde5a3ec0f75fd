package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFollowFixture() (*fakeStore, *FollowService) {
	store := newFakeStore()
	store.addUser(aliceID, "alice")
	store.addUser(bobID, "bob")
	store.addUser(ownerID, "owner")
	return store, NewFollowService(store, NewNotifier())
}

// assertMirrorsInSync checks that the forward half and mirror half of every
// user follow edge exist together or not at all.
func assertMirrorsInSync(t *testing.T, store *fakeStore) {
	t.Helper()
	for key := range store.userFollows {
		assert.True(t, store.mirrors[pairKey{key.b, key.a}],
			"forward edge %d->%d has no mirror", key.a, key.b)
	}
	for key := range store.mirrors {
		assert.True(t, store.userFollows[pairKey{key.b, key.a}],
			"mirror edge for %d->%d has no forward half", key.b, key.a)
	}
}

func TestToggleFollowRoundTrip(t *testing.T) {
	store, svc := newFollowFixture()
	ctx := context.Background()

	outcome, err := svc.Toggle(ctx, aliceID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFollowed, outcome)
	assertMirrorsInSync(t, store)

	outcome, err = svc.IsFollowing(ctx, aliceID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeYes, outcome)

	require.Len(t, store.notes, 1)
	assert.Equal(t, bobID, store.notes[0].RecipientID)
	assert.Equal(t, models.NotificationFollow, store.notes[0].Kind)
	assert.Equal(t, "alice "+msgStartedFollowing, store.notes[0].Message)

	outcome, err = svc.Toggle(ctx, aliceID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnfollowed, outcome)
	assertMirrorsInSync(t, store)

	outcome, err = svc.IsFollowing(ctx, aliceID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNo, outcome)
	assert.Len(t, store.notes, 1, "unfollow must not notify")
}

func TestToggleFollowSelf(t *testing.T) {
	_, svc := newFollowFixture()

	_, err := svc.Toggle(context.Background(), aliceID, aliceID)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestToggleFollowUnknownUser(t *testing.T) {
	store, svc := newFollowFixture()

	_, err := svc.Toggle(context.Background(), aliceID, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Empty(t, store.userFollows)
}

func TestToggleFollowCleansDesyncedPair(t *testing.T) {
	store, svc := newFollowFixture()
	ctx := context.Background()

	// A mirror half with no forward half; Toggle treats it as an existing
	// edge and removes the whole pair.
	store.mirrors[pairKey{bobID, aliceID}] = true

	outcome, err := svc.Toggle(ctx, aliceID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnfollowed, outcome)
	assert.Empty(t, store.userFollows)
	assert.Empty(t, store.mirrors)
}

func TestUnfollowIdempotent(t *testing.T) {
	store, svc := newFollowFixture()
	ctx := context.Background()

	_, err := svc.Toggle(ctx, aliceID, bobID)
	require.NoError(t, err)

	outcome, err := svc.Unfollow(ctx, aliceID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
	assertMirrorsInSync(t, store)

	// Already gone: still a success.
	outcome, err = svc.Unfollow(ctx, aliceID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
}

func TestFollowingAndFollowers(t *testing.T) {
	_, svc := newFollowFixture()
	ctx := context.Background()

	_, err := svc.Toggle(ctx, aliceID, bobID)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, ownerID, bobID)
	require.NoError(t, err)

	following, err := svc.Following(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, bobID, following[0].ID)

	followers, err := svc.Followers(ctx, bobID)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, ownerID, followers[0].ID)
	assert.Equal(t, aliceID, followers[1].ID)
}

func TestFollowedNotInGroup(t *testing.T) {
	store, svc := newFollowFixture()
	ctx := context.Background()
	store.addGroup(testGroup, ownerID, "gophers", models.GroupPublic)

	// Owner follows both users; bob is already a member.
	_, err := svc.Toggle(ctx, ownerID, aliceID)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, ownerID, bobID)
	require.NoError(t, err)
	require.NoError(t, store.UpsertMembership(ctx, &models.Membership{
		UserID: bobID, GroupID: testGroup,
		Role: models.RoleMember, Status: models.StatusActive,
	}))

	eligible, err := svc.FollowedNotInGroup(ctx, ownerID, testGroup)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, aliceID, eligible[0].ID)
}

func TestFollowNotificationFailureRollsBack(t *testing.T) {
	store, svc := newFollowFixture()
	store.failNotifications = true

	_, err := svc.Toggle(context.Background(), aliceID, bobID)
	require.Error(t, err)
	assert.Empty(t, store.userFollows, "edge must not survive a failed notification")
	assert.Empty(t, store.mirrors)
}

// TestMirrorNeverHalfWritten drives random toggles and unfollows and checks
// the mirror invariant after every operation.
func TestMirrorNeverHalfWritten(t *testing.T) {
	store, svc := newFollowFixture()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	users := []int64{ownerID, aliceID, bobID}

	for i := 0; i < 300; i++ {
		a := users[rng.Intn(len(users))]
		b := users[rng.Intn(len(users))]
		if rng.Intn(2) == 0 {
			_, err := svc.Toggle(ctx, a, b)
			if a == b {
				assert.ErrorIs(t, err, apperror.ErrConflict)
			} else {
				require.NoError(t, err)
			}
		} else {
			_, err := svc.Unfollow(ctx, a, b)
			require.NoError(t, err)
		}
		assertMirrorsInSync(t, store)
	}
}
