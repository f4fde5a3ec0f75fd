package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
)

type pairKey struct {
	a, b int64
}

// fakeStore is an in-memory RelationshipStore with snapshot-based rollback,
// so Atomically behaves like a real transaction in tests.
type fakeStore struct {
	users        map[int64]models.User
	groups       map[int64]models.Group
	memberships  map[pairKey]models.Membership // (userID, groupID)
	userFollows  map[pairKey]bool              // (followerID, followeeID) forward half
	mirrors      map[pairKey]bool              // (followeeID, followerID) mirror half
	groupFollows map[pairKey]bool              // (userID, groupID)
	notes        []models.Notification

	nextMembershipID   uint
	nextNotificationID uint
	failNotifications  bool

	// onLockGroup, when set, runs once inside the next LockGroup call. It
	// stands in for a competing transaction that commits while this one
	// waits on the group row lock.
	onLockGroup func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[int64]models.User{},
		groups:       map[int64]models.Group{},
		memberships:  map[pairKey]models.Membership{},
		userFollows:  map[pairKey]bool{},
		mirrors:      map[pairKey]bool{},
		groupFollows: map[pairKey]bool{},
	}
}

func (f *fakeStore) addUser(id int64, username string) {
	f.users[id] = models.User{ID: id, Username: username}
}

func (f *fakeStore) addGroup(id, ownerID int64, name, kind string) {
	f.groups[id] = models.Group{ID: id, OwnerID: ownerID, Name: name, Kind: kind}
}

func (f *fakeStore) snapshot() *fakeStore {
	c := newFakeStore()
	for k, v := range f.users {
		c.users[k] = v
	}
	for k, v := range f.groups {
		c.groups[k] = v
	}
	for k, v := range f.memberships {
		c.memberships[k] = v
	}
	for k, v := range f.userFollows {
		c.userFollows[k] = v
	}
	for k, v := range f.mirrors {
		c.mirrors[k] = v
	}
	for k, v := range f.groupFollows {
		c.groupFollows[k] = v
	}
	c.notes = append(c.notes, f.notes...)
	c.nextMembershipID = f.nextMembershipID
	c.nextNotificationID = f.nextNotificationID
	return c
}

func (f *fakeStore) restore(s *fakeStore) {
	f.users = s.users
	f.groups = s.groups
	f.memberships = s.memberships
	f.userFollows = s.userFollows
	f.mirrors = s.mirrors
	f.groupFollows = s.groupFollows
	f.notes = s.notes
	f.nextMembershipID = s.nextMembershipID
	f.nextNotificationID = s.nextNotificationID
}

func (f *fakeStore) Atomically(ctx context.Context, fn func(repositories.RelationshipStore) error) error {
	saved := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(saved)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.Storage(err)
	}
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeStore) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, apperror.NotFound("group", id)
	}
	return &g, nil
}

func (f *fakeStore) LockGroup(ctx context.Context, id int64) (*models.Group, error) {
	if hook := f.onLockGroup; hook != nil {
		f.onLockGroup = nil
		hook()
	}
	return f.GetGroup(ctx, id)
}

func (f *fakeStore) GetMembership(ctx context.Context, userID, groupID int64) (*models.Membership, error) {
	m, ok := f.memberships[pairKey{userID, groupID}]
	if !ok {
		return nil, apperror.NotFound("membership", userID)
	}
	return &m, nil
}

func (f *fakeStore) UpsertMembership(ctx context.Context, m *models.Membership) error {
	key := pairKey{m.UserID, m.GroupID}
	if existing, ok := f.memberships[key]; ok {
		m.ID = existing.ID
	} else {
		f.nextMembershipID++
		m.ID = f.nextMembershipID
	}
	f.memberships[key] = *m
	return nil
}

func (f *fakeStore) DeleteMembership(ctx context.Context, userID, groupID int64) error {
	delete(f.memberships, pairKey{userID, groupID})
	return nil
}

func (f *fakeStore) AddMemberCount(ctx context.Context, groupID int64, delta int64) error {
	g, ok := f.groups[groupID]
	if !ok {
		return apperror.NotFound("group", groupID)
	}
	g.MemberCount += delta
	f.groups[groupID] = g
	return nil
}

func (f *fakeStore) GroupAdmin(ctx context.Context, groupID int64) (*models.Membership, error) {
	for _, m := range f.memberships {
		if m.GroupID == groupID && m.Role == models.RoleAdmin {
			m := m
			return &m, nil
		}
	}
	return nil, apperror.NotFound("group admin", groupID)
}

func (f *fakeStore) ActiveMemberCount(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	for _, m := range f.memberships {
		if m.GroupID == groupID && m.Status == models.StatusActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GroupMembers(ctx context.Context, groupID int64, status string) ([]models.Membership, error) {
	var out []models.Membership
	for _, m := range f.memberships {
		if m.GroupID == groupID && (status == "" || m.Status == status) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (f *fakeStore) PutUserFollow(ctx context.Context, followerID, followeeID int64) error {
	f.userFollows[pairKey{followerID, followeeID}] = true
	f.mirrors[pairKey{followeeID, followerID}] = true
	return nil
}

func (f *fakeStore) DeleteUserFollow(ctx context.Context, followerID, followeeID int64) error {
	delete(f.userFollows, pairKey{followerID, followeeID})
	delete(f.mirrors, pairKey{followeeID, followerID})
	return nil
}

func (f *fakeStore) HasUserFollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return f.userFollows[pairKey{followerID, followeeID}], nil
}

func (f *fakeStore) HasFollowedMirror(ctx context.Context, followeeID, followerID int64) (bool, error) {
	return f.mirrors[pairKey{followeeID, followerID}], nil
}

func (f *fakeStore) PutGroupFollow(ctx context.Context, userID, groupID int64) error {
	f.groupFollows[pairKey{userID, groupID}] = true
	return nil
}

func (f *fakeStore) DeleteGroupFollow(ctx context.Context, userID, groupID int64) error {
	delete(f.groupFollows, pairKey{userID, groupID})
	return nil
}

func (f *fakeStore) HasGroupFollow(ctx context.Context, userID, groupID int64) (bool, error) {
	return f.groupFollows[pairKey{userID, groupID}], nil
}

func (f *fakeStore) FollowingUsers(ctx context.Context, userID int64) ([]models.User, error) {
	var out []models.User
	for key := range f.userFollows {
		if key.a == userID {
			if u, ok := f.users[key.b]; ok {
				out = append(out, u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FollowerUsers(ctx context.Context, userID int64) ([]models.User, error) {
	var out []models.User
	for key := range f.mirrors {
		if key.a == userID {
			if u, ok := f.users[key.b]; ok {
				out = append(out, u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if f.failNotifications {
		return apperror.Storage(errors.New("notification write refused"))
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.nextNotificationID++
	n.ID = f.nextNotificationID
	f.notes = append(f.notes, *n)
	return nil
}
