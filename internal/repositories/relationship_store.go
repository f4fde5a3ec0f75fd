package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationshipStore is the authoritative, sole writer of memberships, follow
// edges, member counters and notifications. Every multi-row mutation behind
// one of its methods is applied atomically, and callers group several calls
// into one atomic unit with Atomically.
type RelationshipStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	// LockGroup reads the group row FOR UPDATE. Taking it first in an atomic
	// unit serializes all membership writes against the group, so every plan
	// is computed from state no concurrent transaction can still change.
	LockGroup(ctx context.Context, id int64) (*models.Group, error)

	// GetMembership returns apperror.ErrNotFound when the pair has no row.
	GetMembership(ctx context.Context, userID, groupID int64) (*models.Membership, error)
	// UpsertMembership replaces an existing (user, group) row; it never
	// duplicates one.
	UpsertMembership(ctx context.Context, m *models.Membership) error
	// DeleteMembership is idempotent; deleting an absent row is a no-op.
	DeleteMembership(ctx context.Context, userID, groupID int64) error
	// AddMemberCount adjusts the denormalized counter. Callers invoke it only
	// when a membership crosses the active/inactive boundary.
	AddMemberCount(ctx context.Context, groupID int64, delta int64) error
	// GroupAdmin returns the group's admin membership, or ErrNotFound.
	GroupAdmin(ctx context.Context, groupID int64) (*models.Membership, error)
	ActiveMemberCount(ctx context.Context, groupID int64) (int64, error)
	GroupMembers(ctx context.Context, groupID int64, status string) ([]models.Membership, error)

	// PutUserFollow and DeleteUserFollow mutate both mirror rows in one
	// atomic unit; no caller ever observes one half without the other.
	PutUserFollow(ctx context.Context, followerID, followeeID int64) error
	DeleteUserFollow(ctx context.Context, followerID, followeeID int64) error
	HasUserFollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	HasFollowedMirror(ctx context.Context, followeeID, followerID int64) (bool, error)

	PutGroupFollow(ctx context.Context, userID, groupID int64) error
	DeleteGroupFollow(ctx context.Context, userID, groupID int64) error
	HasGroupFollow(ctx context.Context, userID, groupID int64) (bool, error)

	FollowingUsers(ctx context.Context, userID int64) ([]models.User, error)
	FollowerUsers(ctx context.Context, userID int64) ([]models.User, error)

	// CreateNotification persists the record and flips the recipient's
	// unread flag in the same unit.
	CreateNotification(ctx context.Context, n *models.Notification) error

	// Atomically runs fn against a transaction-bound view of the store.
	// Any error rolls the whole unit back; non-taxonomy errors surface as
	// apperror.ErrStorage.
	Atomically(ctx context.Context, fn func(RelationshipStore) error) error
}

// PostgresRelationshipStore implements RelationshipStore over GORM.
type PostgresRelationshipStore struct {
	db *gorm.DB
}

func NewPostgresRelationshipStore(db *gorm.DB) *PostgresRelationshipStore {
	return &PostgresRelationshipStore{db: db}
}

func (s *PostgresRelationshipStore) Atomically(ctx context.Context, fn func(RelationshipStore) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRelationshipStore{db: tx})
	})
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Storage(err)
}

func (s *PostgresRelationshipStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, apperror.Storage(err)
	}
	return &user, nil
}

func (s *PostgresRelationshipStore) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("group", id)
		}
		return nil, apperror.Storage(err)
	}
	return &group, nil
}

func (s *PostgresRelationshipStore) LockGroup(ctx context.Context, id int64) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&group, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("group", id)
		}
		return nil, apperror.Storage(err)
	}
	return &group, nil
}

func (s *PostgresRelationshipStore) GetMembership(ctx context.Context, userID, groupID int64) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("membership", userID)
		}
		return nil, apperror.Storage(err)
	}
	return &m, nil
}

func (s *PostgresRelationshipStore) UpsertMembership(ctx context.Context, m *models.Membership) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "status", "joined_at"}),
	}).Create(m).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (s *PostgresRelationshipStore) DeleteMembership(ctx context.Context, userID, groupID int64) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Delete(&models.Membership{}).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (s *PostgresRelationshipStore) AddMemberCount(ctx context.Context, groupID int64, delta int64) error {
	err := s.db.WithContext(ctx).Model(&models.Group{}).
		Where("id = ?", groupID).
		UpdateColumn("member_count", gorm.Expr("member_count + ?", delta)).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (s *PostgresRelationshipStore) GroupAdmin(ctx context.Context, groupID int64) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND role = ?", groupID, models.RoleAdmin).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("group admin", groupID)
		}
		return nil, apperror.Storage(err)
	}
	return &m, nil
}

func (s *PostgresRelationshipStore) ActiveMemberCount(ctx context.Context, groupID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("group_id = ? AND status = ?", groupID, models.StatusActive).
		Count(&count).Error
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return count, nil
}

func (s *PostgresRelationshipStore) GroupMembers(ctx context.Context, groupID int64, status string) ([]models.Membership, error) {
	var members []models.Membership
	q := s.db.WithContext(ctx).Where("group_id = ?", groupID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("joined_at ASC").Find(&members).Error; err != nil {
		return nil, apperror.Storage(err)
	}
	return members, nil
}

func (s *PostgresRelationshipStore) PutUserFollow(ctx context.Context, followerID, followeeID int64) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		following := &models.Following{
			UserID:       followerID,
			TargetUserID: &followeeID,
			Kind:         models.FollowKindUser,
			CreatedAt:    now,
		}
		if err := tx.Create(following).Error; err != nil {
			return err
		}
		followed := &models.Followed{
			UserID:     followeeID,
			FollowerID: followerID,
			CreatedAt:  now,
		}
		return tx.Create(followed).Error
	})
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (s *PostgresRelationshipStore) DeleteUserFollow(ctx context.Context, followerID, followeeID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND target_user_id = ? AND kind = ?",
			followerID, followeeID, models.FollowKindUser).
			Delete(&models.Following{}).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ? AND follower_id = ?", followeeID, followerID).
			Delete(&models.Followed{}).Error
	})
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (s *PostgresRelationshipStore) HasUserFollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Following{}).
		Where("user_id = ? AND target_user_id = ? AND kind = ?",
			followerID, followeeID, models.FollowKindUser).
		Count(&count).Error
	if err != nil {
		return false, apperror.Storage(err)
	}
	return count > 0, nil
}

func (s *PostgresRelationshipStore) HasFollowedMirror(ctx context.Context, followeeID, followerID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Followed{}).
		Where("user_id = ? AND follower_id = ?", followeeID, followerID).
		Count(&count).Error
	if err != nil {
		return false, apperror.Storage(err)
	}
	return count > 0, nil
}

func (s *PostgresRelationshipStore) PutGroupFollow(ctx context.Context, userID, groupID int64) error {
	following := &models.Following{
		UserID:    userID,
		GroupID:   &groupID,
		Kind:      models.FollowKindGroup,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(following).Error; err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (s *PostgresRelationshipStore) DeleteGroupFollow(ctx context.Context, userID, groupID int64) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ? AND kind = ?", userID, groupID, models.FollowKindGroup).
		Delete(&models.Following{}).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (s *PostgresRelationshipStore) HasGroupFollow(ctx context.Context, userID, groupID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Following{}).
		Where("user_id = ? AND group_id = ? AND kind = ?", userID, groupID, models.FollowKindGroup).
		Count(&count).Error
	if err != nil {
		return false, apperror.Storage(err)
	}
	return count > 0, nil
}

func (s *PostgresRelationshipStore) FollowingUsers(ctx context.Context, userID int64) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("id IN (?)",
		s.db.Table("followings").Select("target_user_id").
			Where("user_id = ? AND kind = ?", userID, models.FollowKindUser),
	).Find(&users).Error
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return users, nil
}

func (s *PostgresRelationshipStore) FollowerUsers(ctx context.Context, userID int64) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("id IN (?)",
		s.db.Table("followeds").Select("follower_id").Where("user_id = ?", userID),
	).Find(&users).Error
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return users, nil
}

func (s *PostgresRelationshipStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", n.RecipientID).
			UpdateColumn("unread_notifications", true).Error
	})
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}
