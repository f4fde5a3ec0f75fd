package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"gorm.io/gorm"
)

// GroupRepository defines the interface for group lifecycle operations
type GroupRepository interface {
	// CreateGroup inserts the group, the owner's active admin membership and
	// the initial member counter of 1 in one transaction.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id int64) (*models.Group, error)
	UpdateGroupInfo(ctx context.Context, id int64, name, kind string) error
	UpdateIcon(ctx context.Context, id int64, ref string) error
	UpdateBackground(ctx context.Context, id int64, ref string) error
	// DeleteGroup removes the group with its memberships, group follow edges
	// and group notifications. Posts live in Mongo and are removed by the
	// caller through the post repository.
	DeleteGroup(ctx context.Context, id int64) error
	GroupsOwnedBy(ctx context.Context, ownerID int64) ([]models.Group, error)
}

// PostgresGroupRepository implements GroupRepository for PostgreSQL
type PostgresGroupRepository struct {
	db *gorm.DB
}

func NewPostgresGroupRepository(db *gorm.DB) *PostgresGroupRepository {
	return &PostgresGroupRepository{db: db}
}

func (r *PostgresGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	now := time.Now()
	group.MemberCount = 1
	group.IconUpdatedAt = now
	group.BackgroundUpdatedAt = now
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		owner := &models.Membership{
			UserID:   group.OwnerID,
			GroupID:  group.ID,
			Role:     models.RoleAdmin,
			Status:   models.StatusActive,
			JoinedAt: now,
		}
		return tx.Create(owner).Error
	})
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresGroupRepository) GetGroupByID(ctx context.Context, id int64) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("group", id)
		}
		return nil, apperror.Storage(err)
	}
	return &group, nil
}

func (r *PostgresGroupRepository) UpdateGroupInfo(ctx context.Context, id int64, name, kind string) error {
	updates := map[string]any{}
	if name != "" {
		updates["name"] = name
	}
	if kind != "" {
		updates["kind"] = kind
	}
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresGroupRepository) UpdateIcon(ctx context.Context, id int64, ref string) error {
	err := r.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).
		Updates(map[string]any{"icon_ref": ref, "icon_updated_at": time.Now()}).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresGroupRepository) UpdateBackground(ctx context.Context, id int64, ref string) error {
	err := r.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).
		Updates(map[string]any{"background_ref": ref, "background_updated_at": time.Now()}).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresGroupRepository) DeleteGroup(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ? AND kind = ?", id, models.FollowKindGroup).
			Delete(&models.Following{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, id).Error
	})
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresGroupRepository) GroupsOwnedBy(ctx context.Context, ownerID int64) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&groups).Error; err != nil {
		return nil, apperror.Storage(err)
	}
	return groups, nil
}
