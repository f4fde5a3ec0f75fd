package repositories

import (
	"context"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository is the read/maintenance side of notifications.
// Creation happens through the RelationshipStore so it shares the atomic
// unit of the transition that caused it.
type NotificationRepository interface {
	GetByRecipientID(ctx context.Context, recipientID int64, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID int64) (int64, error)
	MarkSeen(ctx context.Context, notificationID uint) error
	// MarkAllSeen flips every unseen row and clears the recipient's unread
	// flag in one transaction.
	MarkAllSeen(ctx context.Context, recipientID int64) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID int64, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, apperror.Storage(err)
	}

	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, apperror.Storage(err)
	}
	return notifications, total, nil
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND seen = false", recipientID).Count(&count).Error
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return count, nil
}

func (r *postgresNotificationRepository) MarkSeen(ctx context.Context, notificationID uint) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).Update("seen", true).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllSeen(ctx context.Context, recipientID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Notification{}).
			Where("recipient_id = ? AND seen = false", recipientID).
			Update("seen", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", recipientID).
			UpdateColumn("unread_notifications", false).Error
	})
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}
