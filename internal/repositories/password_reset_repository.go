package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"gorm.io/gorm"
)

// PasswordResetRepository holds outstanding reset attempts.
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *models.PasswordReset) error
	GetByID(ctx context.Context, id string) (*models.PasswordReset, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID int64) error
}

type postgresPasswordResetRepository struct {
	db *gorm.DB
}

func NewPostgresPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &postgresPasswordResetRepository{db: db}
}

func (r *postgresPasswordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) error {
	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(reset).Error; err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *postgresPasswordResetRepository) GetByID(ctx context.Context, id string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	if err := r.db.WithContext(ctx).First(&reset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("password reset", id)
		}
		return nil, apperror.Storage(err)
	}
	return &reset, nil
}

func (r *postgresPasswordResetRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.PasswordReset{}, "id = ?", id).Error; err != nil {
		return apperror.Storage(err)
	}
	return nil
}

// DeleteForUser clears stale attempts before creating a new one.
func (r *postgresPasswordResetRepository) DeleteForUser(ctx context.Context, userID int64) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PasswordReset{}).Error; err != nil {
		return apperror.Storage(err)
	}
	return nil
}
