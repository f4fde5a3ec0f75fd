package repositories

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/circlehub/backend/internal/apperror"
	"github.com/circlehub/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user account operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SetOnline(ctx context.Context, id int64, online bool) error
	SetEmailConfirmed(ctx context.Context, id int64) error
	ClearUnreadFlag(ctx context.Context, id int64) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// mintUserID draws a random 63-bit identifier. Uniqueness is enforced by the
// primary key; CreateUser retries on the rare collision.
func mintUserID() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err) // crypto/rand failure means the process is unusable
	}
	id := int64(binary.BigEndian.Uint64(buf[:]) >> 1)
	if id == 0 {
		id = 1
	}
	return id
}

// CreateUser inserts the user with a freshly minted ID. The duplicate-email
// check runs inside the same transaction as the insert so two concurrent
// signups with one email cannot both succeed.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		user.ID = mintUserID()
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperror.DuplicateEmail(user.Email)
			}
			return tx.Create(user).Error
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			lastErr = err
			continue // ID collision, mint again
		}
		return apperror.Storage(err)
	}
	return apperror.Storage(lastErr)
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, apperror.Storage(err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, apperror.Storage(err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", firebaseUID)
		}
		return nil, apperror.Storage(err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresUserRepository) SetOnline(ctx context.Context, id int64, online bool) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).UpdateColumn("online", online).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

// SetEmailConfirmed flips the confirmed flag; it is set once by the
// confirmation callback and never cleared.
func (r *PostgresUserRepository) SetEmailConfirmed(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).UpdateColumn("email_confirmed", true).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresUserRepository) ClearUnreadFlag(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).UpdateColumn("unread_notifications", false).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (r *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).UpdateColumn("password_hash", hash).Error
	if err != nil {
		return apperror.Storage(err)
	}
	return nil
}

// SearchUsers searches for users by name or email (case-insensitive).
func (r *PostgresUserRepository) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", "%"+query+"%", "%"+query+"%").
		Find(&users).Error
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return users, nil
}
