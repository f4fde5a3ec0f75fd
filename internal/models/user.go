package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type User struct {
	ID                  int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username            string    `json:"username"`
	Email               string    `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Birthdate           string    `json:"birthdate,omitempty"`
	Age                 int       `json:"age"`
	PhoneNumber         string    `json:"phone_number,omitempty"`
	PasswordHash        string    `json:"-"`                           // bcrypt hash, never serialized
	ProfileImageRef     string    `json:"profile_image_ref,omitempty"` // blobstore reference
	Online              bool      `json:"online" gorm:"default:false"`
	EmailConfirmed      bool      `json:"email_confirmed" gorm:"default:false"`
	UnreadNotifications bool      `json:"unread_notifications" gorm:"default:false"`
	FirebaseUID         *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // set for Google sign-in accounts
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// UserCompact is the shape embedded in enriched responses (notifications,
// member lists) where the full account record would be too heavy.
type UserCompact struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	ProfileImageRef string `json:"profile_image_ref,omitempty"`
	Online          bool   `json:"online"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:              u.ID,
		Username:        u.Username,
		ProfileImageRef: u.ProfileImageRef,
		Online:          u.Online,
	}
}

// SignUpRequest defines the multipart form fields for local signup.
// The profile image arrives as a separate file part and goes to the blobstore.
type SignUpRequest struct {
	Username        string `form:"username" validate:"required,min=2,max=50"`
	Birthdate       string `form:"birthdate" validate:"required"`
	Age             int    `form:"age" validate:"required,min=0,max=150"`
	Email           string `form:"emailaddress" validate:"required,email"`
	PhoneNumber     string `form:"phonenumber" validate:"required"`
	Password        string `form:"password" validate:"required,min=8"`
	ReenterPassword string `form:"reenterpassword" validate:"required"`
}

// GoogleSignUpRequest carries a Firebase ID token plus profile fields.
type GoogleSignUpRequest struct {
	IDToken  string `json:"id_token" validate:"required"`
	Username string `json:"username" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
}

type LogInRequest struct {
	Email    string `form:"emailaddress" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username    string `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
	Birthdate   string `json:"birthdate,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
