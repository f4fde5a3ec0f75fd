package models

import "time"

// PasswordReset is one outstanding reset attempt. Records expire after a
// short window and are deleted once the code is consumed or expired.
type PasswordReset struct {
	ID        string    `json:"password_reset_id" gorm:"primaryKey;size:36"` // uuid
	UserID    int64     `json:"user_id" gorm:"index"`
	Code      string    `json:"-" gorm:"size:6"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type RequestPasswordResetRequest struct {
	Email string `form:"emailaddress" json:"email" validate:"required,email"`
}

type CheckResetCodeRequest struct {
	PasswordResetID string `form:"passwordresetid" json:"password_reset_id" validate:"required"`
	Code            string `form:"code" json:"code" validate:"required,len=6"`
}

type UpdatePasswordRequest struct {
	PasswordResetID string `form:"passwordresetid" json:"password_reset_id" validate:"required"`
	NewPassword     string `form:"newpassword" json:"new_password" validate:"required,min=8"`
}
