package models

import "time"

// Group visibility kinds.
const (
	GroupPublic  = "public"
	GroupPrivate = "private"
)

// Group represents a user-owned group. MemberCount is denormalized: it must
// equal the number of active memberships after every completed transition.
type Group struct {
	ID                  int64     `json:"id" gorm:"primaryKey"`
	OwnerID             int64     `json:"owner_id" gorm:"index"`
	Name                string    `json:"name"` // not required unique
	Kind                string    `json:"kind" gorm:"size:10;default:'public'"`
	IconRef             string    `json:"icon_ref,omitempty"`       // blobstore reference
	BackgroundRef       string    `json:"background_ref,omitempty"` // blobstore reference
	IconUpdatedAt       time.Time `json:"icon_updated_at"`
	BackgroundUpdatedAt time.Time `json:"background_updated_at"`
	MemberCount         int64     `json:"member_count" gorm:"default:0"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CreateGroupRequest defines the multipart form fields for group creation.
// Icon and background images arrive as file parts.
type CreateGroupRequest struct {
	Name string `form:"groupname" validate:"required,min=1,max=100"`
	Kind string `form:"grouptype" validate:"required,oneof=public private"`
}

type UpdateGroupRequest struct {
	Name string `form:"groupname" json:"groupname,omitempty" validate:"omitempty,min=1,max=100"`
	Kind string `form:"grouptype" json:"grouptype,omitempty" validate:"omitempty,oneof=public private"`
}
