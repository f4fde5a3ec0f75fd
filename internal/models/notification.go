package models

import "time"

// Notification kinds.
const (
	NotificationLike                   = "like"
	NotificationComment                = "comment"
	NotificationReply                  = "reply"
	NotificationFollow                 = "follow"
	NotificationGroupPermissionRequest = "group-permission-request"
	NotificationGroupPermissionGranted = "group-permission-granted"
	NotificationGroupAdded             = "group-added"
)

// Notification is created only as a side effect of a state transition and is
// persisted in the same atomic unit as that transition.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RecipientID int64     `json:"recipient_id" gorm:"index"`
	ActorID     int64     `json:"actor_id" gorm:"index"`
	Kind        string    `json:"kind" gorm:"size:30;index"`
	GroupID     *int64    `json:"group_id,omitempty"`
	Message     string    `json:"message"`
	Seen        bool      `json:"seen" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
