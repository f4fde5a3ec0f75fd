package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post kinds.
const (
	PostText  = "text"
	PostImage = "image"
	PostGroup = "group"
)

// Post represents a post stored in MongoDB. Media is held in the blobstore
// and referenced here; clients fetch bytes through the media endpoints.
type Post struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    int64              `json:"user_id" bson:"user_id"`
	GroupID   *int64             `json:"group_id,omitempty" bson:"group_id,omitempty"`
	Kind      string             `json:"kind" bson:"kind"`
	Content   string             `json:"content" bson:"content"`
	MediaRefs []string           `json:"media_refs,omitempty" bson:"media_refs,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content string `json:"content" validate:"required_without=MediaRefs,omitempty,max=2000"`
	GroupID *int64 `json:"group_id,omitempty"`
	Kind    string `json:"kind" validate:"required,oneof=text image group"`
	// MediaRefs are blobstore references returned by the media upload endpoint.
	MediaRefs []string `json:"media_refs,omitempty" validate:"omitempty,dive,required"`
}
