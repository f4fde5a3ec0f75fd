// Package blobstore stores opaque media bytes (profile images, group images,
// post media) by reference. The rest of the system never interprets blob
// content; it passes references around and serves bytes back to clients.
package blobstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/circlehub/backend/internal/apperror"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// Store is the blob boundary contract: put bytes, get a reference back.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// GridFSStore keeps blobs in a MongoDB GridFS bucket. References are the
// file ObjectID in hex.
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket}, nil
}

func (s *GridFSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	id, err := s.bucket.UploadFromStream(name, bytes.NewReader(data))
	if err != nil {
		return "", apperror.Storage(err)
	}
	return id.Hex(), nil
}

func (s *GridFSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid blob reference: %w", err)
	}
	var buf bytes.Buffer
	if _, err := s.bucket.DownloadToStream(id, &buf); err != nil {
		if err == gridfs.ErrFileNotFound {
			return nil, apperror.NotFound("blob", ref)
		}
		return nil, apperror.Storage(err)
	}
	return buf.Bytes(), nil
}

func (s *GridFSStore) Delete(ctx context.Context, ref string) error {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return fmt.Errorf("invalid blob reference: %w", err)
	}
	if err := s.bucket.DeleteContext(ctx, id); err != nil {
		if err == gridfs.ErrFileNotFound {
			return nil
		}
		return apperror.Storage(err)
	}
	return nil
}
