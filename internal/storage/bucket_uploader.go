package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"
)

// BucketUploader hosts chatbot evidence in one of our own buckets. It stands
// in for CloudinaryUploader when no Cloudinary account is configured.
type BucketUploader struct {
	store  Storage
	prefix string
	now    func() time.Time
}

// NewBucketUploader creates a BucketUploader writing under prefix.
func NewBucketUploader(store Storage, prefix string) *BucketUploader {
	return &BucketUploader{store: store, prefix: prefix, now: time.Now}
}

// Upload stores data under a fresh key and returns its public URL.
func (u *BucketUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	ext := ExtensionForContentType(contentType)
	if ext == "bin" && path.Ext(filename) != "" {
		ext = path.Ext(filename)
	}
	key := MediaKey(u.prefix, ext, u.now())

	err := u.store.Put(ctx, key, bytes.NewReader(data), PutOptions{
		ContentType:  contentType,
		CacheControl: CacheControlPublic,
	})
	if err != nil {
		return "", fmt.Errorf("store %s: %w", filename, err)
	}
	return u.store.URL(ctx, key, 0)
}
