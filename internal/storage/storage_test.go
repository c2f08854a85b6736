package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Key Helpers
// =============================================================================

func TestMediaKey(t *testing.T) {
	now := time.UnixMilli(1741602330123)
	pattern := regexp.MustCompile(`^photos/1741602330123-[0-9a-f]{12}\.jpg$`)

	key := MediaKey("photos", "JPG", now)
	assert.Regexp(t, pattern, key)

	assert.True(t, strings.HasSuffix(MediaKey("videos", "", now), ".bin"))
	assert.True(t, strings.HasSuffix(MediaKey("videos", ".MP4", now), ".mp4"))
	assert.NotEqual(t, key, MediaKey("photos", "jpg", now))
}

func TestExtensionForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "jpg"},
		{"IMAGE/PNG", "png"},
		{"video/quicktime", "mov"},
		{"video/mp4; codecs=avc1", "mp4"},
		{"application/x-unknown-thing", "bin"},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionForContentType(tt.contentType))
		})
	}
}

func TestContentTypeOrWildcard(t *testing.T) {
	assert.Equal(t, "image/png", ContentTypeOrWildcard("image/png", "image"))
	assert.Equal(t, "video/*", ContentTypeOrWildcard("", "video"))
	assert.Equal(t, "image/*", ContentTypeOrWildcard("  ", "image"))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", DetectContentType("video/mp4", "x.jpg", nil))
	assert.Equal(t, "image/png", DetectContentType("", "a.png", nil))
	assert.Equal(t, "video/mp4", DetectContentType("", "videos/1-b.MP4", nil))
	assert.Equal(t, "video/quicktime", DetectContentType("", "clip.mov", nil))

	pngMagic := []byte("\x89PNG\r\n\x1a\n")
	assert.Equal(t, "image/png", DetectContentType("", "noext", bytes.NewReader(pngMagic)))
	assert.Equal(t, "application/octet-stream", DetectContentType("", "noext", nil))
}

// =============================================================================
// S3 Error Mapping
// =============================================================================

func TestWrapS3Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, ErrNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied", Message: "bad key"}, ErrAccessDenied},
		{"bad signature", &smithy.GenericAPIError{Code: "SignatureDoesNotMatch"}, ErrAccessDenied},
		{"bad key id", &smithy.GenericAPIError{Code: "InvalidAccessKeyId"}, ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, wrapS3Error(tt.err), tt.want)
		})
	}

	other := wrapS3Error(errors.New("boom"))
	assert.False(t, IsNotFound(other))
	assert.False(t, IsAccessDenied(other))
	assert.NoError(t, wrapS3Error(nil))
}

// =============================================================================
// LocalStorage
// =============================================================================

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files/complaints-photos/",
	}, testLogger())
	require.NoError(t, err)
	return s
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	err := s.Put(ctx, "photos/1-a.jpg", strings.NewReader("jpeg-bytes"), PutOptions{ContentType: "image/jpeg"})
	require.NoError(t, err)

	exists, err := s.Exists(ctx, "photos/1-a.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, info, err := s.Get(ctx, "photos/1-a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)

	url, err := s.URL(ctx, "photos/1-a.jpg", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/complaints-photos/photos/1-a.jpg", url)

	require.NoError(t, s.Delete(ctx, "photos/1-a.jpg"))
	require.NoError(t, s.Delete(ctx, "photos/1-a.jpg"))

	_, _, err = s.Get(ctx, "photos/1-a.jpg")
	assert.True(t, IsNotFound(err))
}

func TestLocalStorage_NoOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, s.Put(ctx, "videos/k.mp4", strings.NewReader("one"), PutOptions{}))
	err := s.Put(ctx, "videos/k.mp4", strings.NewReader("two"), PutOptions{})
	assert.ErrorIs(t, err, ErrKeyExists)

	require.NoError(t, s.Put(ctx, "videos/k.mp4", strings.NewReader("two"), PutOptions{Overwrite: true}))
	rc, _, err := s.Get(ctx, "videos/k.mp4")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(data))
}

func TestLocalStorage_MaxSize(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	err := s.Put(ctx, "photos/big.jpg", bytes.NewReader(make([]byte, 11)), PutOptions{MaxSize: 10})
	assert.True(t, IsTooLarge(err))

	exists, err := s.Exists(ctx, "photos/big.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	for _, key := range []string{"", "../escape.txt", "photos/../../etc/passwd"} {
		err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(s.basePath), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newLocal(t)

	err := s.Put(ctx, "photos/a.jpg", strings.NewReader("x"), PutOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// BucketUploader
// =============================================================================

func TestBucketUploader_Upload(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	u := NewBucketUploader(s, "evidence")
	u.now = func() time.Time { return time.UnixMilli(1741602330123) }

	url, err := u.Upload(ctx, "roll.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Regexp(t, `^http://localhost:8080/files/complaints-photos/evidence/1741602330123-[0-9a-f]{12}\.pdf$`, url)

	key := strings.TrimPrefix(url, "http://localhost:8080/files/complaints-photos/")
	rc, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "application/pdf", info.ContentType)
}

func TestBucketUploader_ExtensionFromFilename(t *testing.T) {
	u := NewBucketUploader(newLocal(t), "evidence")

	url, err := u.Upload(context.Background(), "scan.heic", "application/x-unknown", []byte("data"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".heic"), url)
}
