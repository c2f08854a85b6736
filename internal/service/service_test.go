package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/storage"
)

// Shared fakes for the service tests.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu        sync.Mutex
	name      string
	objects   map[string][]byte
	types     map[string]string
	maxSizes  map[string]int64
	putErr    error
	deleteErr error
	puts      int
}

func newMemStorage(name string) *memStorage {
	return &memStorage{
		name:     name,
		objects:  make(map[string][]byte),
		types:    make(map[string]string),
		maxSizes: make(map[string]int64),
	}
}

func (m *memStorage) Put(_ context.Context, key string, data io.Reader, opts storage.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return &storage.StorageError{Op: "Put", Key: key, Err: m.putErr}
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if opts.MaxSize > 0 && int64(len(b)) > opts.MaxSize {
		return &storage.StorageError{Op: "Put", Key: key, Err: storage.ErrTooLarge}
	}
	m.objects[key] = b
	m.types[key] = opts.ContentType
	m.maxSizes[key] = opts.MaxSize
	return nil
}

func (m *memStorage) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return &storage.StorageError{Op: "Delete", Key: key, Err: m.deleteErr}
	}
	delete(m.objects, key)
	return nil
}

func (m *memStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://cdn.example.org/" + m.name + "/" + key, nil
}

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) only() (string, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.objects {
		return k, v
	}
	return "", nil
}

// stubCompressor returns fixed output and counts calls.
type stubCompressor struct {
	out         []byte
	contentType string
	err         error
	calls       int
}

func (c *stubCompressor) Compress(data []byte, maxDimension int) ([]byte, string, error) {
	c.calls++
	if c.err != nil {
		return nil, "", c.err
	}
	return c.out, c.contentType, nil
}

func attachment(name, contentType string, size int) *domain.Attachment {
	return &domain.Attachment{Filename: name, ContentType: contentType, Data: bytes.Repeat([]byte{0xAB}, size)}
}
