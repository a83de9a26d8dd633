package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = eris.New("imagestore: object not found")

// Objects is a flat key/value blob store with public URLs.
type Objects interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
}

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client     *storage.Client
	bucket     string
	publicBase string
}

// NewGCS opens a storage client for bucket. publicBase, when set, replaces
// the storage.googleapis.com host in public URLs (a CDN domain, say).
func NewGCS(ctx context.Context, bucket, publicBase string, opts ...option.ClientOption) (*GCS, error) {
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "imagestore: storage client")
	}
	return &GCS{client: c, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Close releases the storage client.
func (g *GCS) Close() error { return g.client.Close() }

// Exists implements Objects.
func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "imagestore: attrs %s", key)
	}
	return true, nil
}

// Put implements Objects.
func (g *GCS) Put(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return eris.Wrapf(err, "imagestore: write %s", key)
	}
	if err := w.Close(); err != nil {
		return eris.Wrapf(err, "imagestore: close writer %s", key)
	}
	return nil
}

// Get implements Objects.
func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "imagestore: open %s", key)
	}
	defer r.Close() //nolint:errcheck
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "imagestore: read %s", key)
	}
	return data, nil
}

// PublicURL implements Objects.
func (g *GCS) PublicURL(key string) string {
	if g.publicBase != "" {
		return g.publicBase + "/" + key
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key)
}

// Memory is an in-process Objects used when no bucket is configured and
// in tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
	base    string
}

// NewMemory creates an empty Memory store whose public URLs start with base.
func NewMemory(base string) *Memory {
	return &Memory{objects: map[string][]byte{}, types: map[string]string{}, base: strings.TrimRight(base, "/")}
}

// Exists implements Objects.
func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Put implements Objects.
func (m *Memory) Put(_ context.Context, key, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

// Get implements Objects.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return data, nil
}

// PublicURL implements Objects.
func (m *Memory) PublicURL(key string) string { return m.base + "/" + key }

// ContentType returns the stored content type for key.
func (m *Memory) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}
