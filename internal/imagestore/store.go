// Package imagestore re-hosts third-party images and keeps user-supplied
// reference photos.
package imagestore

import (
	"context"
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/person-search/internal/imagefetch"
)

// Store proxies images into Objects.
type Store struct {
	proxy       Objects
	refs        Objects
	fetch       *imagefetch.Fetcher
	proxyPrefix string
	refPrefix   string
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefixes sets the key prefixes for proxied images and reference photos.
func WithPrefixes(proxyPrefix, refPrefix string) Option {
	return func(s *Store) {
		if proxyPrefix != "" {
			s.proxyPrefix = strings.TrimRight(proxyPrefix, "/") + "/"
		}
		if refPrefix != "" {
			s.refPrefix = strings.TrimRight(refPrefix, "/") + "/"
		}
	}
}

// WithReferenceObjects stores reference photos somewhere other than the
// proxy objects.
func WithReferenceObjects(o Objects) Option {
	return func(s *Store) { s.refs = o }
}

// New creates a Store. With nil objects, Proxy returns URLs unchanged and
// reference photos are kept in process memory.
func New(objects Objects, fetch *imagefetch.Fetcher, opts ...Option) *Store {
	s := &Store{
		proxy:       objects,
		refs:        objects,
		fetch:       fetch,
		proxyPrefix: "cache/",
		refPrefix:   "references/",
		now:         time.Now,
	}
	if s.fetch == nil {
		s.fetch = imagefetch.New()
	}
	for _, o := range opts {
		o(s)
	}
	if s.refs == nil {
		s.refs = NewMemory("memory://")
	}
	return s
}

// Key is the content address of rawURL: md5 of the URL plus its image
// extension (".jpg" when unknown).
func Key(rawURL string) string {
	sum := md5.Sum([]byte(rawURL)) //nolint:gosec
	ext := ".jpg"
	if u, err := url.Parse(rawURL); err == nil {
		switch e := strings.ToLower(path.Ext(u.Path)); e {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp":
			ext = e
		}
	}
	return hex.EncodeToString(sum[:]) + ext
}

// Proxy re-hosts rawURL and returns the stable internal URL. An object
// already stored under the URL's key is reused without downloading.
func (s *Store) Proxy(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", eris.New("imagestore: empty url")
	}
	if s.proxy == nil {
		return rawURL, nil
	}
	key := s.proxyPrefix + Key(rawURL)

	exists, err := s.proxy.Exists(ctx, key)
	if err != nil {
		zap.L().Debug("imagestore: exists check failed", zap.String("key", key), zap.Error(err))
	}
	if exists {
		return s.proxy.PublicURL(key), nil
	}

	img, err := s.fetch.Fetch(ctx, rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "imagestore: download %s", rawURL)
	}
	if err := s.proxy.Put(ctx, key, img.ContentType, img.Data); err != nil {
		return "", err
	}
	return s.proxy.PublicURL(key), nil
}

// PutReference stores a reference photo and returns its id. Ids combine
// the upload time with a random suffix.
func (s *Store) PutReference(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", eris.New("imagestore: empty reference photo")
	}
	id := fmt.Sprintf("%s-%s", s.now().UTC().Format("20060102T150405"), uuid.NewString())
	if err := s.refs.Put(ctx, s.refKey(id), "image/jpeg", data); err != nil {
		return "", eris.Wrap(err, "imagestore: put reference")
	}
	return id, nil
}

// GetReference loads a reference photo by id.
func (s *Store) GetReference(ctx context.Context, id string) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return nil, eris.Errorf("imagestore: invalid reference id %q", id)
	}
	data, err := s.refs.Get(ctx, s.refKey(id))
	if err != nil {
		return nil, eris.Wrapf(err, "imagestore: get reference %s", id)
	}
	return data, nil
}

func (s *Store) refKey(id string) string { return s.refPrefix + id + ".jpg" }
