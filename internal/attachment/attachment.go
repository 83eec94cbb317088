// Package attachment stores uploaded images and links them to records.
//
// With a blob store configured the bytes go to the store and the record keeps
// a `blob:<key>` reference; without one the image is embedded in the record
// as a base64 data URL.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"deskcore/internal/async"
	"deskcore/internal/blob"
	"deskcore/internal/core"
	"deskcore/pkg/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobScheme prefixes references to blob-stored images.
const BlobScheme = "blob:"

// DefaultMaxBytes bounds a single upload.
const DefaultMaxBytes int64 = 10 << 20

var (
	// ErrNotImage is returned for content types outside image/*.
	ErrNotImage = fmt.Errorf("%w: content type must be image/*", domain.ErrValidation)
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = fmt.Errorf("%w: upload exceeds size limit", domain.ErrValidation)
	// ErrNoImages is returned when the target entity has no image list.
	ErrNoImages = fmt.Errorf("%w: entity does not hold images", domain.ErrValidation)
)

// Upload is one pending image upload.
type Upload struct {
	Entity      domain.EntityType
	ID          string
	Name        string
	ContentType string
	Body        io.Reader
}

// Uploader writes images and appends their references to records.
type Uploader struct {
	svc      *core.Service
	tracker  *async.Tracker
	blobs    blob.Store
	maxBytes int64
	logger   *zap.Logger
	newKey   func() string
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithBlobStore stores image bytes in s instead of inline data URLs.
func WithBlobStore(s blob.Store) Option { return func(u *Uploader) { u.blobs = s } }

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.maxBytes = n
		}
	}
}

// WithLogger sets the uploader logger.
func WithLogger(l *zap.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUploader returns an uploader dispatching through svc. Uploads commit
// only while their token is current in tracker.
func NewUploader(svc *core.Service, tracker *async.Tracker, opts ...Option) *Uploader {
	u := &Uploader{
		svc:      svc,
		tracker:  tracker,
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
		newKey:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload stores up.Body and appends its reference to the record. When tok is
// no longer current the stored blob is removed and async.ErrStale returned.
func (u *Uploader) Upload(ctx context.Context, tok async.Token, up Upload) (string, error) {
	if !strings.HasPrefix(strings.ToLower(up.ContentType), "image/") {
		return "", ErrNotImage
	}
	if !holdsImages(u.svc.Catalog(), up.Entity) {
		return "", ErrNoImages
	}
	data, err := io.ReadAll(io.LimitReader(up.Body, u.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return "", ErrTooLarge
	}

	ref, err := u.put(ctx, path.Join(string(up.Entity), up.ID), up, data)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	err = u.tracker.Commit(tok, func() error {
		_, err := u.svc.Dispatch(ctx, core.UpdateAction(up.Entity, up.ID, func(rec domain.Record) error {
			holder, ok := rec.(domain.ImageHolder)
			if !ok {
				return ErrNoImages
			}
			holder.AddImage(ref)
			return nil
		}))
		return err
	})
	if err != nil {
		u.Discard(context.WithoutCancel(ctx), ref)
		if errors.Is(err, async.ErrStale) {
			u.logger.Debug("discarded stale upload", zap.String("entity", string(up.Entity)), zap.String("id", up.ID))
		}
		return "", err
	}
	return ref, nil
}

// Stash stores a file for entity without linking it to any record and
// returns its reference. Any content type is accepted; the size limit still
// applies.
func (u *Uploader) Stash(ctx context.Context, entity domain.EntityType, name, contentType string, data []byte) (string, error) {
	if int64(len(data)) > u.maxBytes {
		return "", ErrTooLarge
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ref, err := u.put(ctx, string(entity), Upload{Entity: entity, Name: name, ContentType: contentType}, data)
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return ref, nil
}

// Discard deletes the blob behind ref. Data URLs have nothing to delete.
func (u *Uploader) Discard(ctx context.Context, ref string) {
	key, ok := strings.CutPrefix(ref, BlobScheme)
	if !ok || u.blobs == nil {
		return
	}
	if _, err := u.blobs.Delete(ctx, key); err != nil {
		u.logger.Warn("orphaned blob", zap.String("key", key), zap.Error(err))
	}
}

// put writes data under dir in the blob store, or encodes it as a data URL
// when no store is configured.
func (u *Uploader) put(ctx context.Context, dir string, up Upload, data []byte) (string, error) {
	if u.blobs == nil {
		return DataURL(up.ContentType, data), nil
	}
	key := path.Join(dir, u.newKey()+strings.ToLower(filepath.Ext(up.Name)))
	if _, err := u.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: up.ContentType,
		Metadata:    map[string]string{"entity": string(up.Entity), "id": up.ID, "name": up.Name},
	}); err != nil {
		return "", err
	}
	return BlobScheme + key, nil
}

// Remove unlinks ref from the record and deletes the backing blob.
func (u *Uploader) Remove(ctx context.Context, entity domain.EntityType, id, ref string) error {
	_, err := u.svc.Dispatch(ctx, core.UpdateAction(entity, id, func(rec domain.Record) error {
		holder, ok := rec.(domain.ImageHolder)
		if !ok {
			return ErrNoImages
		}
		if !holder.RemoveImage(ref) {
			return domain.NewValidationError(entity, "images", "unknown image reference")
		}
		return nil
	}))
	if err != nil {
		return err
	}
	if key, ok := strings.CutPrefix(ref, BlobScheme); ok && u.blobs != nil {
		if _, err := u.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete image blob: %w", err)
		}
	}
	return nil
}

// Open returns the bytes behind ref, decoding data URLs in place.
func (u *Uploader) Open(ctx context.Context, ref string) (string, io.ReadCloser, error) {
	if key, ok := strings.CutPrefix(ref, BlobScheme); ok {
		if u.blobs == nil {
			return "", nil, fmt.Errorf("blob reference %q without a blob store", ref)
		}
		info, rc, err := u.blobs.Get(ctx, key)
		if err != nil {
			return "", nil, err
		}
		return info.ContentType, rc, nil
	}
	contentType, data, err := ParseDataURL(ref)
	if err != nil {
		return "", nil, err
	}
	return contentType, io.NopCloser(bytes.NewReader(data)), nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL decodes a base64 data URL produced by DataURL.
func ParseDataURL(ref string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL without payload")
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return contentType, data, nil
}

func holdsImages(catalog *domain.Catalog, entity domain.EntityType) bool {
	d, ok := catalog.Descriptor(entity)
	if !ok {
		return false
	}
	_, ok = d.NewRecord().(domain.ImageHolder)
	return ok
}
