// Package attachments stores complaint images on a waffle storage backend.
// A Store returns a reference string that is saved on the complaint and
// later handed back to Delete.
package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// ErrForeignRef is returned by Delete for a reference this store did not issue.
var ErrForeignRef = errors.New("attachments: reference not owned by this store")

// ErrNotImage is returned by Put for a content type outside the image allow list.
var ErrNotImage = errors.New("attachments: only image uploads are accepted")

// Store persists uploaded files.
type Store interface {
	// Put writes r under a unique key derived from name and returns its reference.
	Put(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	// Delete removes the object for ref. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref string) error
}

// MaxImageSize bounds an uploaded complaint image.
const MaxImageSize = 5 << 20

const keyRoot = "complaints/"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Images is a Store backed by a storage.Store. References are the backend's
// public URL for the object key, or the bare key when the backend has no URL.
type Images struct {
	backend storage.Store
	urlBase string
	now     func() time.Time
}

// New wraps backend. Only images up to MaxImageSize are written.
func New(backend storage.Store) *Images {
	// URL("k") is urlBase+"k" for every backend, with any key prefix included.
	base := strings.TrimSuffix(backend.URL("k"), "k")
	return &Images{backend: backend, urlBase: base, now: time.Now}
}

// Backend returns the wrapped storage backend.
func (s *Images) Backend() storage.Store { return s.backend }

func (s *Images) Put(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !IsAllowedImageType(contentType) {
		return "", ErrNotImage
	}
	key := ObjectKey(name, s.now())
	// One extra byte tells an oversized body apart from an exact fit.
	lr := &io.LimitedReader{R: r, N: MaxImageSize + 1}
	err := s.backend.Put(ctx, key, lr, &storage.PutOptions{
		ContentType: contentType,
		IfNotExists: true,
	})
	if err != nil {
		return "", fmt.Errorf("attachments: put %s: %w", key, err)
	}
	if lr.N == 0 {
		_ = s.backend.Delete(ctx, key)
		return "", fmt.Errorf("attachments: image exceeds %d bytes", MaxImageSize)
	}
	return s.urlBase + key, nil
}

func (s *Images) Delete(ctx context.Context, ref string) error {
	key, ok := s.keyFor(ref)
	if !ok {
		return ErrForeignRef
	}
	err := s.backend.Delete(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("attachments: delete %s: %w", key, err)
	}
	return nil
}

// keyFor maps a reference issued by Put back to its object key.
func (s *Images) keyFor(ref string) (string, bool) {
	key, ok := strings.CutPrefix(ref, s.urlBase)
	if !ok || !strings.HasPrefix(key, keyRoot) || len(key) == len(keyRoot) {
		return "", false
	}
	if storage.ValidatePath(key) != nil || storage.NormalizePath(key) != key {
		return "", false
	}
	return key, true
}

// IsAllowedImageType reports whether contentType is an accepted image type.
func IsAllowedImageType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return allowedImageTypes[ct]
}

// ObjectKey builds a unique key: complaints/YYYY/MM/<uuid8>-<sanitized name>.
func ObjectKey(name string, now time.Time) string {
	now = now.UTC()
	dateDir := fmt.Sprintf("complaints/%04d/%02d", now.Year(), now.Month())
	return path.Join(dateDir, fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeFilename(name)))
}

// sanitizeFilename replaces characters that could be problematic in keys.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	// Storage backends reject any key containing "..".
	for bytes.Contains(result, []byte("..")) {
		result = bytes.ReplaceAll(result, []byte(".."), []byte("_."))
	}
	if len(result) == 0 || string(result) == "." || string(result) == "_." {
		return "image"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
