// Package assetstore uploads and deletes the binary assets (alarm sounds,
// house images) that entities reference by id and URL. The blobs themselves
// live in a Backend: the local filesystem or an S3-compatible bucket.
package assetstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/vbonduro/homealarm/internal/domain"
)

// Backend is the raw blob storage the adapter writes to.
type Backend interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	URL(key string) string
}

// File is an inbound asset payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Transform describes an eager derivative produced at upload time. Only
// centre-gravity thumbnail crops are supported.
type Transform struct {
	Name    string
	Width   int
	Height  int
	Quality int
}

type Options struct {
	ResourceType string
	Folder       string
	Eager        []Transform
}

type Derived struct {
	ID        string
	SecureURL string
}

type Result struct {
	ID        string
	SecureURL string
	Eager     []Derived
}

// HouseThumb is the derivative shown for house images.
var HouseThumb = Transform{Name: "thumb", Width: 600, Height: 1000, Quality: 80}

type Adapter struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

func New(backend Backend, logger *slog.Logger) *Adapter {
	return &Adapter{backend: backend, logger: logger, now: time.Now}
}

// Upload stores f and any eager derivatives. On failure nothing written by
// this call is left behind (best effort) and the error is a
// *domain.AssetUploadError.
func (a *Adapter) Upload(ctx context.Context, f File, opts Options) (*Result, error) {
	if len(f.Data) == 0 {
		return nil, &domain.AssetUploadError{Message: "empty file " + f.Name}
	}

	key := NewKey(opts.Folder, f.Name, a.now())
	contentType := f.ContentType
	if contentType == "" {
		contentType = ContentTypeFor(f.Name)
	}

	if err := a.backend.Put(ctx, key, contentType, bytes.NewReader(f.Data)); err != nil {
		return nil, &domain.AssetUploadError{Message: "store " + f.Name, Err: err}
	}
	a.logger.Debug("asset stored", "asset_id", key, "resource_type", opts.ResourceType, "bytes", len(f.Data))

	result := &Result{ID: key, SecureURL: a.backend.URL(key)}
	for _, t := range opts.Eager {
		derived, err := a.derive(ctx, key, f.Data, t)
		if err != nil {
			a.rollback(ctx, key)
			return nil, &domain.AssetUploadError{Message: "eager " + t.Name, Err: err}
		}
		result.Eager = append(result.Eager, *derived)
	}
	return result, nil
}

// Delete removes the asset and its derivatives. Deleting an asset that no
// longer exists succeeds.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	keys, err := a.backend.List(ctx, id)
	if err != nil {
		return &domain.AssetDeleteError{AssetID: id, Message: "list", Err: err}
	}
	for _, k := range keys {
		if err := a.backend.Delete(ctx, k); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &domain.AssetDeleteError{AssetID: id, Message: "delete " + k, Err: err}
		}
	}
	a.logger.Debug("asset deleted", "asset_id", id, "blobs", len(keys))
	return nil
}

func (a *Adapter) derive(ctx context.Context, key string, data []byte, t Transform) (*Derived, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	thumb := imaging.Thumbnail(img, t.Width, t.Height, imaging.Lanczos)

	quality := t.Quality
	if quality == 0 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", t.Name, err)
	}

	dkey := DerivedKey(key, t)
	if err := a.backend.Put(ctx, dkey, "image/jpeg", &buf); err != nil {
		return nil, err
	}
	return &Derived{ID: dkey, SecureURL: a.backend.URL(dkey)}, nil
}

func (a *Adapter) rollback(ctx context.Context, key string) {
	if err := a.Delete(ctx, key); err != nil {
		a.logger.Error("failed to remove partial upload", "asset_id", key, "error", err)
	}
}

var knownTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".wma":  "audio/x-ms-wma",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ContentTypeFor guesses a MIME type from the file extension of name.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := knownTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// NewKey builds a unique blob key: <folder>/<yyyymmdd>-<uuid>-<name>.
func NewKey(folder, name string, now time.Time) string {
	safe := unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	key := fmt.Sprintf("%s-%s-%s", now.UTC().Format("20060102"), uuid.NewString(), safe)
	if folder == "" {
		return key
	}
	return strings.Trim(folder, "/") + "/" + key
}

// DerivedKey is the blob key of a derivative of key. It shares key as a
// prefix so Delete finds it.
func DerivedKey(key string, t Transform) string {
	return fmt.Sprintf("%s--%s_%dx%d.jpg", key, t.Name, t.Width, t.Height)
}
