// Package images stores admin-uploaded media.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/storage"
)

// MaxSize is the largest accepted image in bytes.
const MaxSize = 5 << 20

// Prefix is the key prefix under which images are stored.
const Prefix = "images/"

// DefaultKind is used when an upload does not name a kind.
const DefaultKind = "general"

// Errors returned by the service.
var (
	ErrUnsupportedType = errors.New("only JPEG, PNG and WebP images are allowed")
	ErrTooLarge        = errors.New("image exceeds the 5MB limit")
	ErrInvalidKind     = errors.New("image type must be 1-32 lowercase letters, digits, '-' or '_'")
	ErrEmpty           = errors.New("image is empty")
)

var kindPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Service validates and stores images.
type Service struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewService creates an image service on store.
func NewService(store storage.Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger.With().Str("component", "images").Logger()}
}

// Upload sniffs the content type of r, enforces the size limit and stores the
// image under images/<kind>/<uuid>.<ext>.
func (s *Service) Upload(ctx context.Context, kind string, r io.Reader) (*models.Image, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = DefaultKind
	}
	if !kindPattern.MatchString(kind) {
		return nil, ErrInvalidKind
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}

	key := Prefix + kind + "/" + uuid.NewString() + ext
	obj, err := s.store.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to store image")
		return nil, fmt.Errorf("store image: %w", err)
	}

	s.logger.Info().Str("key", key).Int64("size", obj.Size).Msg("image stored")
	img := s.toAPIImage(*obj)
	return &img, nil
}

// List returns stored images, most recently updated first.
func (s *Service) List(ctx context.Context) ([]models.Image, error) {
	objects, err := s.store.List(ctx, Prefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Updated.After(objects[j].Updated)
	})

	out := make([]models.Image, 0, len(objects))
	for _, obj := range objects {
		out = append(out, s.toAPIImage(obj))
	}
	return out, nil
}

func (s *Service) toAPIImage(obj storage.Object) models.Image {
	img := models.Image{
		Name:        strings.TrimPrefix(obj.Key, Prefix),
		URL:         s.store.PublicURL(obj.Key),
		Size:        obj.Size,
		ContentType: obj.ContentType,
	}
	if !obj.Updated.IsZero() {
		ts := models.Timestamp(obj.Updated)
		img.UpdatedAt = &ts
	}
	return img
}
