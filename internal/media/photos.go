package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/example/facility-checklists/internal/logging"
)

// MaxPhotoSize is the largest accepted upload in bytes.
const MaxPhotoSize = 10 << 20

// PhotoURLPrefix is the public path under which stored photos are served.
const PhotoURLPrefix = "/uploads/checklist-photos/"

var (
	// ErrPhotoTooLarge is returned for uploads above MaxPhotoSize.
	ErrPhotoTooLarge = errors.New("media: photo too large")
	// ErrUnsupportedPhoto is returned when the upload is not a supported image.
	ErrUnsupportedPhoto = errors.New("media: unsupported photo type")
	// ErrInvalidPhotoKey is returned when the checklist or item id cannot name a file.
	ErrInvalidPhotoKey = errors.New("media: invalid checklist or item id")
)

var (
	keyPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	supportedTypes = []string{"image/jpeg", "image/png", "image/gif"}
)

// PhotoStore keeps execution photos on disk.
type PhotoStore struct {
	dir      string
	maxWidth int
	now      func() time.Time
	logger   *slog.Logger
}

// NewPhotoStore creates dir when missing. Images wider than maxWidth are
// scaled down on save; zero keeps the original size.
func NewPhotoStore(dir string, maxWidth int, now func() time.Time, logger *slog.Logger) (*PhotoStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("photo directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo directory: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PhotoStore{dir: dir, maxWidth: maxWidth, now: now, logger: logger}, nil
}

// Dir returns the directory photos are written to.
func (s *PhotoStore) Dir() string { return s.dir }

// Save stores the photo of one checklist item as
// <checklist>_<item>_<unixmillis>.<ext> and returns its public path.
func (s *PhotoStore) Save(ctx context.Context, checklistID, itemID string, r io.Reader) (string, error) {
	if !keyPattern.MatchString(checklistID) || !keyPattern.MatchString(itemID) {
		return "", ErrInvalidPhotoKey
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxPhotoSize+1))
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if len(data) > MaxPhotoSize {
		return "", ErrPhotoTooLarge
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), supportedTypes...) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPhoto, mtype.String())
	}

	ext := mtype.Extension()
	if data, err = s.downscale(data, ext); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := checklistID + "_" + itemID + "_" + strconv.FormatInt(s.now().UnixMilli(), 10) + ext
	if err := writeFileAtomic(filepath.Join(s.dir, name), data); err != nil {
		return "", err
	}

	logging.Resolve(ctx, s.logger).InfoContext(ctx, "photo stored",
		"checklist_id", checklistID,
		"item_id", itemID,
		"file", name,
		"bytes", len(data),
	)
	return PhotoURLPrefix + name, nil
}

func (s *PhotoStore) downscale(data []byte, ext string) ([]byte, error) {
	if s.maxWidth <= 0 {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPhoto, err)
	}
	if img.Bounds().Dx() <= s.maxWidth {
		return data, nil
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPhoto, err)
	}
	resized := imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".photo-*")
	if err != nil {
		return fmt.Errorf("create temp photo: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store photo: %w", err)
	}
	return nil
}
