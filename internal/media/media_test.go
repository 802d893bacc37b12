package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStore(t *testing.T, maxWidth int) *PhotoStore {
	t.Helper()
	now := func() time.Time { return time.UnixMilli(1714568400123) }
	store, err := NewPhotoStore(filepath.Join(t.TempDir(), "photos"), maxWidth, now, nil)
	require.NoError(t, err)
	return store
}

func TestPhotoStore_SaveNamesFileAfterChecklistAndItem(t *testing.T) {
	t.Parallel()
	store := newStore(t, 0)

	path, err := store.Save(context.Background(), "k1", "item-2", bytes.NewReader(pngOf(t, 4, 4)))
	require.NoError(t, err)

	assert.Equal(t, PhotoURLPrefix+"k1_item-2_1714568400123.png", path)
	_, err = os.Stat(filepath.Join(store.Dir(), "k1_item-2_1714568400123.png"))
	assert.NoError(t, err)
}

func TestPhotoStore_DownscalesWideImages(t *testing.T) {
	t.Parallel()
	store := newStore(t, 100)

	path, err := store.Save(context.Background(), "k1", "i1", bytes.NewReader(pngOf(t, 400, 200)))
	require.NoError(t, err)

	img, err := imaging.Open(filepath.Join(store.Dir(), strings.TrimPrefix(path, PhotoURLPrefix)))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestPhotoStore_Rejects(t *testing.T) {
	t.Parallel()
	store := newStore(t, 0)

	_, err := store.Save(context.Background(), "k1", "i1", strings.NewReader("plain text, not an image"))
	assert.True(t, errors.Is(err, ErrUnsupportedPhoto), "got %v", err)

	_, err = store.Save(context.Background(), "../etc", "i1", bytes.NewReader(pngOf(t, 2, 2)))
	assert.ErrorIs(t, err, ErrInvalidPhotoKey)

	oversized := append(pngOf(t, 2, 2), make([]byte, MaxPhotoSize)...)
	_, err = store.Save(context.Background(), "k1", "i1", bytes.NewReader(oversized))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQREncoder_EncodesPNG(t *testing.T) {
	t.Parallel()

	data, err := QREncoder{BaseURL: "https://manutencao.example.com/"}.Encode("/professional/execute-checklist/k1")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())

	_, err = QREncoder{}.Encode("")
	assert.Error(t, err)
}
