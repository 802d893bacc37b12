package media

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the side of generated QR images in pixels.
const DefaultQRSize = 256

// QREncoder renders checklist execution paths as PNG QR codes. BaseURL, when
// set, turns the path into an absolute link for phone cameras.
type QREncoder struct {
	BaseURL string
	Size    int
}

// Encode returns the PNG QR code of content.
func (e QREncoder) Encode(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr code content is empty")
	}
	size := e.Size
	if size <= 0 {
		size = DefaultQRSize
	}
	if base := strings.TrimRight(e.BaseURL, "/"); base != "" && strings.HasPrefix(content, "/") {
		content = base + content
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
