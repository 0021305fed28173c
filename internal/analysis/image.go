package analysis

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	maxImageWidth  = 1200
	maxImageHeight = 900
	jpegQuality    = 90
)

// PrepareImage re-encodes an uploaded photo as a bounded JPEG so the
// base64 payload sent to the vision model stays small. Images already
// within bounds are still re-encoded, which flattens alpha channels.
func PrepareImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if b := img.Bounds(); b.Dx() > maxImageWidth || b.Dy() > maxImageHeight {
		img = imaging.Fit(img, maxImageWidth, maxImageHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
