// Package imageproc shrinks generated images before upload.
package imageproc

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const MimeJPEG = "image/jpeg"

type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG quality, 1-100
}

// DefaultOptions bound the image to 512x512 at JPEG quality 50.
var DefaultOptions = Options{MaxWidth: 512, MaxHeight: 512, Quality: 50}

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// Compress decodes data (PNG, JPEG, GIF, BMP or TIFF), scales it down to
// fit inside MaxWidth x MaxHeight keeping the aspect ratio, and encodes it
// as JPEG. Images already inside the bound are not enlarged.
//
// A JPEG that already fits and would grow by re-encoding is returned
// unchanged. Other formats are always re-encoded, so a tiny or flat PNG
// can come back larger than it went in.
func Compress(data []byte, opts Options) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return nil, fmt.Errorf("invalid bound %dx%d", opts.MaxWidth, opts.MaxHeight)
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return nil, fmt.Errorf("invalid jpeg quality %d", opts.Quality)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	fits := b.Dx() <= opts.MaxWidth && b.Dy() <= opts.MaxHeight
	fitted := imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	if fits && bytes.HasPrefix(data, jpegMagic) && buf.Len() > len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}
