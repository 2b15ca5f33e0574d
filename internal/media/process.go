package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// MaxDimension bounds the long edge of stored thumbnails.
	MaxDimension = 600
	// MaxPixels bounds width*height of an upload before it is decoded.
	MaxPixels    = 40_000_000
	jpegQuality  = 85
	blurHashSize = 64
)

// ErrTooManyPixels is returned for images whose decoded raster would
// exceed MaxPixels.
var ErrTooManyPixels = errors.New("image dimensions too large")

// Processed is a re-encoded thumbnail.
type Processed struct {
	JPEG     []byte
	BlurHash string
	Width    int
	Height   int
}

// Process decodes an uploaded image, scales it down to MaxDimension and
// re-encodes it as JPEG with a 4x3 BlurHash placeholder.
func Process(data []byte) (*Processed, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	scaled := scale(src, MaxDimension, draw.CatmullRom)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	hash, err := blurhash.Encode(4, 3, scale(scaled, blurHashSize, draw.ApproxBiLinear))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}

	b := scaled.Bounds()
	return &Processed{JPEG: buf.Bytes(), BlurHash: hash, Width: b.Dx(), Height: b.Dy()}, nil
}

// scale fits img inside a limit x limit box, keeping the aspect ratio. Images
// already inside the box are returned unchanged.
func scale(img image.Image, limit int, scaler draw.Scaler) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}

	var dw, dh int
	if w >= h {
		dw = limit
		dh = h * limit / w
	} else {
		dh = limit
		dw = w * limit / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	scaler.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
