package preprocess

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Options controls how uploads are normalized before grading
type Options struct {
	// MaxDimension bounds the longer side; smaller images are never upscaled
	MaxDimension int
	// ContrastPercent is passed to imaging.AdjustContrast (-100..100)
	ContrastPercent float64
	// JPEGQuality is the re-encode quality (1..100)
	JPEGQuality int
}

// DefaultOptions mirrors the scanning pipeline: 2000px, +5% contrast, JPEG 90
func DefaultOptions() Options {
	return Options{
		MaxDimension:    2000,
		ContrastPercent: 5,
		JPEGQuality:     90,
	}
}

// Preprocessor prepares raw photographs for grading
type Preprocessor interface {
	Process(data []byte) ([]byte, error)
}

type preprocessor struct {
	opts Options
}

// New creates a preprocessor
func New(opts Options) Preprocessor {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultOptions().MaxDimension
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultOptions().JPEGQuality
	}
	return &preprocessor{opts: opts}
}

// Process applies EXIF orientation, downscales with Lanczos, boosts contrast
// and re-encodes as JPEG
func (p *preprocessor) Process(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := p.transform(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(p.opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *preprocessor) transform(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() > p.opts.MaxDimension || b.Dy() > p.opts.MaxDimension {
		img = imaging.Fit(img, p.opts.MaxDimension, p.opts.MaxDimension, imaging.Lanczos)
	}
	if p.opts.ContrastPercent != 0 {
		img = imaging.AdjustContrast(img, p.opts.ContrastPercent)
	}
	return img
}
