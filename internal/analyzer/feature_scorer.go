package analyzer

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"runtime"
	"sync"

	"github.com/anime-shed/comicvault-grader/internal/grading"
)

const (
	// MidpointScore is returned for images that cannot be scored
	MidpointScore = 5.0

	edgeWeight       = 0.6
	brightnessWeight = 0.4

	// parallelThreshold is the pixel count above which rows are split across workers
	parallelThreshold = 100000
)

type featureScorer struct {
	workers int
}

// NewFeatureScorer creates a scorer that uses one worker per CPU on large images
func NewFeatureScorer() FeatureScorer {
	return &featureScorer{workers: runtime.NumCPU()}
}

// Score converts img to luminance and blends edge strength with brightness
func (fs *featureScorer) Score(img image.Image) float64 {
	if img == nil {
		return MidpointScore
	}
	b := img.Bounds()
	// the 3x3 edge filter needs at least one interior pixel
	if b.Dx() < 3 || b.Dy() < 3 {
		return MidpointScore
	}

	f := fs.Features(ToGray(img))
	raw := edgeWeight*f.EdgeStrength + brightnessWeight*f.Brightness
	score := math.Max(0, math.Min(10, raw*10))
	return grading.Round(score, 1)
}

func (fs *featureScorer) ScoreBytes(data []byte) float64 {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return MidpointScore
	}
	return fs.Score(img)
}

// Features computes luminance and edge statistics over horizontal strips
func (fs *featureScorer) Features(gray *image.Gray) Features {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return Features{}
	}

	numWorkers := fs.workers
	if width*height < parallelThreshold || numWorkers < 1 {
		numWorkers = 1
	}
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	type stripResult struct {
		lum, edge float64
	}

	results := make(chan stripResult, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := min(startY+rowsPerWorker, bounds.Max.Y)
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()

			var lum, edge float64
			for y := startY; y < endY; y++ {
				for x := bounds.Min.X; x < bounds.Max.X; x++ {
					lum += float64(gray.GrayAt(x, y).Y)
					edge += float64(edgeResponse(gray, x, y))
				}
			}
			results <- stripResult{lum: lum, edge: edge}
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var totalLum, totalEdge float64
	for r := range results {
		totalLum += r.lum
		totalEdge += r.edge
	}

	pixels := float64(width * height)
	meanLum := totalLum / pixels
	return Features{
		EdgeStrength:  totalEdge / pixels / 255,
		MeanLuminance: meanLum,
		Brightness:    1 - 2*math.Abs(meanLum/255-0.5),
	}
}

// edgeResponse applies the 3x3 kernel with 8 at the centre and -1 around it,
// clamped to a byte. Border pixels have no full neighbourhood and keep their
// source value.
func edgeResponse(gray *image.Gray, x, y int) uint8 {
	b := gray.Bounds()
	if x == b.Min.X || y == b.Min.Y || x == b.Max.X-1 || y == b.Max.Y-1 {
		return gray.GrayAt(x, y).Y
	}

	sum := 8 * int(gray.GrayAt(x, y).Y)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			sum -= int(gray.GrayAt(x+dx, y+dy).Y)
		}
	}
	switch {
	case sum < 0:
		return 0
	case sum > 255:
		return 255
	default:
		return uint8(sum)
	}
}

// ToGray converts any image to 8-bit luminance
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}
