package analyzer

import "image"

// FeatureScorer rates the visual quality of a single photograph
type FeatureScorer interface {
	// Score returns a 0–10 quality score rounded to one decimal
	Score(img image.Image) float64

	// ScoreBytes decodes data and scores it, falling back to MidpointScore
	// when the bytes are not a decodable image
	ScoreBytes(data []byte) float64

	// Features exposes the raw statistics behind Score
	Features(gray *image.Gray) Features
}

// Features are the image statistics a score is derived from
type Features struct {
	// EdgeStrength is the mean edge filter response scaled to [0, 1]
	EdgeStrength float64 `json:"edge_strength"`
	// MeanLuminance is the average 8-bit luminance
	MeanLuminance float64 `json:"mean_luminance"`
	// Brightness peaks at 1 for mid-grey exposure and falls to 0 at black or white
	Brightness float64 `json:"brightness"`
}
