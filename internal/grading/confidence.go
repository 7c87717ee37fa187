package grading

import (
	"math"

	"github.com/anime-shed/comicvault-grader/pkg/models"

	"gonum.org/v1/gonum/stat"
)

const (
	// MinConfidence is reported when opinions disagree badly or cannot corroborate each other
	MinConfidence = 0.3
	// MaxConfidence is the ceiling; agreement never means certainty
	MaxConfidence = 0.98

	// disagreementSaturation is the mean gap at which confidence would reach zero before clamping
	disagreementSaturation = 3.0
)

// Confidence measures how closely two opinions agree. The mean absolute
// per-dimension gap d maps to 1 - d/3, bounded to [MinConfidence,
// MaxConfidence] and rounded to two decimals. Missing dimensions read as 0.
func Confidence(a, b models.SubgradeSet) float64 {
	return confidenceFromGap(meanAbsGap(a, b))
}

// ConfidenceOf extends Confidence to any number of opinions by averaging the
// gap over every unordered pair. For exactly two opinions it equals
// Confidence. A single opinion has nothing to agree with and gets
// MinConfidence.
func ConfidenceOf(opinions []models.SubgradeSet) float64 {
	if len(opinions) < 2 {
		return MinConfidence
	}

	gaps := make([]float64, 0, len(opinions)*(len(opinions)-1)/2)
	for i := 0; i < len(opinions); i++ {
		for j := i + 1; j < len(opinions); j++ {
			gaps = append(gaps, meanAbsGap(opinions[i], opinions[j]))
		}
	}
	return confidenceFromGap(stat.Mean(gaps, nil))
}

func meanAbsGap(a, b models.SubgradeSet) float64 {
	diffs := make([]float64, len(models.Dimensions))
	for i, d := range models.Dimensions {
		diffs[i] = math.Abs(a.Value(d) - b.Value(d))
	}
	return stat.Mean(diffs, nil)
}

func confidenceFromGap(gap float64) float64 {
	if math.IsNaN(gap) {
		return MinConfidence
	}
	c := math.Max(MinConfidence, math.Min(MaxConfidence, 1-gap/disagreementSaturation))
	return Round(c, 2)
}
