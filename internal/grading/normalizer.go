package grading

import (
	"math"
	"strconv"

	"github.com/anime-shed/comicvault-grader/pkg/models"

	"gonum.org/v1/gonum/stat"
)

const (
	// MinSubgrade is the lowest score any dimension may carry
	MinSubgrade = 0.5
	// MaxSubgrade is the highest score any dimension may carry
	MaxSubgrade = 10.0
)

// BoostFactors scale each dimension after the first clamp.
// Spine and corners are weighted up, centering slightly down.
var BoostFactors = map[models.Dimension]float64{
	models.Corners:   1.05,
	models.Spine:     1.15,
	models.Surface:   1.00,
	models.Centering: 0.95,
	models.Color:     1.00,
}

// FinalWeights are the relative weights of each dimension in the final grade
var FinalWeights = map[models.Dimension]float64{
	models.Corners:   2,
	models.Spine:     3,
	models.Surface:   2,
	models.Centering: 1,
	models.Color:     2,
}

// NormalizedGrade is the output of Normalize
type NormalizedGrade struct {
	Subgrades models.SubgradeSet
	Final     float64
}

// Normalize clamps, boosts and re-clamps each dimension, then computes the
// weighted final grade rounded to one decimal. A missing dimension is read
// as 0 and therefore lands on MinSubgrade. Keys outside the five dimensions
// are ignored.
func Normalize(raw models.SubgradeSet) NormalizedGrade {
	subgrades := make(models.SubgradeSet, len(models.Dimensions))
	values := make([]float64, len(models.Dimensions))
	weights := make([]float64, len(models.Dimensions))

	for i, d := range models.Dimensions {
		v := clamp(raw.Value(d), MinSubgrade, MaxSubgrade)
		v = clamp(v*BoostFactors[d], MinSubgrade, MaxSubgrade)

		subgrades[d] = v
		values[i] = v
		weights[i] = FinalWeights[d]
	}

	return NormalizedGrade{
		Subgrades: subgrades,
		Final:     Round(stat.Mean(values, weights), 1),
	}
}

// clamp bounds v into [lo, hi]; NaN is treated as a missing value
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v to the given number of decimals using the exact binary
// value of v, with exact ties going to the even digit: 8.25 becomes 8.2, and
// 8.35, stored just below the tie, becomes 8.3.
func Round(v float64, decimals int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}
