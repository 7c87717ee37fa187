package provider

import (
	"context"
	"fmt"
	"math"

	"github.com/anime-shed/comicvault-grader/internal/analyzer"
	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

// Heuristic derives an opinion from image statistics alone. It needs no
// network access and ignores posture, so repeated calls on the same pair
// agree exactly.
type Heuristic struct {
	scorer analyzer.FeatureScorer
}

// NewHeuristic creates a heuristic provider backed by scorer
func NewHeuristic(scorer analyzer.FeatureScorer) *Heuristic {
	if scorer == nil {
		scorer = analyzer.NewFeatureScorer()
	}
	return &Heuristic{scorer: scorer}
}

func (h *Heuristic) Name() string {
	return "heuristic"
}

func (h *Heuristic) RequestOpinion(ctx context.Context, images models.ImagePair, _ models.Posture) (models.Opinion, error) {
	if err := ctx.Err(); err != nil {
		return models.Opinion{}, err
	}
	return DeriveOpinion(h.scorer.ScoreBytes(images.Front), h.scorer.ScoreBytes(images.Back)), nil
}

// DeriveOpinion spreads a front score f and back score b over the five
// dimensions. The front cover dominates corners, spine and centering.
func DeriveOpinion(front, back float64) models.Opinion {
	return models.Opinion{
		Scores: models.SubgradeSet{
			models.Corners:   round1(0.6*front + 0.4*back),
			models.Spine:     round1(0.7*front + 0.3*back),
			models.Surface:   round1(0.5*front + 0.5*back),
			models.Centering: round1(math.Min(10, front+0.3)),
			models.Color:     round1(math.Min(10, 0.8*front+0.2*back)),
		},
		Notes: fmt.Sprintf("Estimated from image statistics (front %.1f, back %.1f).", front, back),
	}
}

func round1(v float64) float64 {
	return grading.Round(v, 1)
}
