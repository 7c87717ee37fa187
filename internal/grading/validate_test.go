package grading

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/anime-shed/comicvault-grader/pkg/models"
)

func TestValidateOpinion(t *testing.T) {
	withScores := func(mutate func(models.SubgradeSet)) models.Opinion {
		s := uniform(7)
		mutate(s)
		return models.Opinion{Scores: s}
	}

	tests := []struct {
		name        string
		opinion     models.Opinion
		wantErr     bool
		errContains string
	}{
		{
			name: "complete",
			opinion: models.Opinion{
				Scores:          uniform(7),
				PressingBenefit: models.PressingMedium,
				PageColor:       models.PageOffWhite,
				Notes:           "minor corner wear",
			},
		},
		{
			name:    "qualitative fields optional",
			opinion: models.Opinion{Scores: uniform(7)},
		},
		{
			name:    "out of range is accepted",
			opinion: models.Opinion{Scores: uniform(14)},
		},
		{
			name:        "missing dimension",
			opinion:     withScores(func(s models.SubgradeSet) { delete(s, models.Color) }),
			wantErr:     true,
			errContains: "missing dimensions [color]",
		},
		{
			name:        "unknown dimension",
			opinion:     withScores(func(s models.SubgradeSet) { delete(s, models.Color); s["colour"] = 7 }),
			wantErr:     true,
			errContains: `did you mean "color"?`,
		},
		{
			name:        "extra dimension",
			opinion:     withScores(func(s models.SubgradeSet) { s["staples"] = 7 }),
			wantErr:     true,
			errContains: "expected 5 dimensions, got 6",
		},
		{
			name:        "nan score",
			opinion:     withScores(func(s models.SubgradeSet) { s[models.Spine] = math.NaN() }),
			wantErr:     true,
			errContains: "spine is not a finite number",
		},
		{
			name:        "misspelled pressing benefit",
			opinion:     models.Opinion{Scores: uniform(7), PressingBenefit: "meduim"},
			wantErr:     true,
			errContains: `did you mean "medium"?`,
		},
		{
			name:        "unknown page color",
			opinion:     models.Opinion{Scores: uniform(7), PageColor: "glowing"},
			wantErr:     true,
			errContains: "page_color",
		},
		{
			name:    "no scores",
			opinion: models.Opinion{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOpinion(tt.opinion)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrMalformedOpinion) {
				t.Fatalf("Expected ErrMalformedOpinion, got: %v", err)
			}
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Expected error to contain %q, got: %s", tt.errContains, err.Error())
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	accepted := []string{"white", "off-white", "cream", "tan", "brittle"}

	if got := suggest("Creme", accepted); got != "cream" {
		t.Errorf("Expected cream, got %q", got)
	}
	if got := suggest("offwhite", accepted); got != "off-white" {
		t.Errorf("Expected off-white, got %q", got)
	}
	if got := suggest("ultraviolet", accepted); got != "" {
		t.Errorf("Expected no suggestion, got %q", got)
	}
}
