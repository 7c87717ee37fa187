package grading

import (
	"testing"

	"github.com/anime-shed/comicvault-grader/pkg/models"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name     string
		a, b     models.SubgradeSet
		expected float64
	}{
		{name: "identical", a: uniform(8), b: uniform(8), expected: MaxConfidence},
		{name: "full disagreement", a: uniform(10), b: uniform(0.5), expected: MinConfidence},
		{name: "one point apart", a: uniform(8), b: uniform(7), expected: 0.67},
		{name: "one and a half apart", a: uniform(8), b: uniform(6.5), expected: 0.5},
		{name: "exact tie rounds to even", a: uniform(9.125), b: uniform(8), expected: 0.62},
		{name: "small gap hits ceiling", a: uniform(8), b: uniform(7.95), expected: MaxConfidence},
		{name: "both empty", a: models.SubgradeSet{}, b: models.SubgradeSet{}, expected: MaxConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.a, tt.b); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestConfidence_MissingDimensionCountsAsZero(t *testing.T) {
	a := uniform(6)
	b := uniform(6)
	delete(b, models.Spine)

	// gap of 6 on one dimension: mean 1.2, 1 - 0.4 = 0.6
	if got := Confidence(a, b); got != 0.6 {
		t.Errorf("Expected 0.6, got %v", got)
	}
}

func TestConfidence_Symmetric(t *testing.T) {
	a := models.SubgradeSet{models.Corners: 9, models.Spine: 3, models.Surface: 7.5, models.Centering: 1, models.Color: 10}
	b := models.SubgradeSet{models.Corners: 2, models.Spine: 8, models.Surface: 7, models.Centering: 4, models.Color: 6.5}

	if Confidence(a, b) != Confidence(b, a) {
		t.Errorf("Confidence not symmetric: %v vs %v", Confidence(a, b), Confidence(b, a))
	}
}

func TestConfidence_MonotoneInGap(t *testing.T) {
	base := uniform(5)
	prev := Confidence(base, base)
	for gap := 0.1; gap <= 5; gap += 0.1 {
		other := base.Clone()
		other[models.Surface] = 5 + gap
		got := Confidence(base, other)
		if got > prev {
			t.Fatalf("Confidence rose from %v to %v as gap widened to %v", prev, got, gap)
		}
		if got < MinConfidence || got > MaxConfidence {
			t.Fatalf("Confidence %v out of bounds", got)
		}
		prev = got
	}
}

func TestConfidenceOf(t *testing.T) {
	a, b, c := uniform(8), uniform(7), uniform(8)

	if got := ConfidenceOf([]models.SubgradeSet{a, b}); got != Confidence(a, b) {
		t.Errorf("Two-opinion ensemble should match pairwise confidence: %v vs %v", got, Confidence(a, b))
	}

	// pair gaps: 1, 0, 1 -> mean 2/3 -> 1 - 2/9
	if got := ConfidenceOf([]models.SubgradeSet{a, b, c}); got != 0.78 {
		t.Errorf("Expected 0.78 for three opinions, got %v", got)
	}

	if got := ConfidenceOf([]models.SubgradeSet{a}); got != MinConfidence {
		t.Errorf("Expected single opinion to yield %v, got %v", MinConfidence, got)
	}
	if got := ConfidenceOf(nil); got != MinConfidence {
		t.Errorf("Expected empty ensemble to yield %v, got %v", MinConfidence, got)
	}
}
