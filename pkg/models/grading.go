package models

import (
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dimension identifies one physical aspect of a graded collectible
type Dimension string

const (
	Corners   Dimension = "corners"
	Spine     Dimension = "spine"
	Surface   Dimension = "surface"
	Centering Dimension = "centering"
	Color     Dimension = "color"
)

// Dimensions lists every grading dimension in canonical order.
// Reports and CLI output follow this order.
var Dimensions = []Dimension{Corners, Spine, Surface, Centering, Color}

// SubgradeSet maps each dimension to a score on the 0.5–10 scale
type SubgradeSet map[Dimension]float64

// Clone returns an independent copy of the set
func (s SubgradeSet) Clone() SubgradeSet {
	out := make(SubgradeSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Value returns the score for d, or 0 when d is missing
func (s SubgradeSet) Value(d Dimension) float64 {
	return s[d]
}

// PressingBenefit estimates how much pressing would improve the grade
type PressingBenefit string

const (
	PressingNone   PressingBenefit = "none"
	PressingLow    PressingBenefit = "low"
	PressingMedium PressingBenefit = "medium"
	PressingHigh   PressingBenefit = "high"
)

// PressingBenefits lists the accepted pressing benefit values
var PressingBenefits = []PressingBenefit{PressingNone, PressingLow, PressingMedium, PressingHigh}

// PageColor describes the paper tone of the interior pages
type PageColor string

const (
	PageWhite    PageColor = "white"
	PageOffWhite PageColor = "off-white"
	PageCream    PageColor = "cream"
	PageTan      PageColor = "tan"
	PageBrittle  PageColor = "brittle"
)

// PageColors lists the accepted page color values
var PageColors = []PageColor{PageWhite, PageOffWhite, PageCream, PageTan, PageBrittle}

// Posture is the grading stance requested from an opinion provider
type Posture string

const (
	PostureStrict  Posture = "strict"
	PostureLenient Posture = "lenient"
)

// DefaultPostures is the two-pass ensemble used when none is configured
func DefaultPostures() []Posture {
	return []Posture{PostureStrict, PostureLenient}
}

// ParsePosture converts a configuration value into a Posture
func ParsePosture(s string) (Posture, error) {
	switch Posture(s) {
	case PostureStrict, PostureLenient:
		return Posture(s), nil
	default:
		return "", fmt.Errorf("unknown posture %q", s)
	}
}

// ImagePair holds the encoded front and back photographs of one item
type ImagePair struct {
	Front []byte
	Back  []byte
}

// Opinion is one provider's raw assessment of an image pair.
// Scores is expected to hold exactly the five dimensions.
type Opinion struct {
	Scores               SubgradeSet     `validate:"len=5,dive,keys,oneof=corners spine surface centering color,endkeys"`
	RestorationSuspected bool            `validate:"-"`
	PressingBenefit      PressingBenefit `validate:"omitempty,oneof=none low medium high"`
	PageColor            PageColor       `validate:"omitempty,oneof=white off-white cream tan brittle"`
	Notes                string          `validate:"max=8000"`
}

type opinionWire struct {
	Corners              *float64        `json:"corners,omitempty"`
	Spine                *float64        `json:"spine,omitempty"`
	Surface              *float64        `json:"surface,omitempty"`
	Centering            *float64        `json:"centering,omitempty"`
	Color                *float64        `json:"color,omitempty"`
	RestorationSuspected bool            `json:"restoration_suspected"`
	PressingBenefit      PressingBenefit `json:"pressing_benefit,omitempty"`
	PageColor            PageColor       `json:"page_color,omitempty"`
	Notes                string          `json:"notes,omitempty"`
}

func (w *opinionWire) fields() map[Dimension]**float64 {
	return map[Dimension]**float64{
		Corners:   &w.Corners,
		Spine:     &w.Spine,
		Surface:   &w.Surface,
		Centering: &w.Centering,
		Color:     &w.Color,
	}
}

// MarshalJSON writes the opinion in its flat wire form
func (o Opinion) MarshalJSON() ([]byte, error) {
	w := opinionWire{
		RestorationSuspected: o.RestorationSuspected,
		PressingBenefit:      o.PressingBenefit,
		PageColor:            o.PageColor,
		Notes:                o.Notes,
	}
	for d, field := range w.fields() {
		if v, ok := o.Scores[d]; ok {
			v := v
			*field = &v
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat wire form. Absent dimensions stay absent
// so validation can tell them apart from explicit zeros.
func (o *Opinion) UnmarshalJSON(data []byte) error {
	var w opinionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	scores := make(SubgradeSet, len(Dimensions))
	for d, field := range w.fields() {
		if *field != nil {
			scores[d] = **field
		}
	}
	*o = Opinion{
		Scores:               scores,
		RestorationSuspected: w.RestorationSuspected,
		PressingBenefit:      w.PressingBenefit,
		PageColor:            w.PageColor,
		Notes:                w.Notes,
	}
	return nil
}

// Flags carries the qualitative findings merged across opinions
type Flags struct {
	RestorationSuspected bool            `json:"restoration_suspected" yaml:"restoration_suspected"`
	PressingBenefit      PressingBenefit `json:"pressing_benefit,omitempty" yaml:"pressing_benefit,omitempty"`
	PageColor            PageColor       `json:"page_color,omitempty" yaml:"page_color,omitempty"`
}

// GradingResult is the calibrated outcome of one grading call
type GradingResult struct {
	Subgrades    SubgradeSet `json:"subgrades" yaml:"subgrades"`
	Final        float64     `json:"final" yaml:"final"`
	Confidence   float64     `json:"confidence" yaml:"confidence"`
	Flags        Flags       `json:"flags" yaml:"flags"`
	Notes        string      `json:"notes" yaml:"notes"`
	OpinionCount int         `json:"opinion_count" yaml:"opinion_count"`
	Postures     []Posture   `json:"postures,omitempty" yaml:"postures,omitempty"`
}

// Clone returns a copy that shares no maps or slices with r
func (r GradingResult) Clone() GradingResult {
	out := r
	if r.Subgrades != nil {
		out.Subgrades = r.Subgrades.Clone()
	}
	if r.Postures != nil {
		out.Postures = append([]Posture(nil), r.Postures...)
	}
	return out
}

// ConfidencePercent renders confidence as a whole percentage
func (r *GradingResult) ConfidencePercent() int {
	return int(math.Round(r.Confidence * 100))
}
