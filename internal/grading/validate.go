package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/anime-shed/comicvault-grader/pkg/models"

	"github.com/arbovm/levenshtein"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateOpinion checks that an opinion carries exactly the five numeric
// dimensions with finite values and that its qualitative fields use the
// accepted vocabularies. Every failure wraps ErrMalformedOpinion.
func ValidateOpinion(o models.Opinion) error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrMalformedOpinion, describe(verrs, o))
		}
		return fmt.Errorf("%w: %v", ErrMalformedOpinion, err)
	}

	for _, d := range models.Dimensions {
		v, ok := o.Scores[d]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrMalformedOpinion, d)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrMalformedOpinion, d)
		}
	}
	return nil
}

func describe(verrs validator.ValidationErrors, o models.Opinion) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch {
		case fe.StructField() == "Scores" && fe.Tag() == "len":
			missing := lo.Filter(models.Dimensions, func(d models.Dimension, _ int) bool {
				_, ok := o.Scores[d]
				return !ok
			})
			if len(missing) > 0 {
				msgs = append(msgs, fmt.Sprintf("missing dimensions %v", missing))
			} else {
				msgs = append(msgs, fmt.Sprintf("expected %d dimensions, got %d", len(models.Dimensions), len(o.Scores)))
			}
		case fe.StructField() == "PressingBenefit":
			msgs = append(msgs, unknownValue("pressing_benefit", string(o.PressingBenefit),
				lo.Map(models.PressingBenefits, func(p models.PressingBenefit, _ int) string { return string(p) })))
		case fe.StructField() == "PageColor":
			msgs = append(msgs, unknownValue("page_color", string(o.PageColor),
				lo.Map(models.PageColors, func(p models.PageColor, _ int) string { return string(p) })))
		case strings.HasPrefix(fe.Field(), "Scores["):
			msgs = append(msgs, unknownValue("dimension", fmt.Sprint(fe.Value()),
				lo.Map(models.Dimensions, func(d models.Dimension, _ int) string { return string(d) })))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func unknownValue(field, value string, accepted []string) string {
	msg := fmt.Sprintf("%s %q is not one of %s", field, value, strings.Join(accepted, "|"))
	if s := suggest(value, accepted); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return msg
}

// suggest returns the closest accepted value when it is plausibly a typo
func suggest(value string, accepted []string) string {
	best, bestDist := "", math.MaxInt
	for _, a := range accepted {
		if d := levenshtein.Distance(strings.ToLower(value), a); d < bestDist {
			best, bestDist = a, d
		}
	}
	if bestDist > max(2, len(value)/3) {
		return ""
	}
	return best
}
