package valueobjects

import (
	"fmt"
	"sort"
	"strings"

	pkgerrors "humaneval/pkg/errors"
)

// DefaultScoreDimensions are the rated dimensions used when none are configured.
var DefaultScoreDimensions = []string{"realism", "age_appropriateness", "ethnic_consistency"}

// Rubric describes what a single rating scores: an ordered list of
// dimensions, each on the same inclusive ordinal scale.
type Rubric struct {
	dimensions []string
	min        int
	max        int
}

// NewRubric creates a rubric. Dimension names must be unique and non-empty.
func NewRubric(dimensions []string, min, max int) (Rubric, error) {
	if len(dimensions) == 0 {
		return Rubric{}, pkgerrors.NewValidationError("rubric needs at least one dimension")
	}
	if min > max {
		return Rubric{}, pkgerrors.NewValidationError(fmt.Sprintf("score scale min %d exceeds max %d", min, max))
	}

	seen := make(map[string]struct{}, len(dimensions))
	dims := make([]string, 0, len(dimensions))
	for _, d := range dimensions {
		d = strings.TrimSpace(d)
		if d == "" {
			return Rubric{}, pkgerrors.NewValidationError("rubric dimension name cannot be empty")
		}
		if _, dup := seen[d]; dup {
			return Rubric{}, pkgerrors.NewValidationError(fmt.Sprintf("duplicate rubric dimension %q", d))
		}
		seen[d] = struct{}{}
		dims = append(dims, d)
	}

	return Rubric{dimensions: dims, min: min, max: max}, nil
}

// DefaultRubric returns the three-dimension 1-5 rubric.
func DefaultRubric() Rubric {
	r, _ := NewRubric(DefaultScoreDimensions, 1, 5)
	return r
}

// Dimensions returns a copy of the ordered dimension names
func (r Rubric) Dimensions() []string {
	out := make([]string, len(r.dimensions))
	copy(out, r.dimensions)
	return out
}

// Min returns the lowest allowed score
func (r Rubric) Min() int { return r.min }

// Max returns the highest allowed score
func (r Rubric) Max() int { return r.max }

// Validate checks that scores name exactly the rubric's dimensions and each
// value lies on the scale.
func (r Rubric) Validate(scores map[string]int) error {
	var problems []string

	for _, d := range r.dimensions {
		v, ok := scores[d]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s is required", d))
			continue
		}
		if v < r.min || v > r.max {
			problems = append(problems, fmt.Sprintf("%s must be between %d and %d", d, r.min, r.max))
		}
	}

	var unknown []string
	for name := range scores {
		if !r.has(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		problems = append(problems, fmt.Sprintf("%s is not a rated dimension", name))
	}

	if len(problems) > 0 {
		return pkgerrors.NewInvalidScoresError(strings.Join(problems, "; "))
	}
	return nil
}

func (r Rubric) has(name string) bool {
	for _, d := range r.dimensions {
		if d == name {
			return true
		}
	}
	return false
}
