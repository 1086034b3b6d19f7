package entities

import (
	"time"

	"humaneval/domain/core/valueobjects"
	pkgerrors "humaneval/pkg/errors"

	"github.com/google/uuid"
)

// Rating is one rater's scores for one item. It is created once, appended
// to a sink, and never mutated afterwards.
type Rating struct {
	id         string
	raterID    valueobjects.RaterID
	itemID     string
	attributes []Attribute
	scores     map[string]int
	createdAt  time.Time
}

// NewRating builds a rating after checking the scores against the rubric.
// Item attributes are copied so later catalog reloads cannot change a
// rating that is already in flight.
func NewRating(
	raterID valueobjects.RaterID,
	item Item,
	scores map[string]int,
	rubric valueobjects.Rubric,
	createdAt time.Time,
) (*Rating, error) {
	if raterID.IsZero() {
		return nil, pkgerrors.NewInvalidIdentityError("rater ID cannot be empty")
	}
	if item.ID == "" {
		return nil, pkgerrors.NewValidationError("item ID cannot be empty")
	}
	if err := rubric.Validate(scores); err != nil {
		return nil, err
	}

	attrs := make([]Attribute, len(item.Attributes))
	copy(attrs, item.Attributes)

	sc := make(map[string]int, len(scores))
	for k, v := range scores {
		sc[k] = v
	}

	return &Rating{
		id:         uuid.New().String(),
		raterID:    raterID,
		itemID:     item.ID,
		attributes: attrs,
		scores:     sc,
		createdAt:  createdAt.UTC(),
	}, nil
}

// ID returns the rating's unique identifier
func (r *Rating) ID() string { return r.id }

// RaterID returns who submitted the rating
func (r *Rating) RaterID() valueobjects.RaterID { return r.raterID }

// ItemID returns the rated item
func (r *Rating) ItemID() string { return r.itemID }

// Attributes returns the item attributes captured at rating time
func (r *Rating) Attributes() []Attribute {
	out := make([]Attribute, len(r.attributes))
	copy(out, r.attributes)
	return out
}

// Attribute returns one captured attribute value
func (r *Rating) Attribute(name string) (string, bool) {
	for _, a := range r.attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Score returns the score for a dimension
func (r *Rating) Score(dimension string) (int, bool) {
	v, ok := r.scores[dimension]
	return v, ok
}

// Scores returns a copy of all scores
func (r *Rating) Scores() map[string]int {
	out := make(map[string]int, len(r.scores))
	for k, v := range r.scores {
		out[k] = v
	}
	return out
}

// CreatedAt returns the submission time in UTC
func (r *Rating) CreatedAt() time.Time { return r.createdAt }
