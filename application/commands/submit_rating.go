package commands

import (
	"humaneval/domain/core/valueobjects"
	"humaneval/pkg/utils"
)

// SubmitRatingCommand records the rater's scores for the current item and
// moves the session on to the next one
type SubmitRatingCommand struct {
	RaterID string
	ItemID  string         `validate:"required"`
	Scores  map[string]int `validate:"required,min=1"`
}

// Validate implements bus.Command. Score ranges are checked against the
// configured rubric by the handler.
func (c SubmitRatingCommand) Validate() error {
	if _, err := valueobjects.NewRaterID(c.RaterID); err != nil {
		return err
	}
	return utils.ValidateStruct(c)
}

// Rater implements bus.RaterScoped
func (c SubmitRatingCommand) Rater() string { return c.RaterID }
