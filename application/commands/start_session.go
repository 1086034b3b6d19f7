package commands

import (
	"humaneval/domain/core/valueobjects"
)

// StartSessionCommand assigns a rater a subset, or finds the one already assigned
type StartSessionCommand struct {
	RaterID string
}

// Validate implements bus.Command
func (c StartSessionCommand) Validate() error {
	_, err := valueobjects.NewRaterID(c.RaterID)
	return err
}

// Rater implements bus.RaterScoped
func (c StartSessionCommand) Rater() string { return c.RaterID }
