package queries

import (
	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/entities"
	"humaneval/domain/core/valueobjects"
)

// GetSessionStatusQuery reads where a rater is in their session
type GetSessionStatusQuery struct {
	RaterID string
}

// Validate implements bus.Query
func (q GetSessionStatusQuery) Validate() error {
	_, err := valueobjects.NewRaterID(q.RaterID)
	return err
}

// SessionStatus is what the presentation layer needs to render the next step
type SessionStatus struct {
	RaterID     string         `json:"raterId"`
	State       string         `json:"state"`
	Completed   bool           `json:"completed"`
	Rated       int            `json:"rated"`
	Total       int            `json:"total"`
	Position    int            `json:"position,omitempty"`
	Percent     float64        `json:"percent"`
	CurrentItem *entities.Item `json:"currentItem,omitempty"`
}

// NewSessionStatus summarises a session. item is the catalog entry for the
// current item and is ignored once the session is complete.
func NewSessionStatus(s *aggregates.Session, item *entities.Item) *SessionStatus {
	done, total := s.Progress()

	status := &SessionStatus{
		RaterID:   s.RaterID().String(),
		State:     string(s.State()),
		Completed: s.IsComplete(),
		Rated:     done,
		Total:     total,
		Percent:   100,
	}
	if total > 0 {
		status.Percent = float64(done) * 100 / float64(total)
	}
	if !status.Completed {
		status.Position = done + 1
		status.CurrentItem = item
	}
	return status
}
