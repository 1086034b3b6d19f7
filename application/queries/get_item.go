package queries

import (
	pkgerrors "humaneval/pkg/errors"
)

// GetItemQuery reads one catalog item
type GetItemQuery struct {
	ItemID string
}

// Validate implements bus.Query
func (q GetItemQuery) Validate() error {
	if q.ItemID == "" {
		return pkgerrors.NewValidationError("item ID is required")
	}
	return nil
}
