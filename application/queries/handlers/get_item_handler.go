package handlers

import (
	"context"

	"humaneval/application/ports"
	"humaneval/application/queries"
	"humaneval/domain/core/entities"
)

// GetItemHandler handles single item lookups
type GetItemHandler struct {
	catalog ports.ItemCatalog
}

// NewGetItemHandler creates a new handler
func NewGetItemHandler(catalog ports.ItemCatalog) *GetItemHandler {
	return &GetItemHandler{catalog: catalog}
}

// Handle processes the query
func (h *GetItemHandler) Handle(ctx context.Context, query queries.GetItemQuery) (entities.Item, error) {
	return h.catalog.Item(ctx, query.ItemID)
}
