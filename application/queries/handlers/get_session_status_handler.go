package handlers

import (
	"context"

	"humaneval/application/ports"
	"humaneval/application/queries"
	"humaneval/application/services"

	"go.uber.org/zap"
)

// GetSessionStatusHandler handles session status queries
type GetSessionStatusHandler struct {
	assigner *services.SessionAssigner
	catalog  ports.ItemCatalog
	logger   *zap.Logger
}

// NewGetSessionStatusHandler creates a new handler
func NewGetSessionStatusHandler(assigner *services.SessionAssigner, catalog ports.ItemCatalog, logger *zap.Logger) *GetSessionStatusHandler {
	return &GetSessionStatusHandler{
		assigner: assigner,
		catalog:  catalog,
		logger:   logger,
	}
}

// Handle processes the query
func (h *GetSessionStatusHandler) Handle(ctx context.Context, query queries.GetSessionStatusQuery) (*queries.SessionStatus, error) {
	session, err := h.assigner.Lookup(ctx, query.RaterID)
	if err != nil {
		return nil, err
	}

	current, ok := h.assigner.CurrentItem(session)
	if !ok {
		return queries.NewSessionStatus(session, nil), nil
	}

	item, err := h.catalog.Item(ctx, current)
	if err != nil {
		h.logger.Error("Assigned item missing from catalog",
			zap.String("raterID", query.RaterID),
			zap.String("itemID", current),
			zap.Error(err),
		)
		return nil, err
	}

	return queries.NewSessionStatus(session, &item), nil
}
