package handlers

import (
	"context"
	"fmt"

	"humaneval/application/commands"
	"humaneval/application/ports"
	"humaneval/application/services"

	"go.uber.org/zap"
)

// StartSessionHandler assigns a subset on a rater's first contact
type StartSessionHandler struct {
	assigner   *services.SessionAssigner
	catalog    ports.ItemCatalog
	publisher  ports.EventPublisher
	sampleSize int
	logger     *zap.Logger
}

// NewStartSessionHandler creates a new start session handler
func NewStartSessionHandler(
	assigner *services.SessionAssigner,
	catalog ports.ItemCatalog,
	publisher ports.EventPublisher,
	sampleSize int,
	logger *zap.Logger,
) *StartSessionHandler {
	return &StartSessionHandler{
		assigner:   assigner,
		catalog:    catalog,
		publisher:  publisher,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

// Handle processes the start session command
func (h *StartSessionHandler) Handle(ctx context.Context, cmd commands.StartSessionCommand) error {
	pool, err := h.catalog.Pool(ctx)
	if err != nil {
		return fmt.Errorf("failed to read item pool: %w", err)
	}

	session, err := h.assigner.StartSession(ctx, cmd.RaterID, pool, h.sampleSize)
	if err != nil {
		return err
	}

	if pending := session.GetUncommittedEvents(); len(pending) > 0 {
		if err := h.publisher.PublishBatch(ctx, pending); err != nil {
			h.logger.Warn("Failed to publish session events",
				zap.String("raterID", session.RaterID().String()),
				zap.Error(err),
			)
		}
		session.MarkEventsAsCommitted()
	}

	return nil
}
