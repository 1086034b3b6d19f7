package handlers

import (
	"context"

	"humaneval/application/commands"
	"humaneval/application/ports"
	"humaneval/application/services"
	"humaneval/domain/core/entities"
	"humaneval/domain/core/valueobjects"
	"humaneval/domain/events"
	pkgerrors "humaneval/pkg/errors"
	"humaneval/pkg/observability"
	"humaneval/pkg/utils"

	"go.uber.org/zap"
)

// SubmitRatingHandler persists one rating and then advances the session.
//
// The order is the correctness contract: the cursor only moves after the
// sink has confirmed the append. A failed append leaves the rater on the
// same item so the identical submission can be retried.
type SubmitRatingHandler struct {
	assigner  *services.SessionAssigner
	recorder  *services.ResultRecorder
	catalog   ports.ItemCatalog
	rubric    valueobjects.Rubric
	publisher ports.EventPublisher
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewSubmitRatingHandler creates a new submit rating handler
func NewSubmitRatingHandler(
	assigner *services.SessionAssigner,
	recorder *services.ResultRecorder,
	catalog ports.ItemCatalog,
	rubric valueobjects.Rubric,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *SubmitRatingHandler {
	return &SubmitRatingHandler{
		assigner:  assigner,
		recorder:  recorder,
		catalog:   catalog,
		rubric:    rubric,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle processes the submit rating command
func (h *SubmitRatingHandler) Handle(ctx context.Context, cmd commands.SubmitRatingCommand) error {
	raterID, err := valueobjects.NewRaterID(cmd.RaterID)
	if err != nil {
		return err
	}

	var recorded []events.DomainEvent
	err = h.assigner.WithRaterLock(raterID, func() error {
		session, err := h.assigner.Lookup(ctx, raterID.String())
		if err != nil {
			return err
		}

		current, ok := h.assigner.CurrentItem(session)
		if !ok {
			return pkgerrors.NewAlreadyCompleteError(raterID.String())
		}
		if cmd.ItemID != current {
			h.metrics.StaleSubmission()
			h.logger.Info("Rejected stale submission",
				zap.String("raterID", raterID.String()),
				zap.String("submittedItem", cmd.ItemID),
				zap.String("currentItem", current),
			)
			return pkgerrors.NewStaleSubmissionError(cmd.ItemID, current)
		}

		item, err := h.catalog.Item(ctx, current)
		if err != nil {
			return err
		}

		rating, err := entities.NewRating(raterID, item, cmd.Scores, h.rubric, utils.NowUTC())
		if err != nil {
			return err
		}

		if err := h.recorder.Record(ctx, rating); err != nil {
			return err
		}

		if err := h.assigner.Advance(ctx, session); err != nil {
			return err
		}

		done, _ := session.Progress()
		recorded = append(recorded, events.NewRatingRecorded(
			raterID.String(), rating.ID(), rating.ItemID(), done, session.Version(), rating.CreatedAt(),
		))
		recorded = append(recorded, session.GetUncommittedEvents()...)
		session.MarkEventsAsCommitted()
		return nil
	})
	if err != nil {
		return err
	}

	if err := h.publisher.PublishBatch(ctx, recorded); err != nil {
		h.logger.Warn("Failed to publish rating events",
			zap.String("raterID", raterID.String()),
			zap.Error(err),
		)
	}
	return nil
}
