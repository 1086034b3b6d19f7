package handlers

import (
	"net/http"

	"humaneval/application/queries"
	"humaneval/domain/core/entities"
	querybus "humaneval/application/queries/bus"
	pkgerrors "humaneval/pkg/errors"

	"go.uber.org/zap"
)

// ItemHandler serves catalog items so a UI can render the current item
type ItemHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(queryBus *querybus.QueryBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{queryBus: queryBus, errors: errorHandler, logger: logger}
}

// GetItem handles GET /items/{itemID}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathParam(r, "itemID")
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("malformed item ID"))
		return
	}

	item, err := querybus.Ask[entities.Item](r.Context(), h.queryBus, queries.GetItemQuery{ItemID: itemID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item, h.logger)
}
