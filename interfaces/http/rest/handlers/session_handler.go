package handlers

import (
	"encoding/json"
	"net/http"

	"humaneval/application/commands"
	"humaneval/application/commands/bus"
	"humaneval/application/queries"
	querybus "humaneval/application/queries/bus"
	pkgerrors "humaneval/pkg/errors"
	"humaneval/pkg/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// SessionHandler handles rater session HTTP requests
type SessionHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// StartSessionRequest represents the request body for starting a session
type StartSessionRequest struct {
	RaterID string `json:"raterId" validate:"required"`
}

// SubmitRatingRequest represents the request body for rating the current item
type SubmitRatingRequest struct {
	ItemID string         `json:"itemId" validate:"required"`
	Scores map[string]int `json:"scores" validate:"required,min=1"`
}

// StartSession handles POST /sessions. Calling it again for the same rater
// returns the existing session unchanged.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.commandBus.Send(r.Context(), commands.StartSessionCommand{RaterID: req.RaterID}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondStatus(w, r, req.RaterID)
}

// GetSession handles GET /sessions/{raterID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	raterID, ok := h.raterParam(w, r)
	if !ok {
		return
	}
	h.respondStatus(w, r, raterID)
}

// SubmitRating handles POST /sessions/{raterID}/ratings
func (h *SessionHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	raterID, ok := h.raterParam(w, r)
	if !ok {
		return
	}

	var req SubmitRatingRequest
	if !h.decode(w, r, &req) {
		return
	}

	cmd := commands.SubmitRatingCommand{
		RaterID: raterID,
		ItemID:  req.ItemID,
		Scores:  req.Scores,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondStatus(w, r, raterID)
}

func (h *SessionHandler) respondStatus(w http.ResponseWriter, r *http.Request, raterID string) {
	status, err := querybus.Ask[*queries.SessionStatus](r.Context(), h.queryBus, queries.GetSessionStatusQuery{RaterID: raterID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status, h.logger)
}

func (h *SessionHandler) raterParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raterID, err := pathParam(r, "raterID")
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewInvalidIdentityError("malformed path segment"))
		return "", false
	}
	return raterID, true
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body: "+err.Error()))
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		h.errors.Handle(w, r, err)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
