package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tutorui/internal/genui"
)

type eventRequest struct {
	UserID string                  `json:"userId"`
	Event  *genui.InteractionEvent `json:"event"`
}

type eventResponse struct {
	Acknowledgement *genui.Acknowledgement `json:"acknowledgement"`
}

// PostEvent handles POST /v1/events. A null acknowledgement means the event
// was recorded but there is nothing to say.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Event == nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", errors.New("event is required"))
		return
	}
	ack := h.svc.HandleEvent(r.Context(), strings.TrimSpace(req.UserID), *req.Event)
	respondJSON(w, http.StatusOK, eventResponse{Acknowledgement: ack})
}
