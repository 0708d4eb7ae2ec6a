package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tutorui/internal/gateway/repository/pagearchive"
	"tutorui/internal/gateway/service/tutor"
	"tutorui/internal/genui"
)

const archiveKeyHeader = "X-Page-Archive-Key"

type composeRequest struct {
	Utterance string               `json:"utterance"`
	Context   genui.RequestContext `json:"context"`
	Mode      string               `json:"mode"`
}

// ComposePage handles POST /v1/pages.
func (h *Handler) ComposePage(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid request body: %w", err))
		return
	}
	mode, err := tutor.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	res, err := h.svc.Compose(r.Context(), tutor.ComposeRequest{
		Utterance: req.Utterance,
		Context:   req.Context,
		Mode:      mode,
	})
	if err != nil {
		status, code := composeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Warn("compose failed", zap.String("mode", string(mode)), zap.Error(err))
		}
		respondError(w, status, code, err)
		return
	}
	if res.ArchiveKey != "" {
		w.Header().Set(archiveKeyHeader, res.ArchiveKey)
	}
	respondJSON(w, http.StatusOK, res.Page)
}

// ArchivedPage handles GET /v1/pages/archive/*.
func (h *Handler) ArchivedPage(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "*"))
	if key == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", errors.New("archive key is required"))
		return
	}
	page, err := h.svc.ArchivedPage(r.Context(), key)
	switch {
	case errors.Is(err, pagearchive.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal", err)
	default:
		respondJSON(w, http.StatusOK, page)
	}
}

func composeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, tutor.ErrEmptyUtterance), errors.Is(err, tutor.ErrUnknownMode):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, genui.ErrAdapter):
		return http.StatusBadGateway, "adapter_error"
	case errors.Is(err, genui.ErrParse):
		return http.StatusBadGateway, "parse_error"
	case errors.Is(err, genui.ErrValidation):
		return http.StatusBadGateway, "validation_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
