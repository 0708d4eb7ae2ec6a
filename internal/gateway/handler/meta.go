package handler

import (
	"net/http"

	"tutorui/internal/genui"
)

type catalogEntry struct {
	Type        genui.ComponentType `json:"type"`
	Description string              `json:"description,omitempty"`
}

// Schema serves the page JSON schema the model is prompted with.
func (h *Handler) Schema(w http.ResponseWriter, _ *http.Request) {
	raw, err := genui.PageSchemaJSON(h.svc.Orchestrator().Catalog())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *Handler) Catalog(w http.ResponseWriter, _ *http.Request) {
	specs := h.svc.Orchestrator().Catalog().Specs()
	out := make([]catalogEntry, 0, len(specs))
	for _, s := range specs {
		out = append(out, catalogEntry{Type: s.Type, Description: s.Description})
	}
	respondJSON(w, http.StatusOK, map[string]any{"components": out})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
