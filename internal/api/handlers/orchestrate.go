package handlers

import (
	"errors"
	"net/http"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/service"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
)

type OrchestrateHandler struct {
	director   *service.Director
	characters domain.CharacterStore
}

func NewOrchestrateHandler(director *service.Director, characters domain.CharacterStore) *OrchestrateHandler {
	return &OrchestrateHandler{director: director, characters: characters}
}

// Run triggers one orchestration pass for the character. The engine decides
// whether content is warranted; callers inspect the outcome field.
func (h *OrchestrateHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	if _, err := h.characters.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "character not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load character")
		return
	}

	result := h.director.Orchestrate(r.Context(), id)
	status := http.StatusOK
	if result.Outcome == service.OutcomeError {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

func (h *OrchestrateHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.director.Metrics().Snapshot())
}
