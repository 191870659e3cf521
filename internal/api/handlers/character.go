package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CharacterHandler struct {
	characters domain.CharacterStore
}

func NewCharacterHandler(characters domain.CharacterStore) *CharacterHandler {
	return &CharacterHandler{characters: characters}
}

type createCharacterRequest struct {
	Name      string `json:"name"`
	Archetype string `json:"archetype,omitempty"`
}

func (h *CharacterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	c := &domain.Character{Name: req.Name, Archetype: req.Archetype}
	if err := h.characters.Create(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create character")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CharacterHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return
	}

	c, err := h.characters.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "character not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get character")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// characterID parses the {id} route param shared by the nested resources.
func characterID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return uuid.Nil, false
	}
	return id, true
}
