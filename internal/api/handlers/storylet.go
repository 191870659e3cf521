package handlers

import (
	"errors"
	"net/http"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/service"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/go-chi/chi/v5"
)

type StoryletHandler struct {
	storylets     *service.StoryletService
	storyletStore domain.StoryletStore
}

func NewStoryletHandler(storylets *service.StoryletService, storyletStore domain.StoryletStore) *StoryletHandler {
	return &StoryletHandler{storylets: storylets, storyletStore: storyletStore}
}

type storyletView struct {
	Key            string              `json:"key"`
	Title          string              `json:"title"`
	Type           domain.StoryletType `json:"type"`
	AnchorsTheme   bool                `json:"anchors_theme"`
	Urgency        int                 `json:"urgency"`
	RequiresUnlock bool                `json:"requires_unlock"`
}

func toStoryletView(sl domain.Storylet) storyletView {
	return storyletView{
		Key:            sl.Key,
		Title:          sl.Title,
		Type:           sl.Type,
		AnchorsTheme:   sl.AnchorsTheme,
		Urgency:        sl.Urgency,
		RequiresUnlock: sl.RequiresUnlock,
	}
}

type listStoryletsResponse struct {
	Storylets []storyletView `json:"storylets"`
	Count     int            `json:"count"`
}

func (h *StoryletHandler) List(w http.ResponseWriter, r *http.Request) {
	storylets, err := h.storyletStore.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list storylets")
		return
	}
	views := make([]storyletView, 0, len(storylets))
	for _, sl := range storylets {
		views = append(views, toStoryletView(sl))
	}
	writeJSON(w, http.StatusOK, listStoryletsResponse{Storylets: views, Count: len(views)})
}

func (h *StoryletHandler) GetByKey(w http.ResponseWriter, r *http.Request) {
	sl, err := h.storyletStore.GetByKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "storylet not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get storylet")
		return
	}
	writeJSON(w, http.StatusOK, toStoryletView(*sl))
}

// Available returns the storylets the character can currently enter, in
// selection order.
func (h *StoryletHandler) Available(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	available, err := h.storylets.Available(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute available storylets")
		return
	}
	completed, err := h.storylets.QuestsCompleted(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read quest counter")
		return
	}

	sorted := service.SortForSelection(available, completed)
	views := make([]storyletView, 0, len(sorted))
	for _, sl := range sorted {
		views = append(views, toStoryletView(sl))
	}
	writeJSON(w, http.StatusOK, listStoryletsResponse{Storylets: views, Count: len(views)})
}
