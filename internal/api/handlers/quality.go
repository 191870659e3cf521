package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/service"
)

type QualityHandler struct {
	storylets *service.StoryletService
}

func NewQualityHandler(storylets *service.StoryletService) *QualityHandler {
	return &QualityHandler{storylets: storylets}
}

type qualityView struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type listQualitiesResponse struct {
	Qualities        []qualityView `json:"qualities"`
	ProgressionStage int           `json:"progression_stage"`
}

func (h *QualityHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	qualities, err := h.storylets.Qualities(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list qualities")
		return
	}

	views := make([]qualityView, 0, len(qualities))
	for _, q := range qualities {
		views = append(views, qualityView{
			Name:  q.Name,
			Type:  string(q.Value.Type),
			Value: q.Value.Any(),
		})
	}

	writeJSON(w, http.StatusOK, listQualitiesResponse{
		Qualities:        views,
		ProgressionStage: domain.ComputeProgressionStage(qualities),
	})
}

type setQualityRequest struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (h *QualityHandler) Set(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	var req setQualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	value, err := domain.ValueFromAny(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storylets.SetQuality(r.Context(), id, req.Name, value); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set quality")
		return
	}
	writeJSON(w, http.StatusOK, qualityView{Name: req.Name, Type: string(value.Type), Value: value.Any()})
}
