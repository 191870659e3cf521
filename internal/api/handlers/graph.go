package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/service"
	"github.com/google/uuid"
)

type GraphHandler struct {
	graph *service.GraphService
}

func NewGraphHandler(graph *service.GraphService) *GraphHandler {
	return &GraphHandler{graph: graph}
}

func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	graph, err := h.graph.EntityGraph(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load entity graph")
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

type relationshipsResponse struct {
	Relationships []domain.Relationship `json:"relationships"`
	Count         int                   `json:"count"`
}

// QueryRelationships supports temporal queries like "allies established
// before act 2" via query params: type, entity_id, established_before
// (RFC 3339), min_strength.
func (h *GraphHandler) QueryRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	filter := domain.RelationshipFilter{CharacterID: id}

	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		if !domain.ValidRelationType(typeStr) {
			writeError(w, http.StatusBadRequest, "invalid type parameter")
			return
		}
		rt := domain.RelationType(typeStr)
		filter.Type = &rt
	}
	if entityStr := r.URL.Query().Get("entity_id"); entityStr != "" {
		entityID, err := uuid.Parse(entityStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid entity_id parameter")
			return
		}
		filter.EntityID = &entityID
	}
	if beforeStr := r.URL.Query().Get("established_before"); beforeStr != "" {
		before, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "established_before must be RFC 3339")
			return
		}
		filter.EstablishedBefore = &before
	}
	if minStr := r.URL.Query().Get("min_strength"); minStr != "" {
		min, err := strconv.ParseFloat(minStr, 32)
		if err != nil || min < 0 || min > 1 {
			writeError(w, http.StatusBadRequest, "min_strength must be in [0,1]")
			return
		}
		f := float32(min)
		filter.MinStrength = &f
	}

	rels, err := h.graph.QueryRelationships(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query relationships")
		return
	}
	writeJSON(w, http.StatusOK, relationshipsResponse{Relationships: rels, Count: len(rels)})
}
