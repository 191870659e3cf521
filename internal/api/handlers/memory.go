package handlers

import (
	"net/http"
	"strconv"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/service"
)

type MemoryHandler struct {
	memory *service.MemoryService
}

func NewMemoryHandler(memory *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{memory: memory}
}

type workingMemoryResponse struct {
	Events []domain.NarrativeEvent `json:"events"`
	Count  int                     `json:"count"`
}

func (h *MemoryHandler) WorkingMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	events, err := h.memory.WorkingMemory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load working memory")
		return
	}
	writeJSON(w, http.StatusOK, workingMemoryResponse{Events: events, Count: len(events)})
}

type storySummaryResponse struct {
	NarrativeSummary string                  `json:"narrative_summary"`
	Episodes         []domain.EpisodeSummary `json:"episodes"`
}

func (h *MemoryHandler) Story(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	summary, err := h.memory.NarrativeSummary(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load narrative summary")
		return
	}
	episodes, err := h.memory.EpisodeSummaries(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load episodes")
		return
	}
	writeJSON(w, http.StatusOK, storySummaryResponse{NarrativeSummary: summary, Episodes: episodes})
}

type retrieveResponse struct {
	Items []domain.RetrievedItem `json:"items"`
	Query string                 `json:"query"`
	Count int                    `json:"count"`
}

func (h *MemoryHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	limit := 5
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	items, err := h.memory.Retrieve(r.Context(), id, query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve memories")
		return
	}
	if items == nil {
		items = []domain.RetrievedItem{}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Items: items, Query: query, Count: len(items)})
}
