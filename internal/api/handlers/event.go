package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/service"
)

type EventHandler struct {
	memory *service.MemoryService
}

func NewEventHandler(memory *service.MemoryService) *EventHandler {
	return &EventHandler{memory: memory}
}

type appendEventRequest struct {
	Type    string         `json:"type"`
	Content string         `json:"content"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Append records an externally-sourced story event, e.g. the player finishing
// a workout that closes a quest objective.
func (h *EventHandler) Append(w http.ResponseWriter, r *http.Request) {
	id, ok := characterID(w, r)
	if !ok {
		return
	}

	var req appendEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidEventType(req.Type) {
		writeError(w, http.StatusBadRequest, "invalid event type")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	event := &domain.NarrativeEvent{
		CharacterID: id,
		Type:        domain.EventType(req.Type),
		Content:     req.Content,
		Payload:     req.Payload,
	}
	if err := h.memory.AppendEvent(r.Context(), event); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to append event")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}
