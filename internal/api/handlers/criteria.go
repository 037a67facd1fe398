package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CriteriaHandler struct {
	store domain.CriteriaStore
}

func NewCriteriaHandler(store domain.CriteriaStore) *CriteriaHandler {
	return &CriteriaHandler{store: store}
}

func (h *CriteriaHandler) List(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListTopics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list topics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics, "count": len(topics)})
}

func (h *CriteriaHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, err := h.store.GetByTopic(r.Context(), chi.URLParam(r, "topic"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, set)
}
