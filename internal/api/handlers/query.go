package handlers

import (
	"net/http"
	"strings"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/Harshitk-cp/reliefpath/internal/service"
)

type QueryHandler struct {
	orchestrator *service.Orchestrator
}

func NewQueryHandler(orchestrator *service.Orchestrator) *QueryHandler {
	return &QueryHandler{orchestrator: orchestrator}
}

func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.MaxIterations < 0 || req.MaxIterations > 3 {
		writeError(w, http.StatusBadRequest, "max_iterations must be between 1 and 3")
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, "top_k must be positive")
		return
	}

	result, err := h.orchestrator.Run(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
