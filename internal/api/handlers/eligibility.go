package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/Harshitk-cp/reliefpath/internal/service"
	"go.uber.org/zap"
)

type EligibilityHandler struct {
	svc    *service.EligibilityService
	logger *zap.Logger
}

func NewEligibilityHandler(svc *service.EligibilityService, logger *zap.Logger) *EligibilityHandler {
	return &EligibilityHandler{svc: svc, logger: logger}
}

func (h *EligibilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req domain.EligibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.Check(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("eligibility check failed", zap.String("topic", req.Topic), zap.Error(err))
			writeError(w, status, "failed to evaluate eligibility")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
