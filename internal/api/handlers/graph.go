package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/Harshitk-cp/reliefpath/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GraphHandler struct {
	graph    *service.KnowledgeGraph
	maxDepth int
	logger   *zap.Logger
}

func NewGraphHandler(graph *service.KnowledgeGraph, maxDepth int, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{graph: graph, maxDepth: maxDepth, logger: logger}
}

type extractRequest struct {
	SourceDocumentID string `json:"source_document_id"`
	Text             string `json:"text"`
}

type pathsResponse struct {
	Paths []domain.ReasoningPath `json:"paths"`
	Count int                    `json:"count"`
}

func (h *GraphHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req domain.GraphExtraction
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SourceDocumentID == "" {
		writeError(w, http.StatusBadRequest, "source_document_id is required")
		return
	}

	result := h.graph.Ingest(&req)
	h.persist(r)

	writeJSON(w, http.StatusOK, result)
}

func (h *GraphHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SourceDocumentID == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "source_document_id and text are required")
		return
	}

	result, err := h.graph.ExtractFromDocument(r.Context(), req.SourceDocumentID, req.Text)
	if err != nil {
		h.logger.Warn("rule graph extraction failed",
			zap.String("source_document_id", req.SourceDocumentID),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to extract rule graph")
		return
	}
	h.persist(r)

	writeJSON(w, http.StatusOK, result)
}

func (h *GraphHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	merged := h.graph.Consolidate()
	if merged > 0 {
		h.persist(r)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities_merged": merged,
		"stats":           h.graph.Stats(),
	})
}

func (h *GraphHandler) Export(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.graph.Snapshot())
}

func (h *GraphHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.graph.Stats())
}

func (h *GraphHandler) Paths(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	startID, err := uuid.Parse(q.Get("start_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_id")
		return
	}

	targetType := q.Get("target_type")
	if targetType == "" {
		targetType = string(domain.EntityOutcome)
	}
	if !domain.ValidEntityType(targetType) {
		writeError(w, http.StatusBadRequest, "invalid target_type")
		return
	}

	depth := 0
	if v := q.Get("max_depth"); v != "" {
		depth, err = strconv.Atoi(v)
		if err != nil || depth < 1 {
			writeError(w, http.StatusBadRequest, "max_depth must be a positive integer")
			return
		}
	}

	reasoner := service.NewPathReasoner(h.graph.Snapshot(), h.maxDepth)
	paths, err := reasoner.FindPaths(startID, domain.EntityType(targetType), depth)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pathsResponse{Paths: paths, Count: len(paths)})
}

// persist saves the graph after a mutation. Failures are logged; the
// in-memory graph stays authoritative until the next successful save.
func (h *GraphHandler) persist(r *http.Request) {
	if err := h.graph.Save(r.Context()); err != nil {
		h.logger.Error("failed to persist knowledge graph", zap.Error(err))
	}
}
