package handlers

import (
	"net/http"

	"github.com/dxbintel/propsignal/internal/pipeline"
	"github.com/dxbintel/propsignal/internal/scheduler"
	"github.com/dxbintel/propsignal/pkg/logger"
)

// PipelineHandler triggers pipeline runs and reports scheduler state.
type PipelineHandler struct {
	orchestrator *pipeline.Orchestrator
	scheduler    *scheduler.Scheduler
	logger       *logger.Logger
}

// NewPipelineHandler creates a pipeline handler. sched may be nil when the
// server runs without the scheduler.
func NewPipelineHandler(orchestrator *pipeline.Orchestrator, sched *scheduler.Scheduler, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		orchestrator: orchestrator,
		scheduler:    sched,
		logger:       log,
	}
}

// Trigger runs the full pipeline synchronously for the calling org and
// returns the run report. Safe to call repeatedly: all writes are idempotent.
// POST /api/pipeline/run
func (h *PipelineHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	org := orgID(r)
	if org == "" {
		respondError(w, http.StatusBadRequest, "X-Org-ID header is required")
		return
	}

	res := h.orchestrator.Run(r.Context(), org)

	status := http.StatusOK
	if len(res.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, res)
}

// JobStats reports execution statistics of scheduled jobs.
// GET /api/pipeline/jobs
func (h *PipelineHandler) JobStats(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": map[string]interface{}{}})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.scheduler.Stats(),
	})
}
